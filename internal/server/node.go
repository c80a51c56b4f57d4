package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mesh_chat/internal/check"
	"mesh_chat/internal/config"
	"mesh_chat/internal/dataType"
	"mesh_chat/internal/protocol"
	"mesh_chat/internal/telemetry"
)

// maxDatagramSize is the largest UDP payload.
const maxDatagramSize = 64 * 1024

var (
	ErrNotStarted     = errors.New("node not started")
	ErrAlreadyStarted = errors.New("node already started")
)

// ListenFunc binds a datagram endpoint. net.ListenPacket is the default.
type ListenFunc func(network, address string) (net.PacketConn, error)

type Option func(*Node)

func WithLogger(lg *zap.Logger) Option {
	return func(n *Node) { n.logger = lg }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

func WithListener(listen ListenFunc) Option {
	return func(n *Node) { n.listen = listen }
}

func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// Node is one participant of the mesh. It floods chat and ping messages to
// its static peers and suppresses duplicates with a time-windowed seen-set.
type Node struct {
	cfg     *config.MainConfig
	label   string
	peers   *dataType.PeerSet
	seen    *dataType.SeenSet
	env     *check.Env
	logger  *zap.Logger
	metrics *telemetry.Metrics
	listen  ListenFunc
	now     func() time.Time

	// procMu makes the admission check, seen-set insert and fan-out of one
	// message a single unit with respect to other messages. It also guards
	// conn, cancel, closeOnce and closeErr. Display runs outside it.
	procMu sync.Mutex
	conn   net.PacketConn

	displayMu sync.RWMutex
	display   func(string)

	running   atomic.Bool
	cancel    context.CancelFunc
	closeOnce *sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewNode builds a node from a validated configuration. Peers are resolved
// to UDP addresses here.
func NewNode(cfg *config.MainConfig, opts ...Option) (*Node, error) {
	n := &Node{
		cfg:    cfg,
		label:  cfg.Label(),
		peers:  dataType.NewPeerSet(),
		seen:   dataType.NewSeenSet(dataType.DefaultSeenBuckets),
		listen: net.ListenPacket,
		now:    time.Now,
		display: func(line string) {
			fmt.Fprintln(os.Stdout, line)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.metrics == nil {
		n.metrics = telemetry.NewMetrics()
	}
	n.env = &check.Env{Label: n.label, Seen: n.seen}

	for _, p := range cfg.PeerList {
		if err := n.AddPeer(p.Host, p.Port); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// AddPeer appends a neighbour. Adding a known peer is a no-op.
func (n *Node) AddPeer(host string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("failed to resolve peer %s:%d: %w", host, port, err)
	}
	if n.peers.Add(addr) {
		n.logger.Debug("peer added", zap.Stringer("peer", addr))
	}
	return nil
}

// SetDisplay registers the callback that receives "<src> body" lines.
func (n *Node) SetDisplay(fn func(string)) {
	n.displayMu.Lock()
	defer n.displayMu.Unlock()
	n.display = fn
}

func (n *Node) Label() string {
	return n.label
}

func (n *Node) Peers() []string {
	return n.peers.Labels()
}

func (n *Node) SeenCount() int {
	return n.seen.Len()
}

func (n *Node) Running() bool {
	return n.running.Load()
}

func (n *Node) Metrics() *telemetry.Metrics {
	return n.metrics
}

// Start binds the transport and launches the receive loop and the GC and
// heartbeat tasks. They run until Stop is called or ctx is cancelled. A node
// stopped through ctx must be Stopped before it can start again.
func (n *Node) Start(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	n.procMu.Lock()
	if n.conn != nil {
		n.procMu.Unlock()
		n.running.Store(false)
		return ErrAlreadyStarted
	}
	conn, err := n.listen("udp", n.label)
	if err != nil {
		n.procMu.Unlock()
		n.running.Store(false)
		return fmt.Errorf("failed to bind to %s: %w", n.label, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	once := new(sync.Once)
	n.conn = conn
	n.cancel = cancel
	n.closeOnce = once
	n.closeErr = nil
	n.wg.Add(4)
	n.procMu.Unlock()

	n.logger.Info("node started", zap.String("label", n.label))
	if n.peers.Len() > 0 {
		n.logger.Info("connected to peers", zap.Strings("peers", n.peers.Labels()))
	}

	go n.readLoop(ctx, conn)
	go n.gcLoop(ctx)
	go n.heartbeatLoop(ctx)
	go func() {
		defer n.wg.Done()
		<-ctx.Done()
		n.running.Store(false)
		n.closeConn(once, conn)
	}()
	return nil
}

// Stop closes the transport and waits for the background tasks to exit.
func (n *Node) Stop() error {
	n.procMu.Lock()
	conn, cancel, once := n.conn, n.cancel, n.closeOnce
	n.procMu.Unlock()
	if conn == nil || cancel == nil {
		return nil
	}

	n.running.Store(false)
	cancel()
	n.closeConn(once, conn)
	n.wg.Wait()

	n.procMu.Lock()
	n.conn = nil
	closeErr := n.closeErr
	n.procMu.Unlock()

	n.logger.Info("node stopped", zap.String("label", n.label))
	return closeErr
}

func (n *Node) closeConn(once *sync.Once, conn net.PacketConn) {
	once.Do(func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			n.procMu.Lock()
			n.closeErr = multierr.Append(n.closeErr, err)
			n.procMu.Unlock()
		}
	})
}

func (n *Node) readLoop(ctx context.Context, conn net.PacketConn) {
	defer n.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		size, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			n.logger.Warn("udp read failed", zap.Error(err))
			continue
		}
		data := make([]byte, size)
		copy(data, buf[:size])
		n.handleDatagram(data, from)
	}
}

// handleDatagram runs one inbound datagram through decode, admission,
// display and forwarding.
func (n *Node) handleDatagram(data []byte, from net.Addr) {
	n.metrics.DatagramsReceived.Inc()

	msg, err := protocol.Decode(data)
	if err != nil {
		n.metrics.DecodeErrors.WithLabelValues(protocol.ErrorKind(err)).Inc()
		n.logger.Warn("failed to decode message", zap.Stringer("from", addrStringer{from}), zap.Error(err))
		return
	}

	if n.flood(msg, from) {
		n.emit(msg)
	}
}

// flood admits msg and forwards it as one unit with respect to other
// messages. It reports whether msg should be displayed; the caller does that
// after procMu is released so display callbacks may send.
func (n *Node) flood(msg dataType.Message, from net.Addr) bool {
	n.procMu.Lock()
	defer n.procMu.Unlock()

	decision := n.evaluate(msg)
	if !decision.Admitted() {
		n.metrics.Dropped.WithLabelValues(string(decision.Reason)).Inc()
		n.logger.Debug("message dropped",
			zap.String("mid", msg.ID),
			zap.String("reason", string(decision.Reason)),
			zap.Stringer("from", addrStringer{from}))
		return false
	}

	n.forward(msg, from)
	return decision.Display
}

// forward relays a copy with one less hop to every peer except the sender.
// Caller holds procMu.
func (n *Node) forward(msg dataType.Message, from net.Addr) {
	if n.conn == nil {
		return
	}
	data, err := protocol.Encode(msg.WithTTL(msg.TTL - 1))
	if err != nil {
		n.logger.Error("failed to encode forwarded message", zap.String("mid", msg.ID), zap.Error(err))
		return
	}
	for _, peer := range n.peers.All() {
		if from != nil && peer.String() == from.String() {
			continue
		}
		n.sendTo(data, peer, "forward")
	}
}

// Say originates a chat message. An empty dst broadcasts.
func (n *Node) Say(text, dst string) error {
	return n.originate(protocol.NewChat(n.label, text, n.cfg.TTL, dst))
}

// SendLine originates a chat message from a typed line, honouring the
// "@host:port body" addressing syntax.
func (n *Node) SendLine(line string) error {
	return n.originate(protocol.ParseAddressed(line, n.label, n.cfg.TTL))
}

// PingPeers originates one heartbeat. It does nothing without peers.
func (n *Node) PingPeers() error {
	if n.peers.Len() == 0 {
		return nil
	}
	return n.originate(protocol.NewPing(n.label, n.cfg.PingTTL))
}

// originate marks a locally created message as seen, sends it to every peer
// and shows it when it is displayable here.
func (n *Node) originate(msg dataType.Message) error {
	display, err := n.spread(msg)
	if err != nil {
		return err
	}
	if display {
		n.emit(msg)
	}
	return nil
}

func (n *Node) spread(msg dataType.Message) (bool, error) {
	n.procMu.Lock()
	defer n.procMu.Unlock()

	if n.conn == nil || !n.running.Load() {
		return false, ErrNotStarted
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return false, err
	}

	n.seen.MarkIfAbsent(msg.ID, n.now())
	n.metrics.SeenEntries.Set(float64(n.seen.Len()))
	n.metrics.Originated.WithLabelValues(string(msg.Kind)).Inc()

	for _, peer := range n.peers.All() {
		n.sendTo(data, peer, "originate")
	}
	return n.shouldDisplay(msg), nil
}

// sendTo writes one datagram. Failures are logged and do not affect the
// other peers.
func (n *Node) sendTo(data []byte, peer *net.UDPAddr, op string) {
	if _, err := n.conn.WriteTo(data, peer); err != nil {
		n.metrics.SendErrors.WithLabelValues(op).Inc()
		n.logger.Warn("failed to send message", zap.String("op", op), zap.Stringer("peer", peer), zap.Error(err))
		return
	}
	n.metrics.Sent.WithLabelValues(op).Inc()
}

func (n *Node) emit(msg dataType.Message) {
	if !msg.IsChat() {
		return
	}
	line := fmt.Sprintf("<%s> %s", msg.Src, msg.Body)

	n.displayMu.RLock()
	display := n.display
	n.displayMu.RUnlock()

	n.metrics.Displayed.Inc()
	if display != nil {
		display(line)
	}
}

// addrStringer renders a possibly nil net.Addr for log fields.
type addrStringer struct {
	addr net.Addr
}

func (a addrStringer) String() string {
	if a.addr == nil {
		return "<nil>"
	}
	return a.addr.String()
}
