// Package transport provides an in-memory datagram network whose endpoints
// satisfy net.PacketConn, so nodes can be wired together in tests and
// simulations without real sockets.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

const inboxSize = 1024

var ErrAddrInUse = errors.New("address already in use")

type packet struct {
	data []byte
	from *net.UDPAddr
}

// Network routes datagrams between the connections it created. Like UDP,
// writes to unknown addresses or full inboxes are silently lost.
type Network struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	failTo map[string]error
}

func NewNetwork() *Network {
	return &Network{
		conns:  make(map[string]*Conn),
		failTo: make(map[string]error),
	}
}

// ListenPacket has the signature of net.ListenPacket.
func (n *Network) ListenPacket(network, address string) (net.PacketConn, error) {
	addr, err := net.ResolveUDPAddr(network, address)
	if err != nil {
		return nil, err
	}
	key := addr.String()

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.conns[key]; exists {
		return nil, &net.OpError{Op: "listen", Net: network, Addr: addr, Err: ErrAddrInUse}
	}
	c := &Conn{
		network: n,
		addr:    addr,
		inbox:   make(chan packet, inboxSize),
		closed:  make(chan struct{}),
	}
	n.conns[key] = c
	return c, nil
}

// FailWritesTo makes every write to address fail with err. A nil err clears it.
func (n *Network) FailWritesTo(address string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failTo, address)
		return
	}
	n.failTo[address] = err
}

func (n *Network) deliver(from *net.UDPAddr, to net.Addr, data []byte) error {
	key := to.String()

	n.mu.RLock()
	failErr := n.failTo[key]
	target := n.conns[key]
	n.mu.RUnlock()

	if failErr != nil {
		return failErr
	}
	if target == nil {
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case target.inbox <- packet{data: buf, from: from}:
	case <-target.closed:
	default:
	}
	return nil
}

func (n *Network) remove(c *Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conns[c.addr.String()] == c {
		delete(n.conns, c.addr.String())
	}
}

// Conn is one endpoint on a Network.
type Conn struct {
	network *Network
	addr    *net.UDPAddr
	inbox   chan packet
	closed  chan struct{}
	once    sync.Once

	mu           sync.Mutex
	readDeadline time.Time
}

func (c *Conn) ReadFrom(p []byte) (int, net.Addr, error) {
	c.mu.Lock()
	deadline := c.readDeadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, nil, c.opError("read", os.ErrDeadlineExceeded)
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case pkt := <-c.inbox:
		return copy(p, pkt.data), pkt.from, nil
	case <-c.closed:
		return 0, nil, c.opError("read", net.ErrClosed)
	case <-timeout:
		return 0, nil, c.opError("read", os.ErrDeadlineExceeded)
	}
}

func (c *Conn) WriteTo(p []byte, addr net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, c.opError("write", net.ErrClosed)
	default:
	}
	if addr == nil {
		return 0, c.opError("write", fmt.Errorf("missing address"))
	}
	if err := c.network.deliver(c.addr, addr, p); err != nil {
		return 0, c.opError("write", err)
	}
	return len(p), nil
}

func (c *Conn) Close() error {
	err := c.opError("close", net.ErrClosed)
	c.once.Do(func() {
		close(c.closed)
		c.network.remove(c)
		err = nil
	})
	return err
}

func (c *Conn) LocalAddr() net.Addr {
	return c.addr
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.SetReadDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	return nil
}

// SetWriteDeadline is a no-op; writes never block.
func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *Conn) opError(op string, err error) error {
	return &net.OpError{Op: op, Net: "udp", Addr: c.addr, Err: err}
}
