package dataType

import (
	"net"
	"sync"
)

// PeerSet is the append-only neighbour list of a node, in insertion order.
type PeerSet struct {
	mu    sync.RWMutex
	addrs []*net.UDPAddr
	index map[string]struct{}
}

func NewPeerSet() *PeerSet {
	return &PeerSet{
		index: make(map[string]struct{}),
	}
}

// Add appends addr unless an equal address is already present.
func (ps *PeerSet) Add(addr *net.UDPAddr) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	key := addr.String()
	if _, exists := ps.index[key]; exists {
		return false
	}
	ps.index[key] = struct{}{}
	ps.addrs = append(ps.addrs, addr)
	return true
}

func (ps *PeerSet) Contains(addr net.Addr) bool {
	if addr == nil {
		return false
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	_, ok := ps.index[addr.String()]
	return ok
}

func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.addrs)
}

// All returns a snapshot of the peer addresses.
func (ps *PeerSet) All() []*net.UDPAddr {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	snapshot := make([]*net.UDPAddr, len(ps.addrs))
	copy(snapshot, ps.addrs)
	return snapshot
}

// Labels returns the peers as host:port strings.
func (ps *PeerSet) Labels() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	labels := make([]string, 0, len(ps.addrs))
	for _, addr := range ps.addrs {
		labels = append(labels, addr.String())
	}
	return labels
}
