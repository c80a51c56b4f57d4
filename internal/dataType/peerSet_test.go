package dataType

import (
	"net"
	"testing"
)

func TestPeerSet_AddIsAppendOnly(t *testing.T) {
	ps := NewPeerSet()
	a := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9002}
	b := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9003}

	if !ps.Add(a) || !ps.Add(b) {
		t.Fatal("Expected new peers to be added")
	}
	if ps.Add(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9002}) {
		t.Error("Expected duplicate peer to be ignored")
	}
	if ps.Len() != 2 {
		t.Errorf("Expected 2 peers, got %d", ps.Len())
	}

	labels := ps.Labels()
	if labels[0] != "127.0.0.1:9002" || labels[1] != "127.0.0.1:9003" {
		t.Errorf("Expected insertion order to be kept, got %v", labels)
	}

	snapshot := ps.All()
	snapshot[0] = nil
	if ps.All()[0] == nil {
		t.Error("Expected All to return a copy")
	}

	if !ps.Contains(a) {
		t.Error("Expected Contains to match a known peer")
	}
	if ps.Contains(nil) {
		t.Error("Expected Contains(nil) to be false")
	}
}
