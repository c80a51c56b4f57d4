package check

import (
	"testing"
	"time"

	"mesh_chat/internal/action"
	"mesh_chat/internal/dataType"
)

func newEnv() *Env {
	return &Env{Label: "127.0.0.1:9002", Seen: dataType.NewSeenSet(4)}
}

func TestDuplicate(t *testing.T) {
	env := newEnv()
	msg := dataType.Message{ID: "m1", TTL: 5, Kind: dataType.KindChat}

	d := action.NewDecision()
	Duplicate(msg, env, d)
	if !d.Admitted() {
		t.Fatal("Expected unseen message to pass")
	}

	env.Seen.MarkIfAbsent("m1", time.Now())
	d = action.NewDecision()
	Duplicate(msg, env, d)
	if d.Admitted() || d.Reason != action.ReasonDuplicate {
		t.Errorf("Expected duplicate drop, got %+v", d)
	}
}

func TestTTLFloor(t *testing.T) {
	tests := []struct {
		ttl      int
		admitted bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{8, true},
	}
	for _, tt := range tests {
		d := action.NewDecision()
		TTLFloor(dataType.Message{ID: "m", TTL: tt.ttl}, newEnv(), d)
		if d.Admitted() != tt.admitted {
			t.Errorf("ttl=%d: expected admitted=%v, got %v", tt.ttl, tt.admitted, d.Admitted())
		}
		if !tt.admitted && d.Reason != action.ReasonTTLExpired {
			t.Errorf("ttl=%d: expected reason %q, got %q", tt.ttl, action.ReasonTTLExpired, d.Reason)
		}
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		msg  dataType.Message
		want bool
	}{
		{"broadcast chat", dataType.Message{Kind: dataType.KindChat}, true},
		{"chat for this node", dataType.Message{Kind: dataType.KindChat, Dst: "127.0.0.1:9002"}, true},
		{"chat for another node", dataType.Message{Kind: dataType.KindChat, Dst: "127.0.0.1:9003"}, false},
		{"whitespace dst is not broadcast", dataType.Message{Kind: dataType.KindChat, Dst: "   "}, false},
		{"hostname does not match ip label", dataType.Message{Kind: dataType.KindChat, Dst: "localhost:9002"}, false},
		{"ping", dataType.Message{Kind: dataType.KindPing}, false},
		{"addressed ping", dataType.Message{Kind: dataType.KindPing, Dst: "127.0.0.1:9002"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := action.NewDecision()
			Display(tt.msg, newEnv(), d)
			if d.Display != tt.want {
				t.Errorf("Expected display=%v, got %v", tt.want, d.Display)
			}
		})
	}
}
