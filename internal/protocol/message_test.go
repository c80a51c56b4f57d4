package protocol

import (
	"testing"

	"github.com/google/uuid"

	"mesh_chat/internal/dataType"
)

func TestParseAddressed(t *testing.T) {
	tests := []struct {
		name string
		text string
		dst  string
		body string
	}{
		{"broadcast", "hello world", "", "hello world"},
		{"broadcast trimmed", "   hello world  ", "", "hello world"},
		{"addressed", "@127.0.0.1:9003 hello world", "127.0.0.1:9003", "hello world"},
		{"addressed keeps inner spacing", "@127.0.0.1:9003  two  spaces", "127.0.0.1:9003", " two  spaces"},
		{"addressed without body", "@127.0.0.1:9003", "127.0.0.1:9003", ""},
		{"addressed trailing space trimmed", "@127.0.0.1:9003 ", "127.0.0.1:9003", ""},
		{"bare at", "@", "", ""},
		{"at inside text", "mail me @home", "", "mail me @home"},
		{"case kept", "@Host:1 Hi", "Host:1", "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ParseAddressed(tt.text, "127.0.0.1:9001", 6)
			if msg.Dst != tt.dst {
				t.Errorf("Expected dst %q, got %q", tt.dst, msg.Dst)
			}
			if msg.Body != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, msg.Body)
			}
			if msg.Kind != dataType.KindChat || msg.TTL != 6 || msg.Src != "127.0.0.1:9001" {
				t.Errorf("Unexpected message header: %+v", msg)
			}
		})
	}
}

func TestFactories(t *testing.T) {
	a := NewChat("h:1", "x", 8, "")
	b := NewChat("h:1", "x", 8, "")
	if a.ID == b.ID {
		t.Error("Expected fresh ids for each message")
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("Expected a UUID id, got %q", a.ID)
	}
	if a.Timestamp <= 0 {
		t.Errorf("Expected a creation timestamp, got %v", a.Timestamp)
	}

	p := NewPing("h:1", DefaultPingTTL)
	if !p.IsPing() || p.Dst != "" || p.Body != "" || p.TTL != DefaultPingTTL {
		t.Errorf("Unexpected ping: %+v", p)
	}
}
