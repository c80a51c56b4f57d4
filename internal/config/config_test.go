package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"mesh_chat/internal/protocol"
)

func TestParsePeerAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    Peer
		wantErr bool
	}{
		{"127.0.0.1:9002", Peer{Host: "127.0.0.1", Port: 9002}, false},
		{"localhost:1", Peer{Host: "localhost", Port: 1}, false},
		{"[::1]:9003", Peer{Host: "::1", Port: 9003}, false},
		{"127.0.0.1", Peer{}, true},
		{"127.0.0.1:abc", Peer{}, true},
		{"127.0.0.1:0", Peer{}, true},
		{"127.0.0.1:65536", Peer{}, true},
		{":9002", Peer{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeerAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeerAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePeerAddress(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Peers = []string{"127.0.0.1:9002", "127.0.0.1:9003", "127.0.0.1:9002"}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	if len(cfg.PeerList) != 2 {
		t.Errorf("Expected duplicate peers to collapse to 2, got %d", len(cfg.PeerList))
	}
	if cfg.Label() != "127.0.0.1:9001" {
		t.Errorf("Expected label 127.0.0.1:9001, got %s", cfg.Label())
	}
	if cfg.SeenWindow() != 120*time.Second {
		t.Errorf("Expected 120s seen window, got %v", cfg.SeenWindow())
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MainConfig)
	}{
		{"self as peer", func(c *MainConfig) { c.Peers = []string{"127.0.0.1:9001"} }},
		{"bad peer", func(c *MainConfig) { c.Peers = []string{"nope"} }},
		{"port too high", func(c *MainConfig) { c.Port = 70000 }},
		{"port zero", func(c *MainConfig) { c.Port = 0 }},
		{"ttl zero", func(c *MainConfig) { c.TTL = 0 }},
		{"seen ttl zero", func(c *MainConfig) { c.SeenTTL = 0 }},
		{"ping ttl zero", func(c *MainConfig) { c.PingTTL = 0 }},
		{"gc interval zero", func(c *MainConfig) { c.GCInterval = 0 }},
		{"empty host", func(c *MainConfig) { c.Host = "" }},
		{"bad metrics addr", func(c *MainConfig) { c.MetricsAddr = "nocolon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = 0
	err := Validate(&cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validator.ValidationErrors, got %T", err)
	}
	if verrs[0].Field() != "TTL" {
		t.Errorf("Expected TTL field error, got %s", verrs[0].Field())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PingTTL != protocol.DefaultPingTTL {
		t.Errorf("Expected ping ttl %d, got %d", protocol.DefaultPingTTL, cfg.PingTTL)
	}
	if err := Validate(&cfg); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadMainConfig(t *testing.T) {
	base := t.TempDir()

	cfg, err := LoadMainConfig(base)
	if err != nil {
		t.Fatalf("Expected defaults when file is missing, got %v", err)
	}
	if cfg.Port != 9001 || cfg.TTL != 8 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}

	if err := os.MkdirAll(filepath.Join(base, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	yml := []byte(`host: 127.0.0.1
port: 9002
peers:
  - 127.0.0.1:9001
  - 127.0.0.1:9003
ttl: 3
gc_interval: 2s
metrics_addr: 127.0.0.1:9102
`)
	if err := os.WriteFile(filepath.Join(base, "config", "mesh.yml"), yml, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadMainConfig(base)
	if err != nil {
		t.Fatalf("LoadMainConfig failed: %v", err)
	}
	if cfg.Port != 9002 || cfg.TTL != 3 || len(cfg.Peers) != 2 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.GCInterval != 2*time.Second {
		t.Errorf("Expected gc_interval 2s, got %v", cfg.GCInterval)
	}
	if cfg.SeenTTL != 120 || cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("Expected unspecified keys to keep defaults, got %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected loaded config to validate, got %v", err)
	}
}

func TestLoadMainConfig_BadYAML(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "config", "mesh.yml"), []byte("port: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMainConfig(base); err == nil {
		t.Error("Expected parse error, got nil")
	}
}
