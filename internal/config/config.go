package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"mesh_chat/internal/protocol"
)

type MainConfig struct {
	Host              string        `yaml:"host" validate:"required"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	Peers             []string      `yaml:"peers"`
	TTL               int           `yaml:"ttl" validate:"min=1"`
	SeenTTL           int           `yaml:"seen_ttl" validate:"min=1"`
	PingTTL           int           `yaml:"ping_ttl" validate:"min=1"`
	GCInterval        time.Duration `yaml:"gc_interval" validate:"gt=0"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" validate:"gt=0"`
	LogPath           string        `yaml:"log_path"`
	Debug             bool          `yaml:"debug"`
	MetricsAddr       string        `yaml:"metrics_addr"`
	UseTUI            bool          `yaml:"tui"`

	// PeerList is filled by Validate from Peers.
	PeerList []Peer `yaml:"-" validate:"dive"`
}

type Peer struct {
	Host string `validate:"required"`
	Port int    `validate:"min=1,max=65535"`
}

func (p Peer) String() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Label is the node's own address label, host:port.
func (c *MainConfig) Label() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SeenWindow is the seen-set expiry window.
func (c *MainConfig) SeenWindow() time.Duration {
	return time.Duration(c.SeenTTL) * time.Second
}

func DefaultConfig() MainConfig {
	return MainConfig{
		Host:              "127.0.0.1",
		Port:              9001,
		TTL:               8,
		SeenTTL:           120,
		PingTTL:           protocol.DefaultPingTTL,
		GCInterval:        5 * time.Second,
		HeartbeatInterval: 10 * time.Second,
	}
}

// LoadMainConfig Read the configuration file and return the configuration object.
// A missing file is not an error: the defaults are returned.
func LoadMainConfig(basePath string) (*MainConfig, error) {
	defaultCfg := DefaultConfig()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return &defaultCfg, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "mesh.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &defaultCfg, nil
		}
		return &defaultCfg, fmt.Errorf("[ERROR] failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &defaultCfg, fmt.Errorf("[ERROR] failed to parse config file %s: %w", configPath, err)
	}

	return &cfg, nil
}

// ParsePeerAddress splits "host:port" on the last colon.
func ParsePeerAddress(s string) (Peer, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Peer{}, fmt.Errorf("peer address must be in format 'host:port', got '%s'", s)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(s[:idx], "["), "]")
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return Peer{}, fmt.Errorf("invalid peer address '%s': port is not a number", s)
	}
	if port < 1 || port > 65535 {
		return Peer{}, fmt.Errorf("invalid peer address '%s': port must be between 1 and 65535, got %d", s, port)
	}
	if host == "" {
		return Peer{}, fmt.Errorf("invalid peer address '%s': empty host", s)
	}
	return Peer{Host: host, Port: port}, nil
}

var validate = validator.New()

// Validate parses the peer list and checks every field. A node may not list
// itself as a peer.
func Validate(cfg *MainConfig) error {
	peers := make([]Peer, 0, len(cfg.Peers))
	seen := make(map[Peer]struct{}, len(cfg.Peers))
	for _, s := range cfg.Peers {
		p, err := ParsePeerAddress(s)
		if err != nil {
			return err
		}
		if p.Host == cfg.Host && p.Port == cfg.Port {
			return fmt.Errorf("cannot add self (%s) as a peer", s)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		peers = append(peers, p)
	}
	cfg.PeerList = peers

	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics address '%s': %w", cfg.MetricsAddr, err)
		}
	}
	return nil
}
