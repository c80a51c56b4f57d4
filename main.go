package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mesh_chat/internal/config"
	"mesh_chat/internal/console"
	"mesh_chat/internal/server"
	"mesh_chat/internal/telemetry"
	"mesh_chat/internal/utils"
)

const version = "0.1.0"

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	var (
		basePath    string
		host        string
		port        int
		peers       stringList
		ttl         int
		seenTTL     int
		pingTTL     int
		logPath     string
		metricsAddr string
		debug       bool
		useTUI      bool
		showVersion bool
	)
	defaults := config.DefaultConfig()
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.StringVar(&host, "host", defaults.Host, "host to bind to")
	flag.IntVar(&port, "port", defaults.Port, "UDP port to bind to")
	flag.Var(&peers, "peer", "peer address host:port (can be specified multiple times)")
	flag.IntVar(&ttl, "ttl", defaults.TTL, "default TTL for outbound messages")
	flag.IntVar(&seenTTL, "seen-ttl", defaults.SeenTTL, "seconds a message id is remembered")
	flag.IntVar(&pingTTL, "ping-ttl", defaults.PingTTL, "TTL for heartbeat pings")
	flag.StringVar(&logPath, "log-path", "", "directory for log files (stderr if empty)")
	flag.StringVar(&metricsAddr, "metrics", "", "address for /metrics, /healthz and /info")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.BoolVar(&useTUI, "tui", false, "use the terminal UI")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("mesh-chat " + version)
		return
	}

	// Load MainConfig
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = host
		case "port":
			cfg.Port = port
		case "peer":
			cfg.Peers = peers
		case "ttl":
			cfg.TTL = ttl
		case "seen-ttl":
			cfg.SeenTTL = seenTTL
		case "ping-ttl":
			cfg.PingTTL = pingTTL
		case "log-path":
			cfg.LogPath = logPath
		case "metrics":
			cfg.MetricsAddr = metricsAddr
		case "debug":
			cfg.Debug = debug
		case "tui":
			cfg.UseTUI = useTUI
		}
	})

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// The terminal UI owns the screen, so logs go to files.
	if cfg.UseTUI && cfg.LogPath == "" {
		cfg.LogPath = "./log"
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Mesh node failed: %v", err)
	}
}

func run(cfg *config.MainConfig) error {
	logs := utils.NewManager(cfg.LogPath, cfg.Debug)
	defer logs.Sync()
	logger := logs.Logger(cfg.Label())

	metrics := telemetry.NewMetrics()
	metrics.SetBuildInfo(version)

	node, err := server.NewNode(cfg, server.WithLogger(logger), server.WithMetrics(metrics))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feed *console.Feed
	if cfg.UseTUI {
		feed = console.NewFeed()
		node.SetDisplay(feed.Push)
	}

	if err := node.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := node.Stop(); err != nil {
			logger.Error("failed to stop node", zap.Error(err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		var err error
		if cfg.UseTUI {
			err = console.RunTUI(ctx, node, feed)
		} else {
			err = console.New(node, os.Stdin, os.Stdout).Run(ctx)
		}
		if errors.Is(err, console.ErrQuit) {
			return nil
		}
		return err
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           node.StatusMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("status server listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if !cfg.UseTUI {
		fmt.Println("\nShutting down...")
	}
	return err
}
