// Command gearsync opens the gear optimizer in Chrome and adds a Sync
// button that posts the saved equipment sets to the local receiver.
//
// Usage:
//
//	gearsync                              # defaults: public optimizer, http://localhost:3000
//	gearsync -config gearsync.yaml        # page, browser and sinks from YAML
//	gearsync -remote ws://127.0.0.1:9222  # attach to a running Chrome
//	gearsync -once                        # sync once without waiting for a click
//	gearsync -mcp                         # serve the gearsync_sync tool on stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gearsync/trigger"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to gearsync.yaml config file")
	pageURL := flag.String("url", "", "optimizer page URL (overrides config)")
	endpoint := flag.String("endpoint", "", "receiver URL (replaces configured sinks)")
	remote := flag.String("remote", "", "DevTools WebSocket URL of a running Chrome")
	static := flag.Bool("static", false, "inject the button once instead of tracking the active tab")
	once := flag.Bool("once", false, "sync once and exit")
	dryRun := flag.Bool("dry-run", false, "print the payload instead of posting it")
	serveMCP := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("gearsync: load config", "error", err)
		os.Exit(1)
	}
	if *pageURL != "" {
		cfg.Page.URL = *pageURL
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}
	if *static {
		cfg.Page.Mode = trigger.ModeStatic
	}
	if *endpoint != "" {
		cfg.Sinks = []trigger.SinkConfig{{Type: "webhook", URL: *endpoint}}
	}
	if *dryRun {
		cfg.Sinks = []trigger.SinkConfig{{Type: "stdout"}}
	}

	if err := run(ctx, logger, cfg, *once, *serveMCP); err != nil {
		logger.Error("gearsync: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*trigger.Config, error) {
	if path == "" {
		return trigger.DefaultConfig(), nil
	}
	return trigger.LoadConfigFile(path)
}

func run(ctx context.Context, logger *slog.Logger, cfg *trigger.Config, once, serveMCP bool) error {
	t, err := trigger.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := t.Start(ctx); err != nil {
		t.Stop()
		return err
	}
	defer t.Stop()

	if once {
		payload, err := t.SyncNow(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		logger.Info("gearsync: synced", "entries", len(payload), "labels", payload.Labels())
		return nil
	}

	if serveMCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "gearsync", Version: version}, nil)
		t.RegisterMCP(srv)
		logger.Info("gearsync: serving MCP on stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}
