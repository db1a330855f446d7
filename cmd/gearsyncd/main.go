// Command gearsyncd receives sync payloads from gearsync and writes the gear
// ids into the profile and settings files named in settings.json.
//
// Usage:
//
//	gearsyncd                                  # settings.json, 0.0.0.0:3000
//	gearsyncd -settings settings.yaml -db gearsync.db
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gearsync/dbopen"
	"github.com/hazyhaar/gearsync/receiver"
)

func main() {
	settingsPath := flag.String("settings", "settings.json", "path to settings.json (or .yaml)")
	addr := flag.String("addr", "0.0.0.0:3000", "listen address")
	dbPath := flag.String("db", "", "sqlite file for sync history (empty disables history)")
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := receiver.LoadSettings(*settingsPath)
	if err != nil {
		logger.Error("gearsyncd: load settings", "path", *settingsPath, "error", err)
		os.Exit(1)
	}

	opts := []receiver.Option{receiver.WithLogger(logger)}
	if *dbPath != "" {
		db, err := dbopen.Open(*dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(receiver.Schema))
		if err != nil {
			logger.Error("gearsyncd: open history", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, receiver.WithHistory(receiver.NewHistory(db)))
	}

	rs := receiver.NewServer(settings, opts...)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           rs.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("gearsyncd: listening", "addr", *addr, "profile", settings.FilePath, "settings", settings.SettingsPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gearsyncd: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("gearsyncd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gearsyncd: shutdown", "error", err)
	}
	logger.Info("gearsyncd: stopped")
}
