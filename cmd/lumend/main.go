// lumend - The credit-metered chat server behind the lumen TUI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/genai"
	"github.com/jeranaias/lumen/internal/server"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/transaction"
)

func main() {
	var (
		port    = flag.Int("port", 0, "listen port (overrides config)")
		dbPath  = flag.String("db", "", "SQLite database path (overrides config; empty uses ~/.lumen/lumen.db, \":memory:\" runs ephemeral)")
		version = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("lumend %s\n", server.Version)
		return
	}

	cfg := config.Global()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("CONFIG_INVALID | error=%v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("STORE_OPEN_FAILED | error=%v", err)
	}
	defer st.Close()

	backend := genai.NewClient(&genai.ClientConfig{
		BaseURL:      cfg.GenAI.BaseURL,
		APIKey:       cfg.GenAI.APIKey,
		Model:        cfg.GenAI.Model,
		SystemPrompt: cfg.GenAI.SystemPrompt,
		Timeout:      time.Duration(cfg.GenAI.TimeoutSecs) * time.Second,
	})

	exec := transaction.NewExecutor(st, backend, time.Duration(cfg.GenAI.TimeoutSecs)*time.Second)

	srv := server.NewServer(cfg.Server.Port, st, exec, server.StaticTokens(cfg.Server.Tokens)).
		WithRateLimiter(server.NewUserRateLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst))

	// Serve until interrupted, then drain in-flight turns.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("SERVER_FAILED | error=%v", err)
	case sig := <-sigCh:
		log.Printf("SIGNAL_RECEIVED | signal=%s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("SHUTDOWN_ERROR | error=%v", err)
	}
}

// openStore opens the configured store: an in-memory store for ":memory:",
// otherwise SQLite at the configured or default path.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Server.DBPath == ":memory:" {
		log.Printf("STORE_OPEN | kind=memory")
		return store.NewMemoryStore(), nil
	}

	path := cfg.Server.DBPath
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return nil, err
		}
		var err error
		path, err = config.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	log.Printf("STORE_OPEN | kind=sqlite path=%s", path)
	return store.OpenSQLite(path)
}
