// lumen TUI - A credit-metered terminal chat client for lumend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		serverURL  = flag.String("server", "", "lumend base URL (overrides config)")
		token      = flag.String("token", "", "identity token (overrides config)")
		timestamps = flag.Bool("timestamps", false, "show message timestamps")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("lumen %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg := config.Global()
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}
	if *token != "" {
		cfg.Client.Token = *token
	}

	client := api.NewClient(&api.ClientConfig{
		BaseURL: cfg.Client.ServerURL,
		Token:   cfg.Client.Token,
		Timeout: time.Duration(cfg.Client.TimeoutSecs) * time.Second,
	})

	model := chat.New(client).WithTimestamps(*timestamps || cfg.UI.ShowTimestamps)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
