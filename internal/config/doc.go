// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for lumen and lumend.
//
// Configuration is TOML at ~/.lumen/config.toml, with built-in defaults and
// environment variable overrides (LUMEN_*). The same file configures both
// the TUI client and the server; each binary reads only its sections.
//
// # Key Functions
//
//   - Load: read the config file, apply defaults and env overrides
//   - Global: lazily loaded process-wide instance
//   - Save: write the current config back to disk with 0600 permissions
package config
