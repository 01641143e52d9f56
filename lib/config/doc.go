// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Tessera.
//
// Configuration is loaded from a single file named by either the
// TESSERA_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no ~/.config discovery and no automatic
// file search.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// defaults are quieter (log level warn) and always compress.
//
// Path fields are expanded after loading: ${HOME}, ${TESSERA_ROOT},
// and ${VAR:-default} patterns. No other environment variables
// override config values.
//
// This package depends on no other Tessera packages.
package config
