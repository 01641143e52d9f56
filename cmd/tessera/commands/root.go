// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the tessera command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/config"
	"github.com/bureau-foundation/tessera/lib/store"
)

// Streams are the standard streams commands read and write.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StandardStreams returns the process's own streams.
func StandardStreams() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// globals are the flags shared by every command that touches
// configuration or the store.
type globals struct {
	configPath string
	storeRoot  string
	verbose    bool

	// newLogger builds the command logger. Tests replace it to keep
	// output off stderr.
	newLogger func(slog.Level) *slog.Logger
}

func (g *globals) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.configPath, "config", "", "config file (default $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&g.storeRoot, "store", "", "store root directory, overriding store.root")
	flagSet.BoolVarP(&g.verbose, "verbose", "v", false, "log at debug level")
}

// loadConfig reads --config, else $TESSERA_CONFIG, else defaults.
func (g *globals) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case g.configPath != "":
		cfg, err = config.LoadFile(g.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, err
	}
	if g.storeRoot != "" {
		cfg.Store.Root = g.storeRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (g *globals) logger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if g.verbose {
		level = slog.LevelDebug
	}
	return g.newLogger(level), nil
}

// openStore loads configuration and opens the configured store.
func (g *globals) openStore() (*store.Store, *config.Config, *slog.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := g.logger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	compression, err := store.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := store.Open(cfg.Store.Root, store.Options{
		ShardBase:    cfg.Store.ShardBase,
		Compression:  compression,
		Recipients:   cfg.Store.Encryption.Recipients,
		IdentityFile: cfg.Store.Encryption.IdentityFile,
		ChunkSize:    cfg.Classify.ChunkSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return s, cfg, logger, nil
}

// flags returns a Flags constructor that registers the global flags
// followed by extra.
func (g *globals) flags(name string, extra func(*pflag.FlagSet)) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		g.register(flagSet)
		if extra != nil {
			extra(flagSet)
		}
		return flagSet
	}
}

// Root returns the tessera command tree writing to streams.
func Root(streams Streams) *cli.Command {
	return newRoot(streams, &globals{newLogger: cli.NewCommandLogger})
}

func newRoot(streams Streams, g *globals) *cli.Command {
	return &cli.Command{
		Name:    "tessera",
		Summary: "Content-addressed keys, manifests, and a local object store",
		Description: `Tessera names content by self-describing keys, groups keys into
canonical manifests, and keeps objects in a sharded local store.`,
		HelpOutput: streams.Stderr,
		Subcommands: []*cli.Command{
			keyCommand(streams),
			classifyCommand(streams),
			manifestCommand(streams, g),
			pathCommand(streams, g),
			storeCommand(streams, g),
			portalCommand(streams, g),
			mountCommand(streams, g),
			versionCommand(streams),
		},
	}
}

// exactArgs returns a usage error unless args has n elements.
func exactArgs(command string, args []string, n int, names string) error {
	if len(args) != n {
		return cli.Usagef("usage: tessera %s %s", command, names)
	}
	return nil
}
