// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifestfs"
	"github.com/bureau-foundation/tessera/lib/path"
	"github.com/bureau-foundation/tessera/lib/store"
)

func mountCommand(streams Streams, g *globals) *cli.Command {
	var allowOther bool
	return &cli.Command{
		Name:    "mount",
		Summary: "Mount a manifest tree as a read-only filesystem",
		Usage:   "tessera mount [flags] <root-key|absolute-path> <mountpoint>",
		Description: `Serve the tree under a container key, or under the container an absolute
path resolves to, at <mountpoint>/tree until interrupted. Any stored
object is also reachable as <mountpoint>/key/<key>. When the root is
given as a portal key, retargeting the portal changes the mounted tree;
a path is resolved once at mount time.`,
		Flags: g.flags("mount", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&allowOther, "allow-other", false, "let other users access the mount")
		}),
		Run: func(args []string) error {
			if err := exactArgs("mount", args, 2, "<root-key|absolute-path> <mountpoint>"); err != nil {
				return err
			}
			s, _, logger, err := g.openStore()
			if err != nil {
				return err
			}
			root, err := mountRoot(s, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server, err := manifestfs.Mount(manifestfs.Options{
				Mountpoint: args[1],
				Store:      s,
				Root:       root,
				AllowOther: allowOther,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(streams.Stderr, "mounted %s at %s; interrupt to unmount\n", root.Short(), args[1])

			<-ctx.Done()
			if err := server.Unmount(); err != nil {
				return fmt.Errorf("unmounting %s: %w", args[1], err)
			}
			logger.Info("manifest filesystem unmounted", "mountpoint", args[1])
			return nil
		},
	}
}

// mountRoot accepts a key string or an absolute path and returns the
// key to serve.
func mountRoot(s *store.Store, arg string) (key.Key, error) {
	if !strings.HasPrefix(arg, "/") {
		return key.Parse(arg)
	}
	p, err := path.Parse(arg)
	if err != nil {
		return key.Key{}, err
	}
	return s.Resolve(context.Background(), p)
}
