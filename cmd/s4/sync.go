package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/status"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/internal/sync"
	"github.com/agnesscodex/s4/pkg/logger"
	"github.com/agnesscodex/s4/pkg/retry"
)

func newSyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Aliases:   []string{"mirror"},
		Usage:     "make the destination match the source, one way",
		ArgsUsage: "SOURCE DESTINATION",
		Description: "SOURCE and DESTINATION are local directories or ALIAS/BUCKET[/PREFIX]\n" +
			"targets, in any combination. The destination is never read back into\n" +
			"the source.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "plan and report, change nothing",
			},
			&cli.BoolFlag{
				Name:  "remove",
				Usage: "delete destination objects that have no source counterpart",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "rerun on an interval until interrupted (S4_WATCH_INTERVAL)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "glob of source keys to skip, repeatable",
			},
			&cli.StringFlag{
				Name:  "older-than",
				Usage: "only copy objects at least this old, e.g. 365d or 12h",
			},
			&cli.StringFlag{
				Name:  "newer-than",
				Usage: "only copy objects at most this old",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "overwrite changed destination objects (already the default)",
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "serve watch status and metrics on this address, e.g. :8080",
				EnvVars: []string{"S4_LISTEN"},
			},
		},
		Action: runSync,
	}
}

func runSync(c *cli.Context) error {
	if c.NArg() != 2 {
		return exitErr(errs.Configf("usage: s4 sync [flags] SOURCE DESTINATION"))
	}

	// Filter flags are validated before anything touches a store; a bad
	// glob or duration never starts a partial run.
	filters, err := sync.NewFilters(c.StringSlice("exclude"), c.String("older-than"), c.String("newer-than"))
	if err != nil {
		return exitErr(err)
	}

	src, err := openSyncSource(c, c.Args().Get(0))
	if err != nil {
		return exitErr(err)
	}
	dst, err := openSyncDest(c, c.Args().Get(1))
	if err != nil {
		return exitErr(err)
	}

	cfg := config.Load()
	engine := sync.New(src, dst, sync.Options{
		DryRun:  c.Bool("dry-run"),
		Remove:  c.Bool("remove"),
		Filters: filters,
		Exec: sync.ExecOptions{
			Retry:           retry.DefaultConfig(),
			RequestTimeout:  cfg.Transfer.RequestTimeout,
			Concurrency:     cfg.Transfer.Concurrency,
			PartConcurrency: cfg.Transfer.PartConcurrency,
			PartSize:        cfg.Transfer.PartSize,
		},
	}, logger.Log)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.Bool("watch") {
		summary, err := engine.Run(ctx)
		if summary != nil && c.Bool("json") {
			if perr := printJSON(summary); perr != nil {
				return exitErr(perr)
			}
		}
		return exitErr(err)
	}

	var recorder sync.Recorder
	if addr := c.String("listen"); addr != "" {
		tracker := status.NewTracker()
		recorder = tracker
		go func() {
			if err := status.Serve(ctx, addr, tracker); err != nil {
				logger.Log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	loop := sync.NewWatchLoop(engine, cfg.Watch.Interval, recorder, logger.Log)
	return exitErr(loop.Run(ctx))
}

// openSyncSource resolves one side to a store. A local source must be an
// existing directory: listing a mistyped path as empty would, with
// --remove, happily delete the whole destination.
func openSyncSource(c *cli.Context, value string) (storage.ObjectStore, error) {
	if t, ok := aliasStore(c).ResolveRemote(value); ok {
		return openRemote(c, t)
	}

	abs, err := filepath.Abs(value)
	if err != nil {
		return nil, errs.Configf("invalid source path %q: %v", value, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Configf("source %s does not exist", value)
		}
		return nil, errs.ConfigWrap(err, "reading source")
	}
	if !info.IsDir() {
		return nil, errs.Configf("source %s is not a directory", value)
	}
	return storage.NewLocalStore(abs), nil
}

// openSyncDest resolves the destination side. A missing local directory
// is fine, the first transfer creates it.
func openSyncDest(c *cli.Context, value string) (storage.ObjectStore, error) {
	if t, ok := aliasStore(c).ResolveRemote(value); ok {
		return openRemote(c, t)
	}

	abs, err := filepath.Abs(value)
	if err != nil {
		return nil, errs.Configf("invalid destination path %q: %v", value, err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return nil, errs.Configf("destination %s is not a directory", value)
	}
	return storage.NewLocalStore(abs), nil
}
