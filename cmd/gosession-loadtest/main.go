package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

func main() {
	app := &cli.App{
		Name:  "gosession-loadtest",
		Usage: "Drive the session middleware against a store backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"GOSESSION_LOADTEST_CONFIG"}},
			&cli.StringFlag{Name: "backend", Usage: "memory, miniredis, redis, bolt, badger or postgres"},
			&cli.StringFlag{Name: "codec", Usage: "json or cbor"},
			&cli.IntFlag{Name: "sessions", Usage: "number of sessions to seed"},
			&cli.IntFlag{Name: "concurrency", Usage: "number of concurrent workers"},
			&cli.IntFlag{Name: "ops", Usage: "requests per phase"},
			&cli.StringFlag{Name: "redis-addr", Usage: "redis address for the redis backend"},
			&cli.StringFlag{Name: "bolt-path", Usage: "bolt database file; temporary when empty"},
			&cli.StringFlag{Name: "badger-dir", Usage: "badger directory; in-memory when empty"},
			&cli.StringFlag{Name: "postgres-dsn", Usage: "postgres connection string"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "gosession-loadtest",
		Level:  hclog.LevelFromString(cfg.Log.Level),
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	mgr, err := goSession.New().
		WithStore(st).
		WithLogger(logger).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return err
	}
	defer mgr.Close()

	logger.Info("seeding sessions", "count", cfg.Sessions, "backend", cfg.Backend, "codec", cfg.Codec)
	startSeed := time.Now()
	tokens, err := seed(ctx, st, cfg.Sessions)
	if err != nil {
		return err
	}
	logger.Info("seeded", "elapsed", time.Since(startSeed).Round(time.Millisecond))

	h := mgr.Middleware(counterHandler())

	existing := runPhase(h, cfg.Ops, cfg.Concurrency, func(r *rand.Rand) string {
		return "/count?token=" + tokens[r.Intn(len(tokens))]
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	generated := runPhase(h, cfg.Ops, cfg.Concurrency, func(*rand.Rand) string {
		return "/count"
	})

	out := c.App.Writer
	fmt.Fprintln(out, "---- results ----")
	printStats(out, "existing", existing)
	printStats(out, "generate", generated)

	snap := mgr.MetricsSnapshot()
	for _, def := range internaldefs.CounterDefs {
		if v := snap.Counters[def.ID]; v > 0 {
			fmt.Fprintf(out, "%s %d\n", def.Name, v)
		}
	}
	return nil
}
