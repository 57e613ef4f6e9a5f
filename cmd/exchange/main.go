// File: cmd/exchange/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// exchange is a producer: it streams random values to sortserver and ends
// the stream with the end-of-stream record.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/momentics/hioload-sort/client"
	"github.com/momentics/hioload-sort/control"
	"github.com/momentics/hioload-sort/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cmd := newRootCmd(stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var (
		configPath  string
		host        string
		maxCount    int
		batch       int
		seed        uint64
		metricsAddr string
		logLevel    string
	)
	cmd := &cobra.Command{
		Use:   "exchange <id> <port>",
		Short: "Stream random values to a sortserver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[1], err)
			}
			cmd.SilenceUsage = true

			cfg, err := control.LoadProducerConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("max-count") {
				cfg.MaxCount = maxCount
			}
			if flags.Changed("batch") {
				cfg.BatchSize = batch
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			cfg.ID = int32(id)
			cfg.Port = port

			log := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				App:    "exchange",
				Out:    stderr,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := control.NewProducerMetrics()
			p, err := client.New(cfg,
				client.WithLogger(logging.Component(log, "producer")),
				client.WithMetrics(metrics),
			)
			if err != nil {
				log.Error().Err(err).Msg("producer setup failed")
				return err
			}
			if cfg.MetricsAddr != "" {
				admin, err := control.StartAdmin(cfg.MetricsAddr,
					control.NewAdminRouter("exchange", metrics.Registry, nil),
					logging.Component(log, "admin"))
				if err != nil {
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					admin.Shutdown(sctx)
				}()
			}

			start := time.Now()
			if err := p.Run(ctx); err != nil {
				log.Error().Err(err).Int("sent", p.Sent()).Msg("exchange failed")
				return err
			}
			log.Info().Int("sent", p.Sent()).Dur("elapsed", time.Since(start)).Msg("done")
			return nil
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML config file")
	f.StringVar(&host, "host", "localhost", "server host")
	f.IntVar(&maxCount, "max-count", control.DefaultMaxCount, "number of values to send")
	f.IntVar(&batch, "batch", control.DefaultBatchSize, "records queued per writable event")
	f.Uint64Var(&seed, "seed", 0, "value generator seed (0 picks one)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "admin HTTP address serving /metrics (disabled when empty)")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	return cmd
}
