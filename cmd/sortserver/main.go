// File: cmd/sortserver/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// sortserver accepts producer connections, merges their values and prints a
// descending dump on every end-of-stream record. It exits once every
// producer has finished.

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

	"github.com/momentics/hioload-sort/control"
	"github.com/momentics/hioload-sort/internal/logging"
	"github.com/momentics/hioload-sort/server"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath  string
		host        string
		backlog     int
		recvBuffer  int
		metricsAddr string
		logLevel    string
		logFormat   string
	)
	cmd := &cobra.Command{
		Use:   "sortserver <port>",
		Short: "Merge producer streams into one sorted dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			cmd.SilenceUsage = true

			cfg, err := control.LoadServerConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("backlog") {
				cfg.Backlog = backlog
			}
			if flags.Changed("recv-buffer") {
				cfg.RecvBufferSize = recvBuffer
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			cfg.Port = port

			log := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				App:    "sortserver",
				Out:    stderr,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := control.NewServerMetrics()
			srv, err := server.New(cfg,
				server.WithLogger(logging.Component(log, "server")),
				server.WithOutput(stdout),
				server.WithMetrics(metrics),
			)
			if err != nil {
				log.Error().Err(err).Msg("server setup failed")
				return err
			}

			if cfg.MetricsAddr != "" {
				probes := control.NewDebugProbes()
				srv.RegisterProbes(probes)
				admin, err := control.StartAdmin(cfg.MetricsAddr,
					control.NewAdminRouter("sortserver", metrics.Registry, probes),
					logging.Component(log, "admin"))
				if err != nil {
					log.Error().Err(err).Msg("admin setup failed")
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					admin.Shutdown(sctx)
				}()
			}

			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("server terminated")
				return err
			}
			st := srv.Stats()
			log.Info().
				Int64("producers", st.Accepted).
				Int64("records", st.Records).
				Int64("flushes", st.Flushes).
				Msg("done")
			return nil
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML config file")
	f.StringVar(&host, "host", "", "listen address (default any)")
	f.IntVar(&backlog, "backlog", control.DefaultBacklog, "listen backlog")
	f.IntVar(&recvBuffer, "recv-buffer", control.DefaultRecvBufferSize, "per-connection receive buffer in bytes")
	f.StringVar(&metricsAddr, "metrics-addr", "", "admin HTTP address serving /metrics (disabled when empty)")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	f.StringVar(&logFormat, "log-format", "console", "log format: console|json")
	return cmd
}
