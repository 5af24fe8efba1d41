package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cjrt007/Tornado.Ai/pkg/api"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
	"github.com/cjrt007/Tornado.Ai/pkg/mcpserver"
	"github.com/cjrt007/Tornado.Ai/pkg/metrics"
	"github.com/cjrt007/Tornado.Ai/pkg/tracing"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var (
		host     string
		port     int
		cors     bool
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API, metrics and MCP over HTTP",
		Example: `  tornado serve
  tornado serve --port 9090 --seed ./seed.yaml
  TORNADO_OTLP_ENDPOINT=localhost:4317 TORNADO_OTLP_INSECURE=true tornado serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("cors") {
				cfg.Server.CORSEnabled = cors
			}
			if flags.Changed("seed") {
				cfg.Control.SeedFile = seedFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			tp, err := tracing.Setup(ctx, tracing.Options{
				Endpoint:    cfg.Telemetry.OTLPEndpoint,
				ServiceName: cfg.Telemetry.ServiceName,
				Insecure:    cfg.Telemetry.Insecure,
			})
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.TracerShutdown)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
				}
			}()

			collector, err := metrics.New()
			if err != nil {
				return err
			}
			auditLog, err := openAudit(cfg, logger)
			if err != nil {
				return err
			}
			defer closeAudit(auditLog, logger)

			observers := []control.Observer{collector}
			apiOpts := []api.Option{
				api.WithLogger(logger),
				api.WithMetrics(collector),
				api.WithTracer(tp.Tracer(tracing.ScopeAPI)),
				api.WithCORS(cfg.Server.CORSEnabled, cfg.Server.CORSOrigins),
			}
			if auditLog != nil {
				observers = append(observers, auditLog)
				apiOpts = append(apiOpts, api.WithAudit(auditLog))
			}
			store, err := newControlStore(cfg, logger, observers...)
			if err != nil {
				return err
			}

			mcpSrv := mcpserver.New(store,
				mcpserver.WithLogger(logger),
				mcpserver.WithMetrics(collector),
				mcpserver.WithTracer(tp.Tracer(tracing.ScopeMCP)),
			)
			srv := api.New(store, append(apiOpts, api.WithMCP(mcpSrv.HTTPHandler()))...)

			logger.Info("starting control plane",
				slog.String("addr", cfg.Addr()),
				slog.Bool("cors", cfg.Server.CORSEnabled),
				slog.String("seed", cfg.Control.SeedFile),
				slog.String("audit", cfg.Control.AuditLog),
				slog.Bool("tracing", cfg.Telemetry.OTLPEndpoint != ""),
			)
			return srv.ListenAndServe(ctx, cfg.Addr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&host, "host", "", "listen host (default from config)")
	f.IntVar(&port, "port", 0, "listen port (default from config)")
	f.BoolVar(&cors, "cors", true, "enable CORS")
	f.StringVar(&seedFile, "seed", "", "YAML seed file restored by reset")
	return cmd
}

func newMCPCommand(root *rootOptions) *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio for IDE and agent integrations",
		Long: `Serve MCP over stdio.

The process owns its own control store; changes live until it exits. Logs
go to stderr so stdout stays reserved for the protocol. To share state with
the HTTP API, point the client at http://<host>:<port>/mcp of "tornado serve"
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Control.SeedFile = seedFile
			}
			auditLog, err := openAudit(cfg, logger)
			if err != nil {
				return err
			}
			defer closeAudit(auditLog, logger)

			var observers []control.Observer
			if auditLog != nil {
				observers = append(observers, auditLog)
			}
			store, err := newControlStore(cfg, logger, observers...)
			if err != nil {
				return err
			}
			return mcpserver.New(store, mcpserver.WithLogger(logger)).RunStdio(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML seed file restored by reset")
	return cmd
}
