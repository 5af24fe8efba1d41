package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cjrt007/Tornado.Ai/pkg/audit"
	"github.com/cjrt007/Tornado.Ai/pkg/config"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
	"github.com/cjrt007/Tornado.Ai/pkg/ui"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logPretty  bool
	noColor    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   defaults.ToolName,
		Short: defaults.ToolNameDisplay + " control plane",
		Long: `Tornado.Ai control plane.

Serves the control surface (feature toggles, role controls and scan
profiles) over HTTP and MCP, and edits it from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       defaults.Version,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n", defaults.ToolNameDisplay))

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.logPretty, "log-pretty", false, "human readable logs instead of JSON")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCommand(opts),
		newMCPCommand(opts),
		newInitCommand(opts),
		newControlCommand(opts),
		newStatusCommand(opts),
	)
	return root
}

// load resolves the configuration: defaults, file, environment, then the
// persistent flags that were set explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-pretty") {
		cfg.Logging.Pretty = o.logPretty
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) printer(cmd *cobra.Command) *ui.Printer {
	return ui.New(cmd.OutOrStdout(), ui.WithNoColor(o.noColor))
}

// newControlStore builds the server-side store, seeded from the configured
// seed file when there is one.
func newControlStore(cfg config.Config, logger *slog.Logger, obs ...control.Observer) (*control.Store, error) {
	opts := []control.Option{control.WithLogger(logger)}
	for _, o := range obs {
		opts = append(opts, control.WithObserver(o))
	}
	if cfg.Control.SeedFile != "" {
		seed, err := control.LoadSeedFile(cfg.Control.SeedFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, control.WithSeed(seed))
		logger.Debug("seed file loaded", slog.String("path", cfg.Control.SeedFile))
	}
	return control.New(opts...)
}

// openAudit opens the configured audit log, or returns nil when none is set.
func openAudit(cfg config.Config, logger *slog.Logger) (*audit.Log, error) {
	if cfg.Control.AuditLog == "" {
		return nil, nil
	}
	log, err := audit.Open(cfg.Control.AuditLog, audit.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Debug("audit log opened",
		slog.String("path", log.Path()),
		slog.Int("entries", log.Status().Entries),
	)
	return log, nil
}

func closeAudit(log *audit.Log, logger *slog.Logger) {
	if log == nil {
		return
	}
	if err := log.Close(); err != nil {
		logger.Warn("closing audit log failed", slog.String("error", err.Error()))
	}
}
