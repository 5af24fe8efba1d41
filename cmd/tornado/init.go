package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjrt007/Tornado.Ai/pkg/config"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

const (
	configFileName = "tornado.yaml"
	seedFileName   = "seed.yaml"
	auditFileName  = "audit.log.jsonl"
)

func newInitCommand(root *rootOptions) *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file and seed file",
		Example: `  tornado init
  tornado init --dir ./deploy --force
  tornado serve --config ./deploy/tornado.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := root.printer(cmd)

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			configPath := filepath.Join(dir, configFileName)
			seedPath := filepath.Join(dir, seedFileName)

			if !force {
				if _, err := os.Stat(seedPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", seedPath)
				}
			}

			cfg := config.Default()
			cfg.Control.SeedFile = seedPath
			cfg.Control.AuditLog = filepath.Join(dir, "data", auditFileName)
			if err := config.Write(configPath, cfg, force); err != nil {
				return err
			}
			if err := control.WriteSeedFile(seedPath, control.DefaultSurface(time.Now().UTC())); err != nil {
				return err
			}

			p.Successf("wrote %s", configPath)
			p.Successf("wrote %s", seedPath)
			p.Mutedf("start the control plane with: tornado serve --config %s", configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
