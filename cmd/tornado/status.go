package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjrt007/Tornado.Ai/pkg/health"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the health endpoint of a running API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd)
			if err != nil {
				return err
			}
			base := cfg.Client.BaseURL
			if apiURL != "" {
				base = apiURL
			}
			checker, err := health.NewChecker(base)
			if err != nil {
				return err
			}

			p := root.printer(cmd)
			r := checker.Check(cmd.Context())
			p.KV("Endpoint", r.Endpoint)
			if !r.IsHealthy() {
				p.Errorf("%s", r.Message)
				return fmt.Errorf("%s is unhealthy", r.Endpoint)
			}
			p.KV("Status", p.Status(true))
			p.KV("Version", r.Report.Version)
			p.KV("Registry", strconv.Itoa(r.Report.RegistrySize)+" tools")
			p.KV("Features", strconv.Itoa(r.Report.Features))
			p.KV("Roles", strconv.Itoa(r.Report.Roles))
			p.KV("Scan profiles", strconv.Itoa(r.Report.ScanProfiles))
			if r.Report.AuditEntries != nil {
				audit := strconv.Itoa(*r.Report.AuditEntries) + " entries"
				if r.Report.LastAuditEvent != nil {
					audit += ", last " + r.Report.LastAuditEvent.UTC().Format(time.RFC3339)
				}
				p.KV("Audit log", audit)
			}
			p.KV("Latency", r.Latency.Round(100*time.Microsecond).String())
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "control API base URL (default from config)")
	return cmd
}
