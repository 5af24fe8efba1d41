package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cjrt007/Tornado.Ai/pkg/config"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/controlclient"
	"github.com/cjrt007/Tornado.Ai/pkg/health"
	"github.com/cjrt007/Tornado.Ai/pkg/httpclient"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/ui"
)

// controlOptions are the flags shared by the control subcommands.
type controlOptions struct {
	root    *rootOptions
	apiURL  string
	local   bool
	wait    time.Duration
	jsonOut bool
}

// session is one control command invocation: a fetched client store and
// an output printer.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	client *controlclient.Store
	p      *ui.Printer
}

func (s *session) surface() control.Surface {
	return *s.client.State().Surface
}

// open resolves the transport, waits for the API when asked and fetches
// the surface.
func (o *controlOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, logger, err := o.root.load(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	var tr controlclient.Transport
	if o.local {
		store, err := newControlStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		tr = controlclient.NewLocalTransport(store)
	} else {
		base := cfg.Client.BaseURL
		if o.apiURL != "" {
			base = o.apiURL
		}
		if o.wait > 0 {
			checker, err := health.NewChecker(base)
			if err != nil {
				return nil, err
			}
			if _, err := checker.Wait(ctx, o.wait); err != nil {
				return nil, fmt.Errorf("waiting for %s: %w", checker.Endpoint(), err)
			}
		}
		httpTr, err := controlclient.NewHTTPTransport(base,
			controlclient.WithHTTPClient(httpclient.New(httpclient.WithTimeout(cfg.Client.Timeout))),
			controlclient.WithHTTPLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		tr = httpTr
	}

	client := controlclient.NewStore(tr, controlclient.WithStoreLogger(logger))
	if err := client.FetchSurface(ctx); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, client: client, p: o.root.printer(cmd)}, nil
}

func newControlCommand(root *rootOptions) *cobra.Command {
	o := &controlOptions{root: root}

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Inspect and edit the control surface of a running API",
		Long: `Inspect and edit the control surface.

Commands talk to the API at --api-url (or client.baseURL / TORNADO_API_URL).
With --local they operate on an in-process store built from the seed file;
changes made that way are discarded on exit.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.apiURL, "api-url", "", "control API base URL (default from config)")
	pf.BoolVar(&o.local, "local", false, "use an in-process store instead of the API")
	pf.DurationVar(&o.wait, "wait", 0, "wait up to this long for the API to become healthy")
	pf.BoolVar(&o.jsonOut, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newControlShowCommand(o),
		newControlToggleCommand(o),
		newControlRoleCommand(o),
		newControlScanCommand(o),
		newControlResetCommand(o),
		newControlDiffCommand(o),
	)
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════
// show
// ═══════════════════════════════════════════════════════════════════════════

var sections = []string{"features", "roles", "scans"}

func newControlShowCommand(o *controlOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "show [features|roles|scans]",
		Short:     "Print the control surface",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: sections,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			sf := s.surface()

			if o.jsonOut {
				var v any = sf
				switch section {
				case "features":
					v = sf.Features
				case "roles":
					v = sf.Roles
				case "scans":
					v = sf.ScanProfiles
				}
				return printJSON(s.p, v)
			}
			renderSurface(s.p, sf, section)
			return nil
		},
	}
}

func printJSON(p *ui.Printer, v any) error {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Writer(), string(data))
	return err
}

// ═══════════════════════════════════════════════════════════════════════════
// toggle
// ═══════════════════════════════════════════════════════════════════════════

func newControlToggleCommand(o *controlOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "toggle <feature-id> [on|off]",
		Short: "Enable, disable or flip a feature toggle",
		Long: `Enable, disable or flip a feature toggle.

Locked features are refused unless --force is given.`,
		Example: `  tornado control toggle reporting.auto-publish on
  tornado control toggle ai.orchestration
  tornado control toggle observability.deep-metrics off --force`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			feature, ok := s.surface().Feature(args[0])
			if !ok {
				return fmt.Errorf("unknown feature %q", args[0])
			}
			enabled := !feature.Enabled
			if len(args) == 2 {
				if enabled, err = parseSwitch(args[1]); err != nil {
					return err
				}
			}
			if feature.Locked {
				if !force {
					return fmt.Errorf("%s is locked: re-run with --force to change it", feature.ID)
				}
				s.p.Warnf("%s is locked, changing it anyway", feature.ID)
			}
			if err := s.client.ToggleFeature(cmd.Context(), feature, enabled); err != nil {
				return err
			}
			s.p.Successf("%s is now %s", feature.ID, s.p.Status(enabled))
			if feature.RequiresRestart {
				s.p.Mutedf("takes effect after a restart")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "change a locked feature")
	return cmd
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid state %q: use on or off", v)
	}
	return b, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// role
// ═══════════════════════════════════════════════════════════════════════════

func newControlRoleCommand(o *controlOptions) *cobra.Command {
	var (
		displayName   string
		description   string
		permissions   []string
		featureAccess []string
		landing       string
		mfa           bool
		timeout       int
	)

	cmd := &cobra.Command{
		Use:   "role <admin|pentester|auditor|viewer>",
		Short: "Update a role control",
		Example: `  tornado control role viewer --mfa --timeout 60
  tornado control role pentester --feature-access ai.orchestration,mcp.streaming-results`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: enumStrings(control.Roles),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !slices.ContainsFunc(roleFlags, flags.Changed) {
				return errors.New("nothing to change: pass at least one of --" + strings.Join(roleFlags, ", --"))
			}

			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			role, ok := s.surface().Role(control.Role(args[0]))
			if !ok {
				return fmt.Errorf("unknown role %q", args[0])
			}

			if flags.Changed("display-name") {
				role.DisplayName = displayName
			}
			if flags.Changed("description") {
				role.Description = description
			}
			if flags.Changed("permissions") {
				role.Permissions = nonNil(permissions)
			}
			if flags.Changed("feature-access") {
				role.FeatureAccess = nonNil(featureAccess)
			}
			if flags.Changed("landing") {
				role.DefaultLanding = landing
			}
			if flags.Changed("mfa") {
				role.Enforcement.MFARequired = mfa
			}
			if flags.Changed("timeout") {
				role.Enforcement.SessionTimeoutMinutes = timeout
			}

			if err := s.client.PersistRole(cmd.Context(), role); err != nil {
				return err
			}
			updated, _ := s.surface().Role(role.Role)
			s.p.Successf("role %s updated", updated.Role)
			renderRoles(s.p, []control.RoleControl{updated})
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&displayName, "display-name", "", "display name")
	f.StringVar(&description, "description", "", "description")
	f.StringSliceVar(&permissions, "permissions", nil, `permissions, or "*" for all`)
	f.StringSliceVar(&featureAccess, "feature-access", nil, "feature ids the role may use (empty clears)")
	f.StringVar(&landing, "landing", "", "default landing route")
	f.BoolVar(&mfa, "mfa", false, "require MFA")
	f.IntVar(&timeout, "timeout", 0, "session timeout in minutes")
	return cmd
}

var roleFlags = []string{"display-name", "description", "permissions", "feature-access", "landing", "mfa", "timeout"}

// ═══════════════════════════════════════════════════════════════════════════
// scan
// ═══════════════════════════════════════════════════════════════════════════

func newControlScanCommand(o *controlOptions) *cobra.Command {
	var (
		file        string
		name        string
		description string
		owner       string
		targets     []string
		tooling     []string
		tags        []string
		safeMode    bool
		maxParallel int
	)

	cmd := &cobra.Command{
		Use:   "scan <profile-id>",
		Short: "Update a scan profile, or create one from a file",
		Example: `  tornado control scan scan.network.weekly --owner red-team --max-parallel 8
  tornado control scan scan.webapp.nightly --file nightly.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			profile, exists := s.surface().ScanProfile(id)

			if file != "" {
				profile, err = readScanProfile(file)
				if err != nil {
					return err
				}
				profile.ID = id
			} else if !exists {
				return fmt.Errorf("unknown scan profile %q: pass --file with a complete profile to create it", id)
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				profile.Name = name
			}
			if flags.Changed("description") {
				profile.Description = description
			}
			if flags.Changed("owner") {
				profile.Owner = owner
			}
			if flags.Changed("targets") {
				profile.Targets = nonNil(targets)
			}
			if flags.Changed("tooling") {
				profile.Tooling = nonNil(tooling)
			}
			if flags.Changed("tags") {
				profile.Tags = nonNil(tags)
			}
			if flags.Changed("safe-mode") {
				profile.Guardrails.SafeMode = safeMode
			}
			if flags.Changed("max-parallel") {
				profile.Guardrails.MaxParallelTasks = maxParallel
			}

			if err := s.client.PersistScan(cmd.Context(), profile); err != nil {
				return err
			}
			updated, _ := s.surface().ScanProfile(id)
			if exists {
				s.p.Successf("scan profile %s updated", id)
			} else {
				s.p.Successf("scan profile %s created", id)
			}
			renderScans(s.p, []control.ScanProfile{updated})
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "YAML or JSON scan profile to write")
	f.StringVar(&name, "name", "", "profile name")
	f.StringVar(&description, "description", "", "description")
	f.StringVar(&owner, "owner", "", "owner")
	f.StringSliceVar(&targets, "targets", nil, "scan targets")
	f.StringSliceVar(&tooling, "tooling", nil, "catalog tool ids")
	f.StringSliceVar(&tags, "tags", nil, "tags")
	f.BoolVar(&safeMode, "safe-mode", true, "run in safe mode")
	f.IntVar(&maxParallel, "max-parallel", 0, "maximum parallel tasks")
	return cmd
}

// readScanProfile decodes a profile file. YAML is a superset of JSON, so
// both are accepted.
func readScanProfile(path string) (control.ScanProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return control.ScanProfile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var p control.ScanProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return control.ScanProfile{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// reset
// ═══════════════════════════════════════════════════════════════════════════

func newControlResetCommand(o *controlOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the seed control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset discards every change: re-run with --yes")
			}
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			if err := s.client.Reset(cmd.Context()); err != nil {
				return err
			}
			sf := s.surface()
			s.p.Successf("control surface reset: %d features, %d roles, %d scan profiles",
				len(sf.Features), len(sf.Roles), len(sf.ScanProfiles))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════
// diff
// ═══════════════════════════════════════════════════════════════════════════

func newControlDiffCommand(o *controlOptions) *cobra.Command {
	var (
		contextLines int
		timestamps   bool
	)

	cmd := &cobra.Command{
		Use:   "diff [seed-file]",
		Short: "Show how the live surface differs from a seed",
		Long: `Show how the live surface differs from a seed.

The baseline is the given seed file, else control.seedFile from the config,
else the built-in defaults. Scan profile timestamps are ignored unless
--timestamps is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}

			var baseline control.Surface
			switch {
			case len(args) == 1:
				baseline, err = control.LoadSeedFile(args[0])
			case s.cfg.Control.SeedFile != "":
				baseline, err = control.LoadSeedFile(s.cfg.Control.SeedFile)
			default:
				baseline = control.DefaultSurface(time.Time{})
			}
			if err != nil {
				return err
			}

			current := s.surface()
			if !timestamps {
				clearTimestamps(&baseline)
				clearTimestamps(&current)
			}
			before, err := surfaceYAML(baseline)
			if err != nil {
				return err
			}
			after, err := surfaceYAML(current)
			if err != nil {
				return err
			}

			lines := ui.LineDiff(before, after, contextLines)
			if len(lines) == 0 {
				s.p.Successf("no differences")
				return nil
			}
			s.p.Diff(lines)
			inserted, deleted := ui.DiffStats(lines)
			s.p.Mutedf("%d insertions(+), %d deletions(-)", inserted, deleted)
			return nil
		},
	}

	cmd.Flags().IntVarP(&contextLines, "context", "C", 3, "unchanged lines shown around each change (-1 for all)")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "compare scan profile timestamps too")
	return cmd
}

func clearTimestamps(sf *control.Surface) {
	for i := range sf.ScanProfiles {
		sf.ScanProfiles[i].CreatedAt = time.Time{}
		sf.ScanProfiles[i].UpdatedAt = time.Time{}
	}
}

func surfaceYAML(sf control.Surface) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sf); err != nil {
		return "", fmt.Errorf("encoding surface: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding surface: %w", err)
	}
	return buf.String(), nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
