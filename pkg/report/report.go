// Package report renders the control surface as a posture report in JSON,
// HTML or PDF. Four templates select which sections are included.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatHTML, FormatPDF}

// Template selects the report sections.
type Template string

const (
	TemplateExecutiveSummary        Template = "executive_summary"
	TemplateTechnicalDetailed       Template = "technical_detailed"
	TemplateComplianceReport        Template = "compliance_report"
	TemplateVulnerabilityAssessment Template = "vulnerability_assessment"
)

// Templates lists every supported template.
var Templates = []Template{
	TemplateExecutiveSummary,
	TemplateTechnicalDetailed,
	TemplateComplianceReport,
	TemplateVulnerabilityAssessment,
}

// Sentinel errors for report generation.
var (
	ErrUnknownFormat   = errors.New("report: unknown format")
	ErrUnknownTemplate = errors.New("report: unknown template")
)

// ParseFormat maps a name to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatJSON, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ParseTemplate maps a name to a Template. Empty means executive summary.
func ParseTemplate(s string) (Template, error) {
	if s == "" {
		return TemplateExecutiveSummary, nil
	}
	t := Template(strings.ToLower(s))
	for _, known := range Templates {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
}

// ContentType returns the MIME type for f.
func ContentType(f Format) string {
	switch f {
	case FormatHTML:
		return defaults.ContentTypeHTML
	case FormatPDF:
		return defaults.ContentTypePDF
	default:
		return defaults.ContentTypeJSON
	}
}

// Summary holds headline counts.
type Summary struct {
	Features          int `json:"features"`
	EnabledFeatures   int `json:"enabledFeatures"`
	LockedFeatures    int `json:"lockedFeatures"`
	Roles             int `json:"roles"`
	RolesWithoutMFA   int `json:"rolesWithoutMfa"`
	ScanProfiles      int `json:"scanProfiles"`
	SafeModeProfiles  int `json:"safeModeProfiles"`
	ApprovalsRequired int `json:"approvalsRequired"`
}

// Section is one table in the report.
type Section struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Notes   []string   `json:"notes,omitempty"`
}

// Report is the rendered-format-independent report model.
type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Template    Template  `json:"template"`
	GeneratedAt time.Time `json:"generatedAt"`
	Generator   string    `json:"generator"`
	Summary     Summary   `json:"summary"`
	Sections    []Section `json:"sections"`
	// Data echoes caller-supplied context, such as an engagement name.
	Data map[string]any `json:"data,omitempty"`
}

// Request asks for a report.
type Request struct {
	Format   Format
	Template Template
	Data     map[string]any
}

// Label turns an identifier such as "compliance_report" into "Compliance Report".
// A Caser is stateful, so each call gets its own.
func Label(id string) string {
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(id))
}

// Build assembles a report from sf.
func Build(sf control.Surface, tmpl Template, now time.Time, data map[string]any) Report {
	r := Report{
		ID:          uuid.NewString(),
		Title:       defaults.ToolNameDisplay + " " + Label(string(tmpl)),
		Template:    tmpl,
		GeneratedAt: now.UTC(),
		Generator:   defaults.UserAgent(),
		Summary:     summarize(sf),
		Data:        data,
	}

	switch tmpl {
	case TemplateExecutiveSummary:
		r.Sections = []Section{headlineSection(r.Summary), categorySection(sf)}
	case TemplateTechnicalDetailed:
		r.Sections = []Section{featureSection(sf), roleSection(sf), scanSection(sf)}
	case TemplateComplianceReport:
		r.Sections = []Section{enforcementSection(sf), guardrailSection(sf)}
	case TemplateVulnerabilityAssessment:
		r.Sections = []Section{coverageSection(sf), exposureSection(sf)}
	}
	return r
}

// Render writes r to w in format f.
func Render(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := jsonutil.NewStreamEncoder(w)
		enc.SetIndent("  ")
		return enc.Encode(r)
	case FormatHTML:
		return renderHTML(w, r)
	case FormatPDF:
		return renderPDF(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Generate builds and renders in one step.
func Generate(w io.Writer, sf control.Surface, req Request, now time.Time) error {
	return Render(w, Build(sf, req.Template, now, req.Data), req.Format)
}

func summarize(sf control.Surface) Summary {
	s := Summary{
		Features:     len(sf.Features),
		Roles:        len(sf.Roles),
		ScanProfiles: len(sf.ScanProfiles),
	}
	for _, f := range sf.Features {
		if f.Enabled {
			s.EnabledFeatures++
		}
		if f.Locked {
			s.LockedFeatures++
		}
	}
	for _, r := range sf.Roles {
		if !r.Enforcement.MFARequired {
			s.RolesWithoutMFA++
		}
	}
	for _, p := range sf.ScanProfiles {
		if p.Guardrails.SafeMode {
			s.SafeModeProfiles++
		}
		if p.Guardrails.ApprovalsRequired {
			s.ApprovalsRequired++
		}
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func itoa(n int) string { return strconv.Itoa(n) }

func headlineSection(s Summary) Section {
	return Section{
		Title:   "Headline",
		Columns: []string{"Measure", "Value"},
		Rows: [][]string{
			{"Features enabled", fmt.Sprintf("%d of %d", s.EnabledFeatures, s.Features)},
			{"Locked features", itoa(s.LockedFeatures)},
			{"Roles", itoa(s.Roles)},
			{"Roles without MFA", itoa(s.RolesWithoutMFA)},
			{"Scan profiles", itoa(s.ScanProfiles)},
			{"Profiles in safe mode", fmt.Sprintf("%d of %d", s.SafeModeProfiles, s.ScanProfiles)},
			{"Profiles requiring approval", itoa(s.ApprovalsRequired)},
		},
	}
}

func categorySection(sf control.Surface) Section {
	type counts struct{ total, enabled int }
	byCat := make(map[control.FeatureCategory]*counts)
	for _, f := range sf.Features {
		c := byCat[f.Category]
		if c == nil {
			c = &counts{}
			byCat[f.Category] = c
		}
		c.total++
		if f.Enabled {
			c.enabled++
		}
	}
	sec := Section{Title: "Features by category", Columns: []string{"Category", "Enabled", "Total"}}
	for _, cat := range control.FeatureCategories {
		c, ok := byCat[cat]
		if !ok {
			continue
		}
		sec.Rows = append(sec.Rows, []string{Label(string(cat)), itoa(c.enabled), itoa(c.total)})
	}
	return sec
}

func featureSection(sf control.Surface) Section {
	sec := Section{Title: "Feature toggles", Columns: []string{"ID", "Category", "Enabled", "Locked", "Restart"}}
	for _, f := range sf.Features {
		sec.Rows = append(sec.Rows, []string{f.ID, string(f.Category), yesNo(f.Enabled), yesNo(f.Locked), yesNo(f.RequiresRestart)})
	}
	return sec
}

func roleSection(sf control.Surface) Section {
	sec := Section{Title: "Roles", Columns: []string{"Role", "Permissions", "Features", "Landing"}}
	for _, r := range sf.Roles {
		sec.Rows = append(sec.Rows, []string{
			string(r.Role),
			strings.Join(r.Permissions, ", "),
			itoa(len(r.FeatureAccess)),
			r.DefaultLanding,
		})
	}
	return sec
}

func scanSection(sf control.Surface) Section {
	sec := Section{Title: "Scan profiles", Columns: []string{"ID", "Category", "Schedule", "Tooling", "Owner", "Updated"}}
	for _, p := range sf.ScanProfiles {
		sched := string(p.Schedule.Type)
		if p.Schedule.Cron != "" {
			sched += " (" + p.Schedule.Cron + ")"
		}
		sec.Rows = append(sec.Rows, []string{
			p.ID,
			string(p.Category),
			sched,
			strings.Join(p.Tooling, ", "),
			p.Owner,
			p.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return sec
}

func enforcementSection(sf control.Surface) Section {
	sec := Section{Title: "Session enforcement", Columns: []string{"Role", "MFA", "Session timeout (min)"}}
	for _, r := range sf.Roles {
		sec.Rows = append(sec.Rows, []string{string(r.Role), yesNo(r.Enforcement.MFARequired), itoa(r.Enforcement.SessionTimeoutMinutes)})
		if !r.Enforcement.MFARequired {
			sec.Notes = append(sec.Notes, fmt.Sprintf("Role %s does not require MFA.", r.Role))
		}
	}
	return sec
}

func guardrailSection(sf control.Surface) Section {
	sec := Section{Title: "Scan guardrails", Columns: []string{"Profile", "Approvals", "Safe mode", "Max parallel", "Notify"}}
	for _, p := range sf.ScanProfiles {
		g := p.Guardrails
		approvals := "not required"
		if g.ApprovalsRequired {
			approvals = itoa(g.ApprovalsNeeded) + " required"
		}
		notify := make([]string, len(g.NotifyRoles))
		for i, r := range g.NotifyRoles {
			notify[i] = string(r)
		}
		sec.Rows = append(sec.Rows, []string{p.ID, approvals, yesNo(g.SafeMode), itoa(g.MaxParallelTasks), strings.Join(notify, ", ")})
		if !g.SafeMode && !g.ApprovalsRequired {
			sec.Notes = append(sec.Notes, fmt.Sprintf("Profile %s runs without safe mode or approvals.", p.ID))
		}
	}
	return sec
}

func coverageSection(sf control.Surface) Section {
	byCat := make(map[control.ScanCategory][]string)
	for _, p := range sf.ScanProfiles {
		byCat[p.Category] = append(byCat[p.Category], p.Tooling...)
	}
	sec := Section{Title: "Coverage by category", Columns: []string{"Category", "Profiles", "Tooling"}}
	for _, cat := range control.ScanCategories {
		tools, ok := byCat[cat]
		if !ok {
			sec.Notes = append(sec.Notes, fmt.Sprintf("No scan profile covers %s.", cat))
			continue
		}
		profiles := 0
		for _, p := range sf.ScanProfiles {
			if p.Category == cat {
				profiles++
			}
		}
		sec.Rows = append(sec.Rows, []string{string(cat), itoa(profiles), strings.Join(dedupe(tools), ", ")})
	}
	return sec
}

func exposureSection(sf control.Surface) Section {
	sec := Section{Title: "Targets in scope", Columns: []string{"Target", "Profiles"}}
	byTarget := make(map[string][]string)
	for _, p := range sf.ScanProfiles {
		for _, t := range p.Targets {
			byTarget[t] = append(byTarget[t], p.ID)
		}
	}
	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		sec.Rows = append(sec.Rows, []string{t, strings.Join(byTarget[t], ", ")})
	}
	return sec
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
