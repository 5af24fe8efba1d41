// Package ui renders CLI output: titles, key/value blocks, tables, status
// lines and diffs. Colour and glyph choices follow the destination writer,
// so piped output stays plain ASCII.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

// Printer writes styled output to a single writer.
type Printer struct {
	w       io.Writer
	styles  Styles
	color   bool
	unicode bool
}

// Option configures a Printer.
type Option func(*Printer)

// WithNoColor forces plain output regardless of the writer.
func WithNoColor(noColor bool) Option {
	return func(p *Printer) {
		if noColor {
			p.color = false
		}
	}
}

// WithASCII disables Unicode glyphs and box drawing.
func WithASCII() Option {
	return func(p *Printer) { p.unicode = false }
}

// New returns a Printer for w.
func New(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:       w,
		color:   ColorEnabled(w),
		unicode: UnicodeCapable(w),
	}
	for _, opt := range opts {
		opt(p)
	}

	r := lipgloss.NewRenderer(w)
	switch {
	case !p.color:
		r.SetColorProfile(termenv.Ascii)
	case !IsTerminal(w):
		// FORCE_COLOR on a pipe: the renderer would detect no colour support.
		r.SetColorProfile(termenv.ANSI256)
	}
	p.styles = NewStyles(r)
	return p
}

// Styles exposes the printer's styles for ad-hoc rendering.
func (p *Printer) Styles() Styles { return p.styles }

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Icon returns unicode when the writer can render it, ascii otherwise.
func (p *Printer) Icon(unicode, ascii string) string {
	if p.unicode {
		return unicode
	}
	return ascii
}

// Title prints a highlighted heading with an optional subtitle.
func (p *Printer) Title(title, subtitle string) {
	fmt.Fprintln(p.w, p.styles.Title.Render(title))
	if subtitle != "" {
		fmt.Fprintln(p.w, p.styles.Subtitle.Render(subtitle))
	}
}

// Section prints a section heading.
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.w, p.styles.Section.Render(title))
}

// KV prints an aligned label/value line.
func (p *Printer) KV(label, value string) {
	fmt.Fprintln(p.w, p.styles.Label.Render(label)+p.styles.Value.Render(value))
}

// Table prints rows under headers. Cells may already carry styling.
func (p *Printer) Table(headers []string, rows [][]string) {
	border := lipgloss.NormalBorder()
	if !p.unicode {
		border = lipgloss.ASCIIBorder()
	}
	t := table.New().
		Border(border).
		BorderStyle(p.styles.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.Header
			}
			return p.styles.Cell
		})
	fmt.Fprintln(p.w, t.Render())
}

// Status renders an on/off marker.
func (p *Printer) Status(enabled bool) string {
	if enabled {
		return p.styles.Enabled.Render(p.Icon("● on", "on"))
	}
	return p.styles.Disabled.Render(p.Icon("○ off", "off"))
}

// Bool renders yes/no for boolean columns.
func (p *Printer) Bool(v bool) string {
	if v {
		return p.styles.Enabled.Render("yes")
	}
	return p.styles.Muted.Render("no")
}

// Badge renders a compact label.
func (p *Printer) Badge(text string) string {
	return p.styles.Badge.Render(text)
}

// Locked renders the lock marker for a locked feature, or "" otherwise.
func (p *Printer) Locked(locked bool) string {
	if !locked {
		return ""
	}
	return p.styles.Locked.Render(p.Icon("🔒 locked", "locked"))
}

// Successf prints a success line.
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.styles.Success, p.Icon("✔", "[+]"), format, args...)
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.styles.Warning, p.Icon("!", "[!]"), format, args...)
}

// Errorf prints an error line.
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.styles.Error, p.Icon("✖", "[x]"), format, args...)
}

// Mutedf prints a dimmed informational line.
func (p *Printer) Mutedf(format string, args ...any) {
	fmt.Fprintln(p.w, p.styles.Muted.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) line(style lipgloss.Style, icon, format string, args ...any) {
	fmt.Fprintln(p.w, style.Render(icon)+" "+fmt.Sprintf(format, args...))
}

// Diff prints diff lines, colouring additions and removals.
func (p *Printer) Diff(lines []DiffLine) {
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			fmt.Fprintln(p.w, p.styles.Added.Render("+ "+l.Text))
		case DiffDelete:
			fmt.Fprintln(p.w, p.styles.Removed.Render("- "+l.Text))
		case DiffHunk:
			fmt.Fprintln(p.w, p.styles.Hunk.Render(l.Text))
		default:
			fmt.Fprintln(p.w, "  "+l.Text)
		}
	}
}

// Join is a convenience for comma separated cell values.
func Join(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
