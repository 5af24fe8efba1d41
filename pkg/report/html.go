package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/control_report.html
var htmlTemplate string

var (
	htmlOnce sync.Once
	htmlTmpl *template.Template
	htmlErr  error
)

func parsedHTML() (*template.Template, error) {
	htmlOnce.Do(func() {
		funcMap := sprig.FuncMap()
		funcMap["label"] = Label
		htmlTmpl, htmlErr = template.New("control_report").Funcs(funcMap).Parse(htmlTemplate)
	})
	return htmlTmpl, htmlErr
}

func renderHTML(w io.Writer, r Report) error {
	tmpl, err := parsedHTML()
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}
	if err := tmpl.Execute(w, r); err != nil {
		return fmt.Errorf("report: execute template: %w", err)
	}
	return nil
}
