package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/tphakala/cropdoc/internal/events"
)

var (
	titleTemplate = template.Must(template.New("title").Parse(
		`{{.Severity}} severity: {{.Disease}} on {{.Crop}}`))

	messageTemplate = template.Must(template.New("message").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(`{{.Crop}}: {{.Disease}} detected with {{printf "%.2f" .Confidence}}% confidence ({{.ConfidenceLevel}}).
{{- if .Node}}
Node: {{.Node}}{{end}}
{{- if .ImageName}}
Image: {{.ImageName}}{{end}}
{{- if .Organic}}
Organic: {{join .Organic "; "}}{{end}}
{{- if .Chemical}}
Chemical: {{join .Chemical "; "}}{{end}}
{{- if .Prevention}}
Prevention: {{join .Prevention "; "}}{{end}}
{{- if .ScanID}}
Scan: {{.ScanID}}{{end}}`))
)

// TemplateData is the data available to alert templates.
type TemplateData struct {
	Crop            string
	Disease         string
	Severity        string
	Confidence      float64
	ConfidenceLevel string
	Organic         []string
	Chemical        []string
	Prevention      []string
	Node            string
	ImageName       string
	ScanID          string
}

// NewTemplateData flattens an event for the alert templates.
func NewTemplateData(ev events.DiagnosisEvent) TemplateData {
	r := ev.Report
	return TemplateData{
		Crop:            r.Crop,
		Disease:         r.Disease,
		Severity:        string(r.Severity),
		Confidence:      r.Confidence,
		ConfidenceLevel: string(r.ConfidenceLevel),
		Organic:         r.Organic,
		Chemical:        r.Chemical,
		Prevention:      r.Prevention,
		Node:            ev.Node,
		ImageName:       ev.ImageName,
		ScanID:          ev.ScanID,
	}
}

// Render produces the alert title and body for ev.
func Render(ev events.DiagnosisEvent) (title, message string, err error) {
	data := NewTemplateData(ev)

	var buf bytes.Buffer
	if err := titleTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render title: %w", err)
	}
	title = buf.String()

	buf.Reset()
	if err := messageTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render message: %w", err)
	}
	return title, buf.String(), nil
}
