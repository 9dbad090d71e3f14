package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/cropdoc/internal/diagnosis"
)

const ruleWidth = 80

// WriteReportText renders a diagnosis for a terminal.
func WriteReportText(w io.Writer, name string, r diagnosis.Report) error {
	rule := strings.Repeat("=", ruleWidth)
	var b strings.Builder

	b.WriteString(rule + "\n")
	if name != "" {
		fmt.Fprintf(&b, "Analyzing: %s\n", name)
		b.WriteString(rule + "\n")
	}
	fmt.Fprintf(&b, "\nCrop:       %s\n", r.Crop)
	fmt.Fprintf(&b, "Disease:    %s\n", r.Disease)
	fmt.Fprintf(&b, "Confidence: %.2f%% (%s)\n", r.Confidence, r.ConfidenceLevel)
	fmt.Fprintf(&b, "Status:     %s\n", r.Status)

	b.WriteString("\n" + rule + "\n")
	b.WriteString("TREATMENT & PREVENTION\n")
	b.WriteString(rule + "\n")

	if r.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Message)
	}

	severity := string(r.Severity)
	if severity == "" {
		severity = "N/A"
	}
	fmt.Fprintf(&b, "\nSeverity: %s\n", severity)

	writeList(&b, "Maintenance Tips", r.Maintenance)
	writeList(&b, "Organic/Natural Treatment", r.Organic)
	writeList(&b, "Chemical Treatment", r.Chemical)
	writeList(&b, "Prevention Measures", r.Prevention)

	if r.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Recommendation)
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "   - %s\n", item)
	}
}

// WriteJSON writes v as a single JSON document followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ErrorOutput is the JSON shape for a failed CLI analysis.
type ErrorOutput struct {
	Error string `json:"error"`
}
