package telegram

import (
	"fmt"
	"strings"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/diagnosis"
)

// FormatResult renders a diagnosis as a chat message.
func FormatResult(res analysis.Result) string {
	r := res.Report
	var b strings.Builder

	fmt.Fprintf(&b, "Crop: %s\n", r.Crop)
	fmt.Fprintf(&b, "Condition: %s\n", r.Disease)
	fmt.Fprintf(&b, "Confidence: %.2f%% (%s)\n", r.Confidence, r.ConfidenceLevel)

	switch r.Status {
	case diagnosis.StatusHealthy:
		b.WriteString("Status: healthy\n")
	case diagnosis.StatusDiseased:
		if r.Severity != "" {
			fmt.Fprintf(&b, "Severity: %s\n", r.Severity)
		}
	}

	if r.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Message)
	}
	section(&b, "Maintenance", r.Maintenance)
	section(&b, "Organic treatment", r.Organic)
	section(&b, "Chemical treatment", r.Chemical)
	section(&b, "Prevention", r.Prevention)
	if r.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Recommendation)
	}

	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
