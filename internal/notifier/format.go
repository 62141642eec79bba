package notifier

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// plainTemplate is the shared plain-text rendering used by channels that
// have no richer wire format of their own.
const plainTemplate = `{{.SeverityTag}} {{.Title}}
{{.Message}}

Metric value: {{printf "%.4g" .MetricValue}}
Threshold:    {{printf "%.4g" .ThresholdValue}}
Triggered at: {{.Timestamp}}
{{- if .Escalated}}
This alert has been ESCALATED.
{{- end}}`

var plainTmpl = template.Must(template.New("plain").Parse(plainTemplate))

// templateData is the flattened view of a Notification for templating.
type templateData struct {
	SeverityTag    string
	Title          string
	Message        string
	MetricValue    float64
	ThresholdValue float64
	Timestamp      string
	Escalated      bool
}

// toTemplateData converts a notification to template data.
func toTemplateData(n *Notification) templateData {
	return templateData{
		SeverityTag:    severityTag(n.Severity),
		Title:          n.Title,
		Message:        n.Message,
		MetricValue:    n.MetricValue,
		ThresholdValue: n.ThresholdValue,
		Timestamp:      n.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
		Escalated:      n.Escalated,
	}
}

// RenderPlain renders the shared plain-text notification body.
func RenderPlain(n *Notification) (string, error) {
	var buf bytes.Buffer
	if err := plainTmpl.Execute(&buf, toTemplateData(n)); err != nil {
		return "", fmt.Errorf("render plain body: %w", err)
	}
	return buf.String(), nil
}

// severityTag returns a bracketed uppercase severity marker.
func severityTag(severity models.Severity) string {
	return "[" + strings.ToUpper(string(severity)) + "]"
}

// severityEmoji returns an emoji for the severity level.
func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "\U0001F534" // red circle
	case models.SeverityHigh:
		return "\U0001F7E0" // orange circle
	case models.SeverityMedium:
		return "\U0001F7E1" // yellow circle
	case models.SeverityLow:
		return "\U0001F7E2" // green circle
	default:
		return "⚪" // white circle
	}
}

// severityColor returns the hex color for a severity level.
func severityColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "#d32f2f" // red
	case models.SeverityHigh:
		return "#f57c00" // orange
	case models.SeverityMedium:
		return "#fbc02d" // yellow
	case models.SeverityLow:
		return "#388e3c" // green
	default:
		return "#757575" // gray
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
