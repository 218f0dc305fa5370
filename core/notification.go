package core

import (
	"fmt"
	"html"
	"strings"
)

const notAvailable = "N/A"

// RenderAlertNotification builds the email for a stored security alert.
func RenderAlertNotification(record AlertRecord) Notification {
	severity := displaySeverity(record.Severity, "UNKNOWN")
	subject := fmt.Sprintf("[%s] New ADO Security Alert: %s", severity, valueOr(record.RuleName, notAvailable))

	var body strings.Builder
	body.WriteString("<p>A new Advanced Security alert has been detected:</p>\n")
	body.WriteString("<ul>\n")
	writeItem(&body, "Rule", valueOr(record.RuleName, notAvailable))
	writeItem(&body, "Severity", displaySeverity(record.Severity, notAvailable))
	writeItem(&body, "Repository", valueOr(record.RepositoryName, notAvailable))
	writeItem(&body, "Branch", valueOr(record.Branch, notAvailable))
	writeItem(&body, "Alert State", valueOr(record.State, notAvailable))
	body.WriteString("</ul>\n")
	fmt.Fprintf(&body, "<p><a href=\"%s\">View Alert Details in Azure DevOps</a></p>\n",
		html.EscapeString(valueOr(record.AlertURL, "")))
	body.WriteString("<p>Please investigate this alert immediately.</p>\n")

	return Notification{
		Subject:  subject,
		HTMLBody: body.String(),
	}
}

// AlertSummaryFields are the values logged when a security alert arrives.
func AlertSummaryFields(record AlertRecord) map[string]any {
	return map[string]any{
		"rule":       valueOr(record.RuleName, notAvailable),
		"severity":   displaySeverity(record.Severity, notAvailable),
		"repository": valueOr(record.RepositoryName, notAvailable),
		"alert_url":  valueOr(record.AlertURL, notAvailable),
	}
}

func writeItem(body *strings.Builder, label string, value string) {
	fmt.Fprintf(body, "  <li><strong>%s:</strong> %s</li>\n", label, html.EscapeString(value))
}

func displaySeverity(severity *string, fallback string) string {
	if severity == nil || *severity == "" {
		return fallback
	}
	return strings.ToUpper(*severity)
}

func valueOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
