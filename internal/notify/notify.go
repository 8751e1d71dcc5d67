// Package notify delivers verification results by email, off the request path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"docverify/internal/model"
)

// ErrNotificationFailure marks a notification that could not be delivered.
var ErrNotificationFailure = errors.New("notification failure")

// Notification is the message handed to a Sender.
type Notification struct {
	RecordID        string
	To              string
	Status          model.Status
	DocumentType    model.DocumentType
	ConfidenceScore float64
	DocumentNumber  string
	Checks          []model.RuleResult
}

// FromRecord builds the notification for rec addressed to to.
func FromRecord(to string, rec *model.VerificationRecord) Notification {
	n := Notification{
		RecordID:        rec.ID,
		To:              to,
		Status:          rec.Status,
		DocumentType:    rec.DocumentType,
		ConfidenceScore: rec.ConfidenceScore,
		Checks:          append([]model.RuleResult(nil), rec.Checks...),
	}
	if v := rec.Field(model.FieldDocumentNumber); v != nil {
		n.DocumentNumber = *v
	}
	return n
}

// Sender is an email transport.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

// MaskAddress keeps the first character of the local part and the domain,
// for logs: "jane@example.com" becomes "j***@example.com".
func MaskAddress(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

// Subject returns the email subject line.
func Subject(n Notification) string {
	return fmt.Sprintf("Document Verification Update: %s", n.Status)
}

// TextBody renders the plain text part.
func TextBody(n Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "We have processed your uploaded %s.\n\n", documentLabel(n.DocumentType))
	fmt.Fprintf(&b, "Status: %s\n", n.Status)
	fmt.Fprintf(&b, "Confidence Score: %.4f / 1.0\n", n.ConfidenceScore)
	fmt.Fprintf(&b, "Document Number: %s\n", orNA(n.DocumentNumber))
	fmt.Fprintf(&b, "Reference: %s\n\nDetailed Checks:\n", n.RecordID)
	if len(n.Checks) == 0 {
		b.WriteString("- No verification rules available\n")
	}
	for _, c := range n.Checks {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", c.Rule, c.Status, orDefault(c.Details, "No details"))
	}
	return b.String()
}

// HTMLBody renders the HTML part. Every interpolated value is escaped.
func HTMLBody(n Notification) string {
	var rules strings.Builder
	for _, c := range n.Checks {
		color := "red"
		if c.Status == model.RulePassed {
			color = "green"
		}
		fmt.Fprintf(&rules, `<li style="color: %s"><strong>%s</strong>: %s (%s)</li>`,
			color, html.EscapeString(c.Rule), c.Status, html.EscapeString(orDefault(c.Details, "No details")))
	}
	if rules.Len() == 0 {
		rules.WriteString("<li>No verification rules available</li>")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Document Verification Results</h2>
  <p>We have processed your uploaded <strong>%s</strong>.</p>
  <h3>Summary</h3>
  <ul>
    <li><strong>Status:</strong> %s</li>
    <li><strong>Confidence Score:</strong> %.4f / 1.0</li>
    <li><strong>Document Number:</strong> %s</li>
  </ul>
  <h3>Detailed Checks</h3>
  <ul>%s</ul>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Reference %s</p>
</body>
</html>`,
		html.EscapeString(documentLabel(n.DocumentType)),
		n.Status,
		n.ConfidenceScore,
		html.EscapeString(orNA(n.DocumentNumber)),
		rules.String(),
		html.EscapeString(n.RecordID),
	)
}

func documentLabel(t model.DocumentType) string {
	if t == "" || t == model.DocumentTypeUnknown {
		return "DOCUMENT"
	}
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
