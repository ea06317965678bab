package mail

import (
	"fmt"
	"html"
	"strings"
)

// ActivationBody renders the account activation email.
func ActivationBody(name, activationURL string) string {
	var b strings.Builder
	b.WriteString("<h2>Welcome to PosturaFit</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(name))
	b.WriteString("<p>Please confirm your email address to activate your account:</p>")
	fmt.Fprintf(&b, `<p><a href="%s">Activate account</a></p>`, activationURL)
	b.WriteString("<p>If you did not sign up, you can ignore this email.</p>")
	return b.String()
}

// SupportTicketBody renders the forwarded support ticket for the inbox.
func SupportTicketBody(ticketID uint, fromEmail, subject, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Support ticket #%d</h2>", ticketID)
	fmt.Fprintf(&b, "<p><strong>From:</strong> %s</p>", html.EscapeString(fromEmail))
	fmt.Fprintf(&b, "<p><strong>Subject:</strong> %s</p>", html.EscapeString(subject))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(message))
	return b.String()
}

// SupportAutoresponseBody renders the confirmation sent back to the reporter.
func SupportAutoresponseBody(ticketID uint, subject string) string {
	var b strings.Builder
	b.WriteString("<h2>We received your message</h2>")
	fmt.Fprintf(&b, "<p>Your request %q was filed as ticket #%d.</p>", html.EscapeString(subject), ticketID)
	b.WriteString("<p>Our team usually replies within two business days.</p>")
	return b.String()
}
