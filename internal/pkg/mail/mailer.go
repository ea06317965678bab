package mail

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/posturafit/PosturaFit/internal/pkg/env"
)

var ErrInvalidConfig = errors.New("mail: invalid configuration")

// Message is one outbound transactional email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

// Mailer sends transactional email through the configured provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var mailer Mailer

// Setup selects the mail backend from the environment: Postmark when a
// server token is configured, otherwise a log-only sender for development.
func Setup() {
	token := strings.TrimSpace(env.GetEnv("POSTMARK_SERVER_TOKEN", ""))
	if token == "" {
		log.Printf("POSTMARK_SERVER_TOKEN not set, emails will only be logged")
		mailer = NewDevMailer()
		return
	}

	pm, err := NewPostmarkMailer(Config{
		ServerToken:  token,
		AccountToken: strings.TrimSpace(env.GetEnv("POSTMARK_ACCOUNT_TOKEN", "")),
		SenderEmail:  strings.TrimSpace(env.GetEnv("MAIL_SENDER", "")),
		ReplyTo:      strings.TrimSpace(env.GetEnv("MAIL_SUPPORT_INBOX", "")),
	})
	if err != nil {
		log.Printf("Postmark mailer misconfigured (%v), falling back to log sender", err)
		mailer = NewDevMailer()
		return
	}
	mailer = pm
}

// GetMailer returns the configured mailer, defaulting to the dev sender.
func GetMailer() Mailer {
	if mailer == nil {
		Setup()
	}
	return mailer
}

// SetMailer overrides the mail backend; used by tests.
func SetMailer(m Mailer) {
	mailer = m
}
