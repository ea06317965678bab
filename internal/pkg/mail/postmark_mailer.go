package mail

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Config holds the Postmark credentials and sender identity.
type Config struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	ReplyTo      string
}

type postmarkMailer struct {
	client *postmark.Client
	config Config
}

// NewPostmarkMailer creates a Postmark-backed sender. The server token and
// a valid sender address are required so a misconfigured deployment fails
// at startup instead of silently dropping mail.
func NewPostmarkMailer(cfg Config) (Mailer, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.ReplyTo != "" && !emailRegex.MatchString(cfg.ReplyTo) {
		return nil, fmt.Errorf("%w: ReplyTo must be a valid email address", ErrInvalidConfig)
	}

	return &postmarkMailer{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

func (m *postmarkMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" || msg.Subject == "" || msg.BodyHTML == "" {
		return fmt.Errorf("%w: recipient, subject and body are required", ErrInvalidConfig)
	}

	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.config.SenderEmail,
		ReplyTo:    m.config.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(errors.New("mail: send failed"), err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("mail: postmark error %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
