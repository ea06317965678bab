package mail

import (
	"context"
	"log"
)

// devMailer logs outbound mail instead of sending it. Used when no
// provider token is configured, typically in local development and tests.
type devMailer struct{}

func NewDevMailer() Mailer {
	return &devMailer{}
}

func (m *devMailer) Send(ctx context.Context, msg Message) error {
	_ = ctx
	log.Printf("mail (dev): to=%s subject=%q tag=%s bytes=%d", msg.To, msg.Subject, msg.Tag, len(msg.BodyHTML))
	return nil
}
