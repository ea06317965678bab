package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/env"
	"github.com/posturafit/PosturaFit/internal/pkg/hcaptcha"
	"github.com/posturafit/PosturaFit/internal/pkg/mail"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// HandleSupportForm renders the contact form. Logged-in users get their
// address prefilled and skip the captcha.
func HandleSupportForm(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	return render(c, "support", fiber.Map{
		"Page":            "support",
		"Email":           uctx.Email,
		"CaptchaRequired": !uctx.IsLoggedIn && hcaptcha.IsConfigured(),
		"HCaptchaSiteKey": env.GetEnv("HCAPTCHA_SITEKEY", ""),
		"CSRFToken":       csrfToken(c),
	})
}

// HandleSupportSubmit validates and stores a support ticket, then forwards
// it to the support inbox and confirms receipt to the reporter. Mail
// delivery is best effort: the ticket stays stored even when the provider
// rejects the forward, and the delivery timestamps record what went out.
func HandleSupportSubmit(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	ticket := &models.SupportTicket{
		Email:   strings.TrimSpace(c.FormValue("email")),
		Subject: strings.TrimSpace(c.FormValue("subject")),
		Message: strings.TrimSpace(c.FormValue("message")),
		Status:  models.TicketStatusOpen,
	}
	if uctx.IsLoggedIn {
		userID := uctx.UserID
		ticket.UserID = &userID
		if ticket.Email == "" {
			ticket.Email = uctx.Email
		}
	}

	if err := ticket.Validate(); err != nil {
		fm := fiber.Map{"type": "error", "message": "Please fill in a valid email, subject and message."}
		return flash.WithError(c, fm).Redirect("/support")
	}

	// Guests have to pass the captcha before anything is stored.
	if !uctx.IsLoggedIn && hcaptcha.IsConfigured() {
		token := c.FormValue("h-captcha-response")
		if ok, err := hcaptcha.Verify(token); err != nil || !ok {
			fm := fiber.Map{"type": "error", "message": "Captcha verification failed, please try again."}
			return flash.WithError(c, fm).Redirect("/support")
		}
	}

	if err := database.GetDB().Create(ticket).Error; err != nil {
		log.Printf("failed to store support ticket from %s: %v", ticket.Email, err)
		fm := fiber.Map{"type": "error", "message": "Your message could not be saved, please try again later."}
		return flash.WithError(c, fm).Redirect("/support")
	}

	deliverSupportMail(ticket)

	fm := fiber.Map{"type": "success", "message": "Thanks, your message has been sent (ref " + ticket.Reference + "). We will get back to you soon."}
	return flash.WithSuccess(c, fm).Redirect("/support")
}

// deliverSupportMail forwards the ticket to the support inbox and sends
// the autoresponse. Failures are logged and reflected in the ticket's
// delivery timestamps.
func deliverSupportMail(ticket *models.SupportTicket) {
	inbox := supportInbox()
	if inbox == "" {
		log.Printf("no support inbox configured, ticket #%d stored without forwarding", ticket.ID)
		return
	}

	m := mail.GetMailer()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()

	err := m.Send(ctx, mail.Message{
		To:       inbox,
		Subject:  "[Support " + ticket.Reference + "] " + ticket.Subject,
		BodyHTML: mail.SupportTicketBody(ticket.ID, ticket.Email, ticket.Subject, ticket.Message),
		Tag:      "support-ticket",
	})
	if err != nil {
		log.Printf("failed to forward support ticket #%d: %v", ticket.ID, err)
	} else {
		ticket.ForwardedAt = &now
	}

	err = m.Send(ctx, mail.Message{
		To:       ticket.Email,
		Subject:  "We received your message",
		BodyHTML: mail.SupportAutoresponseBody(ticket.ID, ticket.Subject),
		Tag:      "support-autoresponse",
	})
	if err != nil {
		log.Printf("failed to send autoresponse for ticket #%d: %v", ticket.ID, err)
	} else {
		ticket.AutorespondedAt = &now
	}

	if ticket.ForwardedAt != nil || ticket.AutorespondedAt != nil {
		if err := database.GetDB().Model(ticket).Select("forwarded_at", "autoresponded_at").Updates(ticket).Error; err != nil {
			log.Printf("failed to update delivery state for ticket #%d: %v", ticket.ID, err)
		}
	}
}

func supportInbox() string {
	if s := models.GetAppSettings(); s != nil && strings.TrimSpace(s.SupportInbox) != "" {
		return strings.TrimSpace(s.SupportInbox)
	}
	return strings.TrimSpace(env.GetEnv("MAIL_SUPPORT_INBOX", ""))
}
