package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/billing"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/env"
	"github.com/posturafit/PosturaFit/internal/pkg/session"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// HandleBillingWebhook receives subscription lifecycle events from the
// checkout provider and reconciles them into the user's entitlement.
//
// Order matters: signature first (nothing is trusted or stored before it),
// then envelope validation, then delivery dedup, then the single
// conditional entitlement write. The provider retries on any non-2xx
// status, so genuine failures (unknown user, write error) must not be
// masked as success, while no-ops (unrecognized type, processed
// duplicate, stale) must be acknowledged with 200 to stop the retry
// loop. That retry is the only recovery path for failed events, so the
// dedup ledger suppresses a delivery only after a successful attempt.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Billing-Signature"))
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	if !billing.VerifyWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := billing.ParseEventEnvelope(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}

	eventID := ev.EventID
	if eventID == "" {
		eventID = firstHeaderValue(c, "X-Billing-Event-Id", "X-Billing-Delivery")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        billing.ProviderCheckout,
		ProviderEventID: eventID,
		EventType:       ev.EventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	// Only a delivery whose prior attempt completed is a duplicate. A
	// redelivery after a failed attempt (write error, user registered
	// after the first try) is the provider's retry and must run again.
	if !created && stored.Processed() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	result, procErr := svc.ProcessEvent(ctx, ev)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)

	if procErr != nil {
		if errors.Is(procErr, billing.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_error"})
	}

	if result.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":      true,
			"ignored": true,
			"stale":   result.Stale,
			"event":   result.EventType,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":         true,
		"event":      result.EventType,
		"is_premium": result.IsPremium,
	})
}

// HandleBillingCheckout sends a logged-in user to the provider's hosted
// checkout page for the premium plan.
func HandleBillingCheckout(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	if !uctx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	if uctx.IsPremium {
		fm := fiber.Map{"type": "success", "message": "You already have Premium."}
		return flash.WithSuccess(c, fm).Redirect("/premium")
	}

	email := uctx.Email
	if email == "" {
		email = session.GetSessionValue(c, "user_email")
	}

	client := billing.NewCheckoutClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sess, err := client.CreateCheckoutSession(ctx, email, c.BaseURL()+"/premium", c.BaseURL()+"/pricing")
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Checkout is unavailable right now, please try again later."}
		return flash.WithError(c, fm).Redirect("/premium")
	}

	return c.Redirect(sess.URL, fiber.StatusSeeOther)
}

// HandleBillingPortal sends a premium user to the provider's billing
// portal to manage or cancel the subscription.
func HandleBillingPortal(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	if !uctx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	ent, err := models.GetOrCreateUserEntitlement(database.GetDB(), uctx.UserID)
	if err != nil || ent.ExternalSubscriptionID == "" {
		fm := fiber.Map{"type": "error", "message": "No active subscription to manage."}
		return flash.WithError(c, fm).Redirect("/premium")
	}

	client := billing.NewCheckoutClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sess, err := client.CreatePortalSession(ctx, ent.ExternalSubscriptionID, c.BaseURL()+"/premium")
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "The billing portal is unavailable right now."}
		return flash.WithError(c, fm).Redirect("/premium")
	}

	return c.Redirect(sess.URL, fiber.StatusSeeOther)
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
