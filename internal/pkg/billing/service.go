package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/posturafit/PosturaFit/app/models"
)

// Service reconciles inbound subscription lifecycle events into the
// per-user premium entitlement record.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ProcessEvent applies one subscription lifecycle event to the entitlement
// record resolved by the envelope's contact identifier.
//
// Recognized event types activate (purchase_approved, subscription_renewed)
// or deactivate (subscription_cancelled) the entitlement; everything else is
// acknowledged without mutation. A lookup miss is terminal for the event:
// the record is never created here. The write itself is a single
// conditional field-set, so an event older than the last applied one is
// acknowledged as stale instead of regressing the record.
func (s *Service) ProcessEvent(ctx context.Context, ev *EventEnvelope) (*ReconcileResult, error) {
	_ = ctx
	if ev == nil {
		return nil, fmt.Errorf("%w: envelope", ErrMissingField)
	}

	eventType := strings.ToLower(strings.TrimSpace(ev.EventType))
	if !IsActivationEvent(eventType) && !IsCancellationEvent(eventType) {
		return &ReconcileResult{EventType: eventType, Ignored: true}, nil
	}

	user, err := s.repo.FindUserByEmail(ev.ContactIdentifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, ev.ContactIdentifier)
		}
		return nil, errors.Join(ErrStoreWriteFailed, err)
	}

	ent, err := s.repo.GetEntitlementByUserID(user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no entitlement record for user %d", ErrUserNotFound, user.ID)
		}
		return nil, errors.Join(ErrStoreWriteFailed, err)
	}

	occurredAt := s.now().UTC()
	if ev.OccurredAt != nil {
		occurredAt = ev.OccurredAt.UTC()
	}

	// The model's transitions own the pair invariant: premium flag and
	// expiry move together, cancellation clears the subscription reference.
	var next models.UserEntitlement
	if IsActivationEvent(eventType) {
		expiresAt := occurredAt.Add(DefaultPremiumTerm)
		if ev.ExpiresAt != nil {
			expiresAt = ev.ExpiresAt.UTC()
		}
		next.Activate(expiresAt, ev.SubscriptionID)
	} else {
		next.Deactivate()
	}

	update := EntitlementUpdate{
		IsPremium:              next.IsPremium,
		PremiumExpiresAt:       next.PremiumExpiresAt,
		ExternalSubscriptionID: next.ExternalSubscriptionID,
		OccurredAt:             occurredAt,
	}

	applied, err := s.repo.ApplyEntitlementUpdate(user.ID, update)
	if err != nil {
		return nil, errors.Join(ErrStoreWriteFailed, err)
	}
	if !applied {
		// An event older than the stored state; keep the newer state.
		return &ReconcileResult{EventType: eventType, IsPremium: ent.IsPremium, Ignored: true, Stale: true}, nil
	}

	return &ReconcileResult{EventType: eventType, IsPremium: update.IsPremium}, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Deliveries
// without a provider event ID are keyed by a payload hash so replays of the
// exact same body still deduplicate. A redelivery resolves to the stored
// row; the caller decides from that row's processing state whether the
// event still has to run.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
