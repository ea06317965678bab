package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/posturafit/PosturaFit/app/models"
)

type fakeRepository struct {
	users        map[string]*models.User
	entitlements map[uint]*models.UserEntitlement
	events       map[string]*models.BillingWebhookEvent

	applyErr    error
	writeCount  int
	nextEventID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:        make(map[string]*models.User),
		entitlements: make(map[uint]*models.UserEntitlement),
		events:       make(map[string]*models.BillingWebhookEvent),
	}
}

func (f *fakeRepository) addUser(id uint, email string) {
	f.users[email] = &models.User{ID: id, Email: email}
	f.entitlements[id] = &models.UserEntitlement{ID: id, UserID: id}
}

func (f *fakeRepository) FindUserByEmail(email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepository) GetEntitlementByUserID(userID uint) (*models.UserEntitlement, error) {
	e, ok := f.entitlements[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeRepository) ApplyEntitlementUpdate(userID uint, update EntitlementUpdate) (bool, error) {
	if f.applyErr != nil {
		return false, f.applyErr
	}
	e, ok := f.entitlements[userID]
	if !ok {
		return false, nil
	}
	if e.UpdatedAt.After(update.OccurredAt) {
		return false, nil
	}
	e.IsPremium = update.IsPremium
	e.PremiumExpiresAt = update.PremiumExpiresAt
	e.ExternalSubscriptionID = update.ExternalSubscriptionID
	e.UpdatedAt = update.OccurredAt
	f.writeCount++
	return true, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("event not found")
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestProcessEvent_ActivationSetsPremium(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	expires := ts("2027-03-01T00:00:00Z")
	res, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_991",
		ExpiresAt:         expires,
		OccurredAt:        ts("2026-03-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if !res.IsPremium || res.Ignored {
		t.Fatalf("expected applied premium result, got %+v", res)
	}

	ent := repo.entitlements[1]
	if !ent.IsPremium {
		t.Fatalf("expected entitlement to be premium")
	}
	if ent.PremiumExpiresAt == nil || !ent.PremiumExpiresAt.Equal(*expires) {
		t.Fatalf("expected expiry %v, got %v", expires, ent.PremiumExpiresAt)
	}
	if ent.ExternalSubscriptionID != "sub_991" {
		t.Fatalf("expected subscription reference to be stored, got %q", ent.ExternalSubscriptionID)
	}
}

func TestProcessEvent_RenewalExtendsExpiry(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	first := ts("2026-01-01T00:00:00Z")
	if _, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_1",
		ExpiresAt:         ts("2027-01-01T00:00:00Z"),
		OccurredAt:        first,
	}); err != nil {
		t.Fatalf("initial activation failed: %v", err)
	}

	renewedUntil := ts("2028-01-01T00:00:00Z")
	res, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventSubscriptionRenewed,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_1",
		ExpiresAt:         renewedUntil,
		OccurredAt:        ts("2026-12-30T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("renewal failed: %v", err)
	}
	if !res.IsPremium {
		t.Fatalf("expected renewal to keep premium")
	}
	if got := repo.entitlements[1].PremiumExpiresAt; got == nil || !got.Equal(*renewedUntil) {
		t.Fatalf("expected expiry %v after renewal, got %v", renewedUntil, got)
	}
}

func TestProcessEvent_CancellationClearsEverything(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	if _, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_1",
		ExpiresAt:         ts("2027-01-01T00:00:00Z"),
		OccurredAt:        ts("2026-01-01T00:00:00Z"),
	}); err != nil {
		t.Fatalf("activation failed: %v", err)
	}

	res, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventSubscriptionCancelled,
		ContactIdentifier: "anna@example.com",
		OccurredAt:        ts("2026-02-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}
	if res.IsPremium {
		t.Fatalf("expected cancellation result to be non-premium")
	}

	ent := repo.entitlements[1]
	if ent.IsPremium || ent.PremiumExpiresAt != nil || ent.ExternalSubscriptionID != "" {
		t.Fatalf("expected premium state to be fully cleared, got %+v", ent)
	}
}

func TestProcessEvent_ResubscribeAfterCancellation(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	steps := []struct {
		eventType  string
		subID      string
		occurredAt string
	}{
		{EventPurchaseApproved, "sub_1", "2026-01-01T00:00:00Z"},
		{EventSubscriptionCancelled, "", "2026-02-01T00:00:00Z"},
		{EventPurchaseApproved, "sub_2", "2026-03-01T00:00:00Z"},
	}
	for _, step := range steps {
		if _, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
			EventType:         step.eventType,
			ContactIdentifier: "anna@example.com",
			SubscriptionID:    step.subID,
			OccurredAt:        ts(step.occurredAt),
		}); err != nil {
			t.Fatalf("step %q failed: %v", step.eventType, err)
		}
	}

	ent := repo.entitlements[1]
	if !ent.IsPremium {
		t.Fatalf("expected user to end up premium after resubscribe")
	}
	if ent.ExternalSubscriptionID != "sub_2" {
		t.Fatalf("expected new subscription reference, got %q", ent.ExternalSubscriptionID)
	}
}

func TestProcessEvent_DefaultExpiryWhenAbsent(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")

	occurred := ts("2026-06-15T10:00:00Z")
	svc := newTestService(repo, time.Now())

	if _, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_1",
		OccurredAt:        occurred,
	}); err != nil {
		t.Fatalf("activation failed: %v", err)
	}

	want := occurred.Add(DefaultPremiumTerm)
	got := repo.entitlements[1].PremiumExpiresAt
	if got == nil || !got.Equal(want) {
		t.Fatalf("expected default expiry %v, got %v", want, got)
	}
}

func TestProcessEvent_UnrecognizedTypeIsIgnored(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	res, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         "invoice_payment_pending",
		ContactIdentifier: "anna@example.com",
	})
	if err != nil {
		t.Fatalf("unrecognized event must not error: %v", err)
	}
	if !res.Ignored {
		t.Fatalf("expected event to be acknowledged as ignored")
	}
	if repo.writeCount != 0 {
		t.Fatalf("expected zero writes for unrecognized event, got %d", repo.writeCount)
	}
}

func TestProcessEvent_UnknownUserWritesNothing(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	_, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "ghost@example.com",
		SubscriptionID:    "sub_1",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if repo.writeCount != 0 {
		t.Fatalf("expected zero writes for unknown user, got %d", repo.writeCount)
	}
}

func TestProcessEvent_StaleEventDoesNotRegress(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	if _, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_2",
		OccurredAt:        ts("2026-05-01T00:00:00Z"),
	}); err != nil {
		t.Fatalf("activation failed: %v", err)
	}

	// Delayed cancellation of the previous subscription arrives afterwards.
	res, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventSubscriptionCancelled,
		ContactIdentifier: "anna@example.com",
		OccurredAt:        ts("2026-04-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("stale event must not error: %v", err)
	}
	if !res.Ignored || !res.Stale {
		t.Fatalf("expected stale acknowledgement, got %+v", res)
	}
	if !repo.entitlements[1].IsPremium {
		t.Fatalf("stale cancellation must not clear premium")
	}
}

func TestProcessEvent_WriteFailureIsReported(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	repo.applyErr = errors.New("deadlock")
	svc := newTestService(repo, time.Now())

	_, err := svc.ProcessEvent(context.Background(), &EventEnvelope{
		EventType:         EventSubscriptionCancelled,
		ContactIdentifier: "anna@example.com",
	})
	if !errors.Is(err, ErrStoreWriteFailed) {
		t.Fatalf("expected ErrStoreWriteFailed, got %v", err)
	}
}

func TestRecordWebhookEvent_Deduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	created, first, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        ProviderCheckout,
		ProviderEventID: "evt_1",
		EventType:       EventPurchaseApproved,
		PayloadJSON:     `{"eventType":"purchase_approved"}`,
		SignatureValid:  true,
	})
	if err != nil || !created {
		t.Fatalf("expected first delivery to be created, got created=%v err=%v", created, err)
	}

	created, second, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        ProviderCheckout,
		ProviderEventID: "evt_1",
		EventType:       EventPurchaseApproved,
		PayloadJSON:     `{"eventType":"purchase_approved"}`,
		SignatureValid:  true,
	})
	if err != nil {
		t.Fatalf("redelivery errored: %v", err)
	}
	if created {
		t.Fatalf("expected redelivery to be deduplicated")
	}
	if second.ID != first.ID {
		t.Fatalf("expected redelivery to resolve to the stored event")
	}
}

func TestWebhookRetryAfterFailedAttempt(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "anna@example.com")
	svc := newTestService(repo, time.Now())

	input := WebhookEventInput{
		Provider:        ProviderCheckout,
		ProviderEventID: "evt_retry",
		EventType:       EventPurchaseApproved,
		PayloadJSON:     `{"eventType":"purchase_approved","contactIdentifier":"anna@example.com"}`,
		SignatureValid:  true,
	}
	ev := &EventEnvelope{
		EventType:         EventPurchaseApproved,
		ContactIdentifier: "anna@example.com",
		SubscriptionID:    "sub_1",
		OccurredAt:        ts("2026-05-01T00:00:00Z"),
	}

	// First delivery: the entitlement write fails transiently.
	repo.applyErr = errors.New("deadlock")
	created, stored, err := svc.RecordWebhookEvent(context.Background(), input)
	if err != nil || !created {
		t.Fatalf("expected first delivery to be created, got created=%v err=%v", created, err)
	}
	_, procErr := svc.ProcessEvent(context.Background(), ev)
	if !errors.Is(procErr, ErrStoreWriteFailed) {
		t.Fatalf("expected transient write failure, got %v", procErr)
	}
	if err := svc.MarkWebhookProcessed(context.Background(), stored.ID, procErr); err != nil {
		t.Fatalf("marking failed attempt errored: %v", err)
	}

	// Provider redelivery: same event id resolves to the stored row, and
	// the failed attempt must not count as a processed duplicate.
	created, stored, err = svc.RecordWebhookEvent(context.Background(), input)
	if err != nil {
		t.Fatalf("redelivery errored: %v", err)
	}
	if created {
		t.Fatalf("expected redelivery to resolve to the stored event")
	}
	if stored.Processed() {
		t.Fatalf("failed attempt must stay retryable, got %+v", stored)
	}

	// The retry succeeds and the entitlement lands.
	repo.applyErr = nil
	res, procErr := svc.ProcessEvent(context.Background(), ev)
	if procErr != nil {
		t.Fatalf("retry failed: %v", procErr)
	}
	if !res.IsPremium || !repo.entitlements[1].IsPremium {
		t.Fatalf("expected retry to apply the entitlement update")
	}
	if err := svc.MarkWebhookProcessed(context.Background(), stored.ID, nil); err != nil {
		t.Fatalf("marking successful attempt errored: %v", err)
	}

	// A further redelivery is now a genuine duplicate.
	created, stored, err = svc.RecordWebhookEvent(context.Background(), input)
	if err != nil || created {
		t.Fatalf("expected duplicate resolution, got created=%v err=%v", created, err)
	}
	if !stored.Processed() {
		t.Fatalf("expected completed event to suppress further deliveries")
	}
}

func TestRecordWebhookEvent_PayloadHashFallback(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	payload := `{"eventType":"subscription_renewed","contactIdentifier":"a@b.c"}`
	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:       ProviderCheckout,
		EventType:      EventSubscriptionRenewed,
		PayloadJSON:    payload,
		SignatureValid: true,
	})
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	if len(stored.ProviderEventID) == 0 || stored.ProviderEventID[:5] != "hash:" {
		t.Fatalf("expected payload-hash event id, got %q", stored.ProviderEventID)
	}

	created, _, err = svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:       ProviderCheckout,
		EventType:      EventSubscriptionRenewed,
		PayloadJSON:    payload,
		SignatureValid: true,
	})
	if err != nil {
		t.Fatalf("replay errored: %v", err)
	}
	if created {
		t.Fatalf("expected identical payload to deduplicate without an event id")
	}
}
