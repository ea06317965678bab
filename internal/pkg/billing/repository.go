package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/posturafit/PosturaFit/app/models"
)

// EntitlementUpdate carries the field set applied to a user's entitlement
// row in a single conditional write. IsPremium and PremiumExpiresAt always
// travel together; cancellation clears the subscription reference.
type EntitlementUpdate struct {
	IsPremium              bool
	PremiumExpiresAt       *time.Time
	ExternalSubscriptionID string
	OccurredAt             time.Time
}

// Repository provides DB operations used by the billing service.
type Repository interface {
	FindUserByEmail(email string) (*models.User, error)
	GetEntitlementByUserID(userID uint) (*models.UserEntitlement, error)
	// ApplyEntitlementUpdate performs one conditional write: the update is
	// applied only when OccurredAt is not older than the stored updated_at.
	// Returns false without error when the condition rejected the write.
	ApplyEntitlementUpdate(userID uint, update EntitlementUpdate) (bool, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindUserByEmail(email string) (*models.User, error) {
	return models.FindUserByEmail(r.db, email)
}

func (r *gormRepository) GetEntitlementByUserID(userID uint) (*models.UserEntitlement, error) {
	var e models.UserEntitlement
	if err := r.db.Where("user_id = ?", userID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) ApplyEntitlementUpdate(userID uint, update EntitlementUpdate) (bool, error) {
	// The updated_at guard is the per-user serialization point: concurrent
	// or replayed deliveries race through the row condition, so only the
	// newest logical event wins. updated_at is pinned to the event time to
	// keep the guard monotonic across deliveries.
	tx := r.db.Model(&models.UserEntitlement{}).
		Where("user_id = ? AND updated_at <= ?", userID, update.OccurredAt).
		Updates(map[string]interface{}{
			"is_premium":               update.IsPremium,
			"premium_expires_at":       update.PremiumExpiresAt,
			"external_subscription_id": update.ExternalSubscriptionID,
			"updated_at":               update.OccurredAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
