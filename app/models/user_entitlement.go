package models

import (
	"time"

	"gorm.io/gorm"
)

// UserEntitlement holds the premium entitlement state for one user. The
// premium flag and its expiry are always mutated as a pair: activation sets
// both, deactivation clears both along with the provider subscription id.
type UserEntitlement struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	IsPremium              bool       `gorm:"default:false;index" json:"is_premium"`
	PremiumExpiresAt       *time.Time `gorm:"type:timestamp;default:null" json:"premium_expires_at,omitempty"`
	ExternalSubscriptionID string     `gorm:"type:varchar(191);default:''" json:"external_subscription_id"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Activate marks the entitlement premium until expiresAt and records the
// provider subscription reference.
func (e *UserEntitlement) Activate(expiresAt time.Time, subscriptionID string) {
	e.IsPremium = true
	e.PremiumExpiresAt = &expiresAt
	e.ExternalSubscriptionID = subscriptionID
}

// Deactivate clears the premium flag, expiry and subscription reference.
func (e *UserEntitlement) Deactivate() {
	e.IsPremium = false
	e.PremiumExpiresAt = nil
	e.ExternalSubscriptionID = ""
}

// HasActivePremium reports whether the premium flag is set and not expired
// at the given instant.
func (e *UserEntitlement) HasActivePremium(now time.Time) bool {
	if e == nil || !e.IsPremium {
		return false
	}
	if e.PremiumExpiresAt == nil {
		return false
	}
	return e.PremiumExpiresAt.After(now)
}

// GetOrCreateUserEntitlement returns existing entitlement state or creates
// the default free record. Creation happens at registration time only; the
// webhook reconciler never creates records.
func GetOrCreateUserEntitlement(db *gorm.DB, userID uint) (*UserEntitlement, error) {
	var e UserEntitlement
	if err := db.Where("user_id = ?", userID).First(&e).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			e = UserEntitlement{UserID: userID, IsPremium: false}
			if err := db.Create(&e).Error; err != nil {
				return nil, err
			}
			return &e, nil
		}
		return nil, err
	}
	return &e, nil
}
