package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TicketStatusOpen      = "open"
	TicketStatusResolved  = "resolved"
	TicketStatusDismissed = "dismissed"
)

// SupportTicket stores a support request submitted through the contact
// form. Delivery flags track whether the forwarding mail and autoresponse
// reached the email provider; a failed delivery keeps the ticket stored.
type SupportTicket struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Reference       string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"reference"`
	UserID          *uint          `gorm:"index" json:"user_id,omitempty"`
	Email           string         `gorm:"type:varchar(200);not null;index" json:"email" validate:"required,email,max=200"`
	Subject         string         `gorm:"type:varchar(200);not null" json:"subject" validate:"required,min=3,max=200"`
	Message         string         `gorm:"type:text;not null" json:"message" validate:"required,min=10,max=5000"`
	Status          string         `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ForwardedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"forwarded_at,omitempty"`
	AutorespondedAt *time.Time     `gorm:"type:timestamp;default:null" json:"autoresponded_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *SupportTicket) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// BeforeCreate assigns the public ticket reference used in mail and flash
// messages instead of the numeric row id.
func (t *SupportTicket) BeforeCreate(tx *gorm.DB) error {
	if t.Reference == "" {
		t.Reference = uuid.New().String()
	}
	return nil
}
