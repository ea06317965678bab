package models

import "time"

// BillingWebhookEvent is the delivery ledger for inbound subscription
// lifecycle webhooks. Each provider delivery is keyed by (provider,
// provider_event_id); deliveries without a provider id get a payload-hash
// key so exact replays still collapse onto one row.
//
// The row doubles as the processing record: ProcessedAt plus an empty
// ProcessingError means the event was applied, ProcessedAt with an error
// means the attempt failed and a provider retry must run it again.
type BillingWebhookEvent struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Provider        string `gorm:"type:varchar(32);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string `gorm:"type:varchar(100);not null;index" json:"event_type"`

	// Raw request body as delivered, kept for audit and replay debugging.
	PayloadJSON    string `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid bool   `gorm:"default:false;index" json:"signature_valid"`

	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Processed reports whether a prior attempt applied this event
// successfully. A redelivery of an unprocessed or failed event must be
// run again, not suppressed as a duplicate.
func (e *BillingWebhookEvent) Processed() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == ""
}
