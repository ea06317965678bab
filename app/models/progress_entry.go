package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ProgressEntry is one posture check-in per user and day.
type ProgressEntry struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index:ux_progress_entries_user_date,unique,priority:1" json:"user_id"`
	EntryDate       time.Time      `gorm:"type:date;not null;index:ux_progress_entries_user_date,unique,priority:2" json:"entry_date"`
	PostureScore    int            `gorm:"not null" json:"posture_score" validate:"required,min=1,max=10"`
	PainLevel       int            `gorm:"not null;default:0" json:"pain_level" validate:"min=0,max=10"`
	ExerciseMinutes int            `gorm:"not null;default:0" json:"exercise_minutes" validate:"min=0,max=1440"`
	Note            string         `gorm:"type:text" json:"note" validate:"max=2000"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *ProgressEntry) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// FindProgressEntriesSince lists a user's check-ins from the given date
// onward, newest first.
func FindProgressEntriesSince(db *gorm.DB, userID uint, since time.Time) ([]ProgressEntry, error) {
	var entries []ProgressEntry
	err := db.Where("user_id = ? AND entry_date >= ?", userID, since).
		Order("entry_date DESC").
		Find(&entries).Error
	return entries, err
}
