package models

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type"` // string, boolean, integer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings represents the application settings structure
type AppSettings struct {
	SiteTitle           string `json:"site_title"`
	SiteDescription     string `json:"site_description"`
	RegistrationEnabled bool   `json:"registration_enabled"`
	SupportInbox        string `json:"support_inbox"`
}

// Global settings instance
var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// GetAppSettings returns the current application settings
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	// Initialize with defaults
	appSettings = &AppSettings{
		SiteTitle:           "PosturaFit",
		SiteDescription:     "Posture coaching and progress tracking",
		RegistrationEnabled: true,
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case "site_title":
			appSettings.SiteTitle = setting.Value
		case "site_description":
			appSettings.SiteDescription = setting.Value
		case "registration_enabled":
			appSettings.RegistrationEnabled = setting.Value == "true"
		case "support_inbox":
			appSettings.SupportInbox = setting.Value
		}
	}

	return nil
}

// IsRegistrationEnabled reports whether new signups are accepted
func (s *AppSettings) IsRegistrationEnabled() bool {
	return s != nil && s.RegistrationEnabled
}
