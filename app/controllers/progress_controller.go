package controllers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm/clause"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/entitlements"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

const entryDateLayout = "2006-01-02"

// HandleProgress shows the check-in history. The visible window depends on
// the plan: free accounts see the last two weeks, premium the full history.
func HandleProgress(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	db := database.GetDB()

	ent, err := models.GetOrCreateUserEntitlement(db, uctx.UserID)
	if err != nil {
		log.Printf("failed to load entitlement for user %d: %v", uctx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	now := time.Now()
	plan := entitlements.PlanFor(ent, now)
	entries, err := models.FindProgressEntriesSince(db, uctx.UserID, entitlements.HistorySince(plan, now))
	if err != nil {
		log.Printf("failed to load progress entries for user %d: %v", uctx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	return render(c, "progress", fiber.Map{
		"Page":        "progress",
		"Entries":     entries,
		"Plan":        string(plan),
		"CanBackfill": entitlements.CanBackfill(plan),
		"HistoryDays": entitlements.FreeHistoryDays,
		"Today":       now.Format(entryDateLayout),
		"CSRFToken":   csrfToken(c),
	})
}

// HandleProgressSubmit records or updates the check-in for one day. One
// row per user and day; submitting the same day again overwrites it.
// Free accounts may only log today, past dates need premium.
func HandleProgressSubmit(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	db := database.GetDB()

	now := time.Now()
	today := now.Truncate(24 * time.Hour)

	entryDate := today
	if raw := strings.TrimSpace(c.FormValue("entry_date")); raw != "" {
		parsed, err := time.Parse(entryDateLayout, raw)
		if err != nil {
			fm := fiber.Map{"type": "error", "message": "Invalid date."}
			return flash.WithError(c, fm).Redirect("/progress")
		}
		entryDate = parsed
	}

	if entryDate.After(today) {
		fm := fiber.Map{"type": "error", "message": "Check-ins cannot be logged for future days."}
		return flash.WithError(c, fm).Redirect("/progress")
	}

	if entryDate.Before(today) {
		ent, err := models.GetOrCreateUserEntitlement(db, uctx.UserID)
		if err != nil || !entitlements.CanBackfill(entitlements.PlanFor(ent, now)) {
			fm := fiber.Map{"type": "error", "message": "Logging past days requires Premium."}
			return flash.WithError(c, fm).Redirect("/progress")
		}
	}

	entry := &models.ProgressEntry{
		UserID:          uctx.UserID,
		EntryDate:       entryDate,
		PostureScore:    formInt(c, "posture_score"),
		PainLevel:       formInt(c, "pain_level"),
		ExerciseMinutes: formInt(c, "exercise_minutes"),
		Note:            strings.TrimSpace(c.FormValue("note")),
	}

	if err := entry.Validate(); err != nil {
		fm := fiber.Map{"type": "error", "message": "Please check your input: posture score is 1-10, pain level 0-10."}
		return flash.WithError(c, fm).Redirect("/progress")
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "entry_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"posture_score", "pain_level", "exercise_minutes", "note", "updated_at",
		}),
	}).Create(entry).Error
	if err != nil {
		log.Printf("failed to save progress entry for user %d: %v", uctx.UserID, err)
		fm := fiber.Map{"type": "error", "message": "Your check-in could not be saved, please try again."}
		return flash.WithError(c, fm).Redirect("/progress")
	}

	fm := fiber.Map{"type": "success", "message": "Check-in saved."}
	return flash.WithSuccess(c, fm).Redirect("/progress")
}

// HandleProgressDelete removes one of the user's own check-ins.
func HandleProgressDelete(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		fm := fiber.Map{"type": "error", "message": "Unknown check-in."}
		return flash.WithError(c, fm).Redirect("/progress")
	}

	result := database.GetDB().
		Where("id = ? AND user_id = ?", id, uctx.UserID).
		Delete(&models.ProgressEntry{})
	if result.Error != nil {
		log.Printf("failed to delete progress entry %d for user %d: %v", id, uctx.UserID, result.Error)
		fm := fiber.Map{"type": "error", "message": "The check-in could not be deleted."}
		return flash.WithError(c, fm).Redirect("/progress")
	}
	if result.RowsAffected == 0 {
		fm := fiber.Map{"type": "error", "message": "Unknown check-in."}
		return flash.WithError(c, fm).Redirect("/progress")
	}

	fm := fiber.Map{"type": "success", "message": "Check-in deleted."}
	return flash.WithSuccess(c, fm).Redirect("/progress")
}

func formInt(c *fiber.Ctx, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(c.FormValue(key)))
	return v
}
