package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/session"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes user session handling and eliminates code duplication.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	email := session.GetSessionValue(c, "user_email")
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	// Premium flag with session-first strategy: the reconciler is the only
	// writer of the entitlement row, the session just caches the last read.
	premium := session.GetSessionValue(c, usercontext.KeyIsPremium)
	if premium == "" {
		premium = "false"
		if db := database.GetDB(); db != nil {
			if ent, err := models.GetOrCreateUserEntitlement(db, userID.(uint)); err == nil && ent.HasActivePremium(time.Now()) {
				premium = "true"
			}
		}
		_ = session.SetSessionValue(c, usercontext.KeyIsPremium, premium)
	}

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Email:      email,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		IsPremium:  premium == "true",
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	c.Locals("USER_CONTEXT", usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}
