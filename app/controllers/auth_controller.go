package controllers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/mail"
	"github.com/posturafit/PosturaFit/internal/pkg/session"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		var user models.User
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		result := database.GetDB().Where("email = ?", c.FormValue("email")).First(&user)
		if result.Error != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !models.CheckPasswordHash(c.FormValue("password"), user.Password) {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.IsActive() {
			fm["message"] = "Please activate your account first"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if err := createUserSession(c, &user); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		database.GetDB().Model(&user).Update("last_login_at", time.Now())

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome back! Keep that back straight.",
		}

		return flash.WithSuccess(c, fm).Redirect("/progress")
	}

	return render(c, "auth/login", fiber.Map{
		"Title":     "Login",
		"CSRFToken": csrfToken(c),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "See you at the next check-in!",
	}

	c.Locals(usercontext.KeyFromProtected, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{
			"type": "error",
		}

		if app := models.GetAppSettings(); app != nil && !app.IsRegistrationEnabled() {
			fm["message"] = "Registration is currently closed"

			return flash.WithError(c, fm).Redirect("/register")
		}

		user, err := models.CreateUser(
			c.FormValue("username"),
			c.FormValue("email"),
			c.FormValue("password"),
		)
		if err != nil {
			fm["message"] = "Please check your input and try again"

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := user.GenerateActivationToken(); err != nil {
			fm["message"] = "Registration failed, please try again"

			return flash.WithError(c, fm).Redirect("/register")
		}

		db := database.GetDB()
		if err := db.Create(user).Error; err != nil {
			fm["message"] = "This email address is already registered"

			return flash.WithError(c, fm).Redirect("/register")
		}

		// Every account starts with a free entitlement record. This is the
		// only place entitlements are created; the billing webhook only
		// mutates existing ones.
		if _, err := models.GetOrCreateUserEntitlement(db, user.ID); err != nil {
			log.Printf("failed to create entitlement for user %d: %v", user.ID, err)
		}

		sendActivationMail(c, user)

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome! Please check your inbox to activate your account.",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return render(c, "auth/register", fiber.Map{
		"Title":     "Create account",
		"CSRFToken": csrfToken(c),
	})
}

func HandleAuthActivate(c *fiber.Ctx) error {
	token := c.Query("token", c.FormValue("token"))
	fm := fiber.Map{
		"type": "error",
	}

	if token == "" {
		return render(c, "auth/activate", fiber.Map{
			"Title":     "Activate account",
			"CSRFToken": csrfToken(c),
		})
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("activation_token = ?", token).First(&user).Error; err != nil {
		fm["message"] = "Invalid or expired activation link"

		return flash.WithError(c, fm).Redirect("/login")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := db.Save(&user).Error; err != nil {
		fm["message"] = "Activation failed, please try again"

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Account activated. You can log in now.",
	}

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func createUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return err
	}

	// Email doubles as the billing contact identifier; keep it handy for
	// checkout session creation.
	_ = session.SetSessionValue(c, "user_email", user.Email)

	return nil
}

func sendActivationMail(c *fiber.Ctx, user *models.User) {
	activationURL := fmt.Sprintf("%s/activate?token=%s", c.BaseURL(), user.ActivationToken)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := mail.GetMailer().Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Activate your PosturaFit account",
		BodyHTML: mail.ActivationBody(user.Name, activationURL),
		Tag:      "activation",
	})
	if err != nil {
		log.Printf("failed to send activation mail to %s: %v", user.Email, err)
	}
}
