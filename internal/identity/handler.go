package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/luxe-funds/luxe_funds/internal/otp"
	"github.com/luxe-funds/luxe_funds/internal/policy"
)

// Handler exposes the profile endpoints: viewing the account and the
// OTP-guarded email and password change flows. All routes run behind the
// JWT middleware, which stores the caller id in locals.
type Handler struct {
	svc  *Service
	repo Repository
}

// NewHandler builds the profile handler.
func NewHandler(svc *Service, repo Repository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

// Profile returns the authenticated user's account details.
func (h *Handler) Profile(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":    user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"phone":      user.Phone,
		"is_staff":   user.Staff,
		"created_at": user.CreatedAt,
	})
}

type profileUpdateRequest struct {
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// UpdateProfile changes the name and/or phone number. The current password
// must accompany the request.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateProfile(c.UserContext(), user.ID, req.Password, req.Name, req.Phone)
	if err != nil {
		return profileError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "profile updated",
		"name":    updated.Name,
		"phone":   updated.Phone,
	})
}

type emailChangeRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
	Code     string `json:"code"`
}

// RequestEmailChange starts the email change flow; the code goes to the new
// address.
func (h *Handler) RequestEmailChange(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req emailChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestEmailChange(c.UserContext(), user.ID, req.Password, req.NewEmail); err != nil {
		return profileError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "code sent to new address"})
}

// VerifyEmailChange completes the email change flow.
func (h *Handler) VerifyEmailChange(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req emailChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.ConfirmEmailChange(c.UserContext(), user.ID, req.Code)
	if err != nil {
		return profileError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "email updated", "email": updated.Email})
}

type passwordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	Code        string `json:"code"`
}

// RequestPasswordChange starts the password change flow.
func (h *Handler) RequestPasswordChange(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req passwordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestPasswordChange(c.UserContext(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return profileError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "code sent"})
}

// VerifyPasswordChange completes the password change; existing sessions are
// logged out.
func (h *Handler) VerifyPasswordChange(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req passwordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ConfirmPasswordChange(c.UserContext(), user.ID, req.Code); err != nil {
		return profileError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "password changed, sessions logged out"})
}

func (h *Handler) currentUser(c *fiber.Ctx) (User, error) {
	uid, _ := c.Locals(policy.LocalUserID).(string)
	if uid == "" {
		return User{}, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.repo.FindByID(c.UserContext(), uid)
	if err != nil {
		return User{}, fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return user, nil
}

func profileError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrSamePassword),
		errors.Is(err, ErrNoProfileChanges),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrNoPending):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
