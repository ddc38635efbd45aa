package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/luxe-funds/luxe_funds/internal/notification"
	"github.com/luxe-funds/luxe_funds/internal/otp"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified blocks login until the signup code is confirmed.
	ErrNotVerified = errors.New("email not verified")
	// ErrAlreadyVerified rejects repeated signup confirmation.
	ErrAlreadyVerified = errors.New("user already verified")
	// ErrWeakPassword rejects passwords shorter than eight characters.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrSamePassword rejects a password change to the current password.
	ErrSamePassword = errors.New("new password must differ from the old one")
	// ErrNoProfileChanges rejects a profile update that changes nothing.
	ErrNoProfileChanges = errors.New("no profile fields to update")
)

// Service manages the user lifecycle: signup with email confirmation, login
// checks, and the OTP-guarded email/password change flows. Codes are
// delivered through the notifier on a separate goroutine.
type Service struct {
	repo     Repository
	codes    otp.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds an identity service.
func NewService(repo Repository, codes otp.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, codes: codes, notifier: notifier, logger: logger}
}

// SignupInput captures registration data.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Register creates an unverified user and emails a confirmation code. If the
// email already belongs to an unverified account the code is re-sent instead
// of failing, so an interrupted signup can be finished.
func (s *Service) Register(ctx context.Context, input SignupInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("invalid email address")
	}
	if len(input.Password) < 8 {
		return User{}, ErrWeakPassword
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err == nil {
		if existing.Verified {
			return User{}, ErrEmailTaken
		}
		if err := s.sendCode(ctx, otp.PurposeSignup, existing.Email, "", existing.Email, "Verify your email"); err != nil {
			return User{}, err
		}
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	if err := s.sendCode(ctx, otp.PurposeSignup, user.Email, "", user.Email, "Verify your email"); err != nil {
		return User{}, err
	}
	return user, nil
}

// VerifySignup confirms the emailed code and marks the user verified.
func (s *Service) VerifySignup(ctx context.Context, email, code string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if user.Verified {
		return User{}, ErrAlreadyVerified
	}
	if _, err := s.codes.Verify(ctx, otp.PurposeSignup, email, code); err != nil {
		return User{}, err
	}
	if err := s.repo.SetVerified(ctx, user.ID); err != nil {
		return User{}, err
	}
	user.Verified = true
	return user, nil
}

// ResendSignupCode issues a fresh signup code for an unverified account.
func (s *Service) ResendSignupCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}
	return s.sendCode(ctx, otp.PurposeSignup, email, "", email, "Verify your email")
}

// Authenticate checks credentials for login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return User{}, ErrNotVerified
	}
	return user, nil
}

// UpdateProfile changes the account name and/or phone number after proving
// the password. Empty fields keep their current values, but at least one
// field must actually be supplied.
func (s *Service) UpdateProfile(ctx context.Context, userID, password, name, phone string) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" && phone == "" {
		return User{}, ErrNoProfileChanges
	}
	if name == "" {
		name = user.Name
	}
	if phone == "" {
		phone = user.Phone
	}
	if err := s.repo.UpdateProfile(ctx, user.ID, name, phone); err != nil {
		return User{}, err
	}
	user.Name = name
	user.Phone = phone
	s.notify(user.Email, notification.KindAccountChanged, "Profile updated",
		"Your profile details have been updated.")
	return user, nil
}

// RequestPasswordChange proves the old password and emails a code. The new
// password is hashed now and stashed with the code, so the plaintext never
// persists anywhere.
func (s *Service) RequestPasswordChange(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, otp.PurposePasswordChange, user.ID, string(hash), user.Email, "Password change code")
}

// ConfirmPasswordChange applies the stashed password hash and bumps the token
// version so existing sessions are logged out.
func (s *Service) ConfirmPasswordChange(ctx context.Context, userID, code string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	payload, err := s.codes.Verify(ctx, otp.PurposePasswordChange, user.ID, code)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, []byte(payload), user.TokenVersion+1); err != nil {
		return err
	}
	s.notify(user.Email, notification.KindAccountChanged, "Password changed",
		"Your password was changed and all sessions have been logged out.")
	return nil
}

// RequestEmailChange proves the password and sends a code to the new address.
func (s *Service) RequestEmailChange(ctx context.Context, userID, password, newEmail string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return fmt.Errorf("invalid email address")
	}
	if _, err := s.repo.FindByEmail(ctx, newEmail); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.sendCode(ctx, otp.PurposeEmailChange, user.ID, newEmail, newEmail, "Email change code")
}

// ConfirmEmailChange verifies the code sent to the new address and switches
// the account email.
func (s *Service) ConfirmEmailChange(ctx context.Context, userID, code string) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	newEmail, err := s.codes.Verify(ctx, otp.PurposeEmailChange, user.ID, code)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.UpdateEmail(ctx, user.ID, newEmail); err != nil {
		return User{}, err
	}
	s.notify(newEmail, notification.KindAccountChanged, "Email changed",
		"Your account email address has been updated.")
	user.Email = newEmail
	return user, nil
}

// RequestPasswordReset emails a reset code to the address, if registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, otp.PurposePasswordReset, user.Email, "", user.Email, "Password reset code")
}

// ResetPassword verifies the reset code and replaces the password. All
// existing sessions are invalidated.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if len(newPassword) < 8 {
		return User{}, ErrWeakPassword
	}
	if _, err := s.codes.Verify(ctx, otp.PurposePasswordReset, email, code); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, user.TokenVersion+1); err != nil {
		return User{}, err
	}
	user.PasswordHash = hash
	user.TokenVersion++
	return user, nil
}

// RecipientFor resolves a user id to their email address for ledger
// notifications.
func (s *Service) RecipientFor(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (s *Service) sendCode(ctx context.Context, purpose, subject, payload, recipient, mailSubject string) error {
	code, err := s.codes.Issue(ctx, purpose, subject, payload)
	if err != nil {
		return err
	}
	s.notify(recipient, notification.KindOTP, mailSubject,
		fmt.Sprintf("Your code is %s. It expires shortly.", code))
	return nil
}

func (s *Service) notify(recipient, kind, subject, body string) {
	notification.Dispatch(s.notifier, s.logger, notification.Message{
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
}
