package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/luxe-funds/luxe_funds/internal/notification"
	"github.com/luxe-funds/luxe_funds/internal/otp"

	"golang.org/x/crypto/bcrypt"
)

// chanNotifier delivers messages to a channel so tests can read the codes
// that would be emailed.
type chanNotifier struct {
	ch chan notification.Message
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{ch: make(chan notification.Message, 16)}
}

func (n *chanNotifier) Send(_ context.Context, msg notification.Message) error {
	n.ch <- msg
	return nil
}

var codeRe = regexp.MustCompile(`\d{6}`)

func nextCode(t *testing.T, n *chanNotifier) string {
	t.Helper()
	select {
	case msg := <-n.ch:
		code := codeRe.FindString(msg.Body)
		if code == "" {
			t.Fatalf("no code in message body %q", msg.Body)
		}
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}

func drainOne(t *testing.T, n *chanNotifier) notification.Message {
	t.Helper()
	select {
	case msg := <-n.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notification.Message{}
	}
}

func newTestService() (*Service, *chanNotifier) {
	notifier := newChanNotifier()
	svc := NewService(NewMemoryRepository(), otp.NewMemoryStore(5*time.Minute), notifier, nil)
	return svc, notifier
}

func TestSignupFlow(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, SignupInput{Email: "Alice@Example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized, got %q", user.Email)
	}
	if user.Verified {
		t.Fatal("new users must start unverified")
	}

	// Login is blocked until the code is confirmed.
	if _, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "s3cret-pass"}); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	code := nextCode(t, notifier)
	if _, err := svc.VerifySignup(ctx, "alice@example.com", "000000"); err == nil {
		t.Fatal("expected wrong code to be rejected")
	}
	verified, err := svc.VerifySignup(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("verify signup: %v", err)
	}
	if !verified.Verified {
		t.Fatal("user not marked verified")
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}

	if _, err := svc.VerifySignup(ctx, "alice@example.com", code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestRegisterExistingUnverifiedResendsCode(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, SignupInput{Email: "bob@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = nextCode(t, notifier)

	again, err := svc.Register(ctx, SignupInput{Email: "bob@example.com", Password: "other-pass-123"})
	if err != nil {
		t.Fatalf("re-register unverified: %v", err)
	}
	if again.ID != first.ID {
		t.Fatal("re-registration must not create a second account")
	}
	code := nextCode(t, notifier)
	if _, err := svc.VerifySignup(ctx, "bob@example.com", code); err != nil {
		t.Fatalf("verify with re-sent code: %v", err)
	}

	if _, err := svc.Register(ctx, SignupInput{Email: "bob@example.com", Password: "whatever-123"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for verified account, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, SignupInput{Email: "not-an-email", Password: "s3cret-pass"}); err == nil {
		t.Fatal("expected invalid email rejection")
	}
	if _, err := svc.Register(ctx, SignupInput{Email: "x@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func registerVerified(t *testing.T, svc *Service, notifier *chanNotifier, email, password string) User {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, SignupInput{Email: email, Password: password}); err != nil {
		t.Fatalf("register: %v", err)
	}
	code := nextCode(t, notifier)
	user, err := svc.VerifySignup(ctx, email, code)
	if err != nil {
		t.Fatalf("verify signup: %v", err)
	}
	return user
}

func TestProfileUpdate(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()
	user := registerVerified(t, svc, notifier, "frank@example.com", "password-123")

	if _, err := svc.UpdateProfile(ctx, user.ID, "wrong", "Frank", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, user.ID, "password-123", "", "  "); !errors.Is(err, ErrNoProfileChanges) {
		t.Fatalf("expected ErrNoProfileChanges for empty update, got %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, "password-123", "Frank Ocean", "+15550100")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Frank Ocean" || updated.Phone != "+15550100" {
		t.Fatalf("profile not applied, got %q / %q", updated.Name, updated.Phone)
	}
	if msg := drainOne(t, notifier); msg.Kind != notification.KindAccountChanged {
		t.Fatalf("expected account-changed notice, got %q", msg.Kind)
	}

	// A name-only update keeps the stored phone number.
	updated, err = svc.UpdateProfile(ctx, user.ID, "password-123", "Frank O.", "")
	if err != nil {
		t.Fatalf("name-only update: %v", err)
	}
	if updated.Name != "Frank O." || updated.Phone != "+15550100" {
		t.Fatalf("name-only update clobbered phone, got %q / %q", updated.Name, updated.Phone)
	}
	_ = drainOne(t, notifier)

	stored, err := svc.repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.Name != "Frank O." || stored.Phone != "+15550100" {
		t.Fatalf("profile not persisted, got %q / %q", stored.Name, stored.Phone)
	}
}

func TestPasswordChangeFlow(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()
	user := registerVerified(t, svc, notifier, "carol@example.com", "old-password-1")

	if err := svc.RequestPasswordChange(ctx, user.ID, "wrong", "new-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong old password, got %v", err)
	}
	if err := svc.RequestPasswordChange(ctx, user.ID, "old-password-1", "old-password-1"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("expected ErrSamePassword, got %v", err)
	}
	if err := svc.RequestPasswordChange(ctx, user.ID, "old-password-1", "new-password-1"); err != nil {
		t.Fatalf("request password change: %v", err)
	}

	code := nextCode(t, notifier)
	if err := svc.ConfirmPasswordChange(ctx, user.ID, code); err != nil {
		t.Fatalf("confirm password change: %v", err)
	}
	// Confirmation notice follows the code.
	if msg := drainOne(t, notifier); msg.Kind != notification.KindAccountChanged {
		t.Fatalf("expected account-changed notice, got %q", msg.Kind)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "carol@example.com", Password: "old-password-1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	authed, err := svc.Authenticate(ctx, Credentials{Email: "carol@example.com", Password: "new-password-1"})
	if err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if authed.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", authed.TokenVersion)
	}
}

func TestEmailChangeFlow(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()
	user := registerVerified(t, svc, notifier, "dave@example.com", "password-123")

	if err := svc.RequestEmailChange(ctx, user.ID, "password-123", "dave@example.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for own address, got %v", err)
	}
	if err := svc.RequestEmailChange(ctx, user.ID, "password-123", "dave.new@example.com"); err != nil {
		t.Fatalf("request email change: %v", err)
	}
	msg := drainOne(t, notifier)
	if msg.Recipient != "dave.new@example.com" {
		t.Fatalf("code must go to the new address, got %q", msg.Recipient)
	}
	code := codeRe.FindString(msg.Body)

	updated, err := svc.ConfirmEmailChange(ctx, user.ID, code)
	if err != nil {
		t.Fatalf("confirm email change: %v", err)
	}
	if updated.Email != "dave.new@example.com" {
		t.Fatalf("email not switched, got %q", updated.Email)
	}
	_ = drainOne(t, notifier) // account-changed notice

	if _, err := svc.Authenticate(ctx, Credentials{Email: "dave.new@example.com", Password: "password-123"}); err != nil {
		t.Fatalf("authenticate with new email: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()
	user := registerVerified(t, svc, notifier, "erin@example.com", "password-123")

	if err := svc.RequestPasswordReset(ctx, "erin@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	code := nextCode(t, notifier)

	reset, err := svc.ResetPassword(ctx, "erin@example.com", code, "brand-new-pass")
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if reset.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", reset.TokenVersion)
	}
	if err := bcrypt.CompareHashAndPassword(reset.PasswordHash, []byte("brand-new-pass")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}

	// Codes are single use.
	if _, err := svc.ResetPassword(ctx, "erin@example.com", code, "another-pass-1"); !errors.Is(err, otp.ErrNoPending) {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}
}
