// Package otp issues and verifies short-lived one-time codes for identity
// workflows (signup confirmation, password and email changes, password
// reset). Codes are six digits, single use, and expire after a configured
// TTL.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Purposes namespace codes so a signup code cannot confirm a password change.
const (
	PurposeSignup         = "signup"
	PurposePasswordChange = "password_change"
	PurposeEmailChange    = "email_change"
	PurposePasswordReset  = "password_reset"
)

var (
	// ErrCodeMismatch indicates the supplied code does not match the issued one.
	ErrCodeMismatch = errors.New("incorrect code")
	// ErrNoPending indicates no live code exists for the purpose/subject pair,
	// either because none was issued or because it expired.
	ErrNoPending = errors.New("no pending code")
)

// Store persists pending codes. Issue replaces any previous code for the same
// purpose/subject; Verify consumes the code on success so it cannot be
// replayed.
type Store interface {
	Issue(ctx context.Context, purpose, subject, payload string) (code string, err error)
	Verify(ctx context.Context, purpose, subject, code string) (payload string, err error)
}

// GenerateCode returns a random six-digit numeric code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
