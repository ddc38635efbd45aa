package identity

import "time"

// User is a registered account. Funds operations key off ID; Staff gates
// verification and cross-user visibility. A user stays unverified until the
// signup code is confirmed and cannot log in before that.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash []byte
	Staff        bool
	Verified     bool
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carry a login attempt.
type Credentials struct {
	Email    string
	Password string
}
