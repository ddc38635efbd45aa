// Package policy is the single capability table for ledger operations.
// Handlers and services consult it instead of re-deriving ownership rules.
package policy

// Locals keys under which the authentication middleware stores the caller
// identity for handlers. Defined here so handler packages on either side of
// the middleware share one constant.
const (
	LocalUserID = "user_id"
	LocalStaff  = "staff"
)

// Actor identifies the requester of an operation.
type Actor struct {
	UserID string
	Staff  bool
}

// CanRead reports whether the actor may see a record owned by ownerID.
// Owners see their own records; staff see everything.
func CanRead(a Actor, ownerID string) bool {
	return a.Staff || a.UserID == ownerID
}

// CanMutate reports whether the actor may change the amount of a record.
// Verified records are staff-only; unverified ones belong to their owner.
func CanMutate(a Actor, ownerID string, verified bool) bool {
	if a.Staff {
		return true
	}
	return !verified && a.UserID == ownerID
}

// CanDelete mirrors CanMutate: deleting a verified record reverses money
// already counted, so it requires staff.
func CanDelete(a Actor, ownerID string, verified bool) bool {
	return CanMutate(a, ownerID, verified)
}

// CanVerify reports whether the actor may flip verification state.
func CanVerify(a Actor) bool {
	return a.Staff
}

// CanReadBalance reports whether the actor may view ownerID's balance.
func CanReadBalance(a Actor, ownerID string) bool {
	return a.Staff || a.UserID == ownerID
}

// CanListAllBalances restricts the all-users balance view to staff.
func CanListAllBalances(a Actor) bool {
	return a.Staff
}
