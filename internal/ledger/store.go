package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract for records and balances. All
// read-compute-write sequences run inside WithUserLock so that concurrent
// mutations touching the same user's balance are serialized.
type Store interface {
	// WithUserLock runs fn while holding exclusive access to the user's
	// balance. The balance row is created at zero if it does not exist yet.
	// Mutations made through the Tx are committed only if fn returns nil.
	WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error

	// ReadBalance returns the persisted balance, or a synthetic zero balance
	// when no row exists. It never creates a row.
	ReadBalance(ctx context.Context, userID string) (Balance, error)

	// ListBalances returns every persisted balance.
	ListBalances(ctx context.Context) ([]Balance, error)

	// FindRecord fetches a record without taking the user lock. Returns
	// ErrNotFound when absent.
	FindRecord(ctx context.Context, kind Kind, id string) (Record, error)

	// ListRecords returns the user's records of the given kind matching the
	// creation-date filter, newest first.
	ListRecords(ctx context.Context, kind Kind, userID string, filter RecordFilter) ([]Record, error)
}

// Tx is the handle passed to WithUserLock callbacks. It is only valid for
// the duration of the callback.
type Tx interface {
	// Record re-reads a record under the lock. Returns ErrNotFound when the
	// record is absent or belongs to another user.
	Record(kind Kind, id string) (Record, error)

	InsertRecord(rec Record) error
	UpdateRecord(rec Record) error
	DeleteRecord(kind Kind, id string) error

	// Balance returns the locked balance amount.
	Balance() (decimal.Decimal, error)

	// ApplyDelta adds the signed delta to the balance and returns the new
	// amount. It fails with ErrInsufficientFunds when the result would be
	// negative.
	ApplyDelta(delta decimal.Decimal) (decimal.Decimal, error)
}
