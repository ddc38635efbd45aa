package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes the two transaction record types. A verified deposit
// credits the owner's balance; a verified withdrawal debits it.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

func (k Kind) table() string {
	if k == KindWithdrawal {
		return "withdrawals"
	}
	return "deposits"
}

// Record is a requested fund movement. It affects the owner's balance only
// while Verified is true; records are always created unverified.
type Record struct {
	ID        string
	UserID    string
	Kind      Kind
	Amount    decimal.Decimal
	Verified  bool
	CreatedAt time.Time
}

// Balance holds the current funds for a user. There is at most one row per
// user; it is created lazily at zero on the first transaction that needs it.
type Balance struct {
	UserID    string
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// RecordFilter narrows record listings by creation date. Zero fields are
// ignored, so a filter may name any combination of day, month, and year.
type RecordFilter struct {
	Day   int
	Month int
	Year  int
}

// Matches reports whether the record's creation time satisfies the filter.
func (f RecordFilter) Matches(rec Record) bool {
	t := rec.CreatedAt.UTC()
	if f.Day != 0 && t.Day() != f.Day {
		return false
	}
	if f.Month != 0 && int(t.Month()) != f.Month {
		return false
	}
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	return true
}
