package ledger

import "github.com/shopspring/decimal"

// Delta returns the signed balance adjustment produced by moving a record
// from (oldAmount, oldVerified) to (newAmount, newVerified).
//
// For deposits:
//
//	unverified -> verified            +new
//	verified   -> unverified          -old
//	verified   -> verified, edited    +(new-old)
//	unverified -> unverified          0
//
// Withdrawals are the sign mirror. Deleting a record is the transition to
// (oldAmount, false); creating one is the transition from (0, false). A zero
// delta means the balance row must not be touched at all.
func Delta(kind Kind, oldAmount decimal.Decimal, oldVerified bool, newAmount decimal.Decimal, newVerified bool) decimal.Decimal {
	var d decimal.Decimal
	switch {
	case !oldVerified && newVerified:
		d = newAmount
	case oldVerified && !newVerified:
		d = oldAmount.Neg()
	case oldVerified && newVerified:
		d = newAmount.Sub(oldAmount)
	default:
		return decimal.Zero
	}
	if kind == KindWithdrawal {
		d = d.Neg()
	}
	return d
}

// deleteDelta is the reversal applied before a record is removed.
func deleteDelta(rec Record) decimal.Decimal {
	return Delta(rec.Kind, rec.Amount, rec.Verified, rec.Amount, false)
}

// ValidateAmount enforces the common amount contract: strictly positive,
// at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	// Compare values, not exponents: "100.000" is a valid two-place amount.
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	return nil
}
