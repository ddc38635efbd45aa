package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeltaDeposit(t *testing.T) {
	cases := []struct {
		name        string
		oldAmount   string
		oldVerified bool
		newAmount   string
		newVerified bool
		want        string
	}{
		{"verify credits amount", "100.00", false, "100.00", true, "100.00"},
		{"unverify debits amount", "100.00", true, "100.00", false, "-100.00"},
		{"verified edit up", "100.00", true, "150.00", true, "50.00"},
		{"verified edit down", "100.00", true, "40.00", true, "-60.00"},
		{"unverified edit is free", "100.00", false, "999.99", false, "0"},
		{"verify with new amount", "100.00", false, "80.00", true, "80.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Delta(KindDeposit, dec(tc.oldAmount), tc.oldVerified, dec(tc.newAmount), tc.newVerified)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("expected delta %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDeltaWithdrawalMirrorsDeposit(t *testing.T) {
	amounts := []struct{ oldA, newA string }{
		{"100.00", "100.00"},
		{"100.00", "150.00"},
		{"100.00", "40.00"},
	}
	states := []struct{ oldV, newV bool }{
		{false, true}, {true, false}, {true, true}, {false, false},
	}

	for _, a := range amounts {
		for _, st := range states {
			dep := Delta(KindDeposit, dec(a.oldA), st.oldV, dec(a.newA), st.newV)
			wdr := Delta(KindWithdrawal, dec(a.oldA), st.oldV, dec(a.newA), st.newV)
			if !wdr.Equal(dep.Neg()) {
				t.Fatalf("withdrawal delta %s is not the negation of deposit delta %s (old=%s/%v new=%s/%v)",
					wdr, dep, a.oldA, st.oldV, a.newA, st.newV)
			}
		}
	}
}

func TestDeleteDelta(t *testing.T) {
	verified := Record{Kind: KindDeposit, Amount: dec("75.50"), Verified: true}
	if got := deleteDelta(verified); !got.Equal(dec("-75.50")) {
		t.Fatalf("expected -75.50, got %s", got)
	}

	unverified := Record{Kind: KindWithdrawal, Amount: dec("75.50"), Verified: false}
	if got := deleteDelta(unverified); !got.IsZero() {
		t.Fatalf("expected zero delta for unverified delete, got %s", got)
	}

	verifiedWdr := Record{Kind: KindWithdrawal, Amount: dec("20.00"), Verified: true}
	if got := deleteDelta(verifiedWdr); !got.Equal(dec("20.00")) {
		t.Fatalf("expected 20.00 restored on verified withdrawal delete, got %s", got)
	}
}

func TestValidateAmount(t *testing.T) {
	// Trailing zeros beyond two places are still exact two-place values.
	for _, s := range []string{"0.01", "1", "250.50", "99999999.99", "100.000", "42.10000"} {
		if err := ValidateAmount(dec(s)); err != nil {
			t.Fatalf("expected %s to be valid, got %v", s, err)
		}
	}
	for _, s := range []string{"0", "-1", "-0.01", "1.005"} {
		if err := ValidateAmount(dec(s)); err == nil {
			t.Fatalf("expected %s to be rejected", s)
		}
	}
}
