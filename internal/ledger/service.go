package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luxe-funds/luxe_funds/internal/notification"
	"github.com/luxe-funds/luxe_funds/internal/policy"
)

// Recipients resolves a user id to a notification address. The identity
// package satisfies this; tests use a stub.
type Recipients interface {
	RecipientFor(ctx context.Context, userID string) (string, error)
}

// Service owns the transaction record lifecycle. Every operation that can
// move money runs its read-compute-write inside Store.WithUserLock, so that
// the verification flag and the balance change atomically.
type Service struct {
	store      Store
	notifier   notification.Notifier
	recipients Recipients
	logger     *slog.Logger
}

// NewService builds the ledger service. notifier and recipients may be nil,
// in which case transition notifications are skipped.
func NewService(store Store, notifier notification.Notifier, recipients Recipients, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, recipients: recipients, logger: logger}
}

// Create persists a new record as unverified. Client-supplied verification
// state is never honored. Withdrawals are pre-checked against the current
// balance even though no money moves yet; the authoritative sufficiency
// check happens again at verification time.
func (s *Service) Create(ctx context.Context, actor policy.Actor, kind Kind, amount decimal.Decimal) (Record, error) {
	if err := ValidateAmount(amount); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Kind:      kind,
		Amount:    amount,
		Verified:  false,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.WithUserLock(ctx, actor.UserID, func(tx Tx) error {
		if kind == KindWithdrawal {
			balance, err := tx.Balance()
			if err != nil {
				return err
			}
			if amount.GreaterThan(balance) {
				return ErrInsufficientFunds
			}
		}
		return tx.InsertRecord(rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns a record visible to the actor. Records of other users are
// reported as not found rather than forbidden.
func (s *Service) Get(ctx context.Context, actor policy.Actor, kind Kind, id string) (Record, error) {
	rec, err := s.store.FindRecord(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}
	if !policy.CanRead(actor, rec.UserID) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns records of the given kind for userID, narrowed by the
// creation-date filter. An empty userID means the actor's own records;
// listing another user's records requires staff.
func (s *Service) List(ctx context.Context, actor policy.Actor, kind Kind, userID string, filter RecordFilter) ([]Record, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if !policy.CanRead(actor, userID) {
		return nil, ErrForbidden
	}
	return s.store.ListRecords(ctx, kind, userID, filter)
}

// Update changes a record's amount. On a verified record only staff may do
// this, and the balance receives the amount-edit delta in the same
// transaction. Unverified edits never touch the balance.
func (s *Service) Update(ctx context.Context, actor policy.Actor, kind Kind, id string, amount decimal.Decimal) (Record, error) {
	if err := ValidateAmount(amount); err != nil {
		return Record{}, err
	}
	rec, err := s.visibleRecord(ctx, actor, kind, id)
	if err != nil {
		return Record{}, err
	}

	var out Record
	err = s.store.WithUserLock(ctx, rec.UserID, func(tx Tx) error {
		cur, err := tx.Record(kind, id)
		if err != nil {
			return err
		}
		if !policy.CanMutate(actor, cur.UserID, cur.Verified) {
			return ErrForbidden
		}
		next := cur
		next.Amount = amount
		if err := s.applyTransition(tx, cur, next); err != nil {
			return err
		}
		if err := tx.UpdateRecord(next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

// Verify marks a record verified and applies its delta. The already-verified
// guard runs under the user lock, so two concurrent calls resolve to exactly
// one success and one ErrAlreadyVerified.
func (s *Service) Verify(ctx context.Context, actor policy.Actor, kind Kind, id string) (Record, error) {
	if !policy.CanVerify(actor) {
		return Record{}, ErrForbidden
	}
	rec, err := s.store.FindRecord(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}

	var out Record
	err = s.store.WithUserLock(ctx, rec.UserID, func(tx Tx) error {
		cur, err := tx.Record(kind, id)
		if err != nil {
			return err
		}
		if cur.Verified {
			return ErrAlreadyVerified
		}
		next := cur
		next.Verified = true
		if err := s.applyTransition(tx, cur, next); err != nil {
			return err
		}
		if err := tx.UpdateRecord(next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	s.notifyOwner(ctx, out, notification.KindTransactionVerified,
		fmt.Sprintf("Your %s of %s has been verified.", out.Kind, out.Amount.StringFixed(2)))
	return out, nil
}

// Unverify reverses a verified record's effect on the balance. The reversal
// only frees or restores funds, so it is never rejected for insufficiency.
func (s *Service) Unverify(ctx context.Context, actor policy.Actor, kind Kind, id string) (Record, error) {
	if !policy.CanVerify(actor) {
		return Record{}, ErrForbidden
	}
	rec, err := s.store.FindRecord(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}

	var out Record
	err = s.store.WithUserLock(ctx, rec.UserID, func(tx Tx) error {
		cur, err := tx.Record(kind, id)
		if err != nil {
			return err
		}
		next := cur
		next.Verified = false
		if err := s.applyTransition(tx, cur, next); err != nil {
			return err
		}
		if err := tx.UpdateRecord(next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	s.notifyOwner(ctx, out, notification.KindTransactionReversed,
		fmt.Sprintf("Verification of your %s of %s has been reversed.", out.Kind, out.Amount.StringFixed(2)))
	return out, nil
}

// Delete removes a record. Deleting a verified record is staff-only and
// reverses its balance effect before removal; unverified deletions never
// touch the balance.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, kind Kind, id string) error {
	rec, err := s.visibleRecord(ctx, actor, kind, id)
	if err != nil {
		return err
	}

	return s.store.WithUserLock(ctx, rec.UserID, func(tx Tx) error {
		cur, err := tx.Record(kind, id)
		if err != nil {
			return err
		}
		if !policy.CanDelete(actor, cur.UserID, cur.Verified) {
			return ErrForbidden
		}
		if delta := deleteDelta(cur); !delta.IsZero() {
			if _, err := tx.ApplyDelta(delta); err != nil {
				return err
			}
		}
		return tx.DeleteRecord(kind, id)
	})
}

// Balance returns the balance for userID, or the actor's own when userID is
// empty. No row is created; absent balances read as zero.
func (s *Service) Balance(ctx context.Context, actor policy.Actor, userID string) (Balance, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if !policy.CanReadBalance(actor, userID) {
		return Balance{}, ErrForbidden
	}
	return s.store.ReadBalance(ctx, userID)
}

// Balances returns every user's balance. Staff only.
func (s *Service) Balances(ctx context.Context, actor policy.Actor) ([]Balance, error) {
	if !policy.CanListAllBalances(actor) {
		return nil, ErrForbidden
	}
	return s.store.ListBalances(ctx)
}

// applyTransition computes the delta for cur -> next and applies it. Zero
// deltas skip the balance write entirely.
func (s *Service) applyTransition(tx Tx, cur, next Record) error {
	delta := Delta(cur.Kind, cur.Amount, cur.Verified, next.Amount, next.Verified)
	if delta.IsZero() {
		return nil
	}
	_, err := tx.ApplyDelta(delta)
	return err
}

func (s *Service) visibleRecord(ctx context.Context, actor policy.Actor, kind Kind, id string) (Record, error) {
	rec, err := s.store.FindRecord(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}
	if !policy.CanRead(actor, rec.UserID) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) notifyOwner(ctx context.Context, rec Record, kind, body string) {
	if s.notifier == nil || s.recipients == nil {
		return
	}
	recipient, err := s.recipients.RecipientFor(ctx, rec.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("resolve notification recipient", "user_id", rec.UserID, "error", err)
		}
		return
	}
	notification.Dispatch(s.notifier, s.logger, notification.Message{
		Kind:      kind,
		Recipient: recipient,
		Subject:   "Transaction update",
		Body:      body,
	})
}
