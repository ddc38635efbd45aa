package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists records and balances in PostgreSQL. The balance row
// is the per-user serialization point: WithUserLock takes a row lock on it
// with SELECT ... FOR UPDATE for the duration of the transaction.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Get-or-create then lock. The insert is a no-op for existing rows and
	// concurrent first-time callers cannot produce duplicates.
	if _, err := tx.Exec(ctx, `INSERT INTO balances (user_id, amount) VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING`, uid); err != nil {
		return err
	}
	var amountStr string
	if err := tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE user_id = $1 FOR UPDATE`, uid).Scan(&amountStr); err != nil {
		return err
	}
	balance, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("parse balance amount: %w", err)
	}

	ptx := &pgTx{ctx: ctx, tx: tx, userID: uid, balance: balance}
	if err := fn(ptx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ReadBalance(ctx context.Context, userID string) (Balance, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Balance{}, ErrNotFound
	}
	var (
		amountStr string
		updatedAt time.Time
	)
	err = s.db.QueryRow(ctx, `SELECT amount::text, updated_at FROM balances WHERE user_id = $1`, uid).
		Scan(&amountStr, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Read-only views must not implicitly create rows.
		return Balance{UserID: userID, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return Balance{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance amount: %w", err)
	}
	return Balance{UserID: userID, Amount: amount, UpdatedAt: updatedAt.UTC()}, nil
}

func (s *PostgresStore) ListBalances(ctx context.Context) ([]Balance, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, amount::text, updated_at FROM balances ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var (
			uid       uuid.UUID
			amountStr string
			updatedAt time.Time
		)
		if err := rows.Scan(&uid, &amountStr, &updatedAt); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse balance amount: %w", err)
		}
		out = append(out, Balance{UserID: uid.String(), Amount: amount, UpdatedAt: updatedAt.UTC()})
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindRecord(ctx context.Context, kind Kind, id string) (Record, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	return scanRecord(s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT id, user_id, amount::text, is_verified, created_at FROM %s WHERE id = $1`, kind.table()), rid), kind)
}

func (s *PostgresStore) ListRecords(ctx context.Context, kind Kind, userID string, filter RecordFilter) ([]Record, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	where := []string{"user_id = $1"}
	args := []any{uid}
	for _, part := range []struct {
		unit  string
		value int
	}{
		{"day", filter.Day},
		{"month", filter.Month},
		{"year", filter.Year},
	} {
		if part.value != 0 {
			args = append(args, part.value)
			where = append(where, fmt.Sprintf("EXTRACT(%s FROM created_at AT TIME ZONE 'UTC') = $%d", part.unit, len(args)))
		}
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, user_id, amount::text, is_verified, created_at FROM %s WHERE %s ORDER BY created_at DESC`,
		kind.table(), strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type pgTx struct {
	ctx     context.Context
	tx      pgx.Tx
	userID  uuid.UUID
	balance decimal.Decimal
}

func (t *pgTx) Record(kind Kind, id string) (Record, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(t.tx.QueryRow(t.ctx, fmt.Sprintf(
		`SELECT id, user_id, amount::text, is_verified, created_at FROM %s WHERE id = $1 AND user_id = $2`,
		kind.table()), rid, t.userID), kind)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (t *pgTx) InsertRecord(rec Record) error {
	rid, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(t.ctx, fmt.Sprintf(
		`INSERT INTO %s (id, user_id, amount, is_verified, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.Kind.table()), rid, t.userID, rec.Amount.StringFixed(2), rec.Verified, rec.CreatedAt.UTC())
	return err
}

func (t *pgTx) UpdateRecord(rec Record) error {
	rid, err := uuid.Parse(rec.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := t.tx.Exec(t.ctx, fmt.Sprintf(
		`UPDATE %s SET amount = $1, is_verified = $2 WHERE id = $3 AND user_id = $4`,
		rec.Kind.table()), rec.Amount.StringFixed(2), rec.Verified, rid, t.userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteRecord(kind Kind, id string) error {
	rid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := t.tx.Exec(t.ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = $1 AND user_id = $2`, kind.table()), rid, t.userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) Balance() (decimal.Decimal, error) {
	return t.balance, nil
}

func (t *pgTx) ApplyDelta(delta decimal.Decimal) (decimal.Decimal, error) {
	next := t.balance.Add(delta)
	if next.IsNegative() {
		return decimal.Decimal{}, ErrInsufficientFunds
	}
	if _, err := t.tx.Exec(t.ctx,
		`UPDATE balances SET amount = $1, updated_at = now() WHERE user_id = $2`,
		next.StringFixed(2), t.userID); err != nil {
		return decimal.Decimal{}, err
	}
	t.balance = next
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, kind Kind) (Record, error) {
	var (
		id        uuid.UUID
		uid       uuid.UUID
		amountStr string
		rec       Record
		createdAt time.Time
	)
	if err := row.Scan(&id, &uid, &amountStr, &rec.Verified, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse record amount: %w", err)
	}
	rec.ID = id.String()
	rec.UserID = uid.String()
	rec.Kind = kind
	rec.Amount = amount
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
