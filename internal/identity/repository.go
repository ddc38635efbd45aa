package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateProfile(ctx context.Context, id, name, phone string) error
	UpdatePassword(ctx context.Context, id string, hash []byte, tokenVersion int) error
	SetVerified(ctx context.Context, id string) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, phone, password_hash, is_staff, is_verified, token_version, created_at`

func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	uid, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, name, phone, password_hash, is_staff, is_verified, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uid, user.Email, user.Name, user.Phone, user.PasswordHash, user.Staff, user.Verified, user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id, email string) error {
	return r.update(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, id)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, name, phone string) error {
	return r.update(ctx, `UPDATE users SET name = $1, phone = $2 WHERE id = $3`, name, phone, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte, tokenVersion int) error {
	return r.update(ctx, `UPDATE users SET password_hash = $1, token_version = $2 WHERE id = $3`, hash, tokenVersion, id)
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string) error {
	return r.update(ctx, `UPDATE users SET is_verified = true WHERE id = $1`, id)
}

func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.update(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	last := len(args) - 1
	uid, err := uuid.Parse(args[last].(string))
	if err != nil {
		return ErrNotFound
	}
	args[last] = uid
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		uid       uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&uid, &user.Email, &user.Name, &user.Phone, &user.PasswordHash,
		&user.Staff, &user.Verified, &user.TokenVersion, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = uid.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
