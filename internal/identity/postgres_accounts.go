package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresAccounts implements Accounts using PostgreSQL.
type PostgresAccounts struct {
	db *pgxpool.Pool
}

// NewPostgresAccounts builds a Postgres-backed account repository.
func NewPostgresAccounts(db *pgxpool.Pool) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

// Create inserts a new account. A duplicate login key maps to ErrAccountExists.
func (r *PostgresAccounts) Create(ctx context.Context, acc Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO identity_accounts (id, key, phone, secret_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		acc.ID, acc.Key, acc.Phone, acc.SecretHash, acc.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAccountExists
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FindByKey fetches an account by its login key.
func (r *PostgresAccounts) FindByKey(ctx context.Context, key string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, key, phone, secret_hash, created_at
        FROM identity_accounts WHERE key = $1`, key)

	var acc Account
	err := row.Scan(&acc.ID, &acc.Key, &acc.Phone, &acc.SecretHash, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, errAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}
