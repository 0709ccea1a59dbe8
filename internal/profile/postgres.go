package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed profile store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get fetches the profile document for an identity.
func (s *PostgresStore) Get(ctx context.Context, identity string) (UserProfile, error) {
	row := s.db.QueryRow(ctx, `SELECT id, phone_number, name, data_balance, call_credit,
        next_invoice_date, next_invoice_amount, payment
        FROM user_profiles WHERE id = $1`, identity)

	var p UserProfile
	err := row.Scan(&p.ID, &p.PhoneNumber, &p.Name, &p.DataBalance, &p.CallCredit,
		&p.NextInvoiceDate, &p.NextInvoiceAmount, &p.Payment)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserProfile{}, ErrNotFound
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return p, nil
}

// Upsert creates or fully replaces the profile document keyed by identity.
func (s *PostgresStore) Upsert(ctx context.Context, identity string, p UserProfile) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_profiles
        (id, phone_number, name, data_balance, call_credit, next_invoice_date, next_invoice_amount, payment)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            phone_number = EXCLUDED.phone_number,
            name = EXCLUDED.name,
            data_balance = EXCLUDED.data_balance,
            call_credit = EXCLUDED.call_credit,
            next_invoice_date = EXCLUDED.next_invoice_date,
            next_invoice_amount = EXCLUDED.next_invoice_amount,
            payment = EXCLUDED.payment`,
		identity, p.PhoneNumber, p.Name, p.DataBalance, p.CallCredit,
		p.NextInvoiceDate, p.NextInvoiceAmount, p.Payment)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
