package subscriber

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PostgresRepo persists subscribers in Postgres.
//
// Assumed table:
//   - subscribers (phone PK, pin, credit_minor, contacts JSONB, blocked JSONB,
//     created_at, updated_at)
//
// with CHECK (credit_minor >= 0) backing the non-negative invariant.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) GetByPhone(ctx context.Context, phone string) (Subscriber, bool, error) {
	const q = `
SELECT phone, pin, credit_minor, contacts, blocked, created_at, updated_at
FROM subscribers
WHERE phone = $1
`
	var s Subscriber
	var contacts, blocked []byte
	err := r.DB.QueryRowContext(ctx, q, phone).Scan(
		&s.Phone,
		&s.PIN,
		&s.CreditMinor,
		&contacts,
		&blocked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscriber{}, false, nil
		}
		return Subscriber{}, false, err
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &s.Contacts); err != nil {
			return Subscriber{}, false, err
		}
	}
	if len(blocked) > 0 {
		if err := json.Unmarshal(blocked, &s.Blocked); err != nil {
			return Subscriber{}, false, err
		}
	}
	return s, true, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, s Subscriber) error {
	contacts, err := json.Marshal(s.Contacts)
	if err != nil {
		return err
	}
	blocked, err := json.Marshal(s.Blocked)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO subscribers (phone, pin, credit_minor, contacts, blocked, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err = r.DB.ExecContext(ctx, q, s.Phone, s.PIN, s.CreditMinor, contacts, blocked, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepo) ApplyCreditDelta(ctx context.Context, phone string, delta int64, now time.Time) error {
	// Conditional update keeps the non-negative bound without read-then-write.
	const q = `
UPDATE subscribers
SET credit_minor = credit_minor + $2, updated_at = $3
WHERE phone = $1 AND credit_minor + $2 >= 0
`
	res, err := r.DB.ExecContext(ctx, q, phone, delta, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is missing or the debit would overdraw.
		if _, ok, err := r.GetByPhone(ctx, phone); err != nil {
			return err
		} else if !ok {
			return ErrNotFound
		}
		return ErrInsufficientCredit
	}
	return nil
}

func (r *PostgresRepo) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	const q = `
SELECT COUNT(*) FROM subscribers WHERE phone LIKE $1 || '%'
`
	var n int
	if err := r.DB.QueryRowContext(ctx, q, prefix).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
