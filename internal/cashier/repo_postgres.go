package cashier

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists the cash ledger in Postgres.
//
// Assumed table:
//   - cashier_entries (id PK, manager_name, operator_name, subscriber_phone,
//     amount_minor, idempotency_key, created_at)
//
// with UNIQUE (manager_name, idempotency_key).
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO cashier_entries (
  id, manager_name, operator_name, subscriber_phone, amount_minor, idempotency_key, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID,
		e.ManagerName,
		e.OperatorName,
		e.SubscriberPhone,
		e.AmountMinor,
		e.IdempotencyKey,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) FindByIdempotencyKey(ctx context.Context, managerName, key string) (Entry, bool, error) {
	const q = `
SELECT id, manager_name, operator_name, subscriber_phone, amount_minor, idempotency_key, created_at
FROM cashier_entries
WHERE manager_name = $1 AND idempotency_key = $2
LIMIT 1
`
	var e Entry
	err := r.DB.QueryRowContext(ctx, q, managerName, key).Scan(
		&e.ID,
		&e.ManagerName,
		&e.OperatorName,
		&e.SubscriberPhone,
		&e.AmountMinor,
		&e.IdempotencyKey,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) ListSince(ctx context.Context, managerName string, from time.Time) ([]Entry, error) {
	const q = `
SELECT id, manager_name, operator_name, subscriber_phone, amount_minor, idempotency_key, created_at
FROM cashier_entries
WHERE manager_name = $1 AND created_at >= $2
ORDER BY created_at
`
	rows, err := r.DB.QueryContext(ctx, q, managerName, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.ManagerName,
			&e.OperatorName,
			&e.SubscriberPhone,
			&e.AmountMinor,
			&e.IdempotencyKey,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
