package operator

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prepaid-telecom/pkg/utils"
)

// PostgresRepo persists operators in Postgres.
//
// Assumed tables:
// - operators            (name PK case-insensitive via LOWER index, rates, timestamps)
// - operator_indexes     (index PK, operator_name FK)   -- one owner per prefix
// - operator_numbers     (phone PK, operator_name FK)   -- unsold inventory
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) GetByName(ctx context.Context, name string) (Operator, bool, error) {
	const q = `
SELECT name, rate_same_operator, rate_different_operator, created_at, updated_at
FROM operators
WHERE LOWER(name) = LOWER($1)
`
	var o Operator
	err := r.DB.QueryRowContext(ctx, q, name).Scan(
		&o.Name,
		&o.Rates.SameOperator,
		&o.Rates.DifferentOperator,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Operator{}, false, nil
		}
		return Operator{}, false, err
	}
	idx, err := r.indexesOf(ctx, o.Name)
	if err != nil {
		return Operator{}, false, err
	}
	o.Indexes = idx
	return o, true, nil
}

func (r *PostgresRepo) GetAll(ctx context.Context) ([]Operator, error) {
	const q = `
SELECT name, rate_same_operator, rate_different_operator, created_at, updated_at
FROM operators
ORDER BY name
`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Operator
	for rows.Next() {
		var o Operator
		if err := rows.Scan(&o.Name, &o.Rates.SameOperator, &o.Rates.DifferentOperator, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		idx, err := r.indexesOf(ctx, out[i].Name)
		if err != nil {
			return nil, err
		}
		out[i].Indexes = idx
	}
	return out, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, o Operator, numbers []string) error {
	return utils.WithTx(ctx, r.DB, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO operators (name, rate_same_operator, rate_different_operator, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`
		if _, err := tx.ExecContext(ctx, q, o.Name, o.Rates.SameOperator, o.Rates.DifferentOperator, o.CreatedAt, o.UpdatedAt); err != nil {
			return err
		}
		for _, idx := range o.Indexes {
			if err := insertIndex(ctx, tx, o.Name, idx); err != nil {
				return err
			}
		}
		return insertNumbers(ctx, tx, o.Name, numbers)
	})
}

func (r *PostgresRepo) Rename(ctx context.Context, oldName, newName string, now time.Time) error {
	const q = `
UPDATE operators SET name = $2, updated_at = $3
WHERE LOWER(name) = LOWER($1)
`
	res, err := r.DB.ExecContext(ctx, q, oldName, newName, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, name string) error {
	return utils.WithTx(ctx, r.DB, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM operator_numbers WHERE LOWER(operator_name) = LOWER($1)`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM operator_indexes WHERE LOWER(operator_name) = LOWER($1)`, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM operators WHERE LOWER(name) = LOWER($1)`, name)
		return err
	})
}

func (r *PostgresRepo) AddIndex(ctx context.Context, name, index string, numbers []string, now time.Time) error {
	return utils.WithTx(ctx, r.DB, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertIndex(ctx, tx, name, index); err != nil {
			return err
		}
		if err := insertNumbers(ctx, tx, name, numbers); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE operators SET updated_at = $2 WHERE LOWER(name) = LOWER($1)`, name, now)
		return err
	})
}

func (r *PostgresRepo) RemoveIndex(ctx context.Context, name, index string, now time.Time) error {
	return utils.WithTx(ctx, r.DB, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM operator_numbers WHERE LOWER(operator_name) = LOWER($1) AND phone LIKE $2 || '%'`, name, index); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM operator_indexes WHERE LOWER(operator_name) = LOWER($1) AND index = $2`, name, index); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE operators SET updated_at = $2 WHERE LOWER(name) = LOWER($1)`, name, now)
		return err
	})
}

func (r *PostgresRepo) ListNumbers(ctx context.Context, name string) ([]string, error) {
	const q = `
SELECT phone FROM operator_numbers
WHERE LOWER(operator_name) = LOWER($1)
ORDER BY phone
`
	rows, err := r.DB.QueryContext(ctx, q, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) TakeNumber(ctx context.Context, name, phone string) (bool, error) {
	const q = `
DELETE FROM operator_numbers
WHERE LOWER(operator_name) = LOWER($1) AND phone = $2
`
	res, err := r.DB.ExecContext(ctx, q, name, phone)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) FindByIndex(ctx context.Context, index string) (Operator, bool, error) {
	const q = `
SELECT operator_name FROM operator_indexes WHERE index = $1
`
	var name string
	err := r.DB.QueryRowContext(ctx, q, index).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Operator{}, false, nil
		}
		return Operator{}, false, err
	}
	return r.GetByName(ctx, name)
}

func (r *PostgresRepo) indexesOf(ctx context.Context, name string) ([]string, error) {
	const q = `
SELECT index FROM operator_indexes
WHERE LOWER(operator_name) = LOWER($1)
ORDER BY index
`
	rows, err := r.DB.QueryContext(ctx, q, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idx string
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func insertIndex(ctx context.Context, tx *sql.Tx, name, index string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO operator_indexes (index, operator_name) VALUES ($1,$2)`, index, name)
	return err
}

func insertNumbers(ctx context.Context, tx *sql.Tx, name string, numbers []string) error {
	const q = `INSERT INTO operator_numbers (phone, operator_name) VALUES ($1,$2)`
	for _, n := range numbers {
		if _, err := tx.ExecContext(ctx, q, n, name); err != nil {
			return err
		}
	}
	return nil
}
