package callrecord

import (
	"context"
	"database/sql"
)

// PostgresRepo persists call history in Postgres.
//
// Assumed table:
//   - call_records (id PK, owner_phone, direction, peer_number,
//     peer_display_name, status, duration_seconds, cost_minor, timestamp,
//     audio_artifact_ref)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Append(ctx context.Context, rec CallRecord) error {
	const q = `
INSERT INTO call_records (
  id, owner_phone, direction, peer_number, peer_display_name, status,
  duration_seconds, cost_minor, timestamp, audio_artifact_ref
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := r.DB.ExecContext(ctx, q,
		rec.ID,
		rec.OwnerPhone,
		rec.Direction,
		rec.PeerNumber,
		rec.PeerDisplayName,
		rec.Status,
		rec.DurationSeconds,
		rec.CostMinor,
		rec.Timestamp,
		rec.AudioArtifactRef,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, ownerPhone string) ([]CallRecord, error) {
	const q = `
SELECT id, owner_phone, direction, peer_number, peer_display_name, status,
       duration_seconds, cost_minor, timestamp, audio_artifact_ref
FROM call_records
WHERE owner_phone = $1
ORDER BY timestamp DESC
`
	rows, err := r.DB.QueryContext(ctx, q, ownerPhone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OwnerPhone,
			&rec.Direction,
			&rec.PeerNumber,
			&rec.PeerDisplayName,
			&rec.Status,
			&rec.DurationSeconds,
			&rec.CostMinor,
			&rec.Timestamp,
			&rec.AudioArtifactRef,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkRead(ctx context.Context, ownerPhone, recordID string) error {
	const q = `
UPDATE call_records SET status = $3
WHERE owner_phone = $1 AND id = $2
`
	res, err := r.DB.ExecContext(ctx, q, ownerPhone, recordID, StatusRead)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
