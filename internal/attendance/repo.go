package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusmon/internal/faults"
)

// Record is one immutable attendance log entry, keyed by
// (username, date, time).
type Record struct {
	Username     string `json:"username"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	FaceDetected bool   `json:"face_detected"`
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repo writing to the named table. The table name
// comes from configuration, so it is validated before being interpolated.
func NewRepository(db *sql.DB, table string) (*Repository, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid attendance table name %q", table)
	}
	return &Repository{db: db, table: table}, nil
}

// Put upserts a record. Writing the same composite key again overwrites
// rather than duplicates, so at-least-once delivery from the trigger
// source leaves exactly one logical row.
func (r *Repository) Put(ctx context.Context, rec Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (username, date, time, face_detected)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username, date, time) DO UPDATE SET face_detected = EXCLUDED.face_detected
	`, r.table)
	_, err := r.db.ExecContext(ctx, query, rec.Username, rec.Date, rec.Time, rec.FaceDetected)
	return faults.Dependency("attendance store", err)
}

// ListByUser returns a user's records for a date, newest first.
func (r *Repository) ListByUser(ctx context.Context, username, date string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT username, date, time, face_detected
		FROM %s
		WHERE username = $1 AND date = $2
		ORDER BY time DESC
		LIMIT $3
	`, r.table)
	rows, err := r.db.QueryContext(ctx, query, username, date, limit)
	if err != nil {
		return nil, faults.Dependency("attendance store", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Username, &rec.Date, &rec.Time, &rec.FaceDetected); err != nil {
			return nil, faults.Dependency("attendance store", err)
		}
		res = append(res, rec)
	}
	return res, faults.Dependency("attendance store", rows.Err())
}

// Healthy verifies database connectivity.
func (r *Repository) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx) == nil
}

// validIdent accepts plain SQL identifiers: letters, digits, underscore,
// not starting with a digit.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
