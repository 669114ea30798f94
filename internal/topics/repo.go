package topics

import (
	"context"
	"database/sql"
	"fmt"

	"focusmon/internal/faults"
)

// Record is one extracted topic, immutable once written, keyed by TopicID.
type Record struct {
	TopicID  string `json:"topic_id"`
	Username string `json:"username"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Topic    string `json:"topic"`
}

// Repository persists topic records in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repo writing to the named table.
func NewRepository(db *sql.DB, table string) (*Repository, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid topic table name %q", table)
	}
	return &Repository{db: db, table: table}, nil
}

// Put upserts a record by topic id, tolerating re-delivery of the same
// message.
func (r *Repository) Put(ctx context.Context, rec Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (topic_id, username, date, time, topic)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (topic_id) DO UPDATE SET
			username = EXCLUDED.username,
			date = EXCLUDED.date,
			time = EXCLUDED.time,
			topic = EXCLUDED.topic
	`, r.table)
	_, err := r.db.ExecContext(ctx, query, rec.TopicID, rec.Username, rec.Date, rec.Time, rec.Topic)
	return faults.Dependency("topic store", err)
}

// ListRecent returns the latest topics, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT topic_id, username, date, time, topic
		FROM %s
		ORDER BY date DESC, time DESC
		LIMIT $1
	`, r.table)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, faults.Dependency("topic store", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.TopicID, &rec.Username, &rec.Date, &rec.Time, &rec.Topic); err != nil {
			return nil, faults.Dependency("topic store", err)
		}
		res = append(res, rec)
	}
	return res, faults.Dependency("topic store", rows.Err())
}

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
