package store

import (
	"context"
	"fmt"
	"time"
)

// QueryRecord is one processed question as written to the query log.
type QueryRecord struct {
	// Query is the raw question text.
	Query string
	// Route is the classifier decision (Calculator, Dictionary, RAG).
	Route string
	// Path is the path that produced the answer, including RAGError.
	Path string
	// Answer is the text returned to the user.
	Answer string
	// ContextCount is the number of retrieved passages sent to the generator.
	ContextCount int
	// Duration is the end-to-end processing time.
	Duration time.Duration
	// CreatedAt is set by Recent; Append uses the current time.
	CreatedAt time.Time
}

// QueryLog persists processed queries. Implementations must be safe for
// concurrent use.
type QueryLog interface {
	// Append records a single processed query.
	Append(ctx context.Context, rec QueryRecord) error
	// Recent returns up to n of the most recent records, oldest first.
	Recent(ctx context.Context, n int) ([]QueryRecord, error)
}

// Append records a single processed query.
func (s *SQLiteStore) Append(ctx context.Context, rec QueryRecord) error {
	const q = `INSERT INTO query_log (query, route, path, answer, context_count, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.Query, rec.Route, rec.Path, rec.Answer, rec.ContextCount,
		rec.Duration.Milliseconds(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the most recent records, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]QueryRecord, error) {
	if n <= 0 {
		return []QueryRecord{}, nil
	}
	const q = `
SELECT query, route, path, answer, context_count, duration_ms, created_at FROM (
    SELECT id, query, route, path, answer, context_count, duration_ms, created_at
    FROM   query_log
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	recs := []QueryRecord{}
	for rows.Next() {
		var r QueryRecord
		var ms, ts int64
		if err := rows.Scan(&r.Query, &r.Route, &r.Path, &r.Answer, &r.ContextCount, &ms, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.CreatedAt = time.Unix(ts, 0)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return recs, nil
}
