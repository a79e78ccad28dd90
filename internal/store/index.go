package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// IndexMeta describes a persisted vector index.
type IndexMeta struct {
	// Model is the embedding model identifier the vectors were produced with.
	Model string
	// Dimension is the length of every stored vector.
	Dimension int
	// Distance is the similarity metric name ("cosine" or "l2").
	Distance string
	// BuiltAt is when SaveIndex last completed.
	BuiltAt time.Time
}

// IndexRecord is one persisted index entry.
type IndexRecord struct {
	Seq      int
	ChunkID  string
	Source   string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

// SaveIndex replaces the persisted index with meta and records in a single
// transaction. A failed save leaves the previous index intact.
func (s *SQLiteStore) SaveIndex(ctx context.Context, meta IndexMeta, records []IndexRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save index: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM index_entries`); err != nil {
		return fmt.Errorf("store: save index: clear entries: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("store: save index: clear meta: %w", err)
	}

	const insMeta = `INSERT INTO index_meta (id, model, dimension, distance, built_at) VALUES (1, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, insMeta, meta.Model, meta.Dimension, meta.Distance, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: save index: meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO index_entries (seq, chunk_id, source, content, metadata, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: save index: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		md, mErr := json.Marshal(r.Metadata)
		if mErr != nil {
			err = fmt.Errorf("store: save index: metadata for seq %d: %w", r.Seq, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, r.Seq, r.ChunkID, r.Source, r.Content, string(md), encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("store: save index: insert seq %d: %w", r.Seq, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: save index: commit: %w", err)
	}
	return nil
}

// LoadIndex returns the persisted index ordered by Seq. It returns ErrNoIndex
// when nothing has been saved.
func (s *SQLiteStore) LoadIndex(ctx context.Context) (IndexMeta, []IndexRecord, error) {
	var meta IndexMeta
	var builtAt int64
	row := s.db.QueryRowContext(ctx, `SELECT model, dimension, distance, built_at FROM index_meta WHERE id = 1`)
	if err := row.Scan(&meta.Model, &meta.Dimension, &meta.Distance, &builtAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return IndexMeta{}, nil, ErrNoIndex
		}
		return IndexMeta{}, nil, fmt.Errorf("store: load index meta: %w", err)
	}
	meta.BuiltAt = time.Unix(builtAt, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, chunk_id, source, content, metadata, vector FROM index_entries ORDER BY seq ASC`)
	if err != nil {
		return IndexMeta{}, nil, fmt.Errorf("store: load index entries: %w", err)
	}
	defer rows.Close()

	var records []IndexRecord
	for rows.Next() {
		var r IndexRecord
		var md string
		var blob []byte
		if err := rows.Scan(&r.Seq, &r.ChunkID, &r.Source, &r.Content, &md, &blob); err != nil {
			return IndexMeta{}, nil, fmt.Errorf("store: load index scan: %w", err)
		}
		if err := json.Unmarshal([]byte(md), &r.Metadata); err != nil {
			return IndexMeta{}, nil, fmt.Errorf("store: load index metadata for seq %d: %w", r.Seq, err)
		}
		if r.Vector, err = decodeVector(blob); err != nil {
			return IndexMeta{}, nil, fmt.Errorf("store: load index vector for seq %d: %w", r.Seq, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return IndexMeta{}, nil, fmt.Errorf("store: load index rows: %w", err)
	}
	return meta, records, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
