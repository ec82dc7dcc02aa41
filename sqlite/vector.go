package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// Compile-time interface verification.
var _ docharvest.VectorStore = (*VectorStore)(nil)

// VectorStore implements docharvest.VectorStore using SQLite.
//
// Vectors are stored as float32 blobs and scored in Go. Metadata filters
// narrow the scanned rows in SQL first.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// EnsureIndex creates the index if it does not exist.
func (s *VectorStore) EnsureIndex(ctx context.Context, spec docharvest.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	existing, err := s.findIndex(ctx, spec.Name)
	switch {
	case docharvest.ErrorCode(err) == docharvest.ENOTFOUND:
	case err != nil:
		return err
	case existing.Dimension != spec.Dimension:
		return docharvest.Errorf(docharvest.EINVALID, "index %q exists with dimension %d, want %d", spec.Name, existing.Dimension, spec.Dimension)
	default:
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO indexes (name, dimension, metric, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, spec.Name, spec.Dimension, string(spec.Metric), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *VectorStore) findIndex(ctx context.Context, name string) (*docharvest.IndexSpec, error) {
	var spec docharvest.IndexSpec
	var metric string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, dimension, metric FROM indexes WHERE name = ?
	`, name).Scan(&spec.Name, &spec.Dimension, &metric)
	if err == sql.ErrNoRows {
		return nil, docharvest.Errorf(docharvest.ENOTFOUND, "index %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	spec.Metric = docharvest.Metric(metric)
	return &spec, nil
}

// Upsert inserts or replaces records in a single transaction.
func (s *VectorStore) Upsert(ctx context.Context, index string, records []*docharvest.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	spec, err := s.findIndex(ctx, index)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == "" {
			return docharvest.Errorf(docharvest.EINVALID, "record ID required")
		}
		if len(r.Vector) != spec.Dimension {
			return docharvest.Errorf(docharvest.EINVALID, "record %s has dimension %d, index %q expects %d", r.ID, len(r.Vector), index, spec.Dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (index_name, id, embedding, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		md := r.Metadata
		if md == nil {
			md = map[string]any{}
		}
		raw, err := json.Marshal(md)
		if err != nil {
			return docharvest.WrapError(docharvest.EINVALID, err, "record %s: metadata is not serializable", r.ID)
		}
		if _, err := stmt.ExecContext(ctx, index, r.ID, encodeVector(r.Vector), string(raw), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Query scores every record passing the filter and returns the best matches.
func (s *VectorStore) Query(ctx context.Context, index string, q docharvest.VectorQuery) ([]docharvest.VectorMatch, error) {
	spec, err := s.findIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != spec.Dimension {
		return nil, docharvest.Errorf(docharvest.EINVALID, "query has dimension %d, index %q expects %d", len(q.Vector), index, spec.Dimension)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = docharvest.DefaultTopK
	}

	var query strings.Builder
	args := []any{index}
	query.WriteString("SELECT id, embedding, metadata FROM vectors WHERE index_name = ?")

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !metadataKeyRe.MatchString(k) {
			return nil, docharvest.Errorf(docharvest.EINVALID, "invalid filter key %q", k)
		}
		query.WriteString(" AND json_extract(metadata, ?) = ?")
		args = append(args, "$."+k, q.Filter[k])
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []docharvest.VectorMatch
	for rows.Next() {
		var id, metadata string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metadata); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "record %s is corrupt", id)
		}
		score := docharvest.CosineSimilarity(q.Vector, vec)
		if score < q.MinScore {
			continue
		}
		var md map[string]any
		if err := json.Unmarshal([]byte(metadata), &md); err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "record %s has corrupt metadata", id)
		}
		matches = append(matches, docharvest.VectorMatch{ID: id, Score: score, Metadata: md})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b docharvest.VectorMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes records by ID.
func (s *VectorStore) Delete(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM vectors WHERE index_name = ? AND id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, index, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Rebuild drops the index and recreates it empty.
func (s *VectorStore) Rebuild(ctx context.Context, spec docharvest.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE index_name = ?", spec.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM indexes WHERE name = ?", spec.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO indexes (name, dimension, metric, created_at)
		VALUES (?, ?, ?, ?)
	`, spec.Name, spec.Dimension, string(spec.Metric), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats returns the index description and record count.
func (s *VectorStore) Stats(ctx context.Context, index string) (*docharvest.IndexStats, error) {
	spec, err := s.findIndex(ctx, index)
	if err != nil {
		return nil, err
	}

	stats := &docharvest.IndexStats{Spec: *spec}
	var updatedAt sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(updated_at) FROM vectors WHERE index_name = ?
	`, index).Scan(&stats.Records, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		stats.UpdatedAt, err = parseRFC3339(updatedAt.String, "updated_at")
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *VectorStore) Close() error {
	return s.db.Close()
}
