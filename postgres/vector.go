package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/fwojciec/docharvest"
	"github.com/pgvector/pgvector-go"
)

var _ docharvest.VectorStore = (*VectorStore)(nil)

var (
	// tableNameRe matches characters not allowed in generated table names.
	tableNameRe   = regexp.MustCompile(`[^a-z0-9_]+`)
	metadataKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// TableName returns the table holding the vectors of index.
func TableName(index string) string {
	name := tableNameRe.ReplaceAllString(strings.ToLower(index), "_")
	return "docharvest_vectors_" + strings.Trim(name, "_")
}

// VectorStore implements docharvest.VectorStore with pgvector. Each index
// is a table with a fixed-dimension vector column and an HNSW cosine index.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// EnsureIndex creates the index table if it does not exist.
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
	return s.create(ctx, s.db.db, spec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *VectorStore) create(ctx context.Context, db execer, spec docharvest.IndexSpec) error {
	table := TableName(spec.Name)
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, spec.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s ((metadata->>'source'))`, table, table),
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO docharvest_indexes (name, dimension, metric)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, spec.Name, spec.Dimension, string(spec.Metric))
	return err
}

func (s *VectorStore) findIndex(ctx context.Context, name string) (*docharvest.IndexSpec, error) {
	var spec docharvest.IndexSpec
	var metric string
	err := s.db.db.QueryRowContext(ctx, `
		SELECT name, dimension, metric FROM docharvest_indexes WHERE name = $1
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

	tx, err := s.db.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`, TableName(index)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		md := r.Metadata
		if md == nil {
			md = map[string]any{}
		}
		raw, err := json.Marshal(md)
		if err != nil {
			return docharvest.WrapError(docharvest.EINVALID, err, "record %s: metadata is not serializable", r.ID)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, pgvector.NewVector(r.Vector), string(raw)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns the nearest records by cosine distance.
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
	args := []any{pgvector.NewVector(q.Vector), q.MinScore, topK}
	fmt.Fprintf(&query, "SELECT id, metadata, 1 - (embedding <=> $1) AS score FROM %s WHERE 1 - (embedding <=> $1) >= $2", TableName(index))

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !metadataKeyRe.MatchString(k) {
			return nil, docharvest.Errorf(docharvest.EINVALID, "invalid filter key %q", k)
		}
		args = append(args, k, q.Filter[k])
		fmt.Fprintf(&query, " AND metadata->>$%d = $%d", len(args)-1, len(args))
	}
	query.WriteString(" ORDER BY embedding <=> $1, id LIMIT $3")

	rows, err := s.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []docharvest.VectorMatch
	for rows.Next() {
		var m docharvest.VectorMatch
		var raw []byte
		if err := rows.Scan(&m.ID, &raw, &m.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.Metadata); err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "record %s has corrupt metadata", m.ID)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes records by ID.
func (s *VectorStore) Delete(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.findIndex(ctx, index); err != nil {
		return err
	}
	_, err := s.db.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", TableName(index)), ids)
	return err
}

// Rebuild drops the index table and recreates it empty.
func (s *VectorStore) Rebuild(ctx context.Context, spec docharvest.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	tx, err := s.db.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName(spec.Name)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM docharvest_indexes WHERE name = $1", spec.Name); err != nil {
		return err
	}
	if err := s.create(ctx, tx, spec); err != nil {
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
	var updatedAt sql.NullTime
	if err := s.db.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*), MAX(updated_at) FROM %s", TableName(index),
	)).Scan(&stats.Records, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		stats.UpdatedAt = updatedAt.Time.UTC()
	}
	return stats, nil
}

// Close closes the connection pool.
func (s *VectorStore) Close() error {
	return s.db.Close()
}
