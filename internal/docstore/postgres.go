package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/campus-erp/internal/platform/db"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores every collection in a single jsonb table keyed by (collection, id).
type Postgres struct {
	pool *pgxpool.Pool
	conn dbtx
	now  func() time.Time
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps a pgx pool.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	o := buildOptions(opts)
	return &Postgres{pool: pool, conn: pool, now: o.now}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS documents_collection_updated_idx ON documents (collection, updated_at DESC)`,
}

// Migrate creates the documents table and its indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("docstore: migrate: %w", err)
			}
		}
		return nil
	})
}

// Get implements Getter.
func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := p.conn.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fail("get", collection, id, err)
	}
	doc, err := decodeRow(raw)
	if err != nil {
		return nil, fail("get", collection, id, err)
	}
	return doc, nil
}

const upsertSQL = `INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $4)
ON CONFLICT (collection, id) DO UPDATE SET
	data = CASE WHEN documents.data ? 'createdAt'
		THEN EXCLUDED.data || jsonb_build_object('createdAt', documents.data -> 'createdAt')
		ELSE EXCLUDED.data END,
	updated_at = EXCLUDED.updated_at`

// Set implements Store.
func (p *Postgres) Set(ctx context.Context, collection, id string, data Document) error {
	doc, err := normalizeDocument(data)
	if err != nil {
		return fail("set", collection, id, err)
	}
	now := p.now().UTC()
	doc[FieldID] = id
	doc[FieldCreatedAt] = FormatTime(now)
	doc[FieldUpdatedAt] = FormatTime(now)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fail("set", collection, id, err)
	}
	if _, err := p.conn.Exec(ctx, upsertSQL, collection, id, string(raw), now); err != nil {
		return fail("set", collection, id, err)
	}
	return nil
}

const mergeSQL = `INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $4)
ON CONFLICT (collection, id) DO UPDATE SET
	data = documents.data || (EXCLUDED.data - 'createdAt'),
	updated_at = EXCLUDED.updated_at`

// Update merges top-level fields into the document, creating it when absent.
func (p *Postgres) Update(ctx context.Context, collection, id string, partial Document) error {
	patch, err := normalizeDocument(partial)
	if err != nil {
		return fail("update", collection, id, err)
	}
	now := p.now().UTC()
	patch[FieldID] = id
	patch[FieldCreatedAt] = FormatTime(now)
	patch[FieldUpdatedAt] = FormatTime(now)
	raw, err := json.Marshal(patch)
	if err != nil {
		return fail("update", collection, id, err)
	}
	if _, err := p.conn.Exec(ctx, mergeSQL, collection, id, string(raw), now); err != nil {
		return fail("update", collection, id, err)
	}
	return nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if _, err := p.conn.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fail("delete", collection, id, err)
	}
	return nil
}

// Exists implements Store.
func (p *Postgres) Exists(ctx context.Context, collection, id string) (bool, error) {
	var ok bool
	err := p.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`, collection, id).Scan(&ok)
	if err != nil {
		return false, fail("exists", collection, id, err)
	}
	return ok, nil
}

// Query implements Store. Rows are streamed; breaking out of the range closes them.
func (p *Postgres) Query(ctx context.Context, collection string, q Query) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		sql, args, err := buildSelect(collection, q)
		if err != nil {
			yield(nil, fail("query", collection, "", err))
			return
		}
		rows, err := p.conn.Query(ctx, sql, args...)
		if err != nil {
			yield(nil, fail("query", collection, "", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				yield(nil, fail("query", collection, "", err))
				return
			}
			doc, err := decodeRow(raw)
			if err != nil {
				yield(nil, fail("query", collection, "", err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fail("query", collection, "", err))
		}
	}
}

// Count implements Store.
func (p *Postgres) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	sql, args, err := buildCount(collection, filters)
	if err != nil {
		return 0, fail("count", collection, "", err)
	}
	var n int
	if err := p.conn.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fail("count", collection, "", err)
	}
	return n, nil
}

func decodeRow(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) path(field string) string {
	return "data #> " + b.arg(strings.Split(field, ".")) + "::text[]"
}

func (b *sqlBuilder) textPath(field string) string {
	return "data #>> " + b.arg(strings.Split(field, ".")) + "::text[]"
}

// orderBy ranks values by jsonb type, then compares strings bytewise and
// everything else as jsonb, so results line up with the range filters.
func (b *sqlBuilder) orderBy(o OrderBy) string {
	keys := b.arg(strings.Split(o.Field, ".")) + "::text[]"
	value := "data #> " + keys
	dir, nulls := " ASC", " NULLS LAST"
	if o.Desc {
		dir, nulls = " DESC", " NULLS FIRST"
	}
	rank := fmt.Sprintf("CASE jsonb_typeof(%s) WHEN 'null' THEN 0 WHEN 'string' THEN 1 WHEN 'number' THEN 2"+
		" WHEN 'boolean' THEN 3 WHEN 'array' THEN 4 WHEN 'object' THEN 5 END", value)
	text := fmt.Sprintf("CASE WHEN jsonb_typeof(%s) = 'string' THEN (data #>> %s) COLLATE \"C\" END", value, keys)
	return rank + dir + nulls + ", " + text + dir + ", " + value + dir
}

func (b *sqlBuilder) where(collection string, filters []Filter) (string, error) {
	clauses := []string{"collection = " + b.arg(collection)}
	for _, f := range filters {
		clause, err := b.filter(f)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND "), nil
}

func (b *sqlBuilder) filter(f Filter) (string, error) {
	value, err := normalizeValue(f.Value)
	if err != nil {
		return "", err
	}
	switch f.Op {
	case OpEqual:
		if value == nil {
			path := b.path(f.Field)
			return fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", path, path), nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s::jsonb", b.path(f.Field), b.arg(string(raw))), nil
	case OpNotEqual:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s <> %s::jsonb", b.path(f.Field), b.arg(string(raw))), nil
	case OpArrayContains:
		raw, err := json.Marshal([]any{value})
		if err != nil {
			return "", err
		}
		path := b.path(f.Field)
		return fmt.Sprintf("(jsonb_typeof(%s) = 'array' AND %s @> %s::jsonb)", path, path, b.arg(string(raw))), nil
	}
	if !f.Op.ordered() {
		return "", ErrInvalidQuery
	}
	op := string(f.Op)
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("CASE WHEN jsonb_typeof(%s) = 'number' THEN (%s)::float8 %s %s::float8 ELSE false END",
			b.path(f.Field), b.textPath(f.Field), op, b.arg(v)), nil
	case string:
		return fmt.Sprintf("CASE WHEN jsonb_typeof(%s) = 'string' THEN (%s) COLLATE \"C\" %s %s::text ELSE false END",
			b.path(f.Field), b.textPath(f.Field), op, b.arg(v)), nil
	}
	return "false", nil
}

func buildSelect(collection string, q Query) (string, []any, error) {
	if err := validateQuery(q); err != nil {
		return "", nil, err
	}
	var b sqlBuilder
	where, err := b.where(collection, q.Filters)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT data FROM documents WHERE ")
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	if q.OrderBy != nil {
		sb.WriteString(b.orderBy(*q.OrderBy))
		sb.WriteString(", ")
	}
	sb.WriteString("id ASC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(q.Limit))
	}
	return sb.String(), b.args, nil
}

func buildCount(collection string, filters []Filter) (string, []any, error) {
	if err := validateQuery(Query{Filters: filters}); err != nil {
		return "", nil, err
	}
	var b sqlBuilder
	where, err := b.where(collection, filters)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*) FROM documents WHERE " + where, b.args, nil
}
