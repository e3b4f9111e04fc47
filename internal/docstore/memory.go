package docstore

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"
)

// Option configures a store backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for createdAt/updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	now         func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{collections: make(map[string]map[string]Document), now: o.now}
}

// Get implements Getter.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail("get", collection, id, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, collection, id string, data Document) error {
	if err := ctx.Err(); err != nil {
		return fail("set", collection, id, err)
	}
	doc, err := normalizeDocument(data)
	if err != nil {
		return fail("set", collection, id, err)
	}
	stamp := FormatTime(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.bucket(collection)
	doc[FieldID] = id
	doc[FieldCreatedAt] = stamp
	if existing, ok := bucket[id]; ok {
		if created, has := existing[FieldCreatedAt]; has {
			doc[FieldCreatedAt] = created
		}
	}
	doc[FieldUpdatedAt] = stamp
	bucket[id] = doc
	return nil
}

// Update merges top-level fields into the document, creating it when absent.
func (m *Memory) Update(ctx context.Context, collection, id string, partial Document) error {
	if err := ctx.Err(); err != nil {
		return fail("update", collection, id, err)
	}
	patch, err := normalizeDocument(partial)
	if err != nil {
		return fail("update", collection, id, err)
	}
	stamp := FormatTime(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.bucket(collection)
	doc, ok := bucket[id]
	if !ok {
		doc = Document{FieldCreatedAt: stamp}
	}
	for k, v := range patch {
		if k == FieldCreatedAt || k == FieldID {
			continue
		}
		doc[k] = v
	}
	doc[FieldID] = id
	doc[FieldUpdatedAt] = stamp
	bucket[id] = doc
	return nil
}

// Delete implements Store. Missing documents are ignored.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return fail("delete", collection, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

// Exists implements Store.
func (m *Memory) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fail("exists", collection, id, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection][id]
	return ok, nil
}

// Query implements Store. Each range takes a fresh snapshot.
func (m *Memory) Query(ctx context.Context, collection string, q Query) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		docs, err := m.run(ctx, collection, q)
		if err != nil {
			yield(nil, fail("query", collection, "", err))
			return
		}
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				yield(nil, fail("query", collection, "", err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// Count implements Store.
func (m *Memory) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	docs, err := m.run(ctx, collection, Query{Filters: filters})
	if err != nil {
		return 0, fail("count", collection, "", err)
	}
	return len(docs), nil
}

func (m *Memory) run(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		filters[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}

	m.mu.RLock()
	var out []Document
	for _, doc := range m.collections[collection] {
		if matches(doc, filters) {
			out = append(out, cloneDocument(doc))
		}
	}
	m.mu.RUnlock()

	sortDocuments(out, q.OrderBy)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// bucket must be called with the write lock held.
func (m *Memory) bucket(collection string) map[string]Document {
	b, ok := m.collections[collection]
	if !ok {
		b = make(map[string]Document)
		m.collections[collection] = b
	}
	return b
}

// sortDocuments orders by the requested field then id. Missing fields sort last ascending
// and first descending, matching NULL ordering in Postgres.
func sortDocuments(docs []Document, order *OrderBy) {
	sort.SliceStable(docs, func(i, j int) bool {
		if order != nil {
			a, aok := docs[i].Lookup(order.Field)
			b, bok := docs[j].Lookup(order.Field)
			if cmp := compareOrdered(a, aok, b, bok); cmp != 0 {
				if order.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return docs[i].ID() < docs[j].ID()
	})
}

func compareOrdered(a any, aok bool, b any, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	return compareForSort(a, b)
}
