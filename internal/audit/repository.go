package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository reads audit records from the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a Repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Window returns up to limit entries newest first, after skipping offset matches.
func (r *Repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	q := buildQuery(filters)
	q.Limit = offset + limit
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionAuditLogs, q))
	if err != nil {
		return nil, fmt.Errorf("audit: window: %w", err)
	}
	if offset >= len(docs) {
		return []Entry{}, nil
	}
	return toEntries(docs[offset:])
}

// All returns every matching entry newest first.
func (r *Repository) All(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionAuditLogs, buildQuery(filters)))
	if err != nil {
		return nil, fmt.Errorf("audit: all: %w", err)
	}
	return toEntries(docs)
}

func buildQuery(filters TimelineFilters) docstore.Query {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: "occurredAt", Desc: true}}
	if !filters.From.IsZero() {
		q.Filters = append(q.Filters, docstore.Where("occurredAt", docstore.OpGreaterEqual, filters.From.UTC()))
	}
	if !filters.To.IsZero() {
		end := filters.To.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		q.Filters = append(q.Filters, docstore.Where("occurredAt", docstore.OpLess, end))
	}
	if filters.Actor != "" {
		q.Filters = append(q.Filters, docstore.Where("actorId", docstore.OpEqual, filters.Actor))
	}
	if filters.Entity != "" {
		q.Filters = append(q.Filters, docstore.Where("entity", docstore.OpEqual, filters.Entity))
	}
	if filters.Action != "" {
		q.Filters = append(q.Filters, docstore.Where("action", docstore.OpEqual, filters.Action))
	}
	return q
}

type record struct {
	ID         string         `json:"id"`
	OccurredAt time.Time      `json:"occurredAt"`
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	Meta       map[string]any `json:"meta"`
}

func toEntries(docs []docstore.Document) ([]Entry, error) {
	out := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var rec record
		if err := docstore.Decode(doc, &rec); err != nil {
			return nil, fmt.Errorf("audit: decode: %w", err)
		}
		out = append(out, Entry{
			ID:       rec.ID,
			At:       rec.OccurredAt,
			ActorID:  rec.ActorID,
			Action:   rec.Action,
			Entity:   rec.Entity,
			EntityID: rec.EntityID,
			Meta:     rec.Meta,
		})
	}
	return out, nil
}
