// Package docstore exposes a collection/document persistence surface over schemaless JSON documents.
package docstore

import (
	"context"
	"iter"
	"strings"
)

// Reserved document fields maintained by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Document is a single schemaless record. Values are JSON shaped: string, float64, bool,
// nil, []any and map[string]any.
type Document map[string]any

// ID returns the document identifier.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Lookup resolves a dotted field path such as "warden.userId".
func (d Document) Lookup(path string) (any, bool) {
	var current any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			if doc, isDoc := current.(Document); isDoc {
				m = doc
			} else {
				return nil, false
			}
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Operator is a filter comparison operator.
type Operator string

// Supported filter operators.
const (
	OpEqual         Operator = "=="
	OpNotEqual      Operator = "!="
	OpLess          Operator = "<"
	OpLessEqual     Operator = "<="
	OpGreater       Operator = ">"
	OpGreaterEqual  Operator = ">="
	OpArrayContains Operator = "array-contains"
)

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpArrayContains:
		return true
	}
	return false
}

func (o Operator) ordered() bool {
	switch o {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Filter restricts a query to documents whose field satisfies Op against Value.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Where builds a Filter.
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// OrderBy sorts query results by a field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query describes a conjunctive filtered read over one collection.
type Query struct {
	Filters []Filter
	OrderBy *OrderBy
	Limit   int
}

// Getter loads a single document. Missing documents yield (nil, nil).
type Getter interface {
	Get(ctx context.Context, collection, id string) (Document, error)
}

// Store is the full document store contract.
type Store interface {
	Getter
	Set(ctx context.Context, collection, id string, data Document) error
	Update(ctx context.Context, collection, id string, partial Document) error
	Delete(ctx context.Context, collection, id string) error
	Exists(ctx context.Context, collection, id string) (bool, error)
	// Query returns a lazy sequence; the backend is contacted each time it is ranged over.
	Query(ctx context.Context, collection string, q Query) iter.Seq2[Document, error]
	Count(ctx context.Context, collection string, filters ...Filter) (int, error)
}

func validateQuery(q Query) error {
	for _, f := range q.Filters {
		if strings.TrimSpace(f.Field) == "" || !f.Op.Valid() {
			return ErrInvalidQuery
		}
	}
	if q.OrderBy != nil && strings.TrimSpace(q.OrderBy.Field) == "" {
		return ErrInvalidQuery
	}
	if q.Limit < 0 {
		return ErrInvalidQuery
	}
	return nil
}
