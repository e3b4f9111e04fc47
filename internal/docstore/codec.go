package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the fixed-width UTC layout used for every stored timestamp so that lexical
// and chronological ordering agree.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Encode converts a struct into a Document through its JSON representation.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("docstore: encode: %T is not an object", v)
	}
	canonicalizeMap(doc)
	return doc, nil
}

// Decode populates v from a Document.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	return nil
}

// Collect drains a query sequence, stopping at the first error.
func Collect(seq iter.Seq2[Document, error]) ([]Document, error) {
	var docs []Document
	for doc, err := range seq {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Create stores data under a freshly generated id and returns it.
func Create(ctx context.Context, s Store, collection string, data Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// normalizeDocument deep-copies d into JSON shapes with canonical timestamps.
func normalizeDocument(d Document) (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Document{}
	}
	canonicalizeMap(out)
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return FormatTime(t), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return FormatTime(*t), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return canonicalize(out), nil
}

func canonicalizeMap(m map[string]any) {
	for k, v := range m {
		m[k] = canonicalize(v)
	}
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case string:
		return canonicalTime(t)
	case map[string]any:
		canonicalizeMap(t)
		return t
	case []any:
		for i := range t {
			t[i] = canonicalize(t[i])
		}
		return t
	}
	return v
}

// canonicalTime rewrites RFC 3339 timestamps into TimeLayout and leaves other strings alone.
func canonicalTime(s string) string {
	if len(s) < 20 || len(s) > 35 || s[4] != '-' || s[7] != '-' || s[10] != 'T' {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Document:
		return cloneDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

func cloneDocument(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}
