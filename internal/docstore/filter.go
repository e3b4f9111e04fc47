package docstore

import (
	"reflect"
	"strings"
)

// matches evaluates every filter against doc. Filter values must already be normalised.
func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(doc, f) {
			return false
		}
	}
	return true
}

func matchOne(doc Document, f Filter) bool {
	actual, present := doc.Lookup(f.Field)
	switch f.Op {
	case OpEqual:
		if f.Value == nil {
			return !present || actual == nil
		}
		return present && reflect.DeepEqual(actual, f.Value)
	case OpNotEqual:
		return present && !reflect.DeepEqual(actual, f.Value)
	case OpArrayContains:
		items, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if reflect.DeepEqual(item, f.Value) {
				return true
			}
		}
		return false
	}
	if !present {
		return false
	}
	cmp, ok := compareScalars(actual, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

// compareScalars orders two values of the same scalar kind.
func compareScalars(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	}
	return 0, false
}

// typeRank mirrors the ordering Postgres applies across jsonb types.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	case []any:
		return 4
	default:
		return 5
	}
}

// compareForSort orders present values; missing fields are handled by the caller.
func compareForSort(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if cmp, ok := compareScalars(a, b); ok {
		return cmp
	}
	if ab, ok := a.(bool); ok {
		bb := b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	}
	return 0
}
