package shared

import (
	"net/url"
	"testing"
)

func TestParsePage(t *testing.T) {
	page, perPage := ParsePage(url.Values{})
	if page != 1 || perPage != 20 {
		t.Fatalf("defaults: got %d/%d", page, perPage)
	}
	page, perPage = ParsePage(url.Values{"page": {"3"}, "limit": {"500"}})
	if page != 3 || perPage != 100 {
		t.Fatalf("capped: got %d/%d", page, perPage)
	}
	page, perPage = ParsePage(url.Values{"page": {"-1"}, "limit": {"abc"}})
	if page != 1 || perPage != 20 {
		t.Fatalf("invalid: got %d/%d", page, perPage)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	window, meta := Paginate(items, 2, 2)
	if len(window) != 2 || window[0] != 3 {
		t.Fatalf("unexpected window %v", window)
	}
	if meta.Total != 5 || meta.TotalPages != 3 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	window, _ = Paginate(items, 3, 2)
	if len(window) != 1 || window[0] != 5 {
		t.Fatalf("unexpected last page %v", window)
	}

	window, _ = Paginate(items, 9, 2)
	if len(window) != 0 {
		t.Fatalf("expected empty page, got %v", window)
	}
}
