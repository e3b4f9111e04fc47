package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}
	return NewMemory(WithClock(clock.now)), clock
}

func TestMemorySetStampsTimestamps(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestMemory()

	require.NoError(t, store.Set(ctx, "users", "u1", Document{"name": "Asha"}))
	first, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "u1", first.ID())
	assert.Equal(t, "2024-07-01T09:00:00.000000000Z", first[FieldCreatedAt])
	assert.Equal(t, first[FieldCreatedAt], first[FieldUpdatedAt])

	clock.advance(time.Hour)
	require.NoError(t, store.Set(ctx, "users", "u1", Document{"name": "Asha R"}))
	second, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asha R", second["name"])
	assert.Equal(t, first[FieldCreatedAt], second[FieldCreatedAt])
	assert.Equal(t, "2024-07-01T10:00:00.000000000Z", second[FieldUpdatedAt])
}

func TestMemoryGetMissingIsNotAnError(t *testing.T) {
	store, _ := newTestMemory()
	doc, err := store.Get(context.Background(), "students", "nope")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemoryUpdateMergesAndUpserts(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestMemory()

	require.NoError(t, store.Set(ctx, "fees", "f1", Document{"amount": 100, "status": "pending"}))
	clock.advance(time.Minute)
	require.NoError(t, store.Update(ctx, "fees", "f1", Document{"status": "paid", "createdAt": "ignored"}))

	doc, err := store.Get(ctx, "fees", "f1")
	require.NoError(t, err)
	assert.Equal(t, float64(100), doc["amount"])
	assert.Equal(t, "paid", doc["status"])
	assert.Equal(t, "2024-07-01T09:00:00.000000000Z", doc[FieldCreatedAt])
	assert.Equal(t, "2024-07-01T09:01:00.000000000Z", doc[FieldUpdatedAt])

	require.NoError(t, store.Update(ctx, "fees", "f2", Document{"status": "pending"}))
	created, err := store.Get(ctx, "fees", "f2")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "f2", created.ID())
}

func TestMemoryDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	require.NoError(t, store.Set(ctx, "hostels", "h1", Document{"name": "North"}))

	require.NoError(t, store.Delete(ctx, "hostels", "h1"))
	require.NoError(t, store.Delete(ctx, "hostels", "h1"))
	require.NoError(t, store.Delete(ctx, "nowhere", "h1"))

	ok, err := store.Exists(ctx, "hostels", "h1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	require.NoError(t, store.Set(ctx, "hostels", "h1", Document{"warden": map[string]any{"userId": "w1"}}))

	doc, err := store.Get(ctx, "hostels", "h1")
	require.NoError(t, err)
	doc["warden"].(map[string]any)["userId"] = "intruder"

	again, err := store.Get(ctx, "hostels", "h1")
	require.NoError(t, err)
	userID, _ := again.Lookup("warden.userId")
	assert.Equal(t, "w1", userID)
}

func seedStudents(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	rows := []Document{
		{"name": "A", "year": 1, "department": "cse", "tags": []string{"sports", "music"}},
		{"name": "B", "year": 2, "department": "cse", "tags": []string{"music"}},
		{"name": "C", "year": 3, "department": "ece"},
		{"name": "D", "year": 2, "department": "ece", "tags": []string{"debate"}},
	}
	ids := []string{"s1", "s2", "s3", "s4"}
	for i, row := range rows {
		require.NoError(t, store.Set(ctx, "students", ids[i], row))
	}
}

func TestMemoryQueryOperators(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	seedStudents(t, store)

	cases := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"equal", []Filter{Where("department", OpEqual, "cse")}, []string{"s1", "s2"}},
		{"not equal", []Filter{Where("department", OpNotEqual, "cse")}, []string{"s3", "s4"}},
		{"less", []Filter{Where("year", OpLess, 2)}, []string{"s1"}},
		{"less equal", []Filter{Where("year", OpLessEqual, 2)}, []string{"s1", "s2", "s4"}},
		{"greater", []Filter{Where("year", OpGreater, 2)}, []string{"s3"}},
		{"greater equal", []Filter{Where("year", OpGreaterEqual, 2)}, []string{"s2", "s3", "s4"}},
		{"array contains", []Filter{Where("tags", OpArrayContains, "music")}, []string{"s1", "s2"}},
		{"conjunction", []Filter{Where("department", OpEqual, "ece"), Where("year", OpEqual, 2)}, []string{"s4"}},
		{"type mismatch", []Filter{Where("year", OpGreater, "1")}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := Collect(store.Query(ctx, "students", Query{Filters: tc.filters}))
			require.NoError(t, err)
			var got []string
			for _, d := range docs {
				got = append(got, d.ID())
			}
			assert.Equal(t, tc.want, got)

			n, err := store.Count(ctx, "students", tc.filters...)
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), n)
		})
	}
}

func TestMemoryQueryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	seedStudents(t, store)
	require.NoError(t, store.Set(ctx, "students", "s5", Document{"name": "E"}))

	docs, err := Collect(store.Query(ctx, "students", Query{OrderBy: &OrderBy{Field: "year", Desc: true}, Limit: 3}))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "s5", docs[0].ID(), "missing field sorts first when descending")
	assert.Equal(t, "s3", docs[1].ID())
	assert.Equal(t, "s2", docs[2].ID())

	docs, err = Collect(store.Query(ctx, "students", Query{OrderBy: &OrderBy{Field: "year"}}))
	require.NoError(t, err)
	require.Len(t, docs, 5)
	assert.Equal(t, "s1", docs[0].ID())
	assert.Equal(t, "s5", docs[4].ID())
}

func TestMemoryOrderMatchesRangeFilters(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	for id, name := range map[string]any{"a": "alice", "b": "Zed", "c": "Émile", "d": float64(3), "e": nil} {
		require.NoError(t, store.Set(ctx, "people", id, Document{"name": name}))
	}

	docs, err := Collect(store.Query(ctx, "people", Query{OrderBy: &OrderBy{Field: "name"}}))
	require.NoError(t, err)
	var got []string
	for _, d := range docs {
		got = append(got, d.ID())
	}
	assert.Equal(t, []string{"e", "b", "a", "c", "d"}, got, "null, then strings bytewise, then numbers")

	docs, err = Collect(store.Query(ctx, "people", Query{Filters: []Filter{Where("name", OpLess, "alice")}}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID())
}

func TestMemoryQueryIsLazyAndRestartable(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	seq := store.Query(ctx, "students", Query{Filters: []Filter{Where("department", OpEqual, "cse")}})

	docs, err := Collect(seq)
	require.NoError(t, err)
	assert.Empty(t, docs)

	seedStudents(t, store)
	docs, err = Collect(seq)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	seen := 0
	for _, err := range seq {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestMemoryNestedFieldAndTimeFilters(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemory()
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, "hostels", "h1", Document{"warden": map[string]any{"userId": "w1"}}))
	require.NoError(t, store.Set(ctx, "fees", "f1", Document{"dueDate": due}))
	require.NoError(t, store.Set(ctx, "fees", "f2", Document{"dueDate": "2024-08-01T00:00:00+02:00"}))

	n, err := store.Count(ctx, "hostels", Where("warden.userId", OpEqual, "w1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs, err := Collect(store.Query(ctx, "fees", Query{Filters: []Filter{Where("dueDate", OpLess, due.Add(24*time.Hour))}}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "f1", docs[0].ID())

	f2, err := store.Get(ctx, "fees", "f2")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-31T22:00:00.000000000Z", f2["dueDate"])
}

func TestMemoryInvalidQuery(t *testing.T) {
	store, _ := newTestMemory()
	_, err := Collect(store.Query(context.Background(), "students", Query{Filters: []Filter{{Field: "x", Op: "~"}}}))
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestMemoryCancelledContext(t *testing.T) {
	store, _ := newTestMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "users", "u1")
	require.Error(t, err)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "get", se.Op)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeDecodeAndCreate(t *testing.T) {
	type record struct {
		Name     string    `json:"name"`
		Year     int       `json:"year"`
		Enrolled time.Time `json:"enrolled"`
	}
	ctx := context.Background()
	store, _ := newTestMemory()

	doc, err := Encode(record{Name: "Ravi", Year: 2, Enrolled: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-02T03:04:05.000000000Z", doc["enrolled"])

	id, err := Create(ctx, store, "students", doc)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, err := store.Get(ctx, "students", id)
	require.NoError(t, err)
	var out record
	require.NoError(t, Decode(stored, &out))
	assert.Equal(t, "Ravi", out.Name)
	assert.Equal(t, 2, out.Year)
	assert.True(t, out.Enrolled.Equal(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)))

	_, err = Encode([]int{1})
	assert.Error(t, err)
}
