package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

type recordingGetter struct {
	inner docstore.Getter
	calls int
	err   error
}

func (g *recordingGetter) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.Get(ctx, collection, id)
}

func newCheckerFixture(t *testing.T) (*Checker, *recordingGetter) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Set(ctx, shared.CollectionStudents, "S1", docstore.Document{"userId": "U1", "name": "One"}))
	require.NoError(t, store.Set(ctx, shared.CollectionStudents, "S2", docstore.Document{"userId": "U2", "name": "Two"}))
	require.NoError(t, store.Set(ctx, shared.CollectionStudents, "S3", docstore.Document{"name": "Unlinked"}))
	require.NoError(t, store.Set(ctx, shared.CollectionHostels, "H1", docstore.Document{"name": "North", "warden": map[string]any{"userId": "W1"}}))
	require.NoError(t, store.Set(ctx, shared.CollectionHostels, "H2", docstore.Document{"name": "South", "warden": map[string]any{"userId": "W2"}}))
	getter := &recordingGetter{inner: store}
	return NewChecker(getter), getter
}

func principal(id string, role Role) Principal {
	return Principal{ID: id, Role: role, IsActive: true}
}

func TestCheckStudentAccess(t *testing.T) {
	checker, getter := newCheckerFixture(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		p         Principal
		studentID string
		allow     bool
		loads     int
	}{
		{"admin bypass", principal("A", RoleAdmin), "S2", true, 0},
		{"staff bypass", principal("ST", RoleStaff), "S2", true, 0},
		{"admin bypass on missing record", principal("A", RoleAdmin), "missing", true, 0},
		{"student owner", principal("U1", RoleStudent), "S1", true, 1},
		{"student other record", principal("U1", RoleStudent), "S2", false, 1},
		{"student missing record", principal("U1", RoleStudent), "missing", false, 1},
		{"student unlinked record", principal("U1", RoleStudent), "S3", false, 1},
		{"student no id", principal("U1", RoleStudent), "", false, 0},
		{"warden refused", principal("W1", RoleWarden), "S1", false, 0},
		{"unknown role refused", principal("U1", RoleUnknown), "S1", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			getter.calls = 0
			err := checker.CheckStudentAccess(ctx, tc.p, tc.studentID)
			if tc.allow {
				assert.NoError(t, err)
			} else {
				ze, ok := shared.AsAuthzError(err)
				require.True(t, ok, "expected AuthzError, got %v", err)
				assert.Equal(t, shared.AuthzForbidden, ze.Reason)
				assert.Equal(t, shared.MsgOwnStudentOnly, ze.Message())
			}
			assert.Equal(t, tc.loads, getter.calls)
		})
	}
}

func TestCheckHostelAccess(t *testing.T) {
	checker, getter := newCheckerFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		p        Principal
		hostelID string
		allow    bool
		loads    int
	}{
		{"admin", principal("A", RoleAdmin), "H2", true, 0},
		{"assigned warden", principal("W1", RoleWarden), "H1", true, 1},
		{"other warden", principal("W1", RoleWarden), "H2", false, 1},
		{"warden missing hostel", principal("W1", RoleWarden), "missing", false, 1},
		{"warden without hostel id", principal("W1", RoleWarden), "", true, 0},
		{"staff refused", principal("ST", RoleStaff), "H1", false, 0},
		{"student refused", principal("U1", RoleStudent), "", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			getter.calls = 0
			err := checker.CheckHostelAccess(ctx, tc.p, tc.hostelID)
			if tc.allow {
				assert.NoError(t, err)
			} else {
				ze, ok := shared.AsAuthzError(err)
				require.True(t, ok, "expected AuthzError, got %v", err)
				assert.Equal(t, shared.MsgOwnHostelOnly, ze.Message())
			}
			assert.Equal(t, tc.loads, getter.calls)
		})
	}
}

func TestOwnershipHidesExistence(t *testing.T) {
	checker, _ := newCheckerFixture(t)
	ctx := context.Background()
	p := principal("U1", RoleStudent)

	notYours := checker.CheckStudentAccess(ctx, p, "S2")
	missing := checker.CheckStudentAccess(ctx, p, "does-not-exist")
	assert.Equal(t, notYours, missing)

	w := principal("W1", RoleWarden)
	assert.Equal(t, checker.CheckHostelAccess(ctx, w, "H2"), checker.CheckHostelAccess(ctx, w, "nope"))
}

func TestOwnershipChecksAreIdempotent(t *testing.T) {
	checker, _ := newCheckerFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.NoError(t, checker.CheckStudentAccess(ctx, principal("U1", RoleStudent), "S1"))
		assert.Error(t, checker.CheckStudentAccess(ctx, principal("U2", RoleStudent), "S1"))
	}
}

func TestOwnershipStorageFailure(t *testing.T) {
	checker, getter := newCheckerFixture(t)
	getter.err = &docstore.StorageError{Op: "get", Collection: shared.CollectionStudents, ID: "S1", Err: errors.New("timeout")}

	err := checker.CheckStudentAccess(context.Background(), principal("U1", RoleStudent), "S1")
	require.Error(t, err)
	_, isAuthz := shared.AsAuthzError(err)
	assert.False(t, isAuthz)
	assert.True(t, docstore.IsStorageError(err))

	err = checker.CheckHostelAccess(context.Background(), principal("W1", RoleWarden), "H1")
	assert.True(t, docstore.IsStorageError(err))
}
