package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/testing/apitest"
)

func newAuditEnv(t *testing.T) *apitest.Env {
	t.Helper()
	env := apitest.New(t)
	logger := shared.NewAuditLogger(env.Store)
	ctx := context.Background()
	for _, log := range []shared.AuditLog{
		{ActorID: "A", Action: "users:create", Entity: "user", EntityID: "U1", At: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ActorID: "A", Action: "fees:pay", Entity: "fee", EntityID: "F1", At: time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)},
		{ActorID: "ST", Action: "fees:pay", Entity: "fee", EntityID: "F2", At: time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)},
		{ActorID: "ST", Action: "exams:create", Entity: "exam", EntityID: "E1", At: time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC)},
	} {
		require.NoError(t, logger.Record(ctx, log))
	}
	h := NewHandler(nil, NewService(NewRepository(env.Store)), env.RBAC)
	h.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }
	env.Router.Route("/api/audit-logs", h.MountRoutes)
	return env
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	env := newAuditEnv(t)
	admin := env.User(t, "A", rbac.RoleAdmin)

	res := env.Do(t, http.MethodGet, "/api/audit-logs", admin, "")
	require.Equal(t, http.StatusOK, res.Code, string(res.Raw))
	var rows []Entry
	res.Into(t, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "F2", rows[0].EntityID, "newest first, the whole of the last day included")
	assert.Equal(t, "F1", rows[1].EntityID)

	var paging PagingInfo
	require.NoError(t, json.Unmarshal(res.Meta, &paging))
	assert.Equal(t, DefaultPageSize, paging.PageSize)
	assert.False(t, paging.HasNext)
}

func TestTimelineFilters(t *testing.T) {
	env := newAuditEnv(t)
	admin := env.User(t, "A", rbac.RoleAdmin)

	res := env.Do(t, http.MethodGet, "/api/audit-logs?from=2025-03-01&to=2025-03-11&actor=ST", admin, "")
	require.Equal(t, http.StatusOK, res.Code)
	var rows []Entry
	res.Into(t, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "exams:create", rows[0].Action)

	res = env.Do(t, http.MethodGet, "/api/audit-logs?from=2025-03-01&to=2025-03-11&action=fees:pay&pageSize=1", admin, "")
	require.Equal(t, http.StatusOK, res.Code)
	res.Into(t, &rows)
	require.Len(t, rows, 1)
	var paging PagingInfo
	require.NoError(t, json.Unmarshal(res.Meta, &paging))
	assert.True(t, paging.HasNext)
	assert.Equal(t, 2, paging.NextPage)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	env := newAuditEnv(t)
	admin := env.User(t, "A", rbac.RoleAdmin)
	for _, query := range []string{
		"?to=yesterday",
		"?from=2025-03-10&to=2025-03-01",
		"?from=2024-01-01&to=2025-03-01",
		"?page=0",
		"?pageSize=abc",
	} {
		res := env.Do(t, http.MethodGet, "/api/audit-logs"+query, admin, "")
		assert.Equal(t, http.StatusBadRequest, res.Code, query)
		assert.False(t, res.Success)
	}
}

func TestTimelineAdminOnly(t *testing.T) {
	env := newAuditEnv(t)
	for _, role := range []rbac.Role{rbac.RoleStaff, rbac.RoleWarden, rbac.RoleStudent} {
		token := env.User(t, "X-"+role.String(), role)
		res := env.Do(t, http.MethodGet, "/api/audit-logs", token, "")
		assert.Equal(t, http.StatusForbidden, res.Code, role.String())
	}
	assert.Equal(t, http.StatusUnauthorized, env.Do(t, http.MethodGet, "/api/audit-logs/export.csv", "", "").Code)
}

func TestExportCSV(t *testing.T) {
	env := newAuditEnv(t)
	admin := env.User(t, "A", rbac.RoleAdmin)

	res := env.Do(t, http.MethodGet, "/api/audit-logs/export.csv?from=2025-03-01&to=2025-03-11", admin, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header.Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(string(res.Raw)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "2025-03-11T00:30:00Z,ST,exams:create"))
}
