package hostels_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/hostels"
	"github.com/odyssey-erp/campus-erp/internal/platform/cache"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/testing/apitest"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

type fixture struct {
	*apitest.Env
	admin, w1, w2, student string
	locks                  *cache.Locker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := apitest.New(t)
	svc := hostels.NewService(hostels.NewRepository(env.Store), users.NewRepository(env.Store), cache.NewLocker(client, 5*time.Second), nil)
	env.Router.Route("/api/hostels", hostels.NewHandler(nil, svc, env.RBAC).MountRoutes)
	f := &fixture{
		Env:     env,
		admin:   env.User(t, "ADMIN", rbac.RoleAdmin),
		w1:      env.User(t, "W1", rbac.RoleWarden),
		w2:      env.User(t, "W2", rbac.RoleWarden),
		student: env.User(t, "U1", rbac.RoleStudent),
		locks:   cache.NewLocker(client, 5*time.Second),
	}
	for _, id := range []string{"S1", "S2", "S3"} {
		env.Put(t, shared.CollectionStudents, id, docstore.Document{"userId": "U-" + id})
	}
	return f
}

type hostelBody struct {
	hostels.Hostel
	Capacity  int `json:"capacity"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

func (f *fixture) createHostel(t *testing.T, name, warden string) hostelBody {
	t.Helper()
	body := `{"name":"` + name + `","type":"mixed","warden":{"userId":"` + warden + `"},"rooms":[{"number":"101","capacity":2},{"number":"102","capacity":1}],"facilities":["wifi"," wifi ","mess"]}`
	res := f.Do(t, http.MethodPost, "/api/hostels", f.admin, body)
	require.Equal(t, http.StatusCreated, res.Code, string(res.Raw))
	var h hostelBody
	res.Into(t, &h)
	return h
}

func TestCreateHostel(t *testing.T) {
	f := newFixture(t)
	h := f.createHostel(t, "North", "W1")
	assert.Equal(t, "W1", h.Warden.UserID)
	assert.Equal(t, "User W1", h.Warden.Name)
	assert.Equal(t, []string{"wifi", "mess"}, h.Facilities)
	assert.Equal(t, 3, h.Capacity)
	assert.Equal(t, 3, h.Available)

	res := f.Do(t, http.MethodPost, "/api/hostels", f.admin, `{"name":"Bad","type":"mixed","warden":{"userId":"U1"}}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Warden must be an active user with the warden role.", res.Message)

	res = f.Do(t, http.MethodPost, "/api/hostels", f.admin, `{"name":"Dup","type":"mixed","rooms":[{"number":"1","capacity":1},{"number":"1","capacity":2}]}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	assert.Equal(t, http.StatusForbidden, f.Do(t, http.MethodPost, "/api/hostels", f.w1, `{"name":"Mine","type":"boys"}`).Code)
}

func TestWardenListIsNarrowed(t *testing.T) {
	f := newFixture(t)
	north := f.createHostel(t, "North", "W1")
	f.createHostel(t, "South", "W2")

	res := f.Do(t, http.MethodGet, "/api/hostels", f.w1, "")
	require.Equal(t, http.StatusOK, res.Code)
	var list []hostelBody
	res.Into(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, north.ID, list[0].ID)

	res = f.Do(t, http.MethodGet, "/api/hostels", f.admin, "")
	res.Into(t, &list)
	assert.Len(t, list, 2)

	res = f.Do(t, http.MethodGet, "/api/hostels", f.student, "")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Access denied. Insufficient permissions.", res.Message)
}

func TestHostelOwnership(t *testing.T) {
	f := newFixture(t)
	north := f.createHostel(t, "North", "W1")

	assert.Equal(t, http.StatusOK, f.Do(t, http.MethodGet, "/api/hostels/"+north.ID, f.w1, "").Code)

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/hostels/" + north.ID, ""},
		{http.MethodPut, "/api/hostels/" + north.ID, `{"name":"Taken"}`},
		{http.MethodPost, "/api/hostels/" + north.ID + "/allocate", `{"studentId":"S1","roomNumber":"101"}`},
		{http.MethodGet, "/api/hostels/missing", ""},
	} {
		res := f.Do(t, req.method, req.path, f.w2, req.body)
		assert.Equal(t, http.StatusForbidden, res.Code, req.path)
		assert.Equal(t, "Access denied. You can only manage your assigned hostel.", res.Message)
	}

	res := f.Do(t, http.MethodPut, "/api/hostels/"+north.ID, f.w1, `{"warden":{"userId":"W2"}}`)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Only an administrator can reassign the warden.", res.Message)

	res = f.Do(t, http.MethodPut, "/api/hostels/"+north.ID, f.admin, `{"warden":{"userId":"W2"}}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, http.StatusOK, f.Do(t, http.MethodGet, "/api/hostels/"+north.ID, f.w2, "").Code)
	assert.Equal(t, http.StatusForbidden, f.Do(t, http.MethodGet, "/api/hostels/"+north.ID, f.w1, "").Code)
}

func TestAllocateAndVacate(t *testing.T) {
	f := newFixture(t)
	north := f.createHostel(t, "North", "W1")
	south := f.createHostel(t, "South", "W2")
	allocate := "/api/hostels/" + north.ID + "/allocate"

	res := f.Do(t, http.MethodPost, allocate, f.w1, `{"studentId":"S1","roomNumber":"102"}`)
	require.Equal(t, http.StatusOK, res.Code, string(res.Raw))
	var h hostelBody
	res.Into(t, &h)
	assert.Equal(t, 1, h.Occupied)

	student := f.Doc(t, shared.CollectionStudents, "S1")
	assert.Equal(t, north.ID, student["hostelId"])
	assert.Equal(t, "102", student["roomNumber"])

	cases := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"full room", `{"studentId":"S2","roomNumber":"102"}`, http.StatusConflict, "Room is full."},
		{"unknown room", `{"studentId":"S2","roomNumber":"999"}`, http.StatusNotFound, "Room not found."},
		{"already housed", `{"studentId":"S1","roomNumber":"101"}`, http.StatusConflict, "Student is already allocated to a hostel."},
		{"unknown student", `{"studentId":"S9","roomNumber":"101"}`, http.StatusNotFound, "Student not found."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.Do(t, http.MethodPost, allocate, f.admin, tc.body)
			assert.Equal(t, tc.code, res.Code)
			assert.Equal(t, tc.msg, res.Message)
		})
	}

	res = f.Do(t, http.MethodPost, "/api/hostels/"+south.ID+"/allocate", f.w2, `{"studentId":"S1","roomNumber":"101"}`)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = f.Do(t, http.MethodPut, "/api/hostels/"+north.ID, f.w1, `{"rooms":[{"number":"101","capacity":2}]}`)
	assert.Equal(t, http.StatusConflict, res.Code, "room 102 still has an occupant")

	assert.Equal(t, http.StatusConflict, f.Do(t, http.MethodDelete, "/api/hostels/"+north.ID, f.admin, "").Code)

	res = f.Do(t, http.MethodPost, "/api/hostels/"+south.ID+"/vacate", f.w2, `{"studentId":"S1"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.Do(t, http.MethodPost, "/api/hostels/"+north.ID+"/vacate", f.w1, `{"studentId":"S1"}`)
	require.Equal(t, http.StatusOK, res.Code)
	res.Into(t, &h)
	assert.Equal(t, 0, h.Occupied)
	assert.Equal(t, "", f.Doc(t, shared.CollectionStudents, "S1")["hostelId"])

	assert.Equal(t, http.StatusForbidden, f.Do(t, http.MethodDelete, "/api/hostels/"+north.ID, f.w1, "").Code)
	assert.Equal(t, http.StatusOK, f.Do(t, http.MethodDelete, "/api/hostels/"+north.ID, f.admin, "").Code)
}

func TestAllocationHoldsStudentLock(t *testing.T) {
	f := newFixture(t)
	north := f.createHostel(t, "North", "W1")
	south := f.createHostel(t, "South", "W2")
	ctx := context.Background()

	// Another allocation for S1 is in flight against North.
	release, err := f.locks.Acquire(ctx, shared.StudentHousingLockKey("S1"))
	require.NoError(t, err)

	res := f.Do(t, http.MethodPost, "/api/hostels/"+south.ID+"/allocate", f.w2, `{"studentId":" S1 ","roomNumber":"101"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Resource is busy, retry shortly.", res.Message)
	assert.Equal(t, "", f.Doc(t, shared.CollectionStudents, "S1")["hostelId"])

	res = f.Do(t, http.MethodPost, "/api/hostels/"+south.ID+"/vacate", f.w2, `{"studentId":"S1"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	release()

	res = f.Do(t, http.MethodPost, "/api/hostels/"+north.ID+"/allocate", f.w1, `{"studentId":"S1","roomNumber":"101"}`)
	require.Equal(t, http.StatusOK, res.Code, string(res.Raw))
	res = f.Do(t, http.MethodPost, "/api/hostels/"+south.ID+"/allocate", f.w2, `{"studentId":"S1","roomNumber":"101"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Student is already allocated to a hostel.", res.Message)
	assert.Equal(t, north.ID, f.Doc(t, shared.CollectionStudents, "S1")["hostelId"])

	// The student lock is released after a completed allocation.
	again, err := f.locks.Acquire(ctx, shared.StudentHousingLockKey("S1"))
	require.NoError(t, err)
	again()
}

func TestDeleteHoldsHostelLock(t *testing.T) {
	f := newFixture(t)
	north := f.createHostel(t, "North", "W1")
	ctx := context.Background()

	release, err := f.locks.Acquire(ctx, shared.HostelLockKey(north.ID))
	require.NoError(t, err)
	res := f.Do(t, http.MethodDelete, "/api/hostels/"+north.ID, f.admin, "")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Resource is busy, retry shortly.", res.Message)
	release()

	assert.Equal(t, http.StatusOK, f.Do(t, http.MethodGet, "/api/hostels/"+north.ID, f.admin, "").Code)
	assert.Equal(t, http.StatusOK, f.Do(t, http.MethodDelete, "/api/hostels/"+north.ID, f.admin, "").Code)
}
