package exams

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

func TestGradeFor(t *testing.T) {
	cases := []struct {
		marks, max float64
		grade      string
	}{
		{95, 100, "O"},
		{90, 100, "O"},
		{89.99, 100, "A+"},
		{35, 50, "A"},
		{60, 100, "B+"},
		{50, 100, "B"},
		{40, 100, "C"},
		{39, 100, "F"},
		{0, 100, "F"},
		{10, 0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, GradeFor(tc.marks, tc.max), "%v/%v", tc.marks, tc.max)
	}
}

func TestRegisterDeadline(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, shared.CollectionStudents, "S1", docstore.Document{"userId": "U1"}))
	svc := NewService(NewRepository(store), nil)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	admin := rbac.Principal{ID: "A", Role: rbac.RoleAdmin}

	e, err := svc.Create(ctx, admin, CreateInput{
		Name: "Algorithms", CourseCode: "cs301", Department: "CSE", Semester: 5,
		Date:                 time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
		DurationMinutes:      180,
		MaxMarks:             100,
		RegistrationDeadline: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "CS301", e.CourseCode)
	assert.Equal(t, StatusScheduled, e.Status)

	reg, err := svc.Register(ctx, admin, e.ID, RegisterInput{StudentID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, clock, reg.RegisteredAt)

	_, err = svc.Register(ctx, admin, e.ID, RegisterInput{StudentID: "S1"})
	assert.Equal(t, ErrAlreadyRegistered, err)

	clock = time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, shared.CollectionStudents, "S2", docstore.Document{"userId": "U2"}))
	_, err = svc.Register(ctx, admin, e.ID, RegisterInput{StudentID: "S2"})
	assert.Equal(t, ErrDeadlinePassed, err)

	_, err = svc.Create(ctx, admin, CreateInput{
		Name: "Late", CourseCode: "X", Department: "CSE", Semester: 1,
		Date:                 time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		DurationMinutes:      60,
		MaxMarks:             50,
		RegistrationDeadline: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, ErrDeadlineAfterExam, err)
}
