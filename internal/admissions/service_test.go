package admissions

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/jobs"
)

type notifierStub struct {
	sent []jobs.SendEmailPayload
	err  error
}

func (n *notifierStub) EnqueueSendEmail(_ context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, payload)
	return &asynq.TaskInfo{ID: "task", Queue: jobs.QueueDefault}, nil
}

func validApplication() ApplyInput {
	return ApplyInput{
		Name:        "  asha   RAO ",
		Email:       "Asha@Example.com",
		Phone:       "9876543210",
		DateOfBirth: "2006-04-12",
		Program:     "B.Tech CSE",
		Percentage:  91.5,
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusUnderReview}:  true,
		{StatusPending, StatusApproved}:     true,
		{StatusPending, StatusRejected}:     true,
		{StatusUnderReview, StatusApproved}: true,
		{StatusUnderReview, StatusRejected}: true,
	}
	all := []Status{StatusPending, StatusUnderReview, StatusApproved, StatusRejected}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusUnderReview.Terminal())
}

func TestTitleName(t *testing.T) {
	assert.Equal(t, "Asha Rao", TitleName("  asha   RAO "))
	assert.Equal(t, "Ravi Kumar Singh", TitleName("ravi kumar singh"))
}

func TestApplyNormalisesAndRejectsOpenDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(docstore.NewMemory()), nil, nil, nil)

	app, err := svc.Apply(ctx, validApplication())
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", app.Name)
	assert.Equal(t, "asha@example.com", app.Email)
	assert.Equal(t, StatusPending, app.Status)

	_, err = svc.Apply(ctx, validApplication())
	assert.Equal(t, ErrDuplicateApplication, err)

	other := validApplication()
	other.Program = "B.Sc Physics"
	_, err = svc.Apply(ctx, other)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, rbac.Principal{ID: "ST"}, app.ID, StatusInput{Status: string(StatusRejected)})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, validApplication())
	assert.NoError(t, err, "a decided application does not block a new one")
}

func TestDecisionsNotifyApplicant(t *testing.T) {
	ctx := context.Background()
	notifier := &notifierStub{}
	svc := NewService(NewRepository(docstore.NewMemory()), nil, notifier, nil)
	reviewer := rbac.Principal{ID: "ST", Role: rbac.RoleStaff}

	app, err := svc.Apply(ctx, validApplication())
	require.NoError(t, err)

	app, err = svc.UpdateStatus(ctx, reviewer, app.ID, StatusInput{Status: string(StatusUnderReview)})
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, app.Status)
	assert.Equal(t, "ST", app.ReviewedBy)
	assert.Empty(t, notifier.sent)

	app, err = svc.UpdateStatus(ctx, reviewer, app.ID, StatusInput{Status: string(StatusApproved), Remarks: "Scholarship eligible"})
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	mail := notifier.sent[0]
	assert.Equal(t, "asha@example.com", mail.To)
	assert.Equal(t, "Admission decision: B.Tech CSE", mail.Subject)
	assert.Contains(t, mail.Body, "has been approved")
	assert.Contains(t, mail.Body, "Scholarship eligible")

	_, err = svc.UpdateStatus(ctx, reviewer, app.ID, StatusInput{Status: string(StatusRejected)})
	assert.Equal(t, ErrInvalidTransition, err)
}

func TestNotifierFailureKeepsDecision(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(docstore.NewMemory()), nil, &notifierStub{err: errors.New("redis down")}, nil)
	app, err := svc.Apply(ctx, validApplication())
	require.NoError(t, err)

	app, err = svc.UpdateStatus(ctx, rbac.Principal{ID: "A"}, app.ID, StatusInput{Status: string(StatusRejected)})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, app.Status)
	assert.NotNil(t, app.ReviewedAt)
}
