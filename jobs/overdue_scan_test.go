package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/fees"
	jobmetrics "github.com/odyssey-erp/campus-erp/internal/jobs"
	"github.com/odyssey-erp/campus-erp/internal/students"
)

type markerStub struct {
	asOf   time.Time
	marked []fees.Fee
	err    error
}

func (m *markerStub) MarkOverdue(_ context.Context, now time.Time) ([]fees.Fee, error) {
	m.asOf = now
	return m.marked, m.err
}

type studentsStub map[string]*students.Student

func (s studentsStub) Get(_ context.Context, id string) (*students.Student, error) {
	if st, ok := s[id]; ok {
		return st, nil
	}
	return nil, students.ErrStudentNotFound
}

type mailStub struct {
	sent []SendEmailPayload
	fail bool
}

func (m *mailStub) EnqueueSendEmail(_ context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	if m.fail {
		return nil, errors.New("redis unavailable")
	}
	m.sent = append(m.sent, payload)
	return &asynq.TaskInfo{Queue: QueueDefault}, nil
}

func overdueFees() []fees.Fee {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []fees.Fee{
		{ID: "F1", StudentID: "S1", Type: "tuition", Amount: 50000, AmountPaid: 20000, DueDate: due, Status: fees.StatusOverdue},
		{ID: "F2", StudentID: "S2", Type: "hostel", Amount: 12000, DueDate: due, Status: fees.StatusOverdue},
		{ID: "F3", StudentID: "missing", Type: "library", Amount: 500, DueDate: due, Status: fees.StatusOverdue},
	}
}

func TestOverdueScanRemindsStudents(t *testing.T) {
	marker := &markerStub{marked: overdueFees()}
	mail := &mailStub{}
	dir := studentsStub{
		"S1": {ID: "S1", Name: "Asha Rao", Email: "asha@campus.test"},
		"S2": {ID: "S2", Name: "No Mail"},
	}
	job := NewOverdueScanJob(marker, dir, mail, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	fixed := time.Date(2026, 4, 2, 1, 30, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	task, err := NewOverdueScanTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, fixed, marker.asOf)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "asha@campus.test", mail.sent[0].To)
	assert.Equal(t, "Fee overdue: tuition", mail.sent[0].Subject)
	assert.Contains(t, mail.sent[0].Body, "was due on 01 Mar 2026")
	assert.Contains(t, mail.sent[0].Body, "outstanding balance is 30000.00")
}

func TestOverdueScanPinnedDate(t *testing.T) {
	marker := &markerStub{}
	job := NewOverdueScanJob(marker, nil, nil, nil, nil)
	task, err := NewOverdueScanTask("2026-01-15")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), marker.asOf)

	bad, err := NewOverdueScanTask("15/01/2026")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestOverdueScanFailures(t *testing.T) {
	boom := errors.New("store down")
	job := NewOverdueScanJob(&markerStub{err: boom}, nil, nil, nil, nil)
	task, err := NewOverdueScanTask("")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)

	mail := &mailStub{fail: true}
	dir := studentsStub{"S1": {ID: "S1", Email: "a@campus.test"}}
	job = NewOverdueScanJob(&markerStub{marked: overdueFees()[:1]}, dir, mail, nil, nil)
	assert.NoError(t, job.Handle(context.Background(), task), "reminder failures do not fail the scan")

	var unset *OverdueScanJob
	assert.Error(t, unset.Handle(context.Background(), task))
}

func TestMailJobSkipsMalformedPayloads(t *testing.T) {
	job := NewMailJob(nil)
	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{"))), asynq.SkipRetry)
	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte(`{"subject":"x"}`))), asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@campus.test", Subject: "Hello"})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

type inspectorStub struct {
	info *asynq.QueueInfo
	err  error
}

func (i inspectorStub) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return i.info, i.err
}

func TestHealthEndpoint(t *testing.T) {
	serve := func(h *Handler) (*httptest.ResponseRecorder, QueueHealth) {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		var out QueueHealth
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	rec, out := serve(NewHandler(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, QueueHealth{Queue: QueueDefault}, out)

	rec, out = serve(NewHandler(inspectorStub{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Active: 1, Retry: 2, Paused: true}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, QueueHealth{Queue: "default", Paused: true, Pending: 4, Active: 1, Retry: 2}, out)

	rec, _ = serve(NewHandler(inspectorStub{err: errors.New("no redis")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
