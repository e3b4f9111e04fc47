// Package dashboard aggregates institution-wide counts for administrators.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/campus-erp/internal/admissions"
	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/exams"
	"github.com/odyssey-erp/campus-erp/internal/fees"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/students"
)

// Counter counts documents matching filters. docstore.Store satisfies it.
type Counter interface {
	Count(ctx context.Context, collection string, filters ...docstore.Filter) (int, error)
}

// Stats is the dashboard summary.
type Stats struct {
	TotalStudents     int       `json:"totalStudents"`
	ActiveStudents    int       `json:"activeStudents"`
	TotalHostels      int       `json:"totalHostels"`
	PendingFees       int       `json:"pendingFees"`
	OverdueFees       int       `json:"overdueFees"`
	PendingAdmissions int       `json:"pendingAdmissions"`
	ScheduledExams    int       `json:"scheduledExams"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// Service computes dashboard statistics, caching them when a cache is configured.
type Service struct {
	counter Counter
	cache   *Cache
	now     func() time.Time
}

// NewService wires a Counter with an optional Cache.
func NewService(counter Counter, cache *Cache) *Service {
	return &Service{counter: counter, cache: cache, now: time.Now}
}

// Stats returns the cached summary or computes a fresh one.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return cached(ctx, s.cache, "stats", s.compute)
}

// Refresh drops cached statistics so the next read recomputes them.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("dashboard: invalidate cache: %w", err)
	}
	return nil
}

type countSpec struct {
	dest       *int
	collection string
	filters    []docstore.Filter
}

func statusIs(v string) []docstore.Filter {
	return []docstore.Filter{docstore.Where("status", docstore.OpEqual, v)}
}

func (s *Service) compute(ctx context.Context) (Stats, error) {
	out := Stats{GeneratedAt: s.now().UTC()}
	specs := []countSpec{
		{&out.TotalStudents, shared.CollectionStudents, nil},
		{&out.ActiveStudents, shared.CollectionStudents, statusIs(string(students.StatusActive))},
		{&out.TotalHostels, shared.CollectionHostels, nil},
		{&out.PendingFees, shared.CollectionFees, statusIs(string(fees.StatusPending))},
		{&out.OverdueFees, shared.CollectionFees, statusIs(string(fees.StatusOverdue))},
		{&out.PendingAdmissions, shared.CollectionAdmissions, statusIs(string(admissions.StatusPending))},
		{&out.ScheduledExams, shared.CollectionExams, statusIs(string(exams.StatusScheduled))},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		g.Go(func() error {
			n, err := s.counter.Count(gctx, spec.collection, spec.filters...)
			if err != nil {
				return fmt.Errorf("dashboard: count %s: %w", spec.collection, err)
			}
			*spec.dest = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return out, nil
}
