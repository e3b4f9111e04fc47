package fees

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/platform/cache"
	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/report"
)

const idempotencyScope = "fees"

// RepositoryPort defines data access methods for fees.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*Fee, error)
	List(ctx context.Context, filter ListFilter) ([]Fee, error)
	DueBefore(ctx context.Context, status Status, t time.Time) ([]Fee, error)
	Create(ctx context.Context, f Fee) (*Fee, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
	StudentExists(ctx context.Context, studentID string) (bool, error)
}

// LockPort serialises payments per fee.
type LockPort interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// IdempotencyPort rejects replayed payment requests.
type IdempotencyPort interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// ReceiptRenderer turns a receipt into a PDF.
type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, receipt report.Receipt) ([]byte, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles fees and payments.
type Service struct {
	repo     RepositoryPort
	locks    LockPort
	idem     IdempotencyPort
	receipts ReceiptRenderer
	audit    AuditPort
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLocks serialises payments on the same fee.
func WithLocks(l LockPort) Option {
	return func(s *Service) { s.locks = l }
}

// WithIdempotency enables Idempotency-Key handling for payments.
func WithIdempotency(i IdempotencyPort) Option {
	return func(s *Service) { s.idem = i }
}

// WithReceipts enables PDF receipts.
func WithReceipts(r ReceiptRenderer) Option {
	return func(s *Service) { s.receipts = r }
}

// WithAudit records payments and fee creation.
func WithAudit(a AuditPort) Option {
	return func(s *Service) { s.audit = a }
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create raises a new pending fee against an existing student.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (*Fee, error) {
	due, err := time.Parse(time.DateOnly, in.DueDate)
	if err != nil {
		return nil, httpx.Invalid("dueDate must be YYYY-MM-DD.")
	}
	ok, err := s.repo.StudentExists(ctx, strings.TrimSpace(in.StudentID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStudentNotFound
	}
	fee, err := s.repo.Create(ctx, Fee{
		StudentID:    strings.TrimSpace(in.StudentID),
		Type:         in.Type,
		Description:  strings.TrimSpace(in.Description),
		Amount:       roundMoney(in.Amount),
		DueDate:      due.UTC(),
		Status:       StatusPending,
		AcademicYear: strings.TrimSpace(in.AcademicYear),
		Payments:     []Payment{},
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "fees:create", fee.ID, map[string]any{"amount": fee.Amount})
	return fee, nil
}

// Get returns one fee.
func (s *Service) Get(ctx context.Context, id string) (*Fee, error) {
	return s.repo.Get(ctx, id)
}

// List returns fees matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Fee, error) {
	return s.repo.List(ctx, filter)
}

// ForStudent returns all fees of a student.
func (s *Service) ForStudent(ctx context.Context, studentID string) ([]Fee, error) {
	return s.repo.List(ctx, ListFilter{StudentID: studentID})
}

// Summary totals the fees of a student.
func (s *Service) Summary(ctx context.Context, studentID string) (Summary, error) {
	list, err := s.repo.List(ctx, ListFilter{StudentID: studentID})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{StudentID: studentID, ByStatus: map[Status]int{}}
	for _, f := range list {
		sum.TotalAmount += f.Amount
		sum.TotalPaid += f.AmountPaid
		sum.ByStatus[f.Status]++
	}
	sum.TotalAmount = roundMoney(sum.TotalAmount)
	sum.TotalPaid = roundMoney(sum.TotalPaid)
	sum.Outstanding = roundMoney(sum.TotalAmount - sum.TotalPaid)
	return sum, nil
}

// RecordPayment applies a payment to a fee. Payments on the same fee are serialised and a
// non-empty key makes the request safe to retry.
func (s *Service) RecordPayment(ctx context.Context, actor rbac.Principal, feeID, key string, in PaymentInput) (*Fee, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, shared.FeeLockKey(feeID))
		if err != nil {
			return nil, err
		}
		defer release()
	}
	if key != "" && s.idem != nil {
		if err := s.idem.Claim(ctx, idempotencyScope, feeID+":"+key); err != nil {
			return nil, err
		}
	}
	fee, err := s.applyPayment(ctx, actor, feeID, in)
	if err != nil && key != "" && s.idem != nil {
		_ = s.idem.Release(ctx, idempotencyScope, feeID+":"+key)
	}
	return fee, err
}

func (s *Service) applyPayment(ctx context.Context, actor rbac.Principal, feeID string, in PaymentInput) (*Fee, error) {
	fee, err := s.repo.Get(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if fee.Status == StatusPaid {
		return nil, ErrAlreadyPaid
	}
	amount := roundMoney(in.Amount)
	if amount > fee.Outstanding() {
		return nil, ErrOverpayment
	}
	payment := Payment{
		ID:         uuid.NewString(),
		Amount:     amount,
		Method:     in.Method,
		Reference:  strings.TrimSpace(in.Reference),
		PaidAt:     s.now().UTC(),
		RecordedBy: actor.ID,
	}
	paid := roundMoney(fee.AmountPaid + amount)
	fields := docstore.Document{
		"amountPaid": paid,
		"status":     string(statusAfterPayment(fee.Amount, paid)),
		"payments":   append(fee.Payments, payment),
	}
	if err := s.repo.Update(ctx, feeID, fields); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "fees:payment", feeID, map[string]any{"amount": amount, "paymentId": payment.ID})
	return s.repo.Get(ctx, feeID)
}

// MarkOverdue moves pending and partial fees due before now to overdue and returns them.
// Each fee is re-read under its payment lock, so a payment that lands between the scan
// and the update wins. Fees locked by an in-flight payment are left for the next scan.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) ([]Fee, error) {
	var marked []Fee
	for _, status := range []Status{StatusPending, StatusPartial} {
		due, err := s.repo.DueBefore(ctx, status, now)
		if err != nil {
			return marked, err
		}
		for _, candidate := range due {
			fee, err := s.markOverdue(ctx, candidate.ID, now)
			if err != nil {
				return marked, err
			}
			if fee != nil {
				marked = append(marked, *fee)
			}
		}
	}
	return marked, nil
}

// markOverdue returns nil when the fee no longer qualifies.
func (s *Service) markOverdue(ctx context.Context, id string, now time.Time) (*Fee, error) {
	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, shared.FeeLockKey(id))
		if errors.Is(err, cache.ErrLocked) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer release()
	}
	fee, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrFeeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if (fee.Status != StatusPending && fee.Status != StatusPartial) || !fee.DueDate.Before(now) {
		return nil, nil
	}
	if err := s.repo.Update(ctx, id, docstore.Document{"status": string(StatusOverdue)}); err != nil {
		return nil, err
	}
	fee.Status = StatusOverdue
	return fee, nil
}

// Receipt renders a PDF receipt for a fee of the student. A fee belonging to another
// student is reported as not found.
func (s *Service) Receipt(ctx context.Context, studentID, feeID string) ([]byte, error) {
	fee, err := s.repo.Get(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if fee.StudentID != studentID {
		return nil, ErrFeeNotFound
	}
	if s.receipts == nil {
		return nil, errors.New("fees: receipts not configured")
	}
	lines := make([]report.ReceiptLine, 0, len(fee.Payments))
	for _, p := range fee.Payments {
		lines = append(lines, report.ReceiptLine{PaidAt: p.PaidAt, Method: p.Method, Reference: p.Reference, Amount: p.Amount})
	}
	return s.receipts.RenderReceipt(ctx, report.Receipt{
		FeeID:       fee.ID,
		StudentID:   fee.StudentID,
		Type:        fee.Type,
		Description: fee.Description,
		Amount:      fee.Amount,
		AmountPaid:  fee.AmountPaid,
		Outstanding: fee.Outstanding(),
		Status:      string(fee.Status),
		DueDate:     fee.DueDate,
		Payments:    lines,
		IssuedAt:    s.now().UTC(),
	})
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   shared.CollectionFees,
		EntityID: id,
		Meta:     meta,
	})
}
