package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// PrincipalResolver turns an Authorization header into an active principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, authorization string) (Principal, error)
}

// DecisionRecorder counts authorization outcomes per pipeline stage.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, stage, outcome string)
}

// Pipeline stages reported to the DecisionRecorder.
const (
	StageAuthenticate = "authenticate"
	StageRole         = "role"
	StageStudent      = "student_ownership"
	StageHostel       = "hostel_ownership"
)

// Decision outcomes.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

const (
	msgCheckFailed  = "Authorization check failed."
	msgBodyTooLarge = "Request body too large."
)

// MaxInspectBody bounds the JSON body an ownership gate reads to find its target id.
const MaxInspectBody = 1 << 20

// ErrBodyTooLarge is returned by TargetID when the body exceeds MaxInspectBody.
var ErrBodyTooLarge = errors.New("rbac: request body too large")

type targetKey struct{ field string }

// Middleware wires the authorization pipeline into chi routes:
// Authenticate, then RequireRoles, then an optional ownership gate. Every gate is a hard
// stop and later gates never run after a refusal.
type Middleware struct {
	Resolver PrincipalResolver
	Checker  *Checker
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// Authenticate resolves the bearer credential and stores the principal in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.Resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			m.fail(w, r, StageAuthenticate, err)
			return
		}
		m.record(r.Context(), StageAuthenticate, OutcomeAllow)
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireRoles lets the request through only when the principal's role is in roles.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	allowed := Roles(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				m.fail(w, r, StageRole, shared.NewAuthError(shared.AuthMissingOrMalformed))
				return
			}
			if !CanAccess(p.Role, allowed) {
				m.fail(w, r, StageRole, shared.NewAuthzError(shared.AuthzInsufficientRole, shared.MsgInsufficientRole))
				return
			}
			m.record(r.Context(), StageRole, OutcomeAllow)
			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeStudentAccess applies the student ownership check to the record named by the
// field route parameter or, failing that, the JSON body field of the same name.
func (m Middleware) AuthorizeStudentAccess(field string) func(http.Handler) http.Handler {
	return m.ownership(StageStudent, field, m.Checker.CheckStudentAccess)
}

// AuthorizeHostelAccess applies the hostel ownership check in the same way.
func (m Middleware) AuthorizeHostelAccess(field string) func(http.Handler) http.Handler {
	return m.ownership(StageHostel, field, m.Checker.CheckHostelAccess)
}

type ownershipCheck func(ctx context.Context, p Principal, id string) error

func (m Middleware) ownership(stage, field string, check ownershipCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				m.fail(w, r, stage, shared.NewAuthError(shared.AuthMissingOrMalformed))
				return
			}
			id, err := TargetID(r, field)
			if err != nil {
				m.fail(w, r, stage, err)
				return
			}
			if err := check(r.Context(), p, id); err != nil {
				m.fail(w, r, stage, err)
				return
			}
			m.record(r.Context(), stage, OutcomeAllow)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), targetKey{field}, id)))
		})
	}
}

// CheckedTarget returns the id an ownership gate verified for field on this request.
// Handlers that bind the same field from the body compare against it.
func CheckedTarget(r *http.Request, field string) (string, bool) {
	id, ok := r.Context().Value(targetKey{field}).(string)
	return id, ok
}

// TargetID returns the record id named field from the route or the JSON body. The body is
// left readable for the next handler. Body keys are matched the way encoding/json binds
// struct fields: case-insensitively, with the last matching key winning.
func TargetID(r *http.Request, field string) (string, error) {
	if id := strings.TrimSpace(chi.URLParam(r, field)); id != "" {
		return id, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxInspectBody+1))
	if err != nil {
		_ = r.Body.Close()
		return "", err
	}
	if len(raw) > MaxInspectBody {
		_ = r.Body.Close()
		return "", ErrBodyTooLarge
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	return bodyField(raw, field), nil
}

// bodyField walks the top-level object in document order. Anything that is not an object,
// or a matching value that is not a string, yields "".
func bodyField(raw []byte, field string) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	var id string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return ""
		}
		if !strings.EqualFold(key, field) {
			continue
		}
		id = ""
		_ = json.Unmarshal(value, &id)
	}
	return strings.TrimSpace(id)
}

func (m Middleware) fail(w http.ResponseWriter, r *http.Request, stage string, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		m.record(r.Context(), stage, OutcomeDeny)
		httpx.Fail(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	if ae, ok := shared.AsAuthError(err); ok {
		m.record(r.Context(), stage, OutcomeDeny)
		httpx.Fail(w, http.StatusUnauthorized, ae.Message())
		return
	}
	if ze, ok := shared.AsAuthzError(err); ok {
		m.record(r.Context(), stage, OutcomeDeny)
		httpx.Fail(w, http.StatusForbidden, ze.Message())
		return
	}
	m.record(r.Context(), stage, OutcomeError)
	if m.Logger != nil {
		attrs := []any{slog.String("stage", stage), slog.String("path", r.URL.Path), slog.Any("error", err)}
		var se *docstore.StorageError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.String("collection", se.Collection), slog.String("id", se.ID))
		}
		m.Logger.Error("authorization check failed", attrs...)
	}
	httpx.Fail(w, http.StatusInternalServerError, msgCheckFailed)
}

func (m Middleware) record(ctx context.Context, stage, outcome string) {
	if m.Metrics != nil {
		m.Metrics.RecordDecision(ctx, stage, outcome)
	}
}

// CurrentPrincipal returns the principal or panics when Authenticate did not run. Handlers
// mounted behind Authenticate use it.
func CurrentPrincipal(r *http.Request) Principal {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		panic("rbac: principal missing from context")
	}
	return p
}
