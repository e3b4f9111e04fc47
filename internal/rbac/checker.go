package rbac

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Checker decides ownership-scoped access for student and hostel records.
// Each check reads at most one document and keeps nothing between calls.
type Checker struct {
	store docstore.Getter
}

// NewChecker builds a Checker reading from store.
func NewChecker(store docstore.Getter) *Checker {
	return &Checker{store: store}
}

var (
	errNotOwnStudent = shared.NewAuthzError(shared.AuthzForbidden, shared.MsgOwnStudentOnly)
	errNotOwnHostel  = shared.NewAuthzError(shared.AuthzForbidden, shared.MsgOwnHostelOnly)
)

// CheckStudentAccess allows admin and staff unconditionally and a student only for the
// record whose userId is their own. A missing record is refused like a foreign one.
func (c *Checker) CheckStudentAccess(ctx context.Context, p Principal, studentID string) error {
	switch p.Role {
	case RoleAdmin, RoleStaff:
		return nil
	case RoleStudent:
	default:
		return errNotOwnStudent
	}
	if studentID == "" {
		return errNotOwnStudent
	}
	doc, err := c.store.Get(ctx, shared.CollectionStudents, studentID)
	if err != nil {
		return fmt.Errorf("rbac: load student: %w", err)
	}
	if doc == nil {
		return errNotOwnStudent
	}
	owner, _ := doc["userId"].(string)
	if owner == "" || owner != p.ID {
		return errNotOwnStudent
	}
	return nil
}

// CheckHostelAccess allows admin unconditionally and a warden for the hostel they are
// assigned to. A warden without a target hostel passes; listing handlers narrow results.
func (c *Checker) CheckHostelAccess(ctx context.Context, p Principal, hostelID string) error {
	switch p.Role {
	case RoleAdmin:
		return nil
	case RoleWarden:
	default:
		return errNotOwnHostel
	}
	if hostelID == "" {
		return nil
	}
	doc, err := c.store.Get(ctx, shared.CollectionHostels, hostelID)
	if err != nil {
		return fmt.Errorf("rbac: load hostel: %w", err)
	}
	if doc == nil {
		return errNotOwnHostel
	}
	owner, _ := doc.Lookup("warden.userId")
	if id, ok := owner.(string); !ok || id == "" || id != p.ID {
		return errNotOwnHostel
	}
	return nil
}
