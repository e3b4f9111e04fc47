package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
)

// AuditLog is one entry of the auditLogs collection.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) missing() []string {
	var out []string
	if l.Action == "" {
		out = append(out, "action")
	}
	if l.Entity == "" {
		out = append(out, "entity")
	}
	if l.EntityID == "" {
		out = append(out, "entityId")
	}
	return out
}

// AuditLogger appends entries to the auditLogs collection under generated ids.
type AuditLogger struct {
	store docstore.Store
	now   func() time.Time
}

// NewAuditLogger writes to store.
func NewAuditLogger(store docstore.Store) *AuditLogger {
	return &AuditLogger{store: store, now: time.Now}
}

// Record stores entry. A zero At is stamped with the current time.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.store == nil {
		return errors.New("audit: no store configured")
	}
	if missing := entry.missing(); len(missing) > 0 {
		return fmt.Errorf("audit: entry lacks %s", strings.Join(missing, ", "))
	}
	at := entry.At
	if at.IsZero() {
		at = l.now()
	}
	_, err := docstore.Create(ctx, l.store, CollectionAuditLogs, docstore.Document{
		"actorId":    entry.ActorID,
		"action":     entry.Action,
		"entity":     entry.Entity,
		"entityId":   entry.EntityID,
		"meta":       entry.Meta,
		"occurredAt": at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", entry.Action, err)
	}
	return nil
}
