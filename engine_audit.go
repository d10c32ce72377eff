package authgate

import (
	"context"

	internalaudit "github.com/seralis/authgate/internal/audit"
	"github.com/seralis/authgate/session"
)

// emitAudit captures the current session's identity fields itself;
// emitAuditFor takes an explicit view for paths that just reset the
// session and need the pre-reset identity on the event.

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, err error, meta map[string]string) {
	e.emitAuditFor(ctx, eventType, success, e.store.View(), err, meta)
}

func (e *Engine) emitAuditFor(ctx context.Context, eventType string, success bool, view session.Session, err error, meta map[string]string) {
	if e.audit == nil {
		return
	}

	event := internalaudit.Event{
		EventID:   internalaudit.NewEventID(),
		Timestamp: e.now(),
		EventType: eventType,
		DeviceID:  view.Context.DeviceID,
		IP:        view.Context.IPAddress,
		Success:   success,
		Metadata:  meta,
	}
	if view.User != nil {
		event.UserID = view.User.ID
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}
