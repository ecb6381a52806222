package port

import "context"

// AuditSink records workflow actions for the audit trail. Failures are
// logged by callers, never propagated: the workflow transition itself is
// the source of truth.
type AuditSink interface {
	Record(ctx context.Context, contentID, actor, action, details string) error
}

// Notifier requests a notification for a user. Delivery is owned by an
// external dispatcher; the engine treats Send as fire-and-forget and
// never blocks on its outcome.
type Notifier interface {
	Send(ctx context.Context, userID, kind, title, message string, urgent bool) error
}
