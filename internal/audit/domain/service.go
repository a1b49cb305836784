package domain

import "context"

// Service appends audit entries. Recording is best-effort: callers log
// failures but never fail the user action over a missing audit row.
type Service interface {
	Record(ctx context.Context, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error
}
