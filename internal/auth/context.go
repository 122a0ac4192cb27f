package auth

import "context"

type contextKey string

const (
	contextKeyRole    contextKey = "auth.role"
	contextKeySubject contextKey = "auth.subject"
)

// WithIdentity stores the caller's role and subject in context.
func WithIdentity(ctx context.Context, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeyRole, role)
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	return ctx
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	if role, ok := ctx.Value(contextKeyRole).(Role); ok {
		return role
	}
	return ""
}

// SubjectFromContext extracts subject from context. Unauthenticated
// requests yield "anonymous".
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return "anonymous"
	}
	if subject, ok := ctx.Value(contextKeySubject).(string); ok && subject != "" {
		return subject
	}
	return "anonymous"
}
