package shared

import (
	"context"
	"strconv"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ActorIDFromContext returns the numeric user id of the authenticated actor,
// or 0 when the request is unauthenticated.
func ActorIDFromContext(ctx context.Context) int64 {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
