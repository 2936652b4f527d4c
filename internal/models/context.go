package models

import "context"

type requestMetaKey struct{}

// RequestMeta carries client details recorded on refresh sessions.
type RequestMeta struct {
	UserAgent string
	IpAddress string
}

// WithRequestMeta attaches client details to a context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// GetRequestMeta retrieves client details from context, or the zero value if absent.
func GetRequestMeta(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
