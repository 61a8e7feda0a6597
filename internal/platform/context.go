package platform

import "context"

type requestMetaKey struct{}

// RequestMeta carries per-request values forwarded to the platform.
type RequestMeta struct {
	CSRFToken     string
	CorrelationID string
	Cookie        string
}

// WithRequestMeta attaches forwarding metadata to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// MetaFromContext returns the forwarding metadata of ctx, or the zero value.
func MetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}
