package services

import "context"

// RequestMeta is client metadata recorded on payment audit rows
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceType string
}

type requestMetaKey struct{}

// WithRequestMeta attaches client metadata to ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
