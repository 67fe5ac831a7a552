package gateway

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type routeInfoKey struct{}

// RouteInfo reports how the router resolved a request.
type RouteInfo struct {
	// Provider is the configured provider the request was sent to. It stays
	// empty when the request was rejected before resolution.
	Provider string
}

// WithRouteInfo returns a context whose RouteInfo the router fills in, and
// that RouteInfo.
func WithRouteInfo(ctx context.Context) (context.Context, *RouteInfo) {
	info := &RouteInfo{}
	return context.WithValue(ctx, routeInfoKey{}, info), info
}

func recordRoute(ctx context.Context, provider string) {
	if info, ok := ctx.Value(routeInfoKey{}).(*RouteInfo); ok {
		info.Provider = provider
	}
}
