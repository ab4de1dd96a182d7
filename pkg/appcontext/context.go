package appcontext

import "context"

type ContextKey string

var (
	RequestIDKey  = ContextKey("X-Request-Id")
	MethodKey     = ContextKey("X-Method")
	RouteKey      = ContextKey("X-Route")
	RemoteIPKey   = ContextKey("X-Remote-Ip")
	UserIDKey     = ContextKey("X-User-Id")
	ConsumerIDKey = ContextKey("X-Consumer-Id")
	PermissionKey = ContextKey("X-Permission")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	value, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	value, ok := ctx.Value(MethodKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	value, ok := ctx.Value(RouteKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	value, ok := ctx.Value(RemoteIPKey).(string)
	if !ok {
		return ""
	}
	return value
}

// SetConsumerID records the plugin/consumer identity crossing the boundary
func SetConsumerID(ctx context.Context, consumerID string) context.Context {
	return context.WithValue(ctx, ConsumerIDKey, consumerID)
}

func GetConsumerID(ctx context.Context) string {
	value, ok := ctx.Value(ConsumerIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// SetPermission records the granted access level for the request
func SetPermission(ctx context.Context, permission string) context.Context {
	return context.WithValue(ctx, PermissionKey, permission)
}

func GetPermission(ctx context.Context) string {
	value, ok := ctx.Value(PermissionKey).(string)
	if !ok {
		return ""
	}
	return value
}
