// Package reqctx carries request-scoped values through context.Context:
// request metadata set by the HTTP middleware and the verified token
// claims of authenticated callers.
//
// Keys are unexported; use the typed getters and setters.
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: rid})
//	ctx = reqctx.WithClaims(ctx, claims)
//
//	if reqctx.IsAuthenticated(ctx) {
//	    id, _ := reqctx.UserIDFromContext(ctx)
//	}
//
// RequestMeta is set for every HTTP request. Claims are set only when a
// valid access token was presented. Trace identifiers come from the
// OpenTelemetry span in the context.
package reqctx
