package httpx

import (
	"context"

	"github.com/wattlehq/partnerdesk/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRole   ctxKey = "role"
	CtxKeyClaims ctxKey = "claims"
)

// UserIDFromCtx returns the authenticated user's id, or "" when the request
// carried no valid session.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

func roleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromCtx returns the full session claims when present.
func ClaimsFromCtx(ctx context.Context) (jwtx.SessionClaims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.SessionClaims)
	return c, ok
}
