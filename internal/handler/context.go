package handler

import "context"

type ContextKey string

var (
	PrincipalCtxKey ContextKey = "principal"
)

// Principal 是当前请求的操作者，由 JWT 中的 claims 得到
type Principal struct {
	Username string
	Admin    bool
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalCtxKey).(Principal)
	return p, ok
}
