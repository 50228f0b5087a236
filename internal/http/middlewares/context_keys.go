package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
	ctxNameKey   = "auth.name"
)

type ctxKey string

// KeyUserID is the context.Context key used below gin (repos, logging).
const KeyUserID ctxKey = "user_id"
