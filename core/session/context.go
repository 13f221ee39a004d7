package session

import "context"

type ctxKey int

const (
	storeKey ctxKey = iota
	sidKey
)

// ContextWithStore attaches the per-request session store to ctx so that
// downstream collaborators (gateway teardown hook, notifiers) can reach it.
func ContextWithStore(ctx context.Context, st *Store) context.Context {
	return context.WithValue(ctx, storeKey, st)
}

func StoreFromContext(ctx context.Context) (*Store, bool) {
	st, ok := ctx.Value(storeKey).(*Store)
	return st, ok
}

func ContextWithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sidKey, sid)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sidKey).(string)
	return sid, ok
}
