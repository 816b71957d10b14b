package memory

import "context"

type contextKey string

const transactionKey contextKey = "memoryStoreTransaction"

func withTransaction(ctx context.Context, v *view) context.Context {
	return context.WithValue(ctx, transactionKey, v)
}

func transactionFromContext(ctx context.Context) (*view, bool) {
	v, ok := ctx.Value(transactionKey).(*view)
	return v, ok && v != nil
}
