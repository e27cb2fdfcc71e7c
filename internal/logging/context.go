package logging

import "context"

type fieldsKey struct{}

// ContextWith returns a copy of ctx carrying key/value pairs that both
// backends add to every entry logged with that context, e.g. the request id
// set by the HTTP access log middleware.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields returns the pairs stored by ContextWith, or nil.
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).([]any)
	return f
}

// withFields prepends the context pairs to args.
func withFields(ctx context.Context, args []any) []any {
	f := Fields(ctx)
	if len(f) == 0 {
		return args
	}
	out := make([]any, 0, len(f)+len(args))
	out = append(out, f...)
	return append(out, args...)
}
