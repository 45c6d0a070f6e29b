package stt

import "context"

// ProgressFunc is told how far one recognition got. A call with done == 0
// announces total, the number of pieces the audio was split into; each
// finished piece follows with done counting up to total.
type ProgressFunc func(done, total int)

type progressKey struct{}

// WithProgress attaches fn to ctx; recognizers report through it.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress calls the ProgressFunc carried by ctx, if any.
func ReportProgress(ctx context.Context, done, total int) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok {
		fn(done, total)
	}
}
