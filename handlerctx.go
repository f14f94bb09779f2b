package toolkit

import (
	"context"

	"github.com/imagetoolkit/toolkit-go/internal/hctx"
)

// SetProgress allows a handler to report real progress (0..100) for the
// current item, should its backend support fractional progress. It is a no-op
// if the context is not provided by the queue runtime.
func SetProgress(ctx context.Context, p int) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return
	}
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	st.Progress = p
}

// SetOutputFormat records the output format a handler actually encoded to,
// keeping the generated filename consistent with the produced bytes. It is
// safe to call multiple times; last wins. It is a no-op if the context is not
// provided by the queue runtime.
func SetOutputFormat(ctx context.Context, format string) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return
	}
	st.OutputFormat = format
}
