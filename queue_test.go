package toolkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestQueue(img ImageBackend, pdf PDFBackend, ms int64) *Queue {
	return NewQueue(DefaultMux(img, pdf),
		WithTicker(NopTicker{}),
		WithClock(func() time.Time { return time.UnixMilli(ms) }),
	)
}

func TestQueue_EnqueueAssignsDistinctIDs(t *testing.T) {
	q := newTestQueue(&fakeImageBackend{out: []byte("x")}, nil, 1000)
	f := NewFile("a.png", "image/png", []byte("0123456789"))

	first := q.Enqueue([]*File{f, f}, OpCompress, nil)
	second := q.Enqueue([]*File{f}, OpCompress, nil)

	require.Len(t, first, 2)
	require.Len(t, second, 1)
	require.Equal(t, 3, q.Len())

	seen := map[string]bool{}
	for _, it := range q.Items() {
		require.Equal(t, StatusQueued, it.Status)
		require.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}

func TestQueue_RunAll_Lifecycle(t *testing.T) {
	img := &fakeImageBackend{out: []byte("tiny")}
	q := newTestQueue(img, nil, 1700000000000)

	f := NewFile("photo.png", "image/png", []byte("0123456789"))
	q.Enqueue([]*File{f}, OpCompress, CompressOptions{Format: "original"})

	var percents []int
	done := q.RunAll(context.Background(), func(current, total, percent int) {
		require.Equal(t, 1, current)
		require.Equal(t, 1, total)
		percents = append(percents, percent)
	})

	require.Len(t, done, 1)
	it := done[0]
	require.Equal(t, StatusCompleted, it.Status)
	require.Equal(t, 100, it.Progress)
	require.Equal(t, int64(1700000000000), it.StartedAt)
	require.Equal(t, int64(1700000000000), it.CompletedAt)
	require.Empty(t, it.Err)

	require.NotNil(t, it.Result)
	require.Equal(t, int64(10), it.Result.OriginalSize)
	require.Equal(t, int64(4), it.Result.ProcessedSize)
	require.Equal(t, int64(6), it.Result.SavedBytes)
	// png cannot be compressed losslessly here, so "original" fell back
	require.Equal(t, "photo_compress_1700000000000.jpeg", it.Result.Filename)

	require.Equal(t, []int{100}, percents)
}

func TestQueue_RunAll_MiddleFailureDoesNotAbortBatch(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x"), failOn: "bad.png"}
	q := newTestQueue(img, nil, 1000)

	files := []*File{
		NewFile("a.png", "image/png", []byte("0123456789")),
		NewFile("bad.png", "image/png", []byte("0123456789")),
		NewFile("c.png", "image/png", []byte("0123456789")),
	}
	q.Enqueue(files, OpCompress, nil)

	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 3)

	require.Equal(t, StatusCompleted, done[0].Status)
	require.Equal(t, StatusFailed, done[1].Status)
	require.Equal(t, StatusCompleted, done[2].Status)

	require.Contains(t, done[1].Err, "boom")
	require.Nil(t, done[1].Result)
	require.NotZero(t, done[1].CompletedAt)
	require.NotNil(t, done[2].Result)
}

func TestQueue_RunAll_ReentrantCallIsNoop(t *testing.T) {
	m := NewMux()
	var q *Queue
	m.Handle("op", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		if nested := q.RunAll(ctx, nil); nested != nil {
			t.Error("nested RunAll must be a no-op")
		}
		return &Blob{Data: []byte("x"), Type: "image/png"}, nil
	})
	q = NewQueue(m, WithTicker(NopTicker{}))

	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, "op", nil)
	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 1)
	require.Equal(t, StatusCompleted, done[0].Status)
}

func TestQueue_RunAll_SkipsTerminalItems(t *testing.T) {
	img := &fakeImageBackend{out: []byte("x")}
	q := newTestQueue(img, nil, 1000)

	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, OpCompress, nil)
	require.Len(t, q.RunAll(context.Background(), nil), 1)
	calls := len(img.calls)

	// a second run finds nothing queued and must not re-dispatch
	require.Empty(t, q.RunAll(context.Background(), nil))
	require.Equal(t, calls, len(img.calls))
}

func TestQueue_SavedBytesNeverNegative(t *testing.T) {
	// output larger than input
	img := &fakeImageBackend{out: []byte("a much larger output than the input was")}
	q := newTestQueue(img, nil, 1000)

	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("tiny"))}, OpCompress, nil)
	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 1)
	require.Equal(t, StatusCompleted, done[0].Status)
	require.Zero(t, done[0].Result.SavedBytes)
}

func TestQueue_ClearMidFlight(t *testing.T) {
	m := NewMux()
	var q *Queue
	m.Handle("op", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		// the selection is discarded while this call is still in flight
		q.Clear()
		return &Blob{Data: []byte("x"), Type: "image/png"}, nil
	})
	q = NewQueue(m, WithTicker(NopTicker{}))

	q.Enqueue([]*File{
		NewFile("a.png", "image/png", []byte("12345")),
		NewFile("b.png", "image/png", []byte("12345")),
	}, "op", nil)

	done := q.RunAll(context.Background(), nil)
	// the in-flight item finishes on its orphaned object; the rest is gone
	require.Len(t, done, 1)
	require.Equal(t, StatusCompleted, done[0].Status)
	require.Zero(t, q.Len())
}

func TestQueue_HandlerReportedProgressKeptOnFailure(t *testing.T) {
	m := NewMux()
	m.Handle("op", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		SetProgress(ctx, 77)
		return nil, errors.New("crashed midway")
	})
	q := NewQueue(m, WithTicker(NopTicker{}))

	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, "op", nil)
	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 1)
	require.Equal(t, StatusFailed, done[0].Status)
	require.Equal(t, 77, done[0].Progress)
}

// fixedTicker emits one fixed percentage and then waits out the run.
type fixedTicker struct{ p int }

func (f fixedTicker) Run(done <-chan struct{}, emit func(percent int)) {
	emit(f.p)
	<-done
}

func TestQueue_HandlerReportedProgressMergesMonotonically(t *testing.T) {
	m := NewMux()
	m.Handle("op", func(ctx context.Context, in *File, opts Options) (*Blob, error) {
		// a stale low report must never pull the visible percentage back
		SetProgress(ctx, 5)
		return nil, errors.New("crashed midway")
	})
	q := NewQueue(m, WithTicker(fixedTicker{p: 50}))

	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, "op", nil)
	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 1)
	require.Equal(t, StatusFailed, done[0].Status)
	require.Equal(t, 50, done[0].Progress)
}

func TestQueue_UnknownOperationFailsItem(t *testing.T) {
	q := NewQueue(NewMux(), WithTicker(NopTicker{}))
	q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, "telepathy", nil)

	done := q.RunAll(context.Background(), nil)
	require.Len(t, done, 1)
	require.Equal(t, StatusFailed, done[0].Status)
	require.Contains(t, done[0].Err, "unknown operation")
}

func TestQueue_Lookup(t *testing.T) {
	q := newTestQueue(&fakeImageBackend{out: []byte("x")}, nil, 1000)
	items := q.Enqueue([]*File{NewFile("a.png", "image/png", []byte("12345"))}, OpCompress, nil)

	got, ok := q.Lookup("  " + items[0].ID + "\n")
	require.True(t, ok)
	require.Same(t, items[0], got)

	_, ok = q.Lookup("nope")
	require.False(t, ok)

	_, err := q.Item("nope")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestIntervalTicker_StaysBelow100(t *testing.T) {
	ticker := IntervalTicker{Interval: time.Millisecond, Step: 40}

	emitted := make(chan int, 16)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker.Run(done, func(p int) { emitted <- p })
	}()

	var got []int
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case p := <-emitted:
			got = append(got, p)
		case <-deadline:
			t.Fatal("timed out waiting for ticks")
		}
	}
	close(done)
	<-finished

	require.Equal(t, []int{0, 40, 80}, got)
	// drain anything emitted between the third tick and close(done)
	close(emitted)
	for p := range emitted {
		require.Less(t, p, 100)
	}
}
