package toolkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imagetoolkit/toolkit-go/internal/hctx"
)

// ProgressFunc receives queue progress: the 1-based index of the item being
// processed, the current queue length, and the item's visible percentage.
type ProgressFunc func(current, total, percent int)

// Queue owns an ordered list of items and drives each through the
// Queued -> Processing -> {Completed|Failed} lifecycle. Dispatch is strictly
// sequential in insertion order: at most one backend call is in flight at a
// time, so a later-enqueued item never starts before an earlier one reaches a
// terminal state.
type Queue struct {
	mu      sync.Mutex
	items   []*QueueItem
	running bool

	mux    *Mux
	ticker ProgressTicker
	log    Logger
	now    func() time.Time
}

// NewQueue creates a queue dispatching through the given mux.
func NewQueue(mux *Mux, opts ...QueueOption) *Queue {
	q := &Queue{
		mux:    mux,
		ticker: IntervalTicker{},
		log:    NewFmtLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue constructs one item per file and appends them to the end of the
// queue. It never fails; files are assumed pre-validated by intake. Repeated
// calls with the same files produce new, independent items with distinct IDs.
func (q *Queue) Enqueue(files []*File, op Operation, opts Options) []*QueueItem {
	items := make([]*QueueItem, 0, len(files))
	for _, f := range files {
		items = append(items, &QueueItem{
			ID:      uuid.NewString(),
			Input:   f,
			Op:      op,
			Options: opts,
			Status:  StatusQueued,
		})
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	return items
}

// RunAll processes every queued item sequentially to a terminal state and
// returns the items that reached one during this run. A call while a run is
// already in progress is a no-op returning nil. One item's failure never
// aborts the rest of the batch.
func (q *Queue) RunAll(ctx context.Context, onProgress ProgressFunc) []*QueueItem {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		q.log.Warnf("queue already running; ignoring RunAll")
		return nil
	}
	q.running = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	var terminal []*QueueItem
	for i := 0; ; i++ {
		q.mu.Lock()
		if i >= len(q.items) {
			q.mu.Unlock()
			break
		}
		it := q.items[i]
		total := len(q.items)
		q.mu.Unlock()

		// Skip anything not queued so redundant reprocessing calls cannot
		// double-execute in-flight or finished items.
		if it.Status != StatusQueued {
			continue
		}
		q.process(ctx, it, i, total, onProgress)
		terminal = append(terminal, it)
	}
	return terminal
}

// Clear discards all items regardless of status. It cannot interrupt an
// in-flight backend call; that call finishes and its outcome lands on the
// orphaned item object, which the queue never re-adopts.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Lookup returns the item with the given ID. IDs arriving from UI callbacks
// may carry stray whitespace; the match is exact after trimming.
func (q *Queue) Lookup(id string) (*QueueItem, bool) {
	key := strings.TrimSpace(id)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.ID == key {
			return it, true
		}
	}
	return nil, false
}

// Item is the erroring variant of Lookup for callers that propagate failure.
func (q *Queue) Item(id string) (*QueueItem, error) {
	it, ok := q.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, strings.TrimSpace(id))
	}
	return it, nil
}

// Items returns a snapshot of the current item list in insertion order.
func (q *Queue) Items() []*QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items currently in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) process(ctx context.Context, it *QueueItem, index, total int, onProgress ProgressFunc) {
	q.mu.Lock()
	it.Status = StatusProcessing
	it.StartedAt = q.now().UnixMilli()
	it.Progress = 0
	q.mu.Unlock()

	st := hctx.New()
	hctxCtx := hctx.WithState(ctx, st)

	// The ticker only feeds the visible percentage; the backend call below
	// resolves independently and determines the terminal transition.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.ticker.Run(done, func(p int) {
			q.mu.Lock()
			if it.Status.Terminal() || p <= it.Progress {
				q.mu.Unlock()
				return
			}
			it.Progress = p
			q.mu.Unlock()
			if onProgress != nil {
				onProgress(index+1, total, p)
			}
		})
	}()

	blob, err := q.dispatch(hctxCtx, it)
	close(done)
	wg.Wait()

	// Fold in the handler's own progress report. It is read only after the
	// handler returned and the ticker stopped, so nothing races the state,
	// and it merges monotonically like the synthetic ticks. On failure this
	// is what keeps the item's last real percentage visible.
	q.mu.Lock()
	if st.Progress > it.Progress {
		it.Progress = st.Progress
	}
	q.mu.Unlock()

	now := q.now().UnixMilli()
	if err != nil {
		q.mu.Lock()
		it.Status = StatusFailed
		it.Err = err.Error()
		it.CompletedAt = now
		q.mu.Unlock()
		q.log.Warnf("item failed: id=%s op=%s file=%s err=%v", it.ID, it.Op, it.Input.Name, err)
		return
	}

	q.mu.Lock()
	it.chosenFormat = st.OutputFormat
	it.Result = &Result{
		Blob:          blob,
		OriginalSize:  it.Input.Size,
		ProcessedSize: blob.Size(),
		SavedBytes:    clampSaved(it.Input.Size, blob.Size()),
		Filename:      generateFilename(it, now),
	}
	it.Status = StatusCompleted
	it.CompletedAt = now
	it.Progress = 100
	q.mu.Unlock()
	if onProgress != nil {
		onProgress(index+1, total, 100)
	}
}

func (q *Queue) dispatch(ctx context.Context, it *QueueItem) (*Blob, error) {
	h, ok := q.mux.handlerFor(it.Op)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, it.Op)
	}
	blob, err := h(ctx, it.Input, it.Options)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, errors.New("toolkit: handler returned no output")
	}
	return blob, nil
}

func clampSaved(original, processed int64) int64 {
	if saved := original - processed; saved > 0 {
		return saved
	}
	return 0
}
