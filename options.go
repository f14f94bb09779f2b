package toolkit

import "time"

// QueueOption configures a Queue at construction time.
type QueueOption func(*Queue)

// WithQueueLogger sets the logger used for queue events.
func WithQueueLogger(l Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// WithTicker sets the progress strategy driving the visible percentage while
// a backend call is in flight.
func WithTicker(t ProgressTicker) QueueOption {
	return func(q *Queue) {
		if t != nil {
			q.ticker = t
		}
	}
}

// WithClock overrides the queue's time source. Used by tests to pin
// timestamps in generated filenames.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// LedgerOption configures a Ledger at construction time.
type LedgerOption func(*Ledger)

// WithLedgerLogger sets the logger used for ledger events.
func WithLedgerLogger(l Logger) LedgerOption {
	return func(ld *Ledger) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithNamespace isolates the ledger's persisted keys, letting independent
// sessions or tests share one store.
func WithNamespace(ns string) LedgerOption {
	return func(ld *Ledger) {
		if ns != "" {
			ld.ns = ns
		}
	}
}

// WithHistoryCap overrides the bounded activity history size (default 50).
func WithHistoryCap(n int) LedgerOption {
	return func(ld *Ledger) {
		if n > 0 {
			ld.cap = n
		}
	}
}

// BatchOption configures a Batch at construction time.
type BatchOption func(*Batch)

// WithBatchLogger sets the logger used for orchestration events.
func WithBatchLogger(l Logger) BatchOption {
	return func(b *Batch) {
		if l != nil {
			b.log = l
		}
	}
}

// WithLedger sets the activity ledger receiving batch outcome records. A nil
// or absent ledger disables recording without affecting processing.
func WithLedger(l *Ledger) BatchOption {
	return func(b *Batch) { b.ledger = l }
}

// WithPDFBackend sets the backend serving the aggregate PDF actions.
func WithPDFBackend(p PDFBackend) BatchOption {
	return func(b *Batch) { b.pdf = p }
}

// WithQRBackend sets the backend serving QR generation.
func WithQRBackend(q QRBackend) BatchOption {
	return func(b *Batch) { b.qr = q }
}

// WithDownloader sets the sink receiving finished artifacts.
func WithDownloader(d Downloader) BatchOption {
	return func(b *Batch) {
		if d != nil {
			b.downloads = d
		}
	}
}

// WithProgress sets the callback receiving (current, total, message) tuples.
func WithProgress(fn BatchProgressFunc) BatchOption {
	return func(b *Batch) { b.onProgress = fn }
}

// WithBatchClock overrides the orchestrator's time source.
func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *Batch) {
		if now != nil {
			b.now = now
		}
	}
}

// FileSetOption configures a FileSet at construction time.
type FileSetOption func(*FileSet)

// WithAcceptedTypes restricts the MIME types the set accepts.
func WithAcceptedTypes(types []string) FileSetOption {
	return func(s *FileSet) {
		if len(types) > 0 {
			s.accepted = types
		}
	}
}

// WithMaxFileSize sets the per-file size ceiling in bytes (default 50MB).
func WithMaxFileSize(n int64) FileSetOption {
	return func(s *FileSet) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithMaxFiles sets the per-selection file count limit (default 50).
func WithMaxFiles(n int) FileSetOption {
	return func(s *FileSet) {
		if n > 0 {
			s.maxFiles = n
		}
	}
}
