package toolkit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/imagetoolkit/toolkit-go/internal/store"
)

// schemaVersion is stamped on every persisted record. Blobs written by
// earlier sessions without a version field are migrated on load.
const schemaVersion = 1

// defaultHistoryCap bounds the activity history; older entries are discarded.
const defaultHistoryCap = 50

// Activity is a persisted record of one finished batch. Records are
// append-only: created once after a batch completes with at least one
// success, never mutated afterwards.
type Activity struct {
	ID             string    `json:"id"`
	Version        int       `json:"version"`
	Type           Operation `json:"type"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FilesProcessed int       `json:"files_processed"`
	SpaceSaved     int64     `json:"space_saved"`
	Timestamp      string    `json:"timestamp"`
	// Session marks records created during this process's lifetime. It is
	// transient and never persisted.
	Session bool `json:"-"`
}

// Stats holds the cumulative counters: files processed and bytes saved.
// Counters only ever increase; there is no reset path in the core.
type Stats struct {
	Version    int   `json:"version"`
	Processed  int64 `json:"processed"`
	SavedSpace int64 `json:"savedSpace"`
}

// ActivityDetails describes a finished batch for recording. Empty Title or
// Description are filled with generated summaries.
type ActivityDetails struct {
	Title          string
	Description    string
	FilesProcessed int
	SpaceSaved     int64
}

// Ledger persists the bounded activity history and the cumulative counters in
// a key-value store, JSON-encoded. Activities live in a LIST (newest first,
// trimmed to the cap); stats are a single value updated read-modify-write.
// Single-session scope is assumed; concurrent writers are not synchronized.
type Ledger struct {
	rdb redis.UniversalClient
	ns  string
	key store.Namespace
	enc Encoder
	log Logger
	cap int

	mu         sync.Mutex
	sessionIDs map[string]struct{}
	session    Stats
}

// NewLedger creates a ledger backed by the given store client.
func NewLedger(rdb redis.UniversalClient, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		rdb:        rdb,
		ns:         "default",
		enc:        &JSONEncoder{},
		log:        NewFmtLogger(),
		cap:        defaultHistoryCap,
		sessionIDs: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.key = store.For(l.ns)
	return l
}

// Record appends one activity for a finished batch and bumps the cumulative
// counters. Entries beyond the history cap are discarded oldest-first.
func (l *Ledger) Record(ctx context.Context, op Operation, d ActivityDetails) (*Activity, error) {
	a := &Activity{
		ID:             uuid.NewString(),
		Version:        schemaVersion,
		Type:           op,
		Title:          d.Title,
		Description:    d.Description,
		FilesProcessed: d.FilesProcessed,
		SpaceSaved:     d.SpaceSaved,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Session:        true,
	}
	if a.Title == "" {
		a.Title = fmt.Sprintf("%d files processed", d.FilesProcessed)
	}
	if a.Description == "" {
		a.Description = fmt.Sprintf("Saved %s of storage space", FormatBytes(d.SpaceSaved))
	}

	raw, err := l.enc.Encode(a)
	if err != nil {
		return nil, fmt.Errorf("encode activity: %w", err)
	}
	_, err = l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, l.key.Activities, raw)
		p.LTrim(ctx, l.key.Activities, 0, int64(l.cap-1))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist activity: %w", err)
	}

	if err := l.bumpStats(ctx, d); err != nil {
		// The activity is already persisted; surface the counter failure
		// without rolling it back.
		return a, err
	}

	l.mu.Lock()
	l.sessionIDs[a.ID] = struct{}{}
	l.session.Processed += int64(d.FilesProcessed)
	l.session.SavedSpace += d.SpaceSaved
	l.mu.Unlock()

	l.log.Debugf("activity recorded: op=%s files=%d saved=%s", op, d.FilesProcessed, FormatBytes(d.SpaceSaved))
	return a, nil
}

func (l *Ledger) bumpStats(ctx context.Context, d ActivityDetails) error {
	stats, err := l.Stats(ctx)
	if err != nil {
		return err
	}
	stats.Version = schemaVersion
	stats.Processed += int64(d.FilesProcessed)
	stats.SavedSpace += d.SpaceSaved

	raw, err := l.enc.Encode(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := l.rdb.Set(ctx, l.key.Stats, raw, 0).Err(); err != nil {
		return fmt.Errorf("persist stats: %w", err)
	}
	return nil
}

// Activities returns up to limit records, newest first. A non-positive limit
// returns the full retained history. Records created during this session
// carry the transient Session flag.
func (l *Ledger) Activities(ctx context.Context, limit int) ([]*Activity, error) {
	if limit <= 0 || limit > l.cap {
		limit = l.cap
	}
	raws, err := l.rdb.LRange(ctx, l.key.Activities, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Activity, 0, len(raws))
	for _, raw := range raws {
		var a Activity
		if err := l.enc.Decode([]byte(raw), &a); err != nil {
			l.log.Warnf("skipping undecodable activity record: %v", err)
			continue
		}
		if a.Version == 0 {
			a.Version = schemaVersion
		}
		_, a.Session = l.sessionIDs[a.ID]
		out = append(out, &a)
	}
	return out, nil
}

// Stats returns the cumulative counters, migrating unversioned blobs written
// by earlier sessions.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	raw, err := l.rdb.Get(ctx, l.key.Stats).Bytes()
	if err == redis.Nil {
		return &Stats{Version: schemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	var s Stats
	if err := l.enc.Decode(raw, &s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if s.Version == 0 {
		s.Version = schemaVersion
	}
	return &s, nil
}

// SessionStats returns the counters accumulated by this process only.
func (l *Ledger) SessionStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// FormatBytes renders a byte count for display ("1.5MB").
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0MB"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i < 0 {
		i = 0
	} else if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s%s", trimZero(v), units[i])
}

func trimZero(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
