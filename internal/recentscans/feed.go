package recentscans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/config"
)

// store is the slice of the redis client the feed needs.
type store interface {
	PushCapped(ctx context.Context, key string, value any, max int64, ttl time.Duration) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RecentScansKey() string
	IncrCounter(ctx context.Context, name string) (int64, error)
	Counter(ctx context.Context, name string) (int64, error)
}

// totalScansCounter survives restarts and feed trims, unlike the capped list.
const totalScansCounter = "scans_total"

// Entry is one observed tag read, kept for operator debugging of readers.
type Entry struct {
	EPC       string    `json:"epc"`
	CartID    string    `json:"cartId"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed keeps a capped, most-recent-first list of tag reads in Redis.
type Feed struct {
	store store
	max   int64
	ttl   time.Duration
}

// NewFeed builds the recent scans feed.
func NewFeed(s store, cfg config.RecentScansConfig) (*Feed, error) {
	if s == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if cfg.Max <= 0 {
		return nil, fmt.Errorf("recent scans max must be positive")
	}
	return &Feed{
		store: s,
		max:   int64(cfg.Max),
		ttl:   cfg.TTL,
	}, nil
}

// Record appends a tag read, trimming the feed to its cap.
func (f *Feed) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := f.store.PushCapped(ctx, f.store.RecentScansKey(), string(raw), f.max, f.ttl); err != nil {
		return err
	}
	_, err = f.store.IncrCounter(ctx, totalScansCounter)
	return err
}

// TotalScans reports how many tag reads have been recorded fleet-wide.
func (f *Feed) TotalScans(ctx context.Context) (int64, error) {
	return f.store.Counter(ctx, totalScansCounter)
}

// Recent returns the feed newest first. Entries that no longer decode are
// skipped rather than failing the whole read.
func (f *Feed) Recent(ctx context.Context) ([]Entry, error) {
	raws, err := f.store.ListRange(ctx, f.store.RecentScansKey(), 0, f.max-1)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
