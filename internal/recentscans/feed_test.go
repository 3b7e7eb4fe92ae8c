package recentscans

import (
	"context"
	"testing"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/config"
)

type fakeStore struct {
	lists    map[string][]string
	counters map[string]int64
	lastMax  int64
	lastTTL  time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists:    make(map[string][]string),
		counters: make(map[string]int64),
	}
}

func (f *fakeStore) PushCapped(_ context.Context, key string, value any, max int64, ttl time.Duration) error {
	f.lastMax = max
	f.lastTTL = ttl
	list := append([]string{value.(string)}, f.lists[key]...)
	if int64(len(list)) > max {
		list = list[:max]
	}
	f.lists[key] = list
	return nil
}

func (f *fakeStore) ListRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	list := f.lists[key]
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return list[start : stop+1], nil
}

func (f *fakeStore) RecentScansKey() string { return "sk:recent_scans" }

func (f *fakeStore) IncrCounter(_ context.Context, name string) (int64, error) {
	f.counters[name]++
	return f.counters[name], nil
}

func (f *fakeStore) Counter(_ context.Context, name string) (int64, error) {
	return f.counters[name], nil
}

func TestFeedRecordsNewestFirst(t *testing.T) {
	store := newFakeStore()
	feed, err := NewFeed(store, config.RecentScansConfig{Max: 3, TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}

	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, epc := range []string{"tag-a", "tag-b", "tag-c", "tag-d"} {
		err := feed.Record(context.Background(), Entry{
			EPC:       epc,
			CartID:    "1234",
			Timestamp: at.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record %s: %v", epc, err)
		}
	}

	entries, err := feed.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected feed capped at 3, got %d", len(entries))
	}
	if entries[0].EPC != "tag-d" || entries[2].EPC != "tag-b" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if store.lastTTL != time.Hour {
		t.Fatalf("expected ttl refresh, got %v", store.lastTTL)
	}
}

func TestFeedSkipsUndecodableEntries(t *testing.T) {
	store := newFakeStore()
	store.lists["sk:recent_scans"] = []string{`{"epc":"tag-a","cartId":"1234"}`, "corrupt"}
	feed, err := NewFeed(store, config.RecentScansConfig{Max: 50, TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}

	entries, err := feed.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].EPC != "tag-a" {
		t.Fatalf("expected corrupt entry skipped, got %+v", entries)
	}
}

func TestFeedTotalScansOutlivesTrimming(t *testing.T) {
	store := newFakeStore()
	feed, err := NewFeed(store, config.RecentScansConfig{Max: 2, TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}

	for _, epc := range []string{"tag-a", "tag-b", "tag-c", "tag-d"} {
		if err := feed.Record(context.Background(), Entry{EPC: epc, CartID: "1234"}); err != nil {
			t.Fatalf("Record %s: %v", epc, err)
		}
	}

	total, err := feed.TotalScans(context.Background())
	if err != nil {
		t.Fatalf("TotalScans: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 scans counted despite cap 2, got %d", total)
	}
}

func TestFeedStampsMissingTimestamp(t *testing.T) {
	store := newFakeStore()
	feed, _ := NewFeed(store, config.RecentScansConfig{Max: 50, TTL: time.Hour})

	if err := feed.Record(context.Background(), Entry{EPC: "tag-a", CartID: "1234"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entries, err := feed.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp stamped, got %+v", entries)
	}
}
