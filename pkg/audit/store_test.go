package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Error("NewStore() without path should fail")
	}
}

func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event := &Event{
		Operation: "resolve",
		Address:   "strings.upper",
		Module:    "strings",
		Symbol:    "upper",
		Outcome:   OutcomeAllowed,
	}
	if err := s.Record(ctx, event); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if event.ID == "" {
		t.Error("Record() should assign an ID")
	}
	if event.Timestamp.IsZero() {
		t.Error("Record() should assign a timestamp")
	}

	got, err := s.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Address != "strings.upper" || got.Outcome != OutcomeAllowed {
		t.Errorf("Get() = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "no-such-id"); err == nil {
		t.Error("Get() on missing event should fail")
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seed := []*Event{
		{Timestamp: base, Operation: "resolve", Module: "strings", Symbol: "upper", Outcome: OutcomeAllowed},
		{Timestamp: base.Add(time.Minute), Operation: "resolve", Module: "os", Symbol: "getenv", Outcome: OutcomeDenied, Reason: "blocklisted"},
		{Timestamp: base.Add(2 * time.Minute), Operation: "resolve", Module: "strings", Symbol: "missing", Outcome: OutcomeError, Reason: "symbol not found"},
	}
	for _, e := range seed {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() = %d events, want 3", len(all))
	}
	if all[0].Symbol != "missing" {
		t.Errorf("List() should be newest first, got %q", all[0].Symbol)
	}

	denied, err := s.List(ctx, Filter{Outcome: OutcomeDenied})
	if err != nil {
		t.Fatalf("List(denied) error = %v", err)
	}
	if len(denied) != 1 || denied[0].Module != "os" {
		t.Errorf("List(denied) = %+v", denied)
	}

	strMod, err := s.List(ctx, Filter{Module: "strings"})
	if err != nil {
		t.Fatalf("List(strings) error = %v", err)
	}
	if len(strMod) != 2 {
		t.Errorf("List(strings) = %d events, want 2", len(strMod))
	}

	recent, err := s.List(ctx, Filter{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("List(since) error = %v", err)
	}
	if len(recent) != 1 || recent[0].Outcome != OutcomeError {
		t.Errorf("List(since) = %+v", recent)
	}

	paged, err := s.List(ctx, Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List(page) error = %v", err)
	}
	if len(paged) != 1 || paged[0].Module != "os" {
		t.Errorf("List(page) = %+v", paged)
	}
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &Event{Timestamp: time.Now().UTC().Add(-48 * time.Hour), Operation: "resolve", Outcome: OutcomeAllowed}
	fresh := &Event{Operation: "resolve", Outcome: OutcomeAllowed}
	for _, e := range []*Event{old, fresh} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	removed, err := s.Purge(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge() removed %d, want 1", removed)
	}
	if _, err := s.Get(ctx, fresh.ID); err != nil {
		t.Errorf("fresh event should survive purge: %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
