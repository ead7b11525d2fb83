package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "outcomes.db"), filepath.Join(dir, "outcomes.lock"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := Record{
			Kind:       "wrap",
			Account:    "0x96216849c49358B10257cb55b28eA603c874b05E",
			TxHash:     "0xabc",
			Repetition: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}
		if err := s.Save(rec); err != nil {
			t.Fatalf("save record %d: %v", i, err)
		}
	}

	records, err := s.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Repetition != 2 {
		t.Fatalf("expected newest record first, got repetition %d", records[0].Repetition)
	}
	if records[0].RecordID == "" {
		t.Fatal("expected a generated record id")
	}
}

func TestListHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Save(Record{Kind: "unwrap", Account: "0x1", TxHash: "0x2"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	records, err := s.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestListEmptyStore(t *testing.T) {
	s := openTestStore(t)
	records, err := s.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
