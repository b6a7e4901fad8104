package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEntryAssignsUUID(t *testing.T) {
	start := time.Date(2024, 5, 12, 9, 30, 0, 0, time.FixedZone("x", 3600))
	entry := NewEntry(KindRecord, "macro1", start)
	if _, err := uuid.Parse(entry.ID); err != nil {
		t.Fatalf("expected uuid id, got %q: %v", entry.ID, err)
	}
	if entry.State != StatePending || entry.StartedAt.Location() != time.UTC {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if other := NewEntry(KindRecord, "macro1", start); other.ID == entry.ID {
		t.Fatalf("expected distinct ids")
	}
}

func TestFinishDerivesState(t *testing.T) {
	start := time.Unix(100, 0)
	cases := []struct {
		err  error
		want string
	}{
		{nil, StateCompleted},
		{Interrupted(context.Canceled), StateInterrupted},
		{Interrupted(nil), StateInterrupted},
		{errors.New("disk full"), StateErrored},
	}
	for _, tc := range cases {
		entry := NewEntry(KindPlay, "m", start)
		entry.Finish(start.Add(2*time.Second), tc.err)
		if entry.State != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.want, entry.State)
		}
		if entry.Duration() != 2*time.Second {
			t.Fatalf("expected 2s duration, got %v", entry.Duration())
		}
	}
}

func TestAppendLoadPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	journal, err := Open(filepath.Join(dir, "nested", DefaultFileName), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries, err := journal.Load()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty journal, got %v (%v)", entries, err)
	}

	start := time.Unix(1_700_000_000, 0)
	var ids []string
	for i, name := range []string{"a", "b", "c"} {
		entry := NewEntry(KindRecord, name, start.Add(time.Duration(i)*time.Minute))
		entry.Events = i + 1
		entry.Finish(entry.StartedAt.Add(time.Second), nil)
		if err := journal.Append(entry); err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	loaded, err := journal.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(loaded))
	}
	for i := range loaded {
		if loaded[i].ID != ids[i] || loaded[i].Events != i+1 {
			t.Fatalf("entry %d out of order: %+v", i, loaded[i])
		}
	}

	recent, err := journal.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Macro != "c" || recent[1].Macro != "b" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
	all, _ := journal.Recent(0)
	if len(all) != 3 {
		t.Fatalf("expected all entries, got %d", len(all))
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	journal, _ := Open(path, nil)
	entry := NewEntry(KindPlay, "m", time.Now())
	if err := journal.Append(entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{truncated\n\n")
	f.Close()
	if err := journal.Append(NewEntry(KindRecord, "n", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	loaded, err := journal.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != entry.ID {
		t.Fatalf("expected two readable entries, got %+v", loaded)
	}
}

func TestAppendRejectsMissingID(t *testing.T) {
	journal, _ := Open(filepath.Join(t.TempDir(), DefaultFileName), nil)
	if err := journal.Append(Entry{Kind: KindRecord}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := journal.Append(Entry{ID: "not-a-uuid"}); err == nil {
		t.Fatalf("expected error for malformed id")
	}
	if _, err := Open(" ", nil); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
