package corpus

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestEnsureIsIdempotent(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	first, _ := s.Get("1")
	s.Ensure("1")
	second, ok := s.Get("1")
	if !ok {
		t.Fatalf("record missing after ensure")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ensure changed record: %+v vs %+v", first, second)
	}
	if second.Dirty || second.OffUntil != 0 || len(second.Messages) != 0 {
		t.Fatalf("unexpected default record: %+v", second)
	}
	if s.Len() != 1 {
		t.Fatalf("want 1 chat, got %d", s.Len())
	}
}

func TestEnsureKeepsExistingMessages(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	if _, err := s.AppendMessage("1", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Ensure("1")
	if s.MessageCount("1") != 1 {
		t.Fatalf("ensure wiped history")
	}
}

func TestAppendMessage(t *testing.T) {
	s := NewStore(0)
	s.Ensure("chat")

	cases := []struct {
		text  string
		added bool
	}{
		{"hello", true},
		{"  padded  ", true},
		{"", false},
		{"   \n\t ", false},
		{"привет", true},
	}
	for _, c := range cases {
		before := s.MessageCount("chat")
		added, err := s.AppendMessage("chat", c.text)
		if err != nil {
			t.Fatalf("append %q: %v", c.text, err)
		}
		after := s.MessageCount("chat")
		if added != c.added {
			t.Fatalf("append %q: added=%v want %v", c.text, added, c.added)
		}
		want := before
		if c.added {
			want++
		}
		if after != want {
			t.Fatalf("append %q: count %d want %d", c.text, after, want)
		}
	}

	got := s.Messages("chat")
	want := []string{"hello", "padded", "привет"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("messages: got %v want %v", got, want)
	}
}

func TestAppendMessageUnknownChat(t *testing.T) {
	s := NewStore(0)
	if _, err := s.AppendMessage("nope", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.SetFields("nope", Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if s.MessageCount("nope") != 0 {
		t.Fatalf("unknown chat must count 0")
	}
}

func TestAppendMarksDirtyOnlyOnChange(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	_, _ = s.AppendMessage("1", "   ")
	if r, _ := s.Get("1"); r.Dirty {
		t.Fatalf("whitespace append must not mark dirty")
	}
	_, _ = s.AppendMessage("1", "x")
	if r, _ := s.Get("1"); !r.Dirty {
		t.Fatalf("append must mark dirty")
	}
}

func TestRetentionCap(t *testing.T) {
	s := NewStore(3)
	s.Ensure("1")
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		_, _ = s.AppendMessage("1", m)
	}
	if got := s.Messages("1"); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Fatalf("cap not applied: %v", got)
	}
}

func TestLastMessages(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	for _, m := range []string{"a", "b", "c"} {
		_, _ = s.AppendMessage("1", m)
	}
	if got := s.LastMessages("1", 2); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("last 2: %v", got)
	}
	if got := s.LastMessages("1", 10); len(got) != 3 {
		t.Fatalf("last 10: %v", got)
	}
	if got := s.LastMessages("missing", 5); len(got) != 0 {
		t.Fatalf("missing chat: %v", got)
	}

	// copy semantics
	got := s.LastMessages("1", 1)
	got[0] = "mutated"
	if s.LastMessages("1", 1)[0] != "c" {
		t.Fatalf("internal state mutated via returned slice")
	}
}

func TestSetFieldsAndLazyExpiry(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	now := time.Unix(1_000_000, 0)
	until := now.Add(time.Hour).Unix()
	if err := s.SetFields("1", Patch{OffUntil: &until}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.OffUntil("1", now); got != until {
		t.Fatalf("active window lost: %d", got)
	}
	if got := s.OffUntil("1", now.Add(2*time.Hour)); got != 0 {
		t.Fatalf("elapsed window not normalized: %d", got)
	}
	if r, _ := s.Get("1"); r.OffUntil != 0 {
		t.Fatalf("normalization not stored: %+v", r)
	}
}

func TestSnapshotAndMarkClean(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	s.Ensure("2")
	_, _ = s.AppendMessage("1", "hello")

	now := time.Unix(100, 0)
	snaps := s.DirtySnapshots(now)
	if len(snaps) != 1 || snaps[0].Record.ID != "1" {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}

	// a write between snapshot and clean keeps the record dirty
	_, _ = s.AppendMessage("1", "again")
	if s.MarkClean("1", snaps[0].Revision) {
		t.Fatalf("stale revision must not clean the record")
	}
	snaps = s.DirtySnapshots(now)
	if len(snaps) != 1 || len(snaps[0].Record.Messages) != 2 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if !s.MarkClean("1", snaps[0].Revision) {
		t.Fatalf("current revision must clean the record")
	}
	if len(s.DirtySnapshots(now)) != 0 {
		t.Fatalf("record still dirty")
	}
}

func TestDirtySnapshotsNormalizeElapsedWindow(t *testing.T) {
	s := NewStore(0)
	s.Ensure("1")
	until := int64(50)
	_ = s.SetFields("1", Patch{OffUntil: &until})
	snaps := s.DirtySnapshots(time.Unix(100, 0))
	if len(snaps) != 1 || snaps[0].Record.OffUntil != 0 {
		t.Fatalf("elapsed window must be normalized: %+v", snaps)
	}
}

func TestSeed(t *testing.T) {
	s := NewStore(0)
	s.Ensure("old")
	s.Seed(map[string]ChatRecord{
		"7": {Messages: []string{"a"}, OffUntil: 9, Dirty: true},
	})
	if _, ok := s.Get("old"); ok {
		t.Fatalf("seed must replace contents")
	}
	r, ok := s.Get("7")
	if !ok || r.ID != "7" || r.Dirty || r.OffUntil != 9 || len(r.Messages) != 1 {
		t.Fatalf("unexpected seeded record: %+v", r)
	}
}
