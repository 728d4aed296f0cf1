package sessions

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestAppendCreatesOnFirstUse(t *testing.T) {
	store := NewStore()
	store.Append("s1", EntryUser, "hello")

	entries := store.Recent("s1", 3)
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}
	if entries[0].Role != EntryUser || entries[0].Text != "hello" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestCapEvictsOldestFirst(t *testing.T) {
	store := NewStore(WithCap(5))
	for i := 0; i < 6; i++ {
		store.Append("s1", EntryUser, fmt.Sprintf("msg-%d", i))
	}

	if got := store.Len("s1"); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	entries := store.Recent("s1", 5)
	if entries[0].Text != "msg-1" {
		t.Fatalf("oldest surviving entry = %q, want msg-1", entries[0].Text)
	}
	if entries[4].Text != "msg-5" {
		t.Fatalf("newest entry = %q, want msg-5", entries[4].Text)
	}
}

func TestCapHoldsUnderAnyAppendSequence(t *testing.T) {
	store := NewStore(WithCap(20))
	for i := 0; i < 100; i++ {
		role := EntryUser
		if i%2 == 1 {
			role = EntryAssistant
		}
		store.Append("s1", role, fmt.Sprintf("msg-%d", i))
		if got := store.Len("s1"); got > 20 {
			t.Fatalf("cap exceeded after %d appends: %d entries", i+1, got)
		}
	}
	if got := store.Len("s1"); got != 20 {
		t.Fatalf("Len() = %d, want 20", got)
	}
}

func TestAssistantEntriesTruncatedToPreview(t *testing.T) {
	store := NewStore(WithPreviewLen(10))
	long := strings.Repeat("a", 50)

	store.Append("s1", EntryAssistant, long)
	store.Append("s1", EntryUser, long)

	entries := store.Recent("s1", 2)
	if entries[0].Text != strings.Repeat("a", 10)+"..." {
		t.Fatalf("assistant entry not truncated: %q", entries[0].Text)
	}
	if entries[1].Text != long {
		t.Fatalf("user entry must be stored verbatim, got %q", entries[1].Text)
	}
}

func TestPreviewDoesNotSplitRunes(t *testing.T) {
	store := NewStore(WithPreviewLen(5))
	store.Append("s1", EntryAssistant, "日本語のテキスト")

	got := store.Recent("s1", 1)[0].Text
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation suffix, got %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatalf("preview split a rune: %q", got)
		}
	}
}

func TestRecentReturnsLastK(t *testing.T) {
	store := NewStore()
	for i := 0; i < 10; i++ {
		store.Append("s1", EntryUser, fmt.Sprintf("msg-%d", i))
	}

	entries := store.Recent("s1", 3)
	if len(entries) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(entries))
	}
	want := []string{"msg-7", "msg-8", "msg-9"}
	for i, e := range entries {
		if e.Text != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, e.Text, want[i])
		}
	}
}

func TestRecentOnUnknownSessionDoesNotCreate(t *testing.T) {
	store := NewStore()
	if entries := store.Recent("ghost", 3); len(entries) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(entries))
	}
	if store.Clear("ghost") {
		t.Fatal("Recent() must not create a session")
	}
}

func TestClearReportsExistence(t *testing.T) {
	store := NewStore()
	if store.Clear("never-created") {
		t.Fatal("Clear() on unknown id should report not found")
	}

	store.Append("s1", EntryUser, "hi")
	if !store.Clear("s1") {
		t.Fatal("Clear() on existing id should report found")
	}
	if entries := store.Recent("s1", 3); len(entries) != 0 {
		t.Fatalf("transcript survived Clear(): %d entries", len(entries))
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(""); got != DefaultSessionID {
		t.Fatalf("Normalize(\"\") = %q", got)
	}
	if got := Normalize("  "); got != DefaultSessionID {
		t.Fatalf("Normalize(blank) = %q", got)
	}
	if got := Normalize("abc"); got != "abc" {
		t.Fatalf("Normalize(abc) = %q", got)
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	store := NewStore(WithCap(20))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append("shared", EntryUser, fmt.Sprintf("msg-%d", i))
		}(i)
	}
	wg.Wait()

	if got := store.Len("shared"); got != 20 {
		t.Fatalf("Len() = %d, want 20 after concurrent appends", got)
	}
}

func TestConcurrentDistinctSessions(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i)
			for j := 0; j < 5; j++ {
				store.Append(id, EntryUser, "x")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		if got := store.Len(fmt.Sprintf("s-%d", i)); got != 5 {
			t.Fatalf("session s-%d has %d entries, want 5", i, got)
		}
	}
}
