package chatclient

import (
	"strings"
	"testing"
)

func TestAddOptimisticAssignsTempID(t *testing.T) {
	r := NewReconciler()

	tempID := r.AddOptimistic(Message{Content: "hello", UserID: "alice"})

	if !strings.HasPrefix(tempID, "temp-") {
		t.Errorf("temp id = %q, want temp- prefix", tempID)
	}

	messages := r.Messages()

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}

	if !messages[0].Optimistic() {
		t.Error("message should be optimistic")
	}

	if messages[0].TempID != tempID {
		t.Errorf("TempID = %q, want %q", messages[0].TempID, tempID)
	}
}

func TestMergeConfirmedDropsOptimisticEntries(t *testing.T) {
	r := NewReconciler()

	r.AddOptimistic(Message{Content: "pending one"})
	r.AddOptimistic(Message{Content: "pending two"})

	r.MergeConfirmed([]Message{
		{ID: 10, Content: "pending one"},
	})

	messages := r.Messages()

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}

	if messages[0].ID != 10 {
		t.Errorf("id = %d, want 10", messages[0].ID)
	}

	if messages[0].Optimistic() {
		t.Error("confirmed message must not be optimistic")
	}
}

func TestMergeConfirmedDeduplicatesByID(t *testing.T) {
	r := NewReconciler()

	r.MergeConfirmed([]Message{{ID: 1}, {ID: 2}})
	r.MergeConfirmed([]Message{{ID: 2}, {ID: 3}})

	messages := r.Messages()

	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}

	for i, want := range []int64{1, 2, 3} {
		if messages[i].ID != want {
			t.Errorf("messages[%d].ID = %d, want %d", i, messages[i].ID, want)
		}
	}
}

func TestMergeConfirmedKeepsBatchOrder(t *testing.T) {
	r := NewReconciler()

	r.MergeConfirmed([]Message{{ID: 5}, {ID: 6}, {ID: 7}})

	messages := r.Messages()

	for i, want := range []int64{5, 6, 7} {
		if messages[i].ID != want {
			t.Errorf("messages[%d].ID = %d, want %d", i, messages[i].ID, want)
		}
	}
}

func TestMergeConfirmedIsIdempotent(t *testing.T) {
	r := NewReconciler()

	batch := []Message{{ID: 1}, {ID: 2}}

	r.MergeConfirmed(batch)
	before := r.Messages()

	r.MergeConfirmed(batch)
	after := r.Messages()

	if len(before) != len(after) {
		t.Errorf("replayed batch changed the list: %d -> %d", len(before), len(after))
	}
}

func TestReplaceAllResetsDedupeState(t *testing.T) {
	r := NewReconciler()

	r.AddOptimistic(Message{Content: "pending"})
	r.MergeConfirmed([]Message{{ID: 1}, {ID: 2}})

	r.ReplaceAll([]Message{{ID: 2}, {ID: 3}})

	messages := r.Messages()

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}

	if messages[0].ID != 2 || messages[1].ID != 3 {
		t.Errorf("got ids %d, %d, want 2, 3", messages[0].ID, messages[1].ID)
	}

	// A previously seen id must be mergeable again after a reset.
	r.MergeConfirmed([]Message{{ID: 1}})

	if got := len(r.Messages()); got != 3 {
		t.Errorf("got %d messages after merge, want 3", got)
	}
}

func TestMessagesReturnsACopy(t *testing.T) {
	r := NewReconciler()

	r.MergeConfirmed([]Message{{ID: 1, Content: "original"}})

	snapshot := r.Messages()
	snapshot[0].Content = "mutated"

	if got := r.Messages()[0].Content; got != "original" {
		t.Errorf("internal state mutated through snapshot: %q", got)
	}
}
