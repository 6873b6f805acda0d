package chatclient

import (
	"sync"

	"github.com/google/uuid"
)

// Reconciler keeps the local message list consistent as confirmed
// messages arrive from the stream or the poller. Optimistic entries
// are placeholders for in-flight sends; any confirmed batch drops all
// of them, since the send they stand for is either in the batch
// already or will be picked up by the next fetch.
type Reconciler struct {
	mu       sync.Mutex
	messages []Message
	seen     map[int64]struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		seen: make(map[int64]struct{}),
	}
}

// AddOptimistic appends a placeholder for a message that has been
// sent but not confirmed. Returns the temp id.
func (r *Reconciler) AddOptimistic(msg Message) string {
	tempID := "temp-" + uuid.New().String()
	msg.TempID = tempID
	msg.ID = 0

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)

	return tempID
}

// MergeConfirmed folds a batch of confirmed messages into the list.
// All optimistic entries are dropped, confirmed messages already in
// the list are skipped, and new ones keep the batch's order.
func (r *Reconciler) MergeConfirmed(batch []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.messages[:0]

	for _, m := range r.messages {
		if !m.Optimistic() {
			kept = append(kept, m)
		}
	}

	r.messages = kept

	for _, m := range batch {
		if _, ok := r.seen[m.ID]; ok {
			continue
		}

		r.seen[m.ID] = struct{}{}
		r.messages = append(r.messages, m)
	}
}

// ReplaceAll resets the list to exactly the given confirmed messages,
// discarding optimistic entries and dedupe state. Used when loading a
// room's history.
func (r *Reconciler) ReplaceAll(batch []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = make([]Message, 0, len(batch))
	r.seen = make(map[int64]struct{}, len(batch))

	for _, m := range batch {
		if _, ok := r.seen[m.ID]; ok {
			continue
		}

		r.seen[m.ID] = struct{}{}
		r.messages = append(r.messages, m)
	}
}

// Messages returns a copy of the current list.
func (r *Reconciler) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)

	return out
}
