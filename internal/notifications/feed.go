// Package notifications holds the dashboard's in-memory notification feed.
package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one user-visible notification.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// NewEntry builds an unread entry stamped now.
func NewEntry(text string, now time.Time) Entry {
	return Entry{
		ID:        uuid.New(),
		Text:      text,
		Timestamp: now,
		Read:      false,
	}
}

// Feed is the notification list owned by whichever view mounted the watcher.
// New entries are prepended; the list is cleared wholesale, never partially.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
}

func NewFeed() *Feed {
	return &Feed{}
}

// Push prepends entries so the newest notification renders first.
func (f *Feed) Push(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(append([]Entry{}, entries...), f.entries...)
}

// List returns a copy of the current entries, newest first.
func (f *Feed) List() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Unread returns the number of unread entries.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.entries {
		if !entry.Read {
			count++
		}
	}
	return count
}

// MarkRead marks one entry read. Unknown ids are a silent no-op.
func (f *Feed) MarkRead(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Read = true
			return
		}
	}
}

// MarkAllRead marks every entry read.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		f.entries[i].Read = true
	}
}

// ClearAll empties the feed.
func (f *Feed) ClearAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
}
