package tui

import (
	"sync"
	"time"
)

// HistoryEntry is one submitted command and its response.
type HistoryEntry struct {
	// When is the submission time.
	When time.Time
	// Input is the raw command text.
	Input string
	// Response is the rendered outcome.
	Response string
	// IsError marks responses for failed commands.
	IsError bool
}

// History is a bounded ring of conversation entries. Oldest entries are
// dropped once the capacity is reached.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	cap     int
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{cap: capacity}
}

// Add appends an entry, evicting the oldest when full.
func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry.When.IsZero() {
		entry.When = time.Now()
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
