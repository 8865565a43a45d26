package document

import (
	"sync"
	"time"
)

// DefaultUsageCapacity is the number of usage entries kept by NewUsageLog.
const DefaultUsageCapacity = 50

// UsageEntry summarizes one engine operation.
type UsageEntry struct {
	Time       time.Time `json:"time"`
	DocumentID string    `json:"document_id"`
	Operation  string    `json:"operation"`
	Field      string    `json:"field"`
	Inserted   int       `json:"inserted"` // runes written
	Removed    int       `json:"removed"`  // runes removed
	Length     int       `json:"length"`   // field length afterwards
}

// UsageLog is a fixed-capacity ring of the most recent usage entries.
// Safe for concurrent use.
type UsageLog struct {
	mu      sync.Mutex
	entries []UsageEntry
	next    int
	full    bool
}

// NewUsageLog creates a ring holding at most capacity entries.
func NewUsageLog(capacity int) *UsageLog {
	if capacity <= 0 {
		capacity = DefaultUsageCapacity
	}
	return &UsageLog{entries: make([]UsageEntry, capacity)}
}

// Add records an entry, evicting the oldest one when the ring is full.
func (l *UsageLog) Add(entry UsageEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Entries returns the retained entries, oldest first.
func (l *UsageLog) Entries() []UsageEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]UsageEntry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]UsageEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

// Len returns the number of retained entries.
func (l *UsageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full {
		return len(l.entries)
	}
	return l.next
}
