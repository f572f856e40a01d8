package recent

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// DefaultCapacity is the number of tokens kept in a list
const DefaultCapacity = 5

// Entry is a recently created token
type Entry struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MintAddress string `json:"mintAddress"`
	Image       string `json:"image"`

	// Timestamp is in milliseconds since the Unix epoch
	Timestamp int64 `json:"timestamp"`
}

func (e Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// List is a bounded, most recent first list of tokens. It's safe for
// concurrent use.
type List struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

func NewList(capacity int) *List {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &List{
		capacity: capacity,
	}
}

// Add puts entry at the front of the list, replacing any entry for the same
// mint and evicting the oldest entries beyond capacity.
func (l *List) Add(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, l.capacity)
	entries = append(entries, entry)
	for _, existing := range l.entries {
		if existing.MintAddress == entry.MintAddress {
			continue
		}
		entries = append(entries, existing)
	}

	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	l.entries = entries
}

// Entries returns a copy of the list, most recent first
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make([]Entry, len(l.entries))
	copy(res, l.entries)
	return res
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

func (l *List) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Save writes the list as a JSON array
func (l *List) Save(w io.Writer) error {
	entries := l.Entries()
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		return errors.Wrap(err, "error encoding recent tokens")
	}
	return nil
}

// Load replaces the list with the JSON array read from r. Entries are ordered
// by timestamp and deduplicated by mint. Empty input clears the list.
func (l *List) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "error reading recent tokens")
	}

	var entries []Entry
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return errors.Wrap(err, "error decoding recent tokens")
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	seen := make(map[string]struct{})
	deduped := make([]Entry, 0, l.capacity)
	for _, entry := range entries {
		if _, ok := seen[entry.MintAddress]; ok {
			continue
		}
		seen[entry.MintAddress] = struct{}{}

		deduped = append(deduped, entry)
		if len(deduped) == l.capacity {
			break
		}
	}

	l.mu.Lock()
	l.entries = deduped
	l.mu.Unlock()

	return nil
}

var timeAgoUnits = []struct {
	name    string
	seconds int64
}{
	{"year", 31536000},
	{"month", 2592000},
	{"week", 604800},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
	{"second", 1},
}

// TimeAgo renders how long before now the entry was created
func (e Entry) TimeAgo(now time.Time) string {
	seconds := (now.UnixMilli() - e.Timestamp) / 1000
	for _, unit := range timeAgoUnits {
		interval := seconds / unit.seconds
		if interval == 1 {
			return fmt.Sprintf("1 %s ago", unit.name)
		} else if interval > 1 {
			return fmt.Sprintf("%d %ss ago", interval, unit.name)
		}
	}
	return "just now"
}
