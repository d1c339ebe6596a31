package topicstream

import (
	"sort"
	"sync"

	"hbar-desk/go-client/pkg/models"
)

// Log is the local view of one topic: strictly ascending by sequence
// number, no duplicates, regardless of arrival order. The stream is
// its only writer.
type Log struct {
	mu      sync.RWMutex
	topicID string
	records []models.TopicMessageRecord
	seen    map[uint64]struct{}
}

func NewLog(topicID string) *Log {
	return &Log{topicID: topicID, seen: make(map[uint64]struct{})}
}

func (l *Log) TopicID() string {
	return l.topicID
}

// Insert places rec by sequence number and reports whether it was new.
// Re-inserting an existing sequence number is a no-op, which is what
// makes backfill idempotent and live/backfill overlap harmless.
func (l *Log) Insert(rec models.TopicMessageRecord) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[rec.SequenceNumber]; dup {
		return false
	}
	l.seen[rec.SequenceNumber] = struct{}{}
	i := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].SequenceNumber > rec.SequenceNumber
	})
	l.records = append(l.records, models.TopicMessageRecord{})
	copy(l.records[i+1:], l.records[i:])
	l.records[i] = rec
	return true
}

// Read returns a consistent copy of the ordered log.
func (l *Log) Read() []models.TopicMessageRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.TopicMessageRecord(nil), l.records...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
