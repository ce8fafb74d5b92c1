package ingest

import "sync"

const (
	defaultOrphanCap         = 32
	defaultOrphanMaxAttempts = 5
)

// orphanEntry is one approval waiting for its update request to materialize.
type orphanEntry struct {
	event    RawEvent
	attempts int
}

// orphanBuffer holds out-of-order approval events keyed by chain group id.
// Both the per-group depth and the retry count are bounded; anything beyond
// either bound is handed back for DLQ eviction.
type orphanBuffer struct {
	mu          sync.Mutex
	capPerGroup int
	maxAttempts int
	byGroup     map[string][]orphanEntry
}

func newOrphanBuffer(capPerGroup, maxAttempts int) *orphanBuffer {
	if capPerGroup <= 0 {
		capPerGroup = defaultOrphanCap
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOrphanMaxAttempts
	}
	return &orphanBuffer{
		capPerGroup: capPerGroup,
		maxAttempts: maxAttempts,
		byGroup:     make(map[string][]orphanEntry),
	}
}

// Add buffers the event. Returns false when the group's queue is full, in
// which case the caller must evict the event instead.
func (b *orphanBuffer) Add(chainGroupID string, event RawEvent, attempts int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.byGroup[chainGroupID]
	if len(queue) >= b.capPerGroup {
		return false
	}
	b.byGroup[chainGroupID] = append(queue, orphanEntry{event: event, attempts: attempts})
	return true
}

// Take removes and returns every buffered entry for the group, attempt
// counters already incremented for the retry about to happen.
func (b *orphanBuffer) Take(chainGroupID string) []orphanEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.byGroup[chainGroupID]
	if len(queue) == 0 {
		return nil
	}
	delete(b.byGroup, chainGroupID)
	for i := range queue {
		queue[i].attempts++
	}
	return queue
}

// Groups lists every chain group id with buffered entries.
func (b *orphanBuffer) Groups() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.byGroup))
	for id := range b.byGroup {
		out = append(out, id)
	}
	return out
}

// Exhausted reports whether the entry has used up its retry budget.
func (b *orphanBuffer) Exhausted(entry orphanEntry) bool {
	return entry.attempts >= b.maxAttempts
}

// Len reports the total buffered entries across all groups.
func (b *orphanBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, queue := range b.byGroup {
		total += len(queue)
	}
	return total
}
