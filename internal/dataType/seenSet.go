package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const DefaultSeenBuckets = 16

type seenBucket struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func newSeenBucket() *seenBucket {
	return &seenBucket{
		entries: make(map[string]time.Time),
	}
}

// SeenSet maps message ids to the local time they were first observed.
// Ids are spread over independently locked buckets so the GC sweep only
// blocks one bucket at a time.
type SeenSet struct {
	buckets     []*seenBucket
	bucketCount uint64
}

func NewSeenSet(bucketCount int) *SeenSet {
	if bucketCount < 1 {
		bucketCount = 1
	}
	s := &SeenSet{
		buckets:     make([]*seenBucket, bucketCount),
		bucketCount: uint64(bucketCount),
	}
	for i := 0; i < bucketCount; i++ {
		s.buckets[i] = newSeenBucket()
	}
	return s
}

func (s *SeenSet) getBucket(id string) *seenBucket {
	h := xxhash.Sum64String(id)
	return s.buckets[h%s.bucketCount]
}

// MarkIfAbsent records id as first seen at now. It returns false and leaves
// the existing timestamp untouched when id is already present.
func (s *SeenSet) MarkIfAbsent(id string, now time.Time) bool {
	bucket := s.getBucket(id)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if _, exists := bucket.entries[id]; exists {
		return false
	}
	bucket.entries[id] = now
	return true
}

func (s *SeenSet) Contains(id string) bool {
	bucket := s.getBucket(id)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	_, ok := bucket.entries[id]
	return ok
}

// FirstSeen returns the time id was first observed.
func (s *SeenSet) FirstSeen(id string) (time.Time, bool) {
	bucket := s.getBucket(id)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	t, ok := bucket.entries[id]
	return t, ok
}

func (s *SeenSet) Len() int {
	total := 0
	for _, bucket := range s.buckets {
		bucket.mu.RLock()
		total += len(bucket.entries)
		bucket.mu.RUnlock()
	}
	return total
}

// Sweep removes every entry with now - firstSeen > maxAge and returns the
// number removed. now is the cycle's snapshot; entries stamped after it are kept.
func (s *SeenSet) Sweep(now time.Time, maxAge time.Duration) int {
	removed := 0
	for _, bucket := range s.buckets {
		bucket.mu.Lock()
		for id, firstSeen := range bucket.entries {
			if now.Sub(firstSeen) > maxAge {
				delete(bucket.entries, id)
				removed++
			}
		}
		bucket.mu.Unlock()
	}
	return removed
}
