package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// TranscriptCache keeps finished transcriptions so a training video is only
// sent to the speech API once. Entries are keyed by a file signature, so a
// replaced video with the same name misses.
type TranscriptCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	stats      CacheStats
}

type CacheEntry struct {
	Transcription *Transcription
	CreatedAt     time.Time
	LastAccessed  time.Time
	HitCount      int
}

type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

func NewTranscriptCache(maxEntries int, ttl time.Duration) *TranscriptCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranscriptCache{
		cache:      make(map[string]*CacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// FileSignature hashes name, size and modification time of a video file
func FileSignature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	signature := fmt.Sprintf("%s_%d_%d", info.Name(), info.Size(), info.ModTime().UnixNano())
	hash := md5.Sum([]byte(signature))
	return fmt.Sprintf("%x", hash[:8]), nil
}

func (c *TranscriptCache) Get(signature string) (*Transcription, bool) {
	c.mutex.RLock()
	entry, found := c.cache[signature]
	c.mutex.RUnlock()

	if !found {
		c.recordMiss()
		return nil, false
	}

	if time.Since(entry.CreatedAt) > c.ttl {
		c.mutex.Lock()
		delete(c.cache, signature)
		c.mutex.Unlock()
		c.recordMiss()
		c.recordEviction()
		return nil, false
	}

	c.mutex.Lock()
	entry.LastAccessed = time.Now()
	entry.HitCount++
	c.mutex.Unlock()

	c.recordHit()
	copied := *entry.Transcription
	return &copied, true
}

func (c *TranscriptCache) Set(signature string, t *Transcription) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.cache[signature]; !exists && len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	copied := *t
	now := time.Now()
	c.cache[signature] = &CacheEntry{
		Transcription: &copied,
		CreatedAt:     now,
		LastAccessed:  now,
	}
}

// evictOldest removes the least recently used entry. Caller holds mutex.
func (c *TranscriptCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.recordEviction()
		log.Printf("🗑️  Evicted oldest transcript: %s", oldestKey)
	}
}

// PruneExpired drops entries older than the TTL and returns how many went
func (c *TranscriptCache) PruneExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, entry := range c.cache {
		if now.Sub(entry.CreatedAt) > c.ttl {
			delete(c.cache, key)
			c.recordEviction()
			removed++
		}
	}
	return removed
}

// RunCleanup prunes expired entries every interval until ctx is done
func (c *TranscriptCache) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.PruneExpired(); n > 0 {
				log.Printf("🧹 Pruned %d expired transcripts", n)
			}
		}
	}
}

func (c *TranscriptCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *TranscriptCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *TranscriptCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

func (c *TranscriptCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	cacheSize := len(c.cache)
	c.mutex.RUnlock()

	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":  cacheSize,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"evictions":   c.stats.Evictions,
		"ttl_hours":   int(c.ttl.Hours()),
	}
}
