package inspection

import (
	"sync"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/fifo"
)

// DefaultCacheCapacity bounds the number of successful extractions retained.
const DefaultCacheCapacity = 100

// ExtractionCache memoizes successful extraction results by fingerprint.
// Eviction is strict insertion order. Failed results are never stored, so a
// transient parse failure cannot mask a later successful parse.
type ExtractionCache struct {
	mu      sync.Mutex
	entries *fifo.Map[domain.Fingerprint, domain.ExtractionResult]
}

// NewExtractionCache creates a cache. A non-positive capacity uses
// DefaultCacheCapacity.
func NewExtractionCache(capacity int) *ExtractionCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ExtractionCache{
		entries: fifo.New[domain.Fingerprint, domain.ExtractionResult](capacity),
	}
}

// Get returns a copy of the cached result for fp.
func (c *ExtractionCache) Get(fp domain.Fingerprint) (domain.ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.entries.Get(fp)
	if !ok {
		return domain.ExtractionResult{}, false
	}
	return res.Clone(), true
}

// Put stores res under fp unless the extraction failed. It reports whether
// the result was stored.
func (c *ExtractionCache) Put(fp domain.Fingerprint, res domain.ExtractionResult) bool {
	if res.Failed {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Put(fp, res.Clone())
	return true
}

// Len returns the number of cached results.
func (c *ExtractionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
