// Package telemetry keeps a short in-memory history of recent inspections
// for development diagnostics. Nothing here influences a verdict.
package telemetry

import (
	"sync"
	"time"

	"github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/fifo"
)

const (
	// DefaultCapacity is how many recent requests the ring retains.
	DefaultCapacity = 10
	// PreviewLength is the number of characters of extracted text kept per entry.
	PreviewLength = 200
)

// Entry describes one processed upload.
type Entry struct {
	RequestID   string                 `json:"requestId"`
	Fingerprint inspection.Fingerprint `json:"fingerprint"`
	Filename    string                 `json:"filename"`
	Size        int64                  `json:"size"`
	MimeType    string                 `json:"mimeType"`
	Strategy    inspection.Strategy    `json:"strategyUsed"`
	TextPreview string                 `json:"textPreview"`
	DurationMs  int64                  `json:"durationMs"`
	Action      inspection.Action      `json:"finalAction"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Stats are the ring's cumulative counters.
type Stats struct {
	Processed int64 `json:"processed"`
	// Failures counts requests that needed the byte-level fallback.
	Failures int64 `json:"failures"`
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
}

// Ring is a bounded, request-keyed history of recent inspections.
type Ring struct {
	mu        sync.Mutex
	entries   *fifo.Map[string, Entry]
	processed int64
	failures  int64
}

// NewRing creates a Ring. A non-positive capacity uses DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: fifo.New[string, Entry](capacity)}
}

// Record stores e, evicting the oldest entry when the ring is full.
func (r *Ring) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries.Put(e.RequestID, e)
	r.processed++
	if e.Strategy == inspection.StrategyByteFallback {
		r.failures++
	}
}

// Entries returns the retained entries from oldest to newest.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Values()
}

// Stats returns a snapshot of the counters.
func (r *Ring) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Processed: r.processed,
		Failures:  r.failures,
		Entries:   r.entries.Len(),
		Capacity:  r.entries.Cap(),
	}
}

// Reset drops every entry and zeroes the counters.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Clear()
	r.processed = 0
	r.failures = 0
}

// Preview truncates text to PreviewLength characters.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}
