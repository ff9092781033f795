package inspection

import "maps"

// MinTextLength is the shortest extracted text the orchestrator accepts as
// enough visibility into a document to hand it to the external scanner.
const MinTextLength = 10

// Strategy identifies which extraction technique produced a result.
type Strategy string

const (
	StrategyNone         Strategy = "none"
	StrategyStandard     Strategy = "standard"
	StrategyAlternative  Strategy = "alternative"
	StrategyByteFallback Strategy = "byte_fallback"
)

// ExtractionResult is the outcome of turning a PDF byte buffer into plain text.
// A failed result is data, not an error: it carries no text and no strategy.
type ExtractionResult struct {
	Text      string
	PageCount int
	Metadata  map[string]string
	Strategy  Strategy
	Failed    bool
	// Truncated is set when decoding stopped at a size limit, so part of the
	// document was never read.
	Truncated bool
}

// FailedExtraction returns the canonical failed result.
func FailedExtraction() ExtractionResult {
	return ExtractionResult{Strategy: StrategyNone, Failed: true}
}

// Sufficient reports whether the result carries enough text to be scanned
// externally.
func (r ExtractionResult) Sufficient() bool {
	return !r.Failed && len(r.Text) >= MinTextLength
}

// Clone returns a copy that does not share the metadata map, so callers can
// never mutate a cached result.
func (r ExtractionResult) Clone() ExtractionResult {
	out := r
	if r.Metadata != nil {
		out.Metadata = maps.Clone(r.Metadata)
	}
	return out
}
