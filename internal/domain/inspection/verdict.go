package inspection

import "time"

// Action is the decision taken for an upload.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Source records which detector produced the verdict's findings.
type Source string

const (
	SourceNone     Source = "none"
	SourceLocal    Source = "local"
	SourceExternal Source = "external"
)

// Input validation error codes. These never reach extraction.
const (
	ErrCodeNoFile   = "no_file"
	ErrCodeEmptyPDF = "empty_pdf"
)

// Notes explaining non-obvious verdicts.
const (
	NoteExtractionFailed    = "extraction_failed"
	NoteInsufficientText    = "insufficient_text"
	NoteTextTruncated       = "text_truncated"
	NoteExternalUnavailable = "external_scan_unavailable"
	NoteLocalOverride       = "local_detector_override"
)

// Verdict is the allow/warn/block decision for one upload together with the
// evidence behind it.
//
// Verdicts are only built through the constructors below, each of which runs
// decide so that Action and Safe are always derived from SecretsFound and
// ExtractionError the same way: block if secrets were found, else warn if the
// content could not be fully inspected, else allow.
type Verdict struct {
	SecretsFound    bool        `json:"secrets"`
	Findings        []Finding   `json:"findings"`
	Action          Action      `json:"action"`
	Safe            bool        `json:"safe"`
	Note            string      `json:"note,omitempty"`
	ExtractionError bool        `json:"extractionError"`
	ErrorCode       string      `json:"error,omitempty"`
	TextLength      int         `json:"textLength"`
	ScannedAt       time.Time   `json:"scannedAt"`
	Fingerprint     Fingerprint `json:"fingerprint,omitempty"`
	Strategy        Strategy    `json:"strategy,omitempty"`
	Source          Source      `json:"source"`
}

func (v *Verdict) decide() {
	switch {
	case v.SecretsFound:
		v.Action = ActionBlock
	case v.ExtractionError:
		v.Action = ActionWarn
	default:
		v.Action = ActionAllow
	}
	v.Safe = v.Action == ActionAllow
	if v.Findings == nil {
		v.Findings = []Finding{}
	}
}

// RejectedVerdict blocks an upload that failed input validation. It is the
// only verdict that blocks without findings.
func RejectedVerdict(code string) *Verdict {
	v := &Verdict{ErrorCode: code, Note: code, Source: SourceNone}
	v.decide()
	v.Action = ActionBlock
	v.Safe = false
	return v
}

// LocalDetectionVerdict blocks on findings produced by the local detector.
func LocalDetectionVerdict(findings []Finding, note string) *Verdict {
	v := &Verdict{
		SecretsFound: len(findings) > 0,
		Findings:     findings,
		Note:         note,
		Source:       SourceLocal,
	}
	v.decide()
	return v
}

// InsufficientVisibilityVerdict warns when the content could not be read well
// enough to be inspected. Not being able to look is never an allow.
func InsufficientVisibilityVerdict(note string) *Verdict {
	v := &Verdict{ExtractionError: true, Note: note, Source: SourceNone}
	v.decide()
	return v
}

// ExternalVerdict adopts the external scanning service's result.
func ExternalVerdict(res ExternalScanResult) *Verdict {
	v := &Verdict{
		SecretsFound: res.SecretsFound || len(res.Findings) > 0,
		Findings:     res.Findings,
		Source:       SourceExternal,
	}
	v.decide()
	return v
}

// DegradedVerdict is produced when the external scanner could not corroborate
// a clean local scan.
func DegradedVerdict(note string) *Verdict {
	v := &Verdict{ExtractionError: true, Note: note, Source: SourceLocal}
	v.decide()
	return v
}

// WithExtraction stamps request-level observability fields on the verdict.
func (v *Verdict) WithExtraction(fp Fingerprint, res ExtractionResult, scannedAt time.Time) *Verdict {
	v.Fingerprint = fp
	v.Strategy = res.Strategy
	v.TextLength = len(res.Text)
	v.ScannedAt = scannedAt
	return v
}
