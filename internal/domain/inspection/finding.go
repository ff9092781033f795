package inspection

// Severity grades a finding. Only SeverityHigh is currently produced.
type Severity string

const SeverityHigh Severity = "high"

// redactedPrefixLen is how much of a matched secret survives redaction.
const redactedPrefixLen = 10

// Finding is one located secret-pattern match.
type Finding struct {
	Category string   `json:"type"`
	Value    string   `json:"value"`
	Severity Severity `json:"severity"`
}

// NewFinding builds a high severity finding, redacting the raw match.
func NewFinding(category, match string) Finding {
	return Finding{
		Category: category,
		Value:    Redact(match),
		Severity: SeverityHigh,
	}
}

// Redact keeps the first ten characters of a secret followed by an ellipsis
// so full credential material is never persisted in logs or responses.
func Redact(s string) string {
	r := []rune(s)
	if len(r) <= redactedPrefixLen {
		return string(r) + "..."
	}
	return string(r[:redactedPrefixLen]) + "..."
}

// Categories returns the distinct finding categories in first-seen order.
func Categories(findings []Finding) []string {
	seen := make(map[string]struct{}, len(findings))
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		if _, ok := seen[f.Category]; ok {
			continue
		}
		seen[f.Category] = struct{}{}
		out = append(out, f.Category)
	}
	return out
}
