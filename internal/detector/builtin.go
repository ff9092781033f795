package detector

import (
	regexp "github.com/wasilibs/go-re2"
)

// Finding categories produced by the built-in table.
const (
	CategoryAWSAccessKey = "AWS Access Key"
	CategoryAWSSecretKey = "AWS Secret Key"
	CategoryAPIKey       = "API Key"
	CategoryAuthToken    = "Auth Token"
	CategoryPrivateKey   = "Private Key"
	CategoryUUID         = "Possible Token"
)

const (
	awsAccessKeyPattern = `AKIA[0-9A-Z]{16}`
	awsSecretKeyPattern = `[A-Za-z0-9/+=]{40}`
	apiKeyPattern       = `(?i)(?:api[_-]?key|apikey|access[_-]?token|auth[_-]?token|secret[_-]?key|client[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9_\-./+=]{8,})`
	authTokenPattern    = `(?i)(?:bearer\s+|authorization\s*[:=]\s*["']?(?:basic\s+)?)([A-Za-z0-9\-._~+/]{16,}=*)`
	privateKeyPattern   = `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY-----`
	uuidPattern         = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
)

// structuralWindow is how far around a secret-shaped match the PDF noise
// filter looks.
const structuralWindow = 16

// structuralNoiseRe matches PDF object-model syntax. A 40 character base64
// run next to one of these is almost always a compressed stream fragment.
// Whole tokens only: prose such as "objective" or "upstream" is not syntax.
var structuralNoiseRe = regexp.MustCompile(
	`\b\d+\s+\d+\s+obj\b|\bendobj\b|\b(?:end)?stream\b|\bxref\b|\btrailer\b|/Filter\b|/Length\b|/FlateDecode\b`,
)

var awsAccessKeyRe = regexp.MustCompile(awsAccessKeyPattern)

// ContainsAWSAccessKey reports whether s contains an AWS access key id.
func ContainsAWSAccessKey(s string) bool { return awsAccessKeyRe.MatchString(s) }

// builtinRules returns a fresh copy of the ordered built-in table. Order is
// priority: findings are reported rule by rule.
func builtinRules() []Rule {
	return []Rule{
		{
			RuleID:   "aws-access-key",
			Category: CategoryAWSAccessKey,
			Regex:    awsAccessKeyPattern,
		},
		{
			// Kept deliberately broad; see DESIGN.md on false positives.
			RuleID:   "aws-secret-key",
			Category: CategoryAWSSecretKey,
			Regex:    awsSecretKeyPattern,
			reject:   nearStructuralNoise,
		},
		{
			RuleID:      "generic-api-key",
			Category:    CategoryAPIKey,
			Regex:       apiKeyPattern,
			SecretGroup: 1,
			Keywords:    []string{"key", "token", "secret"},
		},
		{
			RuleID:      "auth-token",
			Category:    CategoryAuthToken,
			Regex:       authTokenPattern,
			SecretGroup: 1,
			Keywords:    []string{"bearer", "authorization"},
		},
		{
			RuleID:   "private-key",
			Category: CategoryPrivateKey,
			Regex:    privateKeyPattern,
			Keywords: []string{"private key"},
		},
		{
			RuleID:   "uuid",
			Category: CategoryUUID,
			Regex:    uuidPattern,
		},
	}
}

// nearStructuralNoise reports whether PDF syntax overlaps the window around
// text[start:end]. The search runs over a wider slice so a word cut at the
// window edge cannot pass for a standalone token.
func nearStructuralNoise(text string, start, end int) bool {
	lo := max(0, start-structuralWindow)
	hi := min(len(text), end+structuralWindow)
	outerLo := max(0, lo-structuralWindow)
	outerHi := min(len(text), hi+structuralWindow)

	for _, loc := range structuralNoiseRe.FindAllStringIndex(text[outerLo:outerHi], -1) {
		if outerLo+loc[0] < hi && outerLo+loc[1] > lo {
			return true
		}
	}
	return false
}
