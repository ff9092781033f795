package detector

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	regexp "github.com/wasilibs/go-re2"
)

// Rule is one entry in the detection table.
type Rule struct {
	RuleID   string `yaml:"id"`
	Category string `yaml:"category"`
	Regex    string `yaml:"regex"`
	// SecretGroup selects the capture group reported as the finding value.
	// Zero reports the whole match.
	SecretGroup int `yaml:"secretGroup"`
	// Keywords short-circuit the regex when none of them appear in the
	// lower-cased text.
	Keywords []string `yaml:"keywords"`
	// StopWords suppress a match whose value contains any of them.
	StopWords []string `yaml:"stopwords"`

	re *regexp.Regexp
	// reject drops a match given the full text and the match offsets.
	reject func(text string, start, end int) bool
}

func (r *Rule) compile() error {
	if r.RuleID == "" {
		return fmt.Errorf("rule missing id")
	}
	if r.Category == "" {
		return fmt.Errorf("rule %s missing category", r.RuleID)
	}
	re, err := regexp.Compile(r.Regex)
	if err != nil {
		return fmt.Errorf("rule %s: invalid regex: %w", r.RuleID, err)
	}
	if r.SecretGroup < 0 || r.SecretGroup > re.NumSubexp() {
		return fmt.Errorf("rule %s: secret group %d out of range", r.RuleID, r.SecretGroup)
	}
	r.re = re
	for i, kw := range r.Keywords {
		r.Keywords[i] = strings.ToLower(kw)
	}
	return nil
}

func (r *Rule) hasKeyword(lowered string) bool {
	if len(r.Keywords) == 0 {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (r *Rule) stopped(value string) bool {
	for _, sw := range r.StopWords {
		if strings.Contains(value, sw) {
			return true
		}
	}
	return false
}

// GenerateHash generates a deterministic MD5 hash of the rule content. It is
// used to identify the active rule set in logs, not for security.
func (r Rule) GenerateHash() string {
	h := md5.New()

	h.Write([]byte(r.RuleID))
	h.Write([]byte(r.Category))
	h.Write([]byte(r.Regex))
	h.Write([]byte(fmt.Sprintf("%d", r.SecretGroup)))

	for _, keyword := range r.Keywords {
		h.Write([]byte(keyword))
	}
	for _, stopWord := range r.StopWords {
		h.Write([]byte(stopWord))
	}

	return hex.EncodeToString(h.Sum(nil))
}
