// Package detector implements local, pattern based secret detection over
// extracted document text.
package detector

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/ahrav/pdfguard/internal/domain/inspection"
)

// Detector scans text against an ordered rule table. It is stateless after
// construction and safe for concurrent use.
type Detector struct {
	rules []Rule
	hash  string
}

// New builds a Detector from the built-in rules followed by any custom rules.
func New(custom ...Rule) (*Detector, error) {
	rules := append(builtinRules(), custom...)
	h := md5.New()
	for i := range rules {
		if err := rules[i].compile(); err != nil {
			return nil, err
		}
		h.Write([]byte(rules[i].GenerateHash()))
	}
	return &Detector{rules: rules, hash: hex.EncodeToString(h.Sum(nil))}, nil
}

// Default returns a Detector with only the built-in rules.
func Default() *Detector {
	d, err := New()
	if err != nil {
		panic("detector: built-in rules failed to compile: " + err.Error())
	}
	return d
}

// RuleCount returns the number of active rules.
func (d *Detector) RuleCount() int { return len(d.rules) }

// RulesHash identifies the active rule set.
func (d *Detector) RulesHash() string { return d.hash }

// Detect returns findings in rule priority order, then match order within
// each rule. Rules are independent; one span of text may match several.
func (d *Detector) Detect(text string) []inspection.Finding {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var findings []inspection.Finding
	for i := range d.rules {
		r := &d.rules[i]
		if !r.hasKeyword(lowered) {
			continue
		}
		for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if r.reject != nil && r.reject(text, start, end) {
				continue
			}
			vs, ve := loc[2*r.SecretGroup], loc[2*r.SecretGroup+1]
			if vs < 0 {
				continue
			}
			value := text[vs:ve]
			if r.stopped(value) {
				continue
			}
			findings = append(findings, inspection.NewFinding(r.Category, value))
		}
	}
	return findings
}
