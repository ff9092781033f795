package extractor

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/pdfguard/internal/detector"
	"github.com/ahrav/pdfguard/internal/domain/inspection"
)

const (
	minReadableRun = 20
	minStreamRun   = 4
)

var (
	// textShowRe matches literal strings passed to the Tj and TJ operators.
	textShowRe     = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj|\[([^\]]*)\]\s*TJ`)
	literalRe      = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	alphanumericRe = regexp.MustCompile(`[A-Za-z0-9]{15,}`)

	structuralKeywords = []string{
		"obj", "endobj", "stream", "endstream", "xref", "trailer", "startxref",
		"/Type", "/Filter", "/Length", "/Font", "/Page", "/Root", "%PDF", "%%EOF",
	}

	noiseTokens = []string{
		"flatedecode", "ascii85decode", "asciihexdecode", "lzwdecode", "dctdecode",
		"basefont", "fontdescriptor", "fontfile", "mediabox", "cropbox",
		"procset", "xobject", "extgstate", "colorspace", "devicergb",
		"winansiencoding", "tounicode", "descendantfonts", "cidfonttype",
	}
)

// streamText pulls shown strings out of a content stream, or printable runs
// when the stream has no text operators.
func streamText(decoded []byte) string {
	s := string(decoded)
	if ops := textShowRe.FindAllStringSubmatch(s, -1); len(ops) > 0 {
		var parts []string
		for _, m := range ops {
			if m[1] != "" {
				parts = append(parts, unescapeLiteral(m[1]))
				continue
			}
			for _, lit := range literalRe.FindAllStringSubmatch(m[2], -1) {
				parts = append(parts, unescapeLiteral(lit[1]))
			}
		}
		return strings.Join(parts, " ")
	}
	return joinParts(printableRuns(decoded, minStreamRun))
}

// fromRawBytes is the last line of recovery over the undecoded buffer:
// credential-shaped tokens first, then readable runs, then long tokens.
func fromRawBytes(data []byte) string {
	if tokens := detector.CredentialTokens(data); len(tokens) > 0 {
		return collapseWhitespace(strings.Join(tokens, " "))
	}

	var runs []string
	for _, r := range printableRuns(data, minReadableRun) {
		if !hasStructuralKeyword(r) {
			runs = append(runs, r)
		}
	}
	if text := collapseWhitespace(joinParts(runs)); len(text) > inspection.MinTextLength {
		return text
	}

	var tokens []string
	for _, tk := range alphanumericRe.FindAllString(string(data), -1) {
		if !isNoiseToken(tk) {
			tokens = append(tokens, tk)
		}
	}
	return collapseWhitespace(strings.Join(tokens, " "))
}

func printableRuns(data []byte, minLen int) []string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minLen {
			runs = append(runs, string(data[start:end]))
		}
		start = -1
	}
	for i, b := range data {
		if (b >= 0x20 && b <= 0x7e) || b == '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return runs
}

func hasStructuralKeyword(s string) bool {
	for _, kw := range structuralKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func isNoiseToken(tk string) bool {
	lower := strings.ToLower(tk)
	for _, n := range noiseTokens {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

var literalEscapes = strings.NewReplacer(
	`\n`, "\n", `\r`, "\n", `\t`, "\t", `\b`, "", `\f`, "",
	`\(`, "(", `\)`, ")", `\\`, `\`,
)

func unescapeLiteral(s string) string { return literalEscapes.Replace(s) }

func collapseWhitespace(s string) string { return strings.Join(strings.Fields(s), " ") }

func joinParts(parts []string) string { return strings.Join(parts, " ") }

func printableRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	n := 0
	for _, c := range b {
		if (c >= 0x20 && c <= 0x7e) || c == '\n' || c == '\r' || c == '\t' {
			n++
		}
	}
	return float64(n) / float64(len(b))
}
