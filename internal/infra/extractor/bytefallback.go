package extractor

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"encoding/ascii85"
	"errors"
	"io"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/pdfguard/internal/detector"
	"github.com/ahrav/pdfguard/internal/domain/inspection"
)

const (
	defaultMaxInflateBytes      = 16 << 20
	defaultMaxTotalInflateBytes = 32 << 20

	// maxDictLookback bounds how much text before a "stream" keyword is
	// treated as its dictionary.
	maxDictLookback = 1024
)

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
	dictClose        = []byte(">>")
	ascii85Start     = []byte("<~")
	ascii85End       = []byte("~>")
	ascii85Filters   = [][]byte{[]byte("/ASCII85Decode"), []byte("/A85")}

	// pageObjectRe counts page leaves, not the /Pages tree nodes.
	pageObjectRe = regexp.MustCompile(`/Type\s*/Page\b`)

	errInflateEmpty = errors.New("inflated stream is empty")
)

// rawStream is one undecoded stream body and the dictionary text before it.
type rawStream struct {
	dict []byte
	body []byte
}

// ascii85 reports whether the stream declares or looks like ASCII85 armour.
func (s rawStream) ascii85() bool {
	if bytes.HasPrefix(bytes.TrimSpace(s.body), ascii85Start) {
		return true
	}
	for _, f := range ascii85Filters {
		if bytes.Contains(s.dict, f) {
			return true
		}
	}
	return false
}

// byteFallback recovers text straight from the raw buffer when the
// structural parser cannot make sense of the document.
func (e *Extractor) byteFallback(ctx context.Context, data []byte) (inspection.ExtractionResult, bool) {
	pages := len(pageObjectRe.FindAllIndex(data, -1))

	text, truncated := e.fromStreams(ctx, data)
	if len(text) <= inspection.MinTextLength {
		text = fromRawBytes(data)
	}
	if len(text) <= inspection.MinTextLength {
		return inspection.ExtractionResult{}, false
	}

	return inspection.ExtractionResult{Text: text, PageCount: pages, Truncated: truncated}, true
}

// fromStreams decodes stream bodies until the document's decode budget runs
// out. A decoded stream carrying an AWS access key becomes the whole result.
func (e *Extractor) fromStreams(ctx context.Context, data []byte) (string, bool) {
	budget := e.cfg.MaxTotalInflateBytes
	truncated := false

	var parts []string
	for _, s := range streamBodies(data) {
		if ctx.Err() != nil {
			break
		}
		if budget <= 0 {
			e.logger.Warn(ctx, "stream decode budget exhausted, skipping remaining streams",
				"budget_bytes", e.cfg.MaxTotalInflateBytes,
			)
			truncated = true
			break
		}

		decoded, cut, ok := e.decodeStream(s, min(e.cfg.MaxInflateBytes, budget))
		if !ok {
			continue
		}
		budget -= int64(len(decoded))
		truncated = truncated || cut

		if detector.ContainsAWSAccessKey(string(decoded)) {
			e.logger.Debug(ctx, "credential-bearing stream found during byte fallback")
			return collapseWhitespace(string(decoded)), truncated
		}
		if t := streamText(decoded); t != "" {
			parts = append(parts, t)
		}
	}
	return collapseWhitespace(joinParts(parts)), truncated
}

// streamBodies returns every stream body together with its dictionary. A
// "stream" keyword counts only when it directly follows a dictionary close,
// so names like /Substream and words in content never start a body.
func streamBodies(data []byte) []rawStream {
	var streams []rawStream
	pos := 0
	for pos < len(data) {
		i := bytes.Index(data[pos:], streamKeyword)
		if i < 0 {
			break
		}
		start := pos + i

		head := bytes.TrimRight(data[pos:start], " \t\r\n\f\x00")
		if !bytes.HasSuffix(head, dictClose) {
			pos = start + len(streamKeyword)
			continue
		}
		dict := head[max(0, len(head)-maxDictLookback):]

		bodyStart := start + len(streamKeyword)
		switch {
		case bytes.HasPrefix(data[bodyStart:], []byte("\r\n")):
			bodyStart += 2
		case bytes.HasPrefix(data[bodyStart:], []byte("\n")), bytes.HasPrefix(data[bodyStart:], []byte("\r")):
			bodyStart++
		}

		j := bytes.Index(data[bodyStart:], endstreamKeyword)
		if j < 0 {
			break
		}
		bodyEnd := bodyStart + j
		streams = append(streams, rawStream{dict: dict, body: trimEOL(data[bodyStart:bodyEnd])})
		pos = bodyEnd + len(endstreamKeyword)
	}
	return streams
}

// trimEOL drops the single end-of-line marker that precedes "endstream".
func trimEOL(b []byte) []byte {
	switch {
	case bytes.HasSuffix(b, []byte("\r\n")):
		return b[:len(b)-2]
	case bytes.HasSuffix(b, []byte("\n")), bytes.HasSuffix(b, []byte("\r")):
		return b[:len(b)-1]
	}
	return b
}

// decodeStream returns a stream's decoded bytes, at most limit of them, and
// whether the output was cut at that limit. ASCII85 armour is peeled first
// when declared; if that path fails the body is inflated directly, and an
// uncompressed content stream is used as it is.
func (e *Extractor) decodeStream(s rawStream, limit int64) ([]byte, bool, bool) {
	if s.ascii85() {
		if out, cut, ok := decodeASCII85(s.body, limit, e.cfg.MaxInflateBytes); ok {
			return out, cut, true
		}
	}

	if out, cut, err := inflate(s.body, limit); err == nil {
		return out, cut, true
	}
	if printableRatio(s.body) >= 0.85 {
		out, cut := capBytes(s.body, limit)
		return out, cut, true
	}
	return nil, false, false
}

// decodeASCII85 decodes an ASCII85 body and inflates the result. If the
// payload was not compressed its decoded form is used when readable.
func decodeASCII85(body []byte, limit, maxDecoded int64) ([]byte, bool, bool) {
	armoured := bytes.TrimPrefix(bytes.TrimSpace(body), ascii85Start)
	if end := bytes.Index(armoured, ascii85End); end >= 0 {
		armoured = armoured[:end]
	}

	// "z" expands one byte to four; ordinary groups shrink.
	decoded, cut, err := readLimited(
		ascii85.NewDecoder(bytes.NewReader(armoured)),
		max(maxDecoded, int64(len(armoured))),
	)
	if err != nil || cut || len(decoded) == 0 {
		return nil, false, false
	}

	if out, cut, err := inflate(decoded, limit); err == nil {
		return out, cut, true
	}
	if printableRatio(decoded) >= 0.85 {
		out, cut := capBytes(decoded, limit)
		return out, cut, true
	}
	return nil, false, false
}

// inflate tries a zlib wrapper first and raw Deflate second. Output beyond
// limit is dropped and reported as cut.
func inflate(b []byte, limit int64) ([]byte, bool, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(b)); err == nil {
		out, cut, err := readLimited(zr, limit)
		zr.Close()
		if err == nil && len(out) > 0 {
			return out, cut, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(b))
	defer fr.Close()
	out, cut, err := readLimited(fr, limit)
	if err != nil {
		return nil, false, err
	}
	if len(out) == 0 {
		return nil, false, errInflateEmpty
	}
	return out, cut, nil
}

// readLimited reads at most limit bytes and reports whether more remained.
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(out)) > limit {
		return out[:limit], true, nil
	}
	return out, false, nil
}

func capBytes(b []byte, limit int64) ([]byte, bool) {
	if int64(len(b)) > limit {
		return b[:limit], true
	}
	return b, false
}
