package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ahrav/pdfguard/internal/domain/inspection"
)

// standard reads the first MaxPages pages. Any page error abandons the
// strategy so the tolerant pass gets a chance.
func (e *Extractor) standard(ctx context.Context, data []byte) (inspection.ExtractionResult, bool) {
	return e.structured(ctx, data, e.cfg.MaxPages, false)
}

// alternative reads every page and skips the ones that fail to decode.
func (e *Extractor) alternative(ctx context.Context, data []byte) (inspection.ExtractionResult, bool) {
	return e.structured(ctx, data, 0, true)
}

func (e *Extractor) structured(
	ctx context.Context,
	data []byte,
	maxPages int,
	tolerant bool,
) (inspection.ExtractionResult, bool) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Debug(ctx, "structural parse failed", "error", err)
		return inspection.ExtractionResult{}, false
	}

	total := r.NumPage()
	limit := total
	if maxPages > 0 && maxPages < total {
		limit = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= limit; i++ {
		if ctx.Err() != nil {
			return inspection.ExtractionResult{}, false
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			if tolerant {
				e.logger.Debug(ctx, "skipping unreadable page", "page", i, "error", err)
				continue
			}
			e.logger.Debug(ctx, "page read failed", "page", i, "error", err)
			return inspection.ExtractionResult{}, false
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}

	return inspection.ExtractionResult{
		Text:      sb.String(),
		PageCount: total,
		Metadata:  documentInfo(r),
	}, true
}

// documentInfo flattens the trailer's Info dictionary.
func documentInfo(r *pdf.Reader) map[string]string {
	info := r.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return nil
	}

	md := make(map[string]string)
	for _, k := range info.Keys() {
		v := info.Key(k)
		switch v.Kind() {
		case pdf.String:
			md[k] = v.Text()
		case pdf.Name:
			md[k] = v.Name()
		case pdf.Integer:
			md[k] = fmt.Sprintf("%d", v.Int64())
		case pdf.Real:
			md[k] = fmt.Sprintf("%g", v.Float64())
		case pdf.Bool:
			md[k] = fmt.Sprintf("%t", v.Bool())
		}
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
