package inspection

import (
	"github.com/h2non/filetype"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
)

const unknownMIMEType = "application/octet-stream"

// resolveMIMEType returns the declared MIME type, or sniffs one from the
// content when none was declared.
func resolveMIMEType(up domain.Upload) string {
	if up.MimeType != "" {
		return up.MimeType
	}
	kind, err := filetype.Match(up.Data)
	if err != nil || kind == filetype.Unknown {
		return unknownMIMEType
	}
	return kind.MIME.Value
}

// looksLikePDF reports whether the content carries the PDF magic number.
// A mismatch is logged, never used to skip inspection.
func looksLikePDF(data []byte) bool { return filetype.Is(data, "pdf") }
