// Package extractortest builds small PDF documents for tests.
package extractortest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

// Document describes a generated PDF. Each entry in Pages becomes one page
// showing that text with a standard Type1 font.
type Document struct {
	Pages []string
	Info  map[string]string
}

// Build renders d as a structurally valid PDF with a correct xref table.
func Build(d Document) []byte {
	var objs []string

	// 1: catalog, 2: page tree, 3: font, then a page and content object per page.
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(d.Pages))
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(d.Pages)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range d.Pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text))
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i,
		))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	infoRef := 0
	if len(d.Info) > 0 {
		var sb strings.Builder
		sb.WriteString("<<")
		for k, v := range d.Info {
			fmt.Fprintf(&sb, " /%s (%s)", k, escape(v))
		}
		sb.WriteString(" >>")
		objs = append(objs, sb.String())
		infoRef = len(objs)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R", len(objs)+1)
	if infoRef > 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", infoRef)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Stream is one stream object of a broken document.
type Stream struct {
	Filter string
	Body   []byte
}

// BrokenWithDeflateStream returns a document with no xref or trailer whose
// only stream is the zlib-compressed payload.
func BrokenWithDeflateStream(payload string) []byte {
	return BrokenWithStreams(Stream{Filter: "/FlateDecode", Body: Deflate([]byte(payload))})
}

// BrokenWithASCII85Stream returns a document with no xref or trailer whose
// only stream is the payload compressed and then ASCII85 encoded.
func BrokenWithASCII85Stream(payload string) []byte {
	return BrokenWithStreams(Stream{
		Filter: "[/ASCII85Decode /FlateDecode]",
		Body:   ASCII85(Deflate([]byte(payload))),
	})
}

// BrokenWithStreams returns a single-page document with no xref or trailer
// holding the given streams in order.
func BrokenWithStreams(streams ...Stream) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nendobj\n")
	for i, s := range streams {
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d /Filter %s >>\nstream\n", i+2, len(s.Body), s.Filter)
		buf.Write(s.Body)
		buf.WriteString("\nendstream\nendobj\n")
	}
	return buf.Bytes()
}

// Garbage returns binary noise with no recoverable text.
func Garbage(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 7)
	}
	return out
}

// Deflate zlib-compresses b.
func Deflate(b []byte) []byte {
	return deflate(b, zlib.DefaultCompression)
}

// Stored wraps b in a valid zlib stream of stored blocks, so b appears
// verbatim inside the compressed bytes.
func Stored(b []byte) []byte {
	return deflate(b, zlib.NoCompression)
}

func deflate(b []byte, level int) []byte {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		panic(err)
	}
	w.Write(b)
	w.Close()
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
