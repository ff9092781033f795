package extractortest

import "encoding/ascii85"

// ASCII85 encodes b with the PDF "<~" and "~>" delimiters.
func ASCII85(b []byte) []byte {
	out := make([]byte, ascii85.MaxEncodedLen(len(b)))
	n := ascii85.Encode(out, b)
	return append(append([]byte("<~"), out[:n]...), "~>"...)
}
