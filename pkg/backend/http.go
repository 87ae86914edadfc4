package backend

import (
	"io"
	"strings"
)

// bodySnippetLimit bounds how much of an error response is kept for
// diagnostics.
const bodySnippetLimit = 512

// ReadBodySnippet reads a short, single-line snippet of a response body
// for inclusion in error messages.
func ReadBodySnippet(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, bodySnippetLimit))
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(raw))
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
