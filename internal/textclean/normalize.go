package textclean

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// Normalize converts s to Unicode NFC so visually identical sentences
// compare equal byte for byte.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// StripHTML removes every tag from s and decodes the entities the sanitizer
// leaves behind.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
