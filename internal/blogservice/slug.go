package blogservice

import (
	"regexp"
	"strings"
)

var (
	wordSeparatorRe   = regexp.MustCompile(`[\s_/]+`)
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
)

// DeriveSlug turns a title into a URL slug: lowercase, spaces to dashes,
// everything outside [a-z0-9-] stripped, runs of dashes collapsed.
//
//	"Hello World!" -> "hello-world"
func DeriveSlug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
