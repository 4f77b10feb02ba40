package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richText  = bluemonday.UGCPolicy()
	plainText = bluemonday.StrictPolicy()
)

// SanitizeText strips all markup, for single-line fields such as titles and names.
func SanitizeText(input string) string {
	return strings.TrimSpace(plainText.Sanitize(input))
}

// SanitizeRich keeps safe user-generated markup and removes scripts and handlers.
func SanitizeRich(input string) string {
	return strings.TrimSpace(richText.Sanitize(input))
}
