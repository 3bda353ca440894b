package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer      = bluemonday.UGCPolicy()
	plainSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}

// SanitizePlain strips every tag, for single-line fields such as titles.
func SanitizePlain(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainSanitizer.Sanitize(input)))
}
