package utils

import (
	"net/url"
	"path"
	"strings"
)

// ConvertFilename is a helper function that percent-encodes a string.
func ConvertFilename(s string) string {
	out := url.QueryEscape(path.Base(s))
	out = strings.ReplaceAll(out, "+", "%20")
	return out
}

// DisplayName derives a human-readable media name from a URL, falling
// back to the raw input when the URL does not parse.
func DisplayName(s string) string {
	parsed, err := url.Parse(s)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return s
	}

	return path.Base(strings.TrimLeft(parsed.Path, "/"))
}
