package utils

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// ErrUnknownMediaType - the URL extension maps to no known media type.
var ErrUnknownMediaType = errors.New("mimeFromURL: unknown media type")

// Streaming container formats the filetype database has no magic-byte
// matchers for.
var streamingMimeTypes = map[string]string{
	"m3u8": "application/vnd.apple.mpegurl",
	"m3u":  "audio/x-mpegurl",
	"mpd":  "application/dash+xml",
	"ts":   "video/mp2t",
}

// MimeFromURL derives a MIME-type hint from the extension of the media
// URL path. The filetype database is consulted first, with the
// platform MIME registry as a fallback.
func MimeFromURL(s string) (string, string, error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("mimeFromURL parse error: %w", err)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	if ext == "" {
		return "", "", ErrUnknownMediaType
	}

	if m, ok := streamingMimeTypes[ext]; ok {
		return m, ext, nil
	}

	if t := filetype.GetType(ext); t != filetype.Unknown {
		return t.MIME.Value, ext, nil
	}

	if m := mime.TypeByExtension("." + ext); m != "" {
		if i := strings.Index(m, ";"); i >= 0 {
			m = strings.TrimSpace(m[:i])
		}
		return m, ext, nil
	}

	return "", ext, ErrUnknownMediaType
}

// GetMimeDetailsFromBytes sniffs the media type from the first bytes
// of a stream.
func GetMimeDetailsFromBytes(b []byte) (string, error) {
	kind, err := filetype.Match(b)
	if err != nil {
		return "", fmt.Errorf("getMimeDetailsFromBytes error: %w", err)
	}

	return fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype), nil
}
