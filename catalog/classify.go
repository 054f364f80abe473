// Package catalog implements the ingestion pipeline and the two-tier
// retrieval engine over a user's storage location and catalog database.
package catalog

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackMIME = "application/octet-stream"

// textExtensions is the extension fallback used when the MIME type gives no
// signal. It also bounds which files the text extractor will read.
var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
	".log": true,
	".py":  true,
}

// Classify maps a filename and its declared MIME type onto one of the seven
// storage categories. MIME rules win over the extension fallback; files that
// match nothing are "other". No I/O, no surprises.
func Classify(filename, declaredMIME string) (string, string) {
	m := declaredMIME
	if m == "" {
		m = fallbackMIME
	}

	switch {
	case strings.HasPrefix(m, "image/"):
		return m, "image"
	case strings.HasPrefix(m, "video/"):
		return m, "video"
	case strings.HasPrefix(m, "audio/"):
		return m, "audio"
	case m == "application/json":
		return m, "json"
	case m == "application/pdf":
		return m, "pdf"
	case strings.HasPrefix(m, "text/"):
		return m, "text"
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".json" {
		return m, "json"
	}
	if textExtensions[ext] {
		return m, "text"
	}
	return m, "other"
}

// InferMIME guesses a file's MIME type, first from its extension, then by
// sniffing content. Unknown files report application/octet-stream.
func InferMIME(path string) string {
	if m := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); m != "" {
		return stripParams(m)
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		return stripParams(mt.String())
	}
	return fallbackMIME
}

// stripParams drops media type parameters, e.g. "; charset=utf-8".
func stripParams(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
