// Package storage manages the per-user on-disk layout: a root directory with
// one subdirectory per category, plus the path of the catalog database.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Categories are the fixed storage buckets. Every ingested file lands in
// exactly one of these subdirectories.
var Categories = []string{"image", "video", "json", "text", "audio", "pdf", "other"}

// Location describes one user's storage: where files live and where the
// catalog database sits. Both paths derive deterministically from the user
// name, so repeated provisioning always yields the same Location.
type Location struct {
	Root   string
	DBPath string
}

// CategoryDir returns the directory files of the given category are stored in.
func (l Location) CategoryDir(category string) string {
	return filepath.Join(l.Root, category)
}

// Provision derives the storage location for user under baseDir and creates
// the root directory and all category subdirectories that do not exist yet.
// It is safe to call any number of times; partial trees from an interrupted
// run are completed on the next call.
func Provision(baseDir, user string) (Location, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return Location{}, fmt.Errorf("resolve base dir %s: %w", baseDir, err)
	}
	loc := Location{
		Root:   filepath.Join(base, user+"_folder"),
		DBPath: filepath.Join(base, user+"_catalog.sqlite"),
	}
	if err := os.MkdirAll(loc.Root, 0755); err != nil {
		return Location{}, fmt.Errorf("create storage root %s: %w", loc.Root, err)
	}
	for _, c := range Categories {
		if err := os.MkdirAll(loc.CategoryDir(c), 0755); err != nil {
			return Location{}, fmt.Errorf("create category dir %s: %w", c, err)
		}
	}
	return loc, nil
}

var unsafeChars = regexp.MustCompile(`[^\w\-_\. ]+`)

// SanitizeName makes a filename safe to store: path separators become
// underscores, anything outside word characters, dashes, dots and spaces is
// dropped, spaces become underscores, and the result is capped at 200 chars.
func SanitizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// CopyFile copies src to dst, carrying the source's permission bits and
// modification time over to the copy. The source is left untouched.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close destination %s: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set times on %s: %w", dst, err)
	}
	return nil
}
