package catalog

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"mimestore/logging"
	"mimestore/models"
	"mimestore/storage"
)

// SearchLimit caps how many results a query may return, from either tier.
const SearchLimit = 500

// Result is the uniform descriptor both search tiers produce.
type Result struct {
	Category string `json:"category"`
	// Source is the stored filename, timestamp prefix and all.
	Source string `json:"source"`
	// Display is Source with the leading "<digits>_" prefix stripped.
	Display string `json:"display"`
	Path    string `json:"path"`
	// Preview carries precomputed JSON preview text when the index has it.
	Preview string `json:"json_preview,omitempty"`
}

// Searcher answers queries against one user's catalog, preferring the index
// and falling back to a walk of the storage tree.
type Searcher struct {
	loc   storage.Location
	db    *gorm.DB
	limit int
}

// NewSearcher wires a searcher to a storage location. gdb may be nil when no
// catalog database exists; every query then uses the filesystem tier.
func NewSearcher(loc storage.Location, gdb *gorm.DB) *Searcher {
	return &Searcher{loc: loc, db: gdb, limit: SearchLimit}
}

var stampPrefix = regexp.MustCompile(`^\d+_`)

// DisplayName strips the leading timestamp prefix from a stored filename.
func DisplayName(stored string) string {
	return stampPrefix.ReplaceAllString(stored, "")
}

// parseQuery splits a raw query into a substring pattern and an optional
// category filter. "type:<category>" queries filter by category only.
func parseQuery(query string) (pattern, category string) {
	q := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToLower(q), "type:") {
		return "", strings.ToLower(strings.TrimSpace(q[len("type:"):]))
	}
	return strings.ToLower(q), ""
}

// Search runs a query through both tiers. The index tier is skipped when no
// catalog handle exists; it is also abandoned when the substring match finds
// no rows at all, in which case the filesystem tier answers instead. An
// empty query returns nothing.
func (s *Searcher) Search(query string) []Result {
	pattern, category := parseQuery(query)
	if pattern == "" && category == "" {
		return []Result{}
	}

	if s.db != nil {
		if results, found := s.searchIndex(pattern, category); found {
			return results
		}
	}
	return s.searchTree(pattern, category)
}

// searchIndex is the index tier: a LIKE match over stored_path,
// original_path and json_search_text, newest first, with the category
// filter applied afterwards. found is false when the match produced no rows
// or the index could not be queried.
func (s *Searcher) searchIndex(pattern, category string) (results []Result, found bool) {
	like := "%" + pattern + "%"
	var recs []models.FileRecord
	err := s.db.
		Where("stored_path LIKE ? OR original_path LIKE ? OR json_search_text LIKE ?", like, like, like).
		Order("id desc").
		Limit(s.limit).
		Find(&recs).Error
	if err != nil {
		logging.Warnf("index search failed, falling back to filesystem: %v", err)
		return nil, false
	}
	if len(recs) == 0 {
		return nil, false
	}

	results = make([]Result, 0, len(recs))
	for _, r := range recs {
		cat := r.Category
		if cat == "" {
			cat = filepath.Base(filepath.Dir(r.StoredPath))
		}
		if category != "" && strings.ToLower(cat) != category {
			continue
		}
		name := filepath.Base(r.StoredPath)
		results = append(results, Result{
			Category: cat,
			Source:   name,
			Display:  DisplayName(name),
			Path:     r.StoredPath,
			Preview:  r.JSONPreview,
		})
	}
	return results, true
}

// searchTree is the filesystem tier: walk the category tree, taking each
// file's parent directory as its category. A file matches on filename, or on
// freshly extracted content for text and JSON files. Unreadable files are
// non-matches, never errors.
func (s *Searcher) searchTree(pattern, category string) []Result {
	results := []Result{}
	_ = filepath.WalkDir(s.loc.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(results) >= s.limit {
			return fs.SkipAll
		}

		cat := strings.ToLower(filepath.Base(filepath.Dir(path)))
		if category != "" && cat != category {
			return nil
		}

		name := d.Name()
		matched := pattern == "" || strings.Contains(strings.ToLower(name), pattern)
		if !matched {
			ext := strings.ToLower(filepath.Ext(name))
			if ext == ".json" || textExtensions[ext] {
				matched = strings.Contains(SearchableText(path), pattern)
			}
		}
		if matched {
			results = append(results, Result{
				Category: cat,
				Source:   name,
				Display:  DisplayName(name),
				Path:     path,
			})
		}
		return nil
	})
	return results
}
