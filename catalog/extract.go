package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// textPrefixLimit bounds how much of a text file is read for search text.
const textPrefixLimit = 100_000

// previewFieldLimit caps how many top-level scalar fields go into the preview.
const previewFieldLimit = 5

// JSONMeta is what the extractor pulls out of a JSON document.
type JSONMeta struct {
	// Keys lists the top-level key names, comma-joined, in document order.
	Keys string
	// Preview is a compact JSON object holding the first few top-level
	// scalar fields, or "" if the document has none.
	Preview string
	// SearchText is every scalar leaf of the document, depth-first in
	// document order, space-joined and lowercased.
	SearchText string
}

// ExtractJSON parses data as a JSON document with a top-level object and
// extracts key names, a scalar preview and flattened search text. Key order
// follows the document, not Go map iteration. A document whose top level is
// not an object yields an error; callers treat extraction errors as
// "no metadata", never as ingestion failures.
func ExtractJSON(data []byte) (JSONMeta, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return JSONMeta{}, fmt.Errorf("parse json: %w", err)
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return JSONMeta{}, errors.New("top-level json value is not an object")
	}

	var (
		keys    []string
		preview strings.Builder
		nScalar int
		leaves  []string
	)

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return JSONMeta{}, fmt.Errorf("parse json: %w", err)
		}
		key := kt.(string)
		keys = append(keys, key)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return JSONMeta{}, fmt.Errorf("parse json value for %q: %w", key, err)
		}

		if nScalar < previewFieldLimit && isScalar(raw) {
			kb, _ := json.Marshal(key)
			if nScalar > 0 {
				preview.WriteByte(',')
			}
			preview.Write(kb)
			preview.WriteByte(':')
			preview.Write(raw)
			nScalar++
		}

		if err := flattenLeaves(raw, &leaves); err != nil {
			return JSONMeta{}, fmt.Errorf("flatten json value for %q: %w", key, err)
		}
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return JSONMeta{}, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return JSONMeta{}, errors.New("trailing data after json document")
	}

	meta := JSONMeta{
		Keys:       strings.Join(keys, ","),
		SearchText: strings.ToLower(strings.Join(leaves, " ")),
	}
	if nScalar > 0 {
		meta.Preview = "{" + preview.String() + "}"
	}
	return meta, nil
}

// isScalar reports whether raw is a string, number or boolean. Nulls and
// composites don't belong in the preview.
func isScalar(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case '"', 't', 'f', '-':
		return true
	}
	return raw[0] >= '0' && raw[0] <= '9'
}

// flattenLeaves appends every scalar leaf inside raw to out, depth-first in
// document order. Object keys are not leaves; only values count.
func flattenLeaves(raw json.RawMessage, out *[]string) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	t, err := dec.Token()
	if err != nil {
		return err
	}
	return flattenToken(dec, t, out)
}

func flattenToken(dec *json.Decoder, t json.Token, out *[]string) error {
	switch v := t.(type) {
	case json.Delim:
		switch v {
		case '{':
			for dec.More() {
				if _, err := dec.Token(); err != nil { // key
					return err
				}
				vt, err := dec.Token()
				if err != nil {
					return err
				}
				if err := flattenToken(dec, vt, out); err != nil {
					return err
				}
			}
			_, err := dec.Token() // '}'
			return err
		case '[':
			for dec.More() {
				vt, err := dec.Token()
				if err != nil {
					return err
				}
				if err := flattenToken(dec, vt, out); err != nil {
					return err
				}
			}
			_, err := dec.Token() // ']'
			return err
		}
	case string:
		*out = append(*out, v)
	case json.Number:
		*out = append(*out, v.String())
	case bool:
		if v {
			*out = append(*out, "true")
		} else {
			*out = append(*out, "false")
		}
	case nil:
		*out = append(*out, "null")
	}
	return nil
}

// ExtractTextPrefix reads up to textPrefixLimit bytes of a text file,
// replaces invalid UTF-8 sequences instead of failing, and lowercases the
// result.
func ExtractTextPrefix(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, textPrefixLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	s := strings.ToValidUTF8(string(buf[:n]), "�")
	return strings.ToLower(s), nil
}

// SearchableText re-extracts search text for the filesystem fallback tier.
// JSON files are flattened, allow-listed text files are read as a prefix;
// everything else, including anything unreadable, contributes nothing.
func SearchableText(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		meta, err := ExtractJSON(data)
		if err != nil {
			return ""
		}
		return meta.SearchText
	case textExtensions[ext]:
		text, err := ExtractTextPrefix(path)
		if err != nil {
			return ""
		}
		return text
	}
	return ""
}
