package catalog

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scheme derives local file names from catalog titles. Current names are
// NFC-normalized titles with filesystem-hostile characters removed; the
// legacy convention (still recognized when scanning for renamed files)
// replaced those characters and spaces with underscores.
type Scheme struct {
	Ext string
}

// NewScheme returns a naming scheme for the given file extension.
func NewScheme(ext string) Scheme {
	return Scheme{Ext: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")}
}

// FileName returns the current-convention file name for a title. When the
// title sanitizes to nothing, fallback (normally the item id) is used.
func (s Scheme) FileName(title, fallback string) string {
	stem := sanitizeStem(title)
	if stem == "" {
		stem = sanitizeStem(fallback)
	}
	if stem == "" {
		stem = "untitled"
	}
	return stem + "." + s.Ext
}

// LegacyFileName returns the prior-convention file name for a title.
func (s Scheme) LegacyFileName(title string) string {
	stem := legacyStem(title)
	if stem == "" {
		return ""
	}
	return stem + "." + s.Ext
}

// Reformat maps an existing file's base name onto the current convention.
// Used to decide whether a located old file needs a physical move: when the
// reformatted name already equals the expected name, only bookkeeping
// changes.
func (s Scheme) Reformat(base string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, "_", " ")
	return s.FileName(stem, "")
}

// forbidden covers the union of Windows and POSIX reserved filename
// characters; files may be served to players on either.
const forbidden = `/\:*?"<>|`

func sanitizeStem(title string) string {
	normalized := norm.NFC.String(strings.TrimSpace(title))
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if r < 0x20 || strings.ContainsRune(forbidden, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	return strings.Trim(cleaned, ". ")
}

func legacyStem(title string) string {
	trimmed := strings.TrimSpace(title)
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if r < 0x20 {
			continue
		}
		if r == ' ' || strings.ContainsRune(forbidden, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "._")
}
