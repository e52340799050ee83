// Package textnorm provides diacritic/punctuation-insensitive string keys,
// multi-author splitting and token-set similarity scoring. Pure functions,
// no I/O.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// foldTransformer decomposes runes and drops combining marks, so that
	// "Dostoiévski" and "Dostoievski" produce the same key.
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

	// authorSeparators split multi-author strings. " e " covers Portuguese
	// author lists, matching the vault's primary language.
	authorSeparators = regexp.MustCompile(`(?i)\s+(?:and|e)\s+|\s*[&;/|]\s*`)
)

// Fold strips diacritics from s.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// Key returns the normalized comparison key for s: diacritics stripped,
// lowercased, runs of non-alphanumerics collapsed to single spaces.
func Key(s string) string {
	s = strings.ToLower(Fold(s))
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the normalized key split into tokens.
func Tokens(s string) []string {
	key := Key(s)
	if key == "" {
		return nil
	}
	return strings.Fields(key)
}

// TokenSet returns the set of normalized tokens in s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

// SplitAuthors splits a raw, possibly multi-author string into individual
// author names.
func SplitAuthors(raw string) []string {
	var authors []string
	for _, part := range authorSeparators.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			authors = append(authors, part)
		}
	}
	return authors
}

// PrimaryAuthor reduces a raw author string to its primary author, reordering
// a "Last, First" pattern to "First Last".
func PrimaryAuthor(raw string) string {
	authors := SplitAuthors(raw)
	if len(authors) == 0 {
		return ""
	}
	return reorderLastFirst(authors[0])
}

// reorderLastFirst turns "Kant, Immanuel" into "Immanuel Kant". Strings with
// more than one comma are left untouched.
func reorderLastFirst(name string) string {
	parts := strings.Split(name, ",")
	if len(parts) != 2 {
		return name
	}
	last := strings.TrimSpace(parts[0])
	first := strings.TrimSpace(parts[1])
	if last == "" || first == "" {
		return name
	}
	return first + " " + last
}
