// Package normalize canonicalises user-supplied strings before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameCI returns the case- and diacritic-insensitive form of a name,
// used for sorting and prefix search.
func NameCI(s string) string {
	return text.Fold(Name(s))
}

func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-text search parameter. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// ZipCode trims s and reduces a ZIP+4 code to its five-digit prefix.
func ZipCode(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 10 && s[5] == '-' {
		return s[:5]
	}
	return s
}

// List lowercases and trims each element, dropping blanks and duplicates
// while keeping first-seen order. Used for categories and tags.
func List(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CSV splits a comma-separated query value and normalizes it with List.
func CSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return List(strings.Split(s, ","))
}

// TextList trims each element and drops blanks, preserving case.
// Used for free-form lists such as services provided.
func TextList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = Name(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
