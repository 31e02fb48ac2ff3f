// Package slug derives the human-readable identifiers cards are published under.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	MinLength = 3
	MaxLength = 100
)

var (
	validRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// vietnamese folds every accented lowercase Vietnamese letter to its base.
	vietnamese = strings.NewReplacer(foldPairs(map[string]string{
		"a": "áàảạãăắằẳặẵâấầẩậẫ",
		"e": "éèẻẹẽêếềểệễ",
		"i": "íìỉịĩ",
		"o": "óòỏọõôốồổộỗơớờởợỡ",
		"u": "úùủụũưứừửựữ",
		"y": "ýỳỷỵỹ",
		"d": "đ",
	})...)
)

func foldPairs(table map[string]string) []string {
	var pairs []string
	for base, accented := range table {
		for _, r := range accented {
			pairs = append(pairs, string(r), base)
		}
	}
	return pairs
}

// Make turns free text into a slug: lowercase ASCII letters and digits joined by
// single hyphens. It never fails; text with nothing usable yields "".
func Make(text string) string {
	s := vietnamese.Replace(strings.TrimSpace(strings.ToLower(text)))

	var b strings.Builder
	b.Grow(len(s))

	separator := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if separator && b.Len() > 0 {
				b.WriteByte('-')
			}
			separator = false
			b.WriteRune(r)
		case r == '-' || isSpace(r):
			separator = true
		}
	}
	return b.String()
}

// isSpace matches the JavaScript \s class so stored slugs stay stable: it
// includes U+FEFF and excludes U+0085, unlike unicode.IsSpace.
func isSpace(r rune) bool {
	if r == '\ufeff' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// Set is a collection of slugs already in use.
type Set map[string]struct{}

// NewSet builds a Set from the given slugs, skipping empty ones.
func NewSet(slugs ...string) Set {
	s := make(Set, len(slugs))
	for _, v := range slugs {
		s.Add(v)
	}
	return s
}

func (s Set) Add(slug string) {
	if slug != "" {
		s[slug] = struct{}{}
	}
}

func (s Set) Has(slug string) bool {
	_, ok := s[slug]
	return ok
}

// Resolve returns base if it is free, otherwise base-1, base-2, ... whichever
// comes first that is not in taken. The caller must Add the result to taken
// before resolving the next slug of the same batch.
func Resolve(base string, taken Set) string {
	if !taken.Has(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken.Has(candidate) {
			return candidate
		}
	}
}

// IsValid reports whether slug is acceptable as an explicitly chosen slug.
func IsValid(slug string) bool {
	return len(slug) >= MinLength && len(slug) <= MaxLength && validRegex.MatchString(slug)
}
