package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackStem = "track"

// FoldDiacritics decomposes s and drops combining marks, so "Beyoncé" becomes
// "Beyonce". Characters without an ASCII base are left untouched.
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeToken replaces every character outside [A-Za-z0-9] with an
// underscore after folding diacritics. Leading and trailing underscores are
// trimmed; an empty result stays empty.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(FoldDiacritics(value))
	if value == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// SuggestedFilename builds "<artist>_<title>.<ext>" from sanitized tokens.
// Every character outside [A-Za-z0-9] becomes an underscore, with two
// additions: diacritics are folded first ("é" gives "e", not "_"), and
// underscores at either end of a token are trimmed. Missing parts are
// skipped; when both are empty the stem is "track".
func SuggestedFilename(artist, title, ext string) string {
	parts := make([]string, 0, 2)
	if a := SanitizeToken(artist); a != "" {
		parts = append(parts, a)
	}
	if t := SanitizeToken(title); t != "" {
		parts = append(parts, t)
	}
	stem := strings.Join(parts, "_")
	if stem == "" {
		stem = fallbackStem
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
