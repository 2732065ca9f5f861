// Package sanitize normalises free-text display names into tokens that are
// safe to embed in stored filenames.
package sanitize

import (
	"path"
	"strings"
	"unicode"
)

// MaxLen is the maximum number of characters Name returns.
const MaxLen = 80

// forbidden lists characters that are dropped from display names.
const forbidden = `\/:*?"<>|%`

// Name trims and collapses whitespace, removes forbidden and control
// characters and truncates the result to MaxLen characters. An empty result
// means no usable name was provided.
func Name(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case isControl(r), strings.ContainsRune(forbidden, r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	// Fields splits on runs of spaces, which collapses them and trims both ends.
	s := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(s)
	if len(runes) > MaxLen {
		s = strings.TrimRight(string(runes[:MaxLen]), " ")
	}
	return s
}

// FilenamePart is Name with spaces replaced by underscores.
func FilenamePart(value string) string {
	return strings.ReplaceAll(Name(value), " ", "_")
}

// Ext returns the extension of the base name of an uploaded filename, with
// forbidden and control characters removed. Dotfiles such as ".bashrc" have
// no extension.
func Ext(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	ext := path.Ext(base)

	var b strings.Builder
	for _, r := range ext {
		if isControl(r) || unicode.IsSpace(r) || strings.ContainsRune(forbidden, r) {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() <= 1 {
		return ""
	}
	return b.String()
}

func isControl(r rune) bool {
	return r <= 0x1f || r == 0x7f
}
