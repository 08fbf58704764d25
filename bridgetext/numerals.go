package bridgetext

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// swedishOnes spells 1-10 in Swedish, capitalized (sentence-initial form),
// per spec.md §4.10.
var swedishOnes = []string{
	"", "En", "Två", "Tre", "Fyra", "Fem", "Sex", "Sju", "Åtta", "Nio", "Tio",
}

// countWord returns the capitalized spelling for n in [1,10], else the
// plain digits.
func countWord(n int) string {
	if n >= 1 && n <= 10 {
		return swedishOnes[n]
	}
	return strconv.Itoa(n)
}

// countWordLower returns the lowercased spelling, used mid-sentence after
// a comma ("ytterligare två båtar...").
func countWordLower(n int) string {
	w := countWord(n)
	if w == "" {
		return w
	}
	return lowerFirst(w)
}

// lowerFirst lowercases the first rune; "Åtta" needs the full Unicode
// mapping, not an ASCII shortcut.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
