package js5

import (
	"strings"
	"unicode/utf16"
)

// NameHash returns the 32-bit hash archives use to look up groups and files
// by name: h = 31*h + c over the UTF-16 code units of the lower-cased name.
//
// Lower-casing is rune by rune. Names whose lower case depends on context or
// locale, such as a capital sigma or a dotted capital I, may hash differently
// from caches that apply full locale-aware case mapping. ASCII names are
// unaffected.
func NameHash(name string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(strings.ToLower(name))) {
		h = 31*h + int32(c)
	}
	return h
}
