package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures covers letters that do not decompose into a base letter plus
// combining marks.
var ligatures = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH",
	"ı", "i",
)

// NormalizeText strips diacritics and folds Latin ligatures to ASCII so that
// "¿Dónde está mi señal?" and "¿Donde esta mi senal?" embed alike. Runes
// outside the Latin script are kept as they are.
func NormalizeText(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, ligatures.Replace(text))
	if err != nil {
		return text
	}
	return out
}
