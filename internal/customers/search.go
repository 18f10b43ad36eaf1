package customers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// arabicFolds maps common Arabic letter variants onto one canonical form so
// that searches match regardless of how the name was typed.
var arabicFolds = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ة", "ه",
	"ى", "ي",
	"ؤ", "و",
	"ئ", "ي",
)

// NormalizeSearch lowercases, strips diacritics (Latin accents and Arabic
// tashkeel) and folds Arabic letter variants. Both stored search text and
// incoming queries go through this, so matching is a plain substring test.
func NormalizeSearch(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = arabicFolds.Replace(folded)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

func searchText(c Customer) string {
	return NormalizeSearch(strings.Join([]string{c.Name, c.ContactPerson, c.Phone, c.City}, " "))
}
