// AngelaMos | 2026
// normalize.go

package game

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var symbolStripper = strings.NewReplacer("™", "", "®", "", "©", "")

// NormalizeTitle folds a title to the form used for duplicate detection:
// accents and trademark symbols removed, lowercased, apostrophes dropped,
// any other punctuation turned into a space, whitespace collapsed.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, symbolStripper.Replace(title))
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Slugify turns a title into a URL slug.
func Slugify(title string) string {
	return strings.ReplaceAll(NormalizeTitle(title), " ", "-")
}

var romanNumerals = map[string]struct{}{
	"ii": {}, "iii": {}, "iv": {}, "v": {}, "vi": {}, "vii": {}, "viii": {},
	"ix": {}, "x": {}, "xi": {}, "xii": {}, "xiii": {}, "xiv": {}, "xv": {},
}

// numerals returns the sequel markers of a normalized title: digit tokens
// and roman numerals.
func numerals(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		if _, ok := romanNumerals[tok]; ok {
			out[tok] = struct{}{}
			continue
		}
		if strings.IndexFunc(tok, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
			out[tok] = struct{}{}
		}
	}
	return out
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func bigrams(s string) map[string]int {
	rs := []rune(s)
	out := make(map[string]int, len(rs))
	for i := 0; i+1 < len(rs); i++ {
		out[string(rs[i:i+2])]++
	}
	return out
}

// TitleSimilarity scores two titles in [0, 1] with the Sørensen-Dice
// coefficient over character bigrams of their normalized forms. Titles
// whose sequel numbers differ always score 0.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if !sameSet(numerals(na), numerals(nb)) {
		return 0
	}

	ba, bb := bigrams(na), bigrams(nb)
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	if total == 0 {
		return 0
	}

	shared := 0
	for gram, n := range ba {
		shared += min(n, bb[gram])
	}

	return 2 * float64(shared) / float64(total)
}
