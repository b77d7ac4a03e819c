package spotify

import (
	"strings"
	"unicode"
)

// noiseTokens carry no genre information in playlist names.
var noiseTokens = map[string]struct{}{
	"best":     {},
	"clean":    {},
	"edition":  {},
	"explicit": {},
	"hits":     {},
	"mix":      {},
	"music":    {},
	"playlist": {},
	"radio":    {},
	"songs":    {},
	"the":      {},
	"top":      {},
	"vol":      {},
}

// compounds joins genre names that separators split apart, so "Lo-Fi",
// "lo fi" and "Lofi" compare equal.
var compounds = map[[2]string]string{
	{"lo", "fi"}:      "lofi",
	{"hip", "hop"}:    "hiphop",
	{"r", "b"}:        "rnb",
	{"k", "pop"}:      "kpop",
	{"synth", "wave"}: "synthwave",
}

// genreTokens lowercases a label, drops bracketed segments, splits on
// anything that is not a letter or digit, folds compounds and removes
// noise words.
func genreTokens(label string) []string {
	var (
		raw   []string
		word  strings.Builder
		depth int
	)
	flush := func() {
		if word.Len() > 0 {
			raw = append(raw, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(label) {
		switch {
		case r == '(' || r == '[':
			flush()
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	out := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if i+1 < len(raw) {
			if joined, ok := compounds[[2]string{tok, raw[i+1]}]; ok {
				tok = joined
				i++
			}
		}
		if _, drop := noiseTokens[tok]; drop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// normalizeSearchInput is the space-joined form of genreTokens.
func normalizeSearchInput(input string) string {
	return strings.Join(genreTokens(input), " ")
}

func fallbackIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
