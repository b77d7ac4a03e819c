package spotify

import "strings"

const minPlaylistScore = 0.5

// playlistMatchScore compares a genre label with a playlist name. The score
// is the better of whole-string similarity and the share of genre tokens
// found in the name.
func playlistMatchScore(genre string, name string) (float64, bool) {
	g, n := genreTokens(genre), genreTokens(name)
	if len(g) == 0 || len(n) == 0 {
		return 0, false
	}

	score := max(similarity(strings.Join(g, " "), strings.Join(n, " ")), tokenCoverage(g, n))
	return score, score >= minPlaylistScore
}

// tokenCoverage is the share of want found anywhere in have.
func tokenCoverage(want, have []string) float64 {
	if len(want) == 0 {
		return 0
	}
	haveTokens := make(map[string]struct{}, len(have))
	for _, tok := range have {
		haveTokens[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range want {
		if _, ok := haveTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

func similarity(a string, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshteinDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

func levenshteinDistance(a string, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		copy(prev, curr)
	}

	return prev[len(rb)]
}
