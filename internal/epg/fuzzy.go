// SPDX-License-Identifier: MIT

package epg

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// DefaultMatchThreshold is the minimum similarity for a reference programme to
// lend its description.
const DefaultMatchThreshold = 0.45

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)

// MatchKey is the comparison form of a title: transliterated, lower case,
// punctuation replaced by spaces.
func MatchKey(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two titles in [0,1] as the better of the edit-distance
// ratio and the token-set overlap.
func Similarity(a, b string) float64 {
	ka, kb := MatchKey(a), MatchKey(b)
	return max(editRatio(ka, kb), tokenSetRatio(ka, kb))
}

func editRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func tokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		out[f] = struct{}{}
	}
	return out
}

// FindBest returns the reference programme whose title is most similar to
// title, provided the score reaches threshold. Only references with a
// description are considered.
func FindBest(title string, reference []Programme, threshold float64) (Programme, float64, bool) {
	var (
		best      Programme
		bestScore float64
	)
	for _, r := range reference {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Desc) == "" {
			continue
		}
		if s := Similarity(title, r.Title); s > bestScore {
			best, bestScore = r, s
		}
	}
	if bestScore < threshold || bestScore == 0 {
		return Programme{}, bestScore, false
	}
	return best, bestScore, true
}

// Enrich fills empty descriptions from the best matching reference programme.
// It returns the number of programmes that gained a description.
func Enrich(progs []Programme, reference []Programme, threshold float64) int {
	if len(reference) == 0 {
		return 0
	}
	cache := make(map[string]string)
	n := 0
	for i := range progs {
		if strings.TrimSpace(progs[i].Desc) != "" {
			continue
		}
		key := MatchKey(progs[i].Title)
		desc, seen := cache[key]
		if !seen {
			if m, _, ok := FindBest(progs[i].Title, reference, threshold); ok {
				desc = m.Desc
			}
			cache[key] = desc
		}
		if desc != "" {
			progs[i].Desc = desc
			n++
		}
	}
	return n
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
