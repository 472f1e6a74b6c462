// Package util provides shared string utility functions used across packages.
package util

// TruncateRunes truncates s to at most maxRunes Unicode code points,
// appending "..." if truncation occurred.
// If maxRunes <= 0, s is returned unchanged.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// ClosestMatches returns up to n candidates with the smallest Levenshtein
// distance to target, sorted by distance ascending then lexically.
func ClosestMatches(target string, candidates []string, n int) []string {
	type scored struct {
		name string
		dist int
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredList = append(scoredList, scored{name: c, dist: Levenshtein(target, c)})
	}
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && (scoredList[j].dist < scoredList[j-1].dist ||
			(scoredList[j].dist == scoredList[j-1].dist && scoredList[j].name < scoredList[j-1].name)); j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}
	if n > len(scoredList) {
		n = len(scoredList)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, scoredList[i].name)
	}
	return out
}
