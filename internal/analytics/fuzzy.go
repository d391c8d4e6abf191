package analytics

import "strings"

// similarity returns a 0-100 ratio between two strings, case-insensitive,
// based on Levenshtein distance over the longer string.
func similarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	dist := levenshtein(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	return (longest - dist) * 100 / longest
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// bestNameMatch finds the distinct name closest to target at or above the
// threshold. Falls back to case-insensitive substring containment when no
// candidate clears it.
func bestNameMatch(target string, names []string, threshold int) (string, bool) {
	best := ""
	bestScore := -1

	for _, name := range names {
		score := similarity(target, name)
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	if bestScore >= threshold {
		return best, true
	}

	lower := strings.ToLower(strings.TrimSpace(target))
	if lower != "" {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), lower) {
				return name, true
			}
		}
	}

	return "", false
}
