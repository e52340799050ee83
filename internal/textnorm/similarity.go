package textnorm

// tokenSimilarityFloor is the per-token edit-similarity required for two
// tokens to count as aligned.
const tokenSimilarityFloor = 0.84

// Jaccard computes token-set Jaccard similarity between two sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// AlignmentScore computes a softened token-alignment score: each token of a
// is greedily matched to its best unused token of b, a pair counting when the
// tokens are edit-similar enough or one is an initial of the other. The score
// is matched pairs over the larger token count.
func AlignmentScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	matched := 0
	for _, ta := range a {
		best := -1
		bestSim := 0.0
		for j, tb := range b {
			if used[j] {
				continue
			}
			sim := tokenSimilarity(ta, tb)
			if sim > bestSim {
				bestSim = sim
				best = j
			}
		}
		if best >= 0 && bestSim >= tokenSimilarityFloor {
			used[best] = true
			matched++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(matched) / float64(larger)
}

// tokenSimilarity scores two normalized tokens. Single-letter tokens are
// treated as initials and match any token sharing the first letter, so that
// "i" aligns with "immanuel".
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 1 || len(b) == 1 {
		if a[0] == b[0] {
			return 1
		}
		return 0
	}
	return editSimilarity(a, b)
}

// editSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)).
func editSimilarity(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 1
	}
	larger := la
	if lb > larger {
		larger = lb
	}
	return 1 - float64(levenshtein(a, b))/float64(larger)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
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
