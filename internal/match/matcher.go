package match

import "strings"

// Threshold is the exclusive cutoff for declaring two identities a
// match. A pair scoring exactly this value does not match.
const Threshold = 0.8

// Score computes a normalized edit similarity between two identity
// strings in [0,1]. Inputs are case-folded; no other normalization is
// applied, so whitespace and punctuation differences count against the
// score. The ratio is 2*M/T where M is the total length of matching
// contiguous blocks and T the combined length of both strings. Two
// empty strings score 1.0.
func Score(a, b string) float64 {
	sa := []byte(strings.ToLower(a))
	sb := []byte(strings.ToLower(b))
	total := len(sa) + len(sb)
	if total == 0 {
		return 1.0
	}
	matched := matchingSize(sa, sb)
	return 2.0 * float64(matched) / float64(total)
}

// matchingSize sums the sizes of the matching blocks found by
// recursively locating the longest common substring and splitting
// around it, the same divide-and-conquer a sequence matcher uses.
func matchingSize(a, b []byte) int {
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(a), 0, len(b)}}
	matched := 0
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		i, j, k := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] within the
// given windows, preferring the earliest i and then the earliest j on
// ties so the block decomposition is deterministic.
func longestMatch(a, b []byte, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	b2j := make(map[byte][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestk
}
