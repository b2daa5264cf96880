package textutil

// SequenceRatio computes a character-level similarity ratio between two
// strings in [0,1] as 2*M/T, where M is the total length of the longest
// matching blocks and T the combined length of both strings. Two empty
// strings are considered identical.
func SequenceRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := matchingLength(ra, rb)
	return 2.0 * float64(matched) / float64(total)
}

type matchSpan struct {
	alo, ahi, blo, bhi int
}

func matchingLength(a, b []rune) int {
	positions := make(map[rune][]int, len(b))
	for i, r := range b {
		positions[r] = append(positions[r], i)
	}

	matched := 0
	queue := []matchSpan{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		span := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		bestI, bestJ, bestSize := longestMatch(a, positions, span)
		if bestSize == 0 {
			continue
		}
		matched += bestSize
		if span.alo < bestI && span.blo < bestJ {
			queue = append(queue, matchSpan{span.alo, bestI, span.blo, bestJ})
		}
		if bestI+bestSize < span.ahi && bestJ+bestSize < span.bhi {
			queue = append(queue, matchSpan{bestI + bestSize, span.ahi, bestJ + bestSize, span.bhi})
		}
	}
	return matched
}

func longestMatch(a []rune, positions map[rune][]int, span matchSpan) (int, int, int) {
	bestI, bestJ, bestSize := span.alo, span.blo, 0
	// lengths[j] holds the length of the match ending at a[i-1], b[j-1].
	lengths := make(map[int]int)
	for i := span.alo; i < span.ahi; i++ {
		next := make(map[int]int)
		for _, j := range positions[a[i]] {
			if j < span.blo {
				continue
			}
			if j >= span.bhi {
				break
			}
			size := lengths[j-1] + 1
			next[j] = size
			if size > bestSize {
				bestI, bestJ, bestSize = i-size+1, j-size+1, size
			}
		}
		lengths = next
	}
	return bestI, bestJ, bestSize
}
