package expander

// productIter streams the Cartesian product of candidate sets without
// materializing it; combinations for wide cards can explode, and
// permission-denied candidates should not cost memory.
type productIter struct {
	sets [][]any
	idx  []int
	done bool
}

func newProductIter(sets [][]any) *productIter {
	it := &productIter{sets: sets, idx: make([]int, len(sets))}
	for _, s := range sets {
		if len(s) == 0 {
			it.done = true
			break
		}
	}
	return it
}

// next returns the current combination and advances the iterator. The
// empty product yields exactly one empty combination.
func (it *productIter) next() ([]any, bool) {
	if it.done {
		return nil, false
	}

	combo := make([]any, len(it.sets))
	for i, s := range it.sets {
		combo[i] = s[it.idx[i]]
	}

	// Advance the odometer, least significant position last.
	it.done = true
	for i := len(it.idx) - 1; i >= 0; i-- {
		it.idx[i]++
		if it.idx[i] < len(it.sets[i]) {
			it.done = false
			break
		}
		it.idx[i] = 0
	}
	return combo, true
}
