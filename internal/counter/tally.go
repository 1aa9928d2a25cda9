package counter

// Tally counts single items over a short-lived batch
type Tally struct {
	counts map[string]int
	order  []string
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add counts one occurrence of item
func (t *Tally) Add(item string) {
	if _, seen := t.counts[item]; !seen {
		t.order = append(t.order, item)
	}
	t.counts[item]++
}

// Count returns the occurrences of item
func (t *Tally) Count(item string) int {
	return t.counts[item]
}

// First returns the most frequent item; ties go to the item added first
func (t *Tally) First() (string, bool) {
	best, bestCount := "", 0
	for _, item := range t.order {
		if c := t.counts[item]; c > bestCount {
			best, bestCount = item, c
		}
	}
	return best, bestCount > 0
}
