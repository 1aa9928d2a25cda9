// Package counter holds the frequency structures behind the domain heuristic.
package counter

import (
	"container/list"
)

// Triple is one (first, second, count) entry of a PairCounter
type Triple struct {
	First  string
	Second string
	Count  int
}

type pairKey struct {
	first  string
	second string
}

type pairEntry struct {
	first  string
	second string
	count  int
}

// PairCounter counts occurrences of (first, second) pairs.
// Entries keep insertion order; an entry whose count reaches zero is removed.
type PairCounter struct {
	order   *list.List
	index   map[pairKey]*list.Element
	byFirst map[string][]*pairEntry
}

// NewPairCounter creates an empty counter
func NewPairCounter() *PairCounter {
	return &PairCounter{
		order:   list.New(),
		index:   make(map[pairKey]*list.Element),
		byFirst: make(map[string][]*pairEntry),
	}
}

// Add increments the pair by one and returns the new count
func (p *PairCounter) Add(first, second string) int {
	return p.AddN(first, second, 1)
}

// AddN increments the pair by n (n must be positive) and returns the new count
func (p *PairCounter) AddN(first, second string, n int) int {
	if n <= 0 {
		return p.Freq(first, second)
	}
	key := pairKey{first: first, second: second}
	if elem, ok := p.index[key]; ok {
		entry := elem.Value.(*pairEntry)
		entry.count += n
		return entry.count
	}

	entry := &pairEntry{first: first, second: second, count: n}
	p.index[key] = p.order.PushBack(entry)
	p.byFirst[first] = append(p.byFirst[first], entry)
	return n
}

// Remove decrements the pair by one and returns the new count.
// Removing an absent pair does nothing.
func (p *PairCounter) Remove(first, second string) int {
	key := pairKey{first: first, second: second}
	elem, ok := p.index[key]
	if !ok {
		return 0
	}
	entry := elem.Value.(*pairEntry)
	entry.count--
	if entry.count > 0 {
		return entry.count
	}

	p.order.Remove(elem)
	delete(p.index, key)
	seconds := p.byFirst[first]
	for i, e := range seconds {
		if e == entry {
			seconds = append(seconds[:i:i], seconds[i+1:]...)
			break
		}
	}
	if len(seconds) == 0 {
		delete(p.byFirst, first)
	} else {
		p.byFirst[first] = seconds
	}
	return 0
}

// Freq returns the count of a pair
func (p *PairCounter) Freq(first, second string) int {
	if elem, ok := p.index[pairKey{first: first, second: second}]; ok {
		return elem.Value.(*pairEntry).count
	}
	return 0
}

// Top returns the most frequent second item for first.
// Ties go to the pair inserted first.
func (p *PairCounter) Top(first string) (string, bool) {
	var best *pairEntry
	for _, entry := range p.byFirst[first] {
		if best == nil || entry.count > best.count {
			best = entry
		}
	}
	if best == nil {
		return "", false
	}
	return best.second, true
}

// Pairs lists every entry in insertion order
func (p *PairCounter) Pairs() []Triple {
	out := make([]Triple, 0, p.order.Len())
	for elem := p.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*pairEntry)
		out = append(out, Triple{First: entry.first, Second: entry.second, Count: entry.count})
	}
	return out
}

// Len returns the number of distinct pairs
func (p *PairCounter) Len() int {
	return p.order.Len()
}
