package counter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/auto-dictionary/internal/core"
)

// SuffixTable counts languages per email domain.
//
// Only exact domains are persisted. A derived counter also credits every
// parent suffix, so "a.foo.com" counts toward "foo.com" and "com" as well.
type SuffixTable struct {
	domains  *PairCounter
	suffixes *PairCounter
}

// NewSuffixTable creates an empty table
func NewSuffixTable() *SuffixTable {
	return &SuffixTable{
		domains:  NewPairCounter(),
		suffixes: NewPairCounter(),
	}
}

// Add counts one use of language for domain
func (s *SuffixTable) Add(domain, language string) {
	s.addN(domain, language, 1)
}

func (s *SuffixTable) addN(domain, language string, n int) {
	s.domains.AddN(domain, language, n)
	for _, suffix := range suffixesOf(domain) {
		s.suffixes.AddN(suffix, language, n)
	}
}

// Remove takes back one use of language for domain. Unknown pairs are ignored.
func (s *SuffixTable) Remove(domain, language string) {
	if s.domains.Freq(domain, language) == 0 {
		return
	}
	s.domains.Remove(domain, language)
	for _, suffix := range suffixesOf(domain) {
		s.suffixes.Remove(suffix, language)
	}
}

// Get returns the most used language for a domain or suffix. With
// withParents, an unknown domain falls back to its closest known parent.
func (s *SuffixTable) Get(domain string, withParents bool) (string, bool) {
	candidates := []string{domain}
	if withParents {
		candidates = suffixesOf(domain)
	}
	for _, suffix := range candidates {
		if language, ok := s.suffixes.Top(suffix); ok {
			return language, true
		}
	}
	return "", false
}

// Freq returns the stored count of an exact (domain, language) pair
func (s *SuffixTable) Freq(domain, language string) int {
	return s.domains.Freq(domain, language)
}

// Pairs lists the exact-domain entries in insertion order
func (s *SuffixTable) Pairs() []Triple {
	return s.domains.Pairs()
}

// Serialize encodes the table as [[domain, language, count], ...]
func (s *SuffixTable) Serialize() (string, error) {
	pairs := s.Pairs()
	rows := make([][]any, 0, len(pairs))
	for _, t := range pairs {
		rows = append(rows, []any{t.First, t.Second, t.Count})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode suffix table: %w", err)
	}
	return string(data), nil
}

// LoadSuffixTable decodes a serialized table. Entries with a non-positive
// count, an empty field or a group key are dropped and duplicates are merged;
// the returned flag tells whether anything had to be fixed.
func LoadSuffixTable(raw string) (*SuffixTable, bool, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, false, fmt.Errorf("failed to decode suffix table: %w", err)
	}

	table := NewSuffixTable()
	migrated := false
	for _, row := range rows {
		triple, ok := decodeTriple(row)
		if !ok || !validTriple(triple) {
			migrated = true
			continue
		}
		if table.domains.Freq(triple.First, triple.Second) > 0 {
			migrated = true
		}
		table.addN(triple.First, triple.Second, triple.Count)
	}
	return table, migrated, nil
}

func decodeTriple(row json.RawMessage) (Triple, bool) {
	var fields []json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil || len(fields) != 3 {
		return Triple{}, false
	}
	var t Triple
	if json.Unmarshal(fields[0], &t.First) != nil ||
		json.Unmarshal(fields[1], &t.Second) != nil ||
		json.Unmarshal(fields[2], &t.Count) != nil {
		return Triple{}, false
	}
	return t, true
}

func validTriple(t Triple) bool {
	return t.Count > 0 &&
		t.First != "" &&
		t.Second != "" &&
		!strings.Contains(t.First, core.GroupMarker)
}

// suffixesOf returns the domain followed by each parent suffix:
// "a.foo.com" gives ["a.foo.com", "foo.com", "com"].
func suffixesOf(domain string) []string {
	out := []string{domain}
	for rest := domain; ; {
		dot := strings.Index(rest, ".")
		if dot < 0 || dot == len(rest)-1 {
			return out
		}
		rest = rest[dot+1:]
		out = append(out, rest)
	}
}
