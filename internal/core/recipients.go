package core

import (
	"slices"
	"strings"
)

const (
	// GroupMarker separates the TO part of a key from the CC part
	GroupMarker = "[cc]"
	// AddressSeparator joins the addresses inside each part of a key
	AddressSeparator = ","
)

// RecipientsKey builds the canonical key of a recipient group.
// TO and CC are sorted independently so the order given by the user does not matter.
func RecipientsKey(r Recipients) string {
	key := sortedJoin(r.To)
	if len(r.CC) > 0 {
		key += GroupMarker + sortedJoin(r.CC)
	}
	return key
}

// SingleKey returns the key of the singleton group {to: [address]}
func SingleKey(address string) string {
	return RecipientsKey(Recipients{To: []string{address}})
}

// KeyIsSingle reports whether a key was built from a singleton group
func KeyIsSingle(key string) bool {
	parts := strings.SplitN(key, GroupMarker, 2)
	if len(parts) == 2 && parts[1] != "" {
		return false
	}
	return parts[0] != "" && !strings.Contains(parts[0], AddressSeparator)
}

// DomainOf returns the part of an address after the last "@"
func DomainOf(address string) (string, bool) {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return "", false
	}
	return address[at+1:], true
}

func sortedJoin(addresses []string) string {
	sorted := slices.Clone(addresses)
	slices.Sort(sorted)
	return strings.Join(sorted, AddressSeparator)
}
