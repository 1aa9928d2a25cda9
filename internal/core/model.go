package core

import (
	"slices"
	"strings"
)

// Recipients represents the recipient group of a message being composed
type Recipients struct {
	To []string `json:"to"`
	CC []string `json:"cc,omitempty"`
}

// Compact returns a copy without blank addresses
func (r Recipients) Compact() Recipients {
	return Recipients{
		To: compactAddresses(r.To),
		CC: compactAddresses(r.CC),
	}
}

// IsEmpty reports whether the group has no TO and no CC address
func (r Recipients) IsEmpty() bool {
	return len(r.To) == 0 && len(r.CC) == 0
}

// IsSingle reports whether the group has exactly one TO and no CC
func (r Recipients) IsSingle() bool {
	return len(r.To) == 1 && len(r.CC) == 0
}

// All returns the TO addresses followed by the CC addresses
func (r Recipients) All() []string {
	all := make([]string, 0, len(r.To)+len(r.CC))
	all = append(all, r.To...)
	return append(all, r.CC...)
}

// Key returns the canonical key for the group
func (r Recipients) Key() string {
	return RecipientsKey(r)
}

func compactAddresses(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, address := range addresses {
		address = strings.TrimSpace(address)
		if address != "" {
			out = append(out, address)
		}
	}
	return out
}

// LanguageSet is an ordered list of spell-check language codes.
// Equality ignores order; storage keeps the insertion order.
type LanguageSet []string

// Equal compares two sets ignoring order
func (l LanguageSet) Equal(other LanguageSet) bool {
	if len(l) != len(other) {
		return false
	}
	a := slices.Clone(l)
	b := slices.Clone(other)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Clone returns an independent copy, never nil
func (l LanguageSet) Clone() LanguageSet {
	if l == nil {
		return LanguageSet{}
	}
	return slices.Clone(l)
}

// IsEmpty reports whether no language is assigned
func (l LanguageSet) IsEmpty() bool {
	return len(l) == 0
}

// Label identifies the notification shown to the user after a deduction
type Label string

const (
	// LabelSaved is shown when the languages come from stored history
	LabelSaved Label = "savedForRecipients"
	// LabelGuess is shown when the languages come from the domain heuristic
	LabelGuess Label = "deducedLang.guess"
	// LabelNoLanguage is shown when nothing is known about the recipients
	LabelNoLanguage Label = "noLangForRecipients"
)

// NotificationLevel controls which labels are shown
type NotificationLevel string

const (
	NotificationInfo  NotificationLevel = "info"
	NotificationWarn  NotificationLevel = "warn"
	NotificationError NotificationLevel = "error"
)

// Permits reports whether a label may be shown at this level.
// Only the "no language" label is filtered; it is hidden at error level.
func (n NotificationLevel) Permits(label Label) bool {
	if label == LabelNoLanguage {
		return n != NotificationError
	}
	return true
}

// ParseNotificationLevel maps a stored value to a level, falling back to info
func ParseNotificationLevel(value string) (NotificationLevel, bool) {
	switch NotificationLevel(strings.ToLower(strings.TrimSpace(value))) {
	case NotificationInfo:
		return NotificationInfo, true
	case NotificationWarn:
		return NotificationWarn, true
	case NotificationError:
		return NotificationError, true
	default:
		return NotificationInfo, false
	}
}
