package core

import (
	"context"
)

// ComposeWindow is the adapter over the compose window being edited
type ComposeWindow interface {
	// Recipients returns the current TO and CC addresses
	Recipients(ctx context.Context) (Recipients, error)

	// Languages returns the spell-check languages currently active
	Languages(ctx context.Context) (LanguageSet, error)

	// CanSpellCheck reports whether the spell checker is ready; it may be false transiently
	CanSpellCheck(ctx context.Context) (bool, error)

	// SetLanguages applies spell-check languages; failures are retryable
	SetLanguages(ctx context.Context, languages LanguageSet) error

	// SetLabel shows a notification to the user
	SetLabel(ctx context.Context, label Label) error

	// IsSpellcheckEnabled reports whether the user enabled spell checking
	IsSpellcheckEnabled(ctx context.Context) (bool, error)
}

// Storage is the raw key-value backend used for persisted state and preferences
type Storage interface {
	// Get returns the raw value for a key and whether it exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a raw value
	Set(ctx context.Context, key string, value string) error
}

// LanguageStore maps recipient keys to language sets
type LanguageStore interface {
	// Get looks up a key and marks it as recently used
	Get(ctx context.Context, key string) (LanguageSet, bool, error)

	// Set stores the languages for a key
	Set(ctx context.Context, key string, languages LanguageSet) error
}

// LanguageGuesser infers a language from recipient addresses
type LanguageGuesser interface {
	// Guess returns the most likely language for the addresses, if any
	Guess(ctx context.Context, addresses []string) (string, bool, error)
}
