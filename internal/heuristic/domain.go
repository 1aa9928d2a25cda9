// Package heuristic guesses a language from the domains of recipient addresses.
package heuristic

import (
	"context"

	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/counter"
	"github.com/mikey/auto-dictionary/internal/lru"
	"github.com/mikey/auto-dictionary/internal/persistent"
	"go.uber.org/zap"
)

// DomainFilter tells which domains should be left out of the table
type DomainFilter interface {
	IsIgnored(domain string) bool
}

// Domain counts, per email domain, the languages chosen for single
// recipients, and guesses from those counts. It implements core.LanguageGuesser.
type Domain struct {
	table    *persistent.Object[*counter.SuffixTable]
	fallback bool
	filter   DomainFilter
	logger   *zap.Logger
}

var _ core.LanguageGuesser = (*Domain)(nil)

// NewDomain creates a heuristic persisted under key. With fallback, an
// unknown domain is looked up through its parent suffixes.
func NewDomain(storage core.Storage, key string, fallback bool, filter DomainFilter, logger *zap.Logger) *Domain {
	logger = logger.Named("heuristic")
	return &Domain{
		table:    persistent.New(storage, key, loadTable, emptyTable, logger),
		fallback: fallback,
		filter:   filter,
		logger:   logger,
	}
}

func loadTable(_ context.Context, raw string) (*counter.SuffixTable, bool, error) {
	return counter.LoadSuffixTable(raw)
}

func emptyTable(context.Context) (*counter.SuffixTable, error) {
	return counter.NewSuffixTable(), nil
}

// RecordAssignment counts the languages for the domain of a single-recipient key.
// Group keys are ignored.
func (d *Domain) RecordAssignment(ctx context.Context, key string, languages core.LanguageSet) error {
	domain, ok := d.singleDomain(key)
	if !ok || languages.IsEmpty() {
		return nil
	}
	d.logger.Debug("Recording domain languages",
		zap.String("domain", domain),
		zap.Strings("languages", languages))
	return d.table.Write(ctx, func(t *counter.SuffixTable) error {
		for _, language := range languages {
			t.Add(domain, language)
		}
		return nil
	})
}

// RecordRemoval takes back what RecordAssignment counted for the same key and languages
func (d *Domain) RecordRemoval(ctx context.Context, key string, languages core.LanguageSet) error {
	domain, ok := d.singleDomain(key)
	if !ok || languages.IsEmpty() {
		return nil
	}
	d.logger.Debug("Removing domain languages",
		zap.String("domain", domain),
		zap.Strings("languages", languages))
	return d.table.Write(ctx, func(t *counter.SuffixTable) error {
		for _, language := range languages {
			t.Remove(domain, language)
		}
		return nil
	})
}

// Guess returns the language most often guessed across the addresses' domains
func (d *Domain) Guess(ctx context.Context, addresses []string) (string, bool, error) {
	var (
		language string
		found    bool
	)
	err := d.table.Read(ctx, func(t *counter.SuffixTable) error {
		tally := counter.NewTally()
		for _, address := range addresses {
			domain, ok := core.DomainOf(address)
			if !ok || d.ignored(domain) {
				continue
			}
			if guess, ok := t.Get(domain, d.fallback); ok {
				tally.Add(guess)
			}
		}
		language, found = tally.First()
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return language, found, nil
}

// Pairs lists the stored (domain, language, count) triples
func (d *Domain) Pairs(ctx context.Context) ([]counter.Triple, error) {
	var pairs []counter.Triple
	err := d.table.Read(ctx, func(t *counter.SuffixTable) error {
		pairs = t.Pairs()
		return nil
	})
	return pairs, err
}

// OnEviction keeps the table in line with the association store
func (d *Domain) OnEviction(ctx context.Context, pair lru.Pair) {
	if err := d.RecordRemoval(ctx, pair.Key, pair.Languages); err != nil {
		d.logger.Error("Failed to remove evicted languages",
			zap.String("key", pair.Key),
			zap.Error(err))
	}
}

// OnAssignmentChanged replaces the previous languages of a key with the new ones
func (d *Domain) OnAssignmentChanged(ctx context.Context, event core.Event) error {
	if event.Type != core.EventAssignmentChanged {
		return nil
	}
	if err := d.RecordRemoval(ctx, event.RecipientsKey, event.PreviousLanguages); err != nil {
		return err
	}
	return d.RecordAssignment(ctx, event.RecipientsKey, event.Languages)
}

// Attach registers the heuristic as eviction handler of the store
func (d *Domain) Attach(store *lru.Store) func() {
	return store.OnEvict(d.OnEviction)
}

// Watch listens to a controller's assignment events until it shuts down
func (d *Domain) Watch(c *core.Controller) {
	unsubscribe := c.AddEventListener(core.EventAssignmentChanged, d.OnAssignmentChanged)
	var unsubscribeShutdown func()
	unsubscribeShutdown = c.AddEventListener(core.EventShutdown, func(context.Context, core.Event) error {
		unsubscribe()
		unsubscribeShutdown()
		return nil
	})
}

func (d *Domain) singleDomain(key string) (string, bool) {
	if !core.KeyIsSingle(key) {
		return "", false
	}
	domain, ok := core.DomainOf(key)
	if !ok || d.ignored(domain) {
		return "", false
	}
	return domain, true
}

func (d *Domain) ignored(domain string) bool {
	return d.filter != nil && d.filter.IsIgnored(domain)
}
