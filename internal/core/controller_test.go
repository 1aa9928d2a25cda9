package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikey/auto-dictionary/internal/adapters/compose"
	"github.com/mikey/auto-dictionary/internal/adapters/storage"
	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/counter"
	"github.com/mikey/auto-dictionary/internal/heuristic"
	"github.com/mikey/auto-dictionary/internal/lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	lruKey  = "addressesInfo"
	freqKey = "freqTableData"
)

// clock advances by step on every reading; a zero step freezes it
type clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	backend *storage.MemoryStorage
	store   *lru.Store
	domain  *heuristic.Domain
	prefs   *core.Preferences
	clock   *clock
	opts    core.Options
}

func newHarness(t *testing.T, maxSize int) *harness {
	t.Helper()
	backend := storage.NewMemoryStorage(zap.NewNop())
	return newHarnessWith(t, backend, maxSize)
}

func newHarnessWith(t *testing.T, backend *storage.MemoryStorage, maxSize int) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{
		backend: backend,
		store:   lru.NewStore(backend, lruKey, maxSize, logger),
		domain:  heuristic.NewDomain(backend, freqKey, true, nil, logger),
		prefs: core.NewPreferences(backend, core.PreferenceKeys{
			MaxSize:           lruKey + ".maxSize",
			MaxRecipients:     "maxRecipients",
			NotificationLevel: "notificationLevel",
		}, core.PreferenceDefaults{
			MaxSize:           maxSize,
			MaxRecipients:     10,
			NotificationLevel: core.NotificationInfo,
		}, logger),
		clock: &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: 1501 * time.Millisecond},
		opts: core.Options{
			Debounce:         1500 * time.Millisecond,
			MaxProbeAttempts: 10,
			ProbeDelay:       time.Millisecond,
			MaxApplyAttempts: 3,
			ApplyRetryDelay:  time.Millisecond,
		},
	}
	h.domain.Attach(h.store)
	return h
}

func (h *harness) controller(window core.ComposeWindow) *core.Controller {
	c := core.NewController(window, h.store, h.domain, h.prefs, zap.NewNop(),
		core.WithOptions(h.opts),
		core.WithClock(h.clock.Now))
	h.domain.Watch(c)
	return c
}

func newWindow(to []string, cc []string) *compose.Window {
	w := compose.NewWindow("test", zap.NewNop())
	w.SetRecipients(core.Recipients{To: to, CC: cc})
	return w
}

// choose simulates the user picking languages in a fresh window
func (h *harness) choose(t *testing.T, to, cc []string, languages ...string) {
	t.Helper()
	w := newWindow(to, cc)
	c := h.controller(w)
	w.ChooseLanguages(languages)
	require.NoError(t, c.LanguageChanged(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))
}

func (h *harness) stored(t *testing.T, key string) core.LanguageSet {
	t.Helper()
	for _, pair := range h.snapshot(t) {
		if pair.Key == key {
			return pair.Languages
		}
	}
	return nil
}

func (h *harness) snapshot(t *testing.T) []lru.Pair {
	t.Helper()
	pairs, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)
	return pairs
}

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func record(c *core.Controller) *recorder {
	r := &recorder{}
	for _, eventType := range []core.EventType{
		core.EventDeductionCompleted,
		core.EventDeductionFailed,
		core.EventShutdown,
	} {
		c.AddEventListener(eventType, func(_ context.Context, event core.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, event)
			return nil
		})
	}
	return r
}

func (r *recorder) types() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.EventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

func labelsOf(w *compose.Window) []core.Label {
	var out []core.Label
	for _, shown := range w.Labels() {
		out = append(out, shown.Label)
	}
	return out
}

func TestController_SavedLanguageIsReused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo"}, nil, "foolang")
	h.choose(t, []string{"foo"}, nil, "foolang")

	w := newWindow([]string{"foo"}, nil)
	c := h.controller(w)
	events := record(c)

	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"foolang"}, languages)
	assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w))

	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w), "same outcome is not labelled twice")
	assert.Equal(t, 1, w.ApplyCalls())
	assert.Equal(t, []core.EventType{core.EventDeductionCompleted, core.EventDeductionCompleted}, events.types())
}

func TestController_GroupNeverOverwritesIndividual(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"a@a.dom"}, nil, "toA-lang")
	h.choose(t, []string{"a@a.dom"}, []string{"b@b.dom"}, "toAccB-lang")

	assert.Equal(t, core.LanguageSet{"toA-lang"}, h.stored(t, "a@a.dom"))
	assert.Equal(t, core.LanguageSet{"toAccB-lang"}, h.stored(t, "b@b.dom"))
	assert.Equal(t, core.LanguageSet{"toAccB-lang"}, h.stored(t, "a@a.dom[cc]b@b.dom"))

	h.choose(t, []string{"b@b.dom"}, nil, "toB-lang")
	assert.Equal(t, core.LanguageSet{"toB-lang"}, h.stored(t, "b@b.dom"))

	w := newWindow([]string{"a@a.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"toA-lang"}, languages)

	// the individual change of b replaced its domain count
	pairs, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []counter.Triple{
		{First: "a.dom", Second: "toA-lang", Count: 1},
		{First: "b.dom", Second: "toB-lang", Count: 1},
	}, pairs)
}

func TestController_GuessFromDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "foobar")

	pairs, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []counter.Triple{{First: "bar.dom", Second: "foobar", Count: 1}}, pairs)

	w := newWindow([]string{"abc@bar.dom"}, nil)
	c := h.controller(w)
	events := record(c)
	require.NoError(t, c.DeduceLanguage(ctx))

	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"foobar"}, languages)
	assert.Equal(t, []core.Label{core.LabelGuess}, labelsOf(w))
	require.Len(t, events.events, 1)
	assert.Equal(t, core.LanguageSet{"foobar"}, events.events[0].Languages)
	assert.Equal(t, "abc@bar.dom", events.events[0].RecipientsKey)

	// a guess is not stored as a choice
	assert.Nil(t, h.stored(t, "abc@bar.dom"))
}

func TestController_EvictionUpdatesHeuristic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5)
	for _, address := range []string{"u@d1.dom", "u@d2.dom", "u@d3.dom", "u@d4.dom", "u@d5.dom", "u@d6.dom"} {
		h.choose(t, []string{address}, nil, "lang")
	}

	pairs := h.snapshot(t)
	require.Len(t, pairs, 5)
	assert.Equal(t, "u@d2.dom", pairs[0].Key)
	assert.Nil(t, h.stored(t, "u@d1.dom"))

	table, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Len(t, table, 5)
	for _, triple := range table {
		assert.NotEqual(t, "d1.dom", triple.First)
	}
}

func TestController_GroupAssignmentEvictsOldSingle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5)
	h.choose(t, []string{"foo@bar.dom"}, nil, "foobar")
	h.choose(t, []string{"a@x.org", "b@x.org", "c@y.net", "d@z.io"}, nil, "grp")

	assert.Nil(t, h.stored(t, "foo@bar.dom"))
	assert.Len(t, h.snapshot(t), 5)

	table, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []counter.Triple{
		{First: "x.org", Second: "grp", Count: 2},
		{First: "y.net", Second: "grp", Count: 1},
		{First: "z.io", Second: "grp", Count: 1},
	}, table)

	// bar.dom is forgotten, so nothing can be guessed for it
	w := newWindow([]string{"other@bar.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Equal(t, []core.Label{core.LabelNoLanguage}, labelsOf(w))
}

func TestController_TooManyRecipients(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"x@a.dom"}, nil, "en")
	require.NoError(t, h.prefs.Set(ctx, "max_recipients", "2"))
	h.clock.step = 0

	w := newWindow([]string{"p@a.dom", "q@a.dom", "r@a.dom"}, nil)
	c := h.controller(w)
	w.ChooseLanguages(core.LanguageSet{"de"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Len(t, h.snapshot(t), 1, "nothing stored for the large group")

	// a deduction right after the manual change must not revert it
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"de"}, languages)
	assert.Empty(t, w.Labels())

	h.clock.Advance(2 * time.Second)
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ = w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"en"}, languages)
	assert.Equal(t, []core.Label{core.LabelGuess}, labelsOf(w))
}

func TestController_DebounceAfterManualChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")
	h.clock.step = 0

	w := newWindow([]string{"foo@bar.dom"}, nil)
	c := h.controller(w)
	w.ChooseLanguages(core.LanguageSet{"it"})
	require.NoError(t, c.LanguageChanged(ctx))

	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"it"}, languages)

	// retries bypass the debounce window
	require.NoError(t, c.DeduceLanguage(ctx, core.WithAttempt(1)))
	languages, _ = w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"fr"}, languages)
}

func TestController_LegacySuffixData(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStorage(zap.NewNop())
	require.NoError(t, backend.Set(ctx, freqKey,
		`[["bar.dom","foobar",2],["bad.dom","xx",0],["a@x.dom[cc]b@y.dom","zz",1],["neg.dom","yy",-1]]`))
	h := newHarnessWith(t, backend, 100)

	w := newWindow([]string{"q@bar.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"foobar"}, languages)

	raw, ok, err := backend.Get(ctx, freqKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[["bar.dom","foobar",2]]`, raw)
}

func TestController_EchoIsNotStored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "foobar")

	w := newWindow([]string{"abc@bar.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))

	// the adapter reports the language the controller just applied
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Nil(t, h.stored(t, "abc@bar.dom"))

	w.ChooseLanguages(core.LanguageSet{"other"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Equal(t, core.LanguageSet{"other"}, h.stored(t, "abc@bar.dom"))
	assert.Equal(t, []core.Label{core.LabelGuess, core.LabelSaved}, labelsOf(w))
}

func TestController_MultipleLanguages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "en", "fr")

	w := newWindow([]string{"foo@bar.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))
	languages, _ := w.Languages(ctx)
	assert.Equal(t, core.LanguageSet{"en", "fr"}, languages)

	// already active in another order, nothing to apply
	w2 := newWindow([]string{"foo@bar.dom"}, nil)
	w2.ChooseLanguages(core.LanguageSet{"fr", "en"})
	c2 := h.controller(w2)
	require.NoError(t, c2.DeduceLanguage(ctx))
	assert.Equal(t, 0, w2.ApplyCalls())
	assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w2))
}

func TestController_DecompositionOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"y@y.dom"}, nil, "ylang")
	h.choose(t, []string{"z@z.dom"}, nil, "zlang")
	h.choose(t, []string{"w@w.dom"}, nil, "wlang")

	tests := []struct {
		name     string
		to       []string
		cc       []string
		expected core.LanguageSet
	}{
		{
			name:     "to beats cc",
			to:       []string{"x@x.dom", "y@y.dom"},
			cc:       []string{"z@z.dom"},
			expected: core.LanguageSet{"ylang"},
		},
		{
			name:     "first to wins",
			to:       []string{"z@z.dom", "y@y.dom"},
			expected: core.LanguageSet{"zlang"},
		},
		{
			name:     "first cc wins without to",
			cc:       []string{"w@w.dom", "z@z.dom"},
			expected: core.LanguageSet{"wlang"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWindow(tt.to, tt.cc)
			c := h.controller(w)
			require.NoError(t, c.DeduceLanguage(ctx))
			languages, _ := w.Languages(ctx)
			assert.Equal(t, tt.expected, languages)
			assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w))
		})
	}
}

func TestController_NoLanguageLabelShownOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)

	w := newWindow([]string{"who@nowhere.dom"}, nil)
	c := h.controller(w)
	events := record(c)
	require.NoError(t, c.DeduceLanguage(ctx))
	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Equal(t, []core.Label{core.LabelNoLanguage}, labelsOf(w))

	w.SetRecipients(core.Recipients{To: []string{"else@nowhere.dom"}})
	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Equal(t, []core.Label{core.LabelNoLanguage, core.LabelNoLanguage}, labelsOf(w))
	assert.Len(t, events.types(), 3)
	assert.Equal(t, 0, w.ApplyCalls())
}

func TestController_NotificationLevelError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	require.NoError(t, h.prefs.Set(ctx, "notification_level", "error"))

	w := newWindow([]string{"who@nowhere.dom"}, nil)
	c := h.controller(w)
	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Empty(t, w.Labels())

	w.ChooseLanguages(core.LanguageSet{"en"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w))
}

func TestController_NothingToDo(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")

	t.Run("no recipients", func(t *testing.T) {
		w := newWindow([]string{" "}, nil)
		c := h.controller(w)
		events := record(c)
		require.NoError(t, c.DeduceLanguage(ctx))
		w.ChooseLanguages(core.LanguageSet{"en"})
		require.NoError(t, c.LanguageChanged(ctx))
		assert.Empty(t, w.Labels())
		assert.Empty(t, events.types())
		assert.Len(t, h.snapshot(t), 1)
	})

	t.Run("spellcheck disabled", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.SetSpellcheckEnabled(false)
		c := h.controller(w)
		require.NoError(t, c.DeduceLanguage(ctx))
		assert.Empty(t, w.Labels())
		assert.Equal(t, 0, w.ApplyCalls())
	})

	t.Run("stopped", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		c := h.controller(w)
		c.Stop()
		require.NoError(t, c.DeduceLanguage(ctx))
		assert.Equal(t, 0, w.ApplyCalls())

		c.Start()
		require.NoError(t, c.DeduceLanguage(ctx))
		assert.Equal(t, 1, w.ApplyCalls())
	})
}

func TestController_ApplyRetries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")

	t.Run("succeeds on last attempt", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.FailApplyFor(2)
		c := h.controller(w)
		require.NoError(t, c.DeduceLanguage(ctx))
		assert.Equal(t, 3, w.ApplyCalls())
		languages, _ := w.Languages(ctx)
		assert.Equal(t, core.LanguageSet{"fr"}, languages)
	})

	t.Run("gives up quietly", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.FailApplyFor(5)
		c := h.controller(w)
		events := record(c)
		require.NoError(t, c.DeduceLanguage(ctx))
		assert.Equal(t, 3, w.ApplyCalls())
		languages, _ := w.Languages(ctx)
		assert.Empty(t, languages)
		assert.Equal(t, []core.Label{core.LabelSaved}, labelsOf(w))
		assert.Equal(t, []core.EventType{core.EventDeductionCompleted}, events.types())
	})
}

func TestController_ReadinessProbe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")

	t.Run("ready after retries", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.NotReadyFor(3)
		c := h.controller(w)
		require.NoError(t, c.DeduceLanguage(ctx))

		state, attempt := c.State()
		assert.Equal(t, core.StateSucceeded, state)
		assert.Equal(t, 3, attempt)
		languages, _ := w.Languages(ctx)
		assert.Equal(t, core.LanguageSet{"fr"}, languages)
	})

	t.Run("never ready", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.NotReadyFor(100)
		c := h.controller(w)
		events := record(c)
		err := c.DeduceLanguage(ctx)
		require.ErrorIs(t, err, core.ErrDeductionFailed)

		state, attempt := c.State()
		assert.Equal(t, core.StateFailed, state)
		assert.Equal(t, 10, attempt)
		assert.Equal(t, []core.EventType{core.EventDeductionFailed}, events.types())
		assert.Equal(t, 0, w.ApplyCalls())
		assert.Empty(t, w.Labels())
	})

	t.Run("stop aborts pending retry", func(t *testing.T) {
		h.opts.ProbeDelay = 20 * time.Millisecond
		defer func() { h.opts.ProbeDelay = time.Millisecond }()

		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.NotReadyFor(100)
		c := h.controller(w)
		events := record(c)

		done := make(chan error, 1)
		go func() { done <- c.DeduceLanguage(ctx) }()
		require.Eventually(t, func() bool {
			state, _ := c.State()
			return state == core.StateRetrying
		}, time.Second, time.Millisecond)
		c.Stop()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("deduction did not stop")
		}
		state, _ := c.State()
		assert.Equal(t, core.StateIdle, state)
		assert.Empty(t, events.types())
	})

	t.Run("context cancelled", func(t *testing.T) {
		w := newWindow([]string{"foo@bar.dom"}, nil)
		w.NotReadyFor(100)
		c := h.controller(w)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, c.DeduceLanguage(cancelled), context.Canceled)
	})
}

func TestController_Shutdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)

	w := newWindow([]string{"foo@bar.dom"}, nil)
	c := h.controller(w)
	events := record(c)
	require.NoError(t, c.Shutdown(ctx))
	require.NoError(t, c.Shutdown(ctx))
	assert.Equal(t, []core.EventType{core.EventShutdown}, events.types())

	// a shut down controller no longer deduces and the heuristic stopped listening
	require.NoError(t, c.DeduceLanguage(ctx))
	assert.Empty(t, w.Labels())

	w.ChooseLanguages(core.LanguageSet{"fr"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Equal(t, core.LanguageSet{"fr"}, h.stored(t, "foo@bar.dom"))
	pairs, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestController_AssignmentEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	h.choose(t, []string{"foo@bar.dom"}, nil, "fr")

	w := newWindow([]string{"foo@bar.dom"}, nil)
	c := h.controller(w)
	var changes []core.Event
	c.AddEventListener(core.EventAssignmentChanged, func(_ context.Context, event core.Event) error {
		changes = append(changes, event)
		return nil
	})

	w.ChooseLanguages(core.LanguageSet{"de"})
	require.NoError(t, c.LanguageChanged(ctx))
	require.Len(t, changes, 1)
	assert.Equal(t, "foo@bar.dom", changes[0].RecipientsKey)
	assert.Equal(t, core.LanguageSet{"fr"}, changes[0].PreviousLanguages)
	assert.Equal(t, core.LanguageSet{"de"}, changes[0].Languages)

	// unchanged value is not stored again
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Len(t, changes, 1)

	pairs, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []counter.Triple{{First: "bar.dom", Second: "de", Count: 1}}, pairs)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	manager := core.NewManager(zap.NewNop())

	first := h.controller(newWindow([]string{"a@x"}, nil))
	second := h.controller(newWindow([]string{"b@x"}, nil))
	manager.Add(first)
	manager.Add(second)
	assert.Len(t, manager.Controllers(), 2)

	require.NoError(t, first.Shutdown(ctx))
	assert.Equal(t, []*core.Controller{second}, manager.Controllers())

	events := record(second)
	require.NoError(t, manager.ShutdownAll(ctx))
	assert.Empty(t, manager.Controllers())
	assert.Equal(t, []core.EventType{core.EventShutdown}, events.types())
}

func TestController_ChoiceAfterOtherWindowStoredSameValue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)

	w := newWindow([]string{"foo@bar.dom"}, nil)
	c := h.controller(w)
	w.ChooseLanguages(core.LanguageSet{"fr"})
	require.NoError(t, c.LanguageChanged(ctx))

	h.choose(t, []string{"foo@bar.dom"}, nil, "de")

	// already stored by the other window
	w.ChooseLanguages(core.LanguageSet{"de"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Equal(t, core.LanguageSet{"de"}, h.stored(t, "foo@bar.dom"))

	w.ChooseLanguages(core.LanguageSet{"fr"})
	require.NoError(t, c.LanguageChanged(ctx))
	assert.Equal(t, core.LanguageSet{"fr"}, h.stored(t, "foo@bar.dom"))

	pairs, err := h.domain.Pairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []counter.Triple{{First: "bar.dom", Second: "fr", Count: 1}}, pairs)
}
