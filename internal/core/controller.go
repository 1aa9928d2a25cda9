package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrDeductionFailed is returned when the spell checker never became ready
var ErrDeductionFailed = errors.New("spell checker not ready, deduction failed")

// Options tunes the timing and retry behaviour of a controller
type Options struct {
	// Debounce is the interval after a manual change during which deduction is skipped
	Debounce time.Duration
	// MaxProbeAttempts is the number of readiness retries before giving up
	MaxProbeAttempts int
	// ProbeDelay is the wait between readiness probes
	ProbeDelay time.Duration
	// MaxApplyAttempts is the number of tries to apply deduced languages
	MaxApplyAttempts int
	// ApplyRetryDelay is the wait between apply attempts
	ApplyRetryDelay time.Duration
}

// DefaultOptions returns the stock controller timings
func DefaultOptions() Options {
	return Options{
		Debounce:         1500 * time.Millisecond,
		MaxProbeAttempts: 10,
		ProbeDelay:       time.Second,
		MaxApplyAttempts: 3,
		ApplyRetryDelay:  50 * time.Millisecond,
	}
}

// Option configures a Controller
type Option func(*Controller)

// WithOptions overrides the controller timings
func WithOptions(opts Options) Option {
	return func(c *Controller) {
		c.opts = opts
	}
}

// WithClock replaces the time source, used for the debounce window
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithName tags the controller logs with a window name
func WithName(name string) Option {
	return func(c *Controller) {
		c.name = name
	}
}

// DeduceOption configures a single DeduceLanguage call
type DeduceOption func(*deduceConfig)

type deduceConfig struct {
	attempt int
}

// WithAttempt starts the readiness probe at the given attempt. A call with
// a non-zero attempt is treated as a retry and bypasses the debounce window.
func WithAttempt(attempt int) DeduceOption {
	return func(c *deduceConfig) {
		c.attempt = attempt
	}
}

// lastOutcome remembers what was shown and applied for a recipient key
type lastOutcome struct {
	key       string
	languages LanguageSet
	label     Label
}

// Controller deduces spell-check languages for one compose window
type Controller struct {
	window  ComposeWindow
	store   LanguageStore
	guesser LanguageGuesser
	prefs   *Preferences
	bus     *EventBus
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
	name    string

	mu             sync.Mutex
	started        bool
	shutdown       bool
	lastUserChange time.Time
	last           *lastOutcome
	state          ProbeState
	attempt        int
}

// NewController creates a started controller for a compose window.
// The store and guesser are shared by every controller of the process.
func NewController(
	window ComposeWindow,
	store LanguageStore,
	guesser LanguageGuesser,
	prefs *Preferences,
	logger *zap.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		window:  window,
		store:   store,
		guesser: guesser,
		prefs:   prefs,
		opts:    DefaultOptions(),
		now:     time.Now,
		started: true,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = logger.Named("controller")
	if c.name != "" {
		c.logger = c.logger.With(zap.String("window", c.name))
	}
	c.bus = NewEventBus(c.logger)
	return c
}

// Name returns the window name given at construction
func (c *Controller) Name() string {
	return c.name
}

// AddEventListener subscribes to controller events and returns the unsubscribe function
func (c *Controller) AddEventListener(eventType EventType, handler Handler) func() {
	return c.bus.Subscribe(eventType, handler)
}

// Start enables deduction
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// Stop disables deduction; in-flight retries abort at their next iteration
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// Shutdown stops the controller and notifies shutdown listeners once
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.started = false
	already := c.shutdown
	c.shutdown = true
	c.mu.Unlock()

	if already {
		return nil
	}
	c.logger.Debug("Shutting down controller")
	return c.bus.Publish(ctx, Event{Type: EventShutdown})
}

// State returns the readiness probe state and its attempt counter
func (c *Controller) State() (ProbeState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

// LanguageChanged records the languages the user just chose for the current recipients
func (c *Controller) LanguageChanged(ctx context.Context) error {
	recipients, err := c.window.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to read recipients: %w", err)
	}
	recipients = recipients.Compact()
	if recipients.IsEmpty() {
		c.logger.Debug("Ignoring language change without recipients")
		return nil
	}

	languages, err := c.window.Languages(ctx)
	if err != nil {
		return fmt.Errorf("failed to read languages: %w", err)
	}
	languages = languages.Clone()
	key := recipients.Key()

	if maxRecipients := c.prefs.MaxRecipients(ctx); len(recipients.To) > maxRecipients {
		c.logger.Debug("Too many recipients, not storing language",
			zap.Int("to_count", len(recipients.To)),
			zap.Int("max_recipients", maxRecipients))
		c.markUserChange()
		return nil
	}

	if c.isEcho(key, languages) {
		c.logger.Debug("Ignoring language change caused by deduction", zap.String("key", key))
		return nil
	}

	previous, hadPrevious, err := c.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read stored languages: %w", err)
	}
	if hadPrevious && previous.Equal(languages) {
		// already stored, possibly by another window
		c.remember(key, languages, LabelSaved)
		return nil
	}

	c.logger.Debug("Saving languages for recipients",
		zap.String("key", key),
		zap.Strings("languages", languages))
	if err := c.store.Set(ctx, key, languages); err != nil {
		return fmt.Errorf("failed to store languages: %w", err)
	}
	if err := c.storeIndividuals(ctx, recipients, key, languages); err != nil {
		return err
	}

	event := Event{
		Type:          EventAssignmentChanged,
		Recipients:    recipients,
		RecipientsKey: key,
		Languages:     languages,
	}
	if hadPrevious {
		event.PreviousLanguages = previous
	}
	c.publish(ctx, event)

	c.notify(ctx, key, languages, LabelSaved)
	c.markUserChange()
	return nil
}

// storeIndividuals saves the languages under each address that has no value
// of its own. Existing individual choices are never overwritten.
func (c *Controller) storeIndividuals(ctx context.Context, recipients Recipients, groupKey string, languages LanguageSet) error {
	for _, address := range recipients.All() {
		single := SingleKey(address)
		if single == groupKey {
			continue
		}
		_, exists, err := c.store.Get(ctx, single)
		if err != nil {
			return fmt.Errorf("failed to read stored languages: %w", err)
		}
		if exists {
			continue
		}
		if err := c.store.Set(ctx, single, languages); err != nil {
			return fmt.Errorf("failed to store individual languages: %w", err)
		}
		c.publish(ctx, Event{
			Type:          EventAssignmentChanged,
			Recipients:    Recipients{To: []string{address}},
			RecipientsKey: single,
			Languages:     languages,
		})
	}
	return nil
}

// DeduceLanguage computes and applies the languages for the current recipients
func (c *Controller) DeduceLanguage(ctx context.Context, opts ...DeduceOption) error {
	cfg := deduceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !c.isStarted() {
		c.logger.Debug("Controller stopped, skipping deduction")
		return nil
	}
	if cfg.attempt == 0 && c.inDebounceWindow() {
		c.logger.Debug("Language changed manually a moment ago, skipping deduction")
		return nil
	}

	ready, err := c.waitUntilReady(ctx, cfg.attempt)
	if err != nil || !ready {
		return err
	}

	recipients, err := c.window.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to read recipients: %w", err)
	}
	recipients = recipients.Compact()
	if recipients.IsEmpty() {
		return nil
	}
	enabled, err := c.window.IsSpellcheckEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to read spellcheck state: %w", err)
	}
	if !enabled {
		return nil
	}

	key := recipients.Key()
	languages, label, found, err := c.lookup(ctx, recipients, key)
	if err != nil {
		return err
	}

	completed := Event{
		Type:          EventDeductionCompleted,
		Recipients:    recipients,
		RecipientsKey: key,
	}

	if !found {
		c.logger.Debug("No language known for recipients", zap.String("key", key))
		c.notify(ctx, key, nil, LabelNoLanguage)
		c.publish(ctx, completed)
		return nil
	}

	current, err := c.window.Languages(ctx)
	if err != nil {
		return fmt.Errorf("failed to read languages: %w", err)
	}
	if !languages.Equal(current) {
		c.applyLanguages(ctx, languages)
	}

	c.notify(ctx, key, languages, label)
	completed.Languages = languages
	c.publish(ctx, completed)
	return nil
}

// lookup tries the exact key, then each address alone (TOs first, then CCs,
// in adapter order), then the domain heuristic.
func (c *Controller) lookup(ctx context.Context, recipients Recipients, key string) (LanguageSet, Label, bool, error) {
	languages, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to read stored languages: %w", err)
	}
	if ok {
		return languages, LabelSaved, true, nil
	}

	if !recipients.IsSingle() {
		for _, address := range recipients.All() {
			languages, ok, err := c.store.Get(ctx, SingleKey(address))
			if err != nil {
				return nil, "", false, fmt.Errorf("failed to read stored languages: %w", err)
			}
			if ok {
				return languages, LabelSaved, true, nil
			}
		}
	}

	if c.guesser == nil {
		return nil, "", false, nil
	}
	language, ok, err := c.guesser.Guess(ctx, recipients.All())
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to guess language: %w", err)
	}
	if ok {
		return LanguageSet{language}, LabelGuess, true, nil
	}
	return nil, "", false, nil
}

// applyLanguages tries to set the languages a bounded number of times.
// A final failure is logged and swallowed so the user is never blocked.
func (c *Controller) applyLanguages(ctx context.Context, languages LanguageSet) {
	attempts := c.opts.MaxApplyAttempts
	if attempts < 1 {
		attempts = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.window.SetLanguages(ctx, languages.Clone())
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.ApplyRetryDelay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Failed to apply languages, retrying",
				zap.Strings("languages", languages),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		c.logger.Error("Giving up applying languages",
			zap.Strings("languages", languages),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}
}

// waitUntilReady probes the spell checker until it is ready, the attempts
// run out, the controller is stopped or the context ends.
func (c *Controller) waitUntilReady(ctx context.Context, attempt int) (bool, error) {
	for {
		c.setState(StateProbing, attempt)
		ready, err := c.window.CanSpellCheck(ctx)
		if err != nil {
			c.logger.Debug("Spell check readiness probe failed", zap.Error(err))
		}
		if ready {
			c.setState(StateSucceeded, attempt)
			return true, nil
		}

		if attempt >= c.opts.MaxProbeAttempts {
			c.setState(StateFailed, attempt)
			c.logger.Warn("Spell checker never became ready", zap.Int("attempts", attempt))
			c.publish(ctx, Event{Type: EventDeductionFailed})
			return false, ErrDeductionFailed
		}

		attempt++
		c.setState(StateRetrying, attempt)
		timer := time.NewTimer(c.opts.ProbeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateIdle, 0)
			return false, ctx.Err()
		case <-timer.C:
		}

		if !c.isStarted() {
			c.setState(StateIdle, 0)
			return false, nil
		}
	}
}

// notify records the outcome for the key and shows the label when it
// differs from the last one shown for the same recipients.
func (c *Controller) notify(ctx context.Context, key string, languages LanguageSet, label Label) {
	c.mu.Lock()
	changed := c.last == nil || c.last.key != key || c.last.label != label
	c.last = &lastOutcome{key: key, languages: languages, label: label}
	c.mu.Unlock()

	if !changed {
		return
	}
	if level := c.prefs.NotificationLevel(ctx); !level.Permits(label) {
		c.logger.Debug("Label suppressed by notification level",
			zap.String("label", string(label)),
			zap.String("level", string(level)))
		return
	}
	if err := c.window.SetLabel(ctx, label); err != nil {
		c.logger.Warn("Failed to show label", zap.String("label", string(label)), zap.Error(err))
	}
}

// remember records the outcome for the key without showing a label
func (c *Controller) remember(key string, languages LanguageSet, label Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &lastOutcome{key: key, languages: languages, label: label}
}

// isEcho reports whether the languages are the ones the controller itself
// applied for the same recipients.
func (c *Controller) isEcho(key string, languages LanguageSet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || c.last.key != key || c.last.label == LabelNoLanguage {
		return false
	}
	return c.last.languages.Equal(languages)
}

func (c *Controller) publish(ctx context.Context, event Event) {
	if err := c.bus.Publish(ctx, event); err != nil {
		c.logger.Debug("Event delivered with errors", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func (c *Controller) markUserChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUserChange = c.now()
}

func (c *Controller) inDebounceWindow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUserChange.IsZero() {
		return false
	}
	return c.now().Sub(c.lastUserChange) < c.opts.Debounce
}

func (c *Controller) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *Controller) setState(state ProbeState, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.attempt = attempt
}
