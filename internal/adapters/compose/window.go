// Package compose provides compose window adapters that live outside a mail client.
package compose

import (
	"context"
	"errors"
	"sync"

	"github.com/mikey/auto-dictionary/internal/core"
	"go.uber.org/zap"
)

// ErrApplyFailed is returned by SetLanguages while failures are scripted
var ErrApplyFailed = errors.New("spell checker rejected languages")

// LabelShown is one label rendered by a Window
type LabelShown struct {
	Label     core.Label
	Languages core.LanguageSet
	Text      string
}

// Window is an in-memory compose window. The CLI drives it from scripted
// events and tests use it to simulate a slow or failing spell checker.
type Window struct {
	name    string
	printer *LabelPrinter
	logger  *zap.Logger

	mu                sync.Mutex
	recipients        core.Recipients
	languages         core.LanguageSet
	spellcheckEnabled bool
	notReady          int
	failApply         int
	applyCalls        int
	labels            []LabelShown
	onLabel           func(LabelShown)
}

var _ core.ComposeWindow = (*Window)(nil)

// WindowOption configures a Window
type WindowOption func(*Window)

// WithLabelPrinter renders labels through printer
func WithLabelPrinter(printer *LabelPrinter) WindowOption {
	return func(w *Window) {
		w.printer = printer
	}
}

// WithLabelHook calls fn for every label shown
func WithLabelHook(fn func(LabelShown)) WindowOption {
	return func(w *Window) {
		w.onLabel = fn
	}
}

// NewWindow creates a window with spell checking enabled and ready
func NewWindow(name string, logger *zap.Logger, opts ...WindowOption) *Window {
	w := &Window{
		name:              name,
		logger:            logger.Named("compose").With(zap.String("window", name)),
		spellcheckEnabled: true,
		languages:         core.LanguageSet{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.printer == nil {
		w.printer = NewLabelPrinter("en")
	}
	return w
}

// Name returns the window name
func (w *Window) Name() string {
	return w.name
}

// Recipients returns the current recipients
func (w *Window) Recipients(ctx context.Context) (core.Recipients, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return core.Recipients{
		To: append([]string(nil), w.recipients.To...),
		CC: append([]string(nil), w.recipients.CC...),
	}, nil
}

// Languages returns the active spell-check languages
func (w *Window) Languages(ctx context.Context) (core.LanguageSet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.languages.Clone(), nil
}

// CanSpellCheck is false while scripted not-ready probes remain
func (w *Window) CanSpellCheck(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.notReady > 0 {
		w.notReady--
		return false, nil
	}
	return true, nil
}

// SetLanguages applies languages unless a scripted failure is pending
func (w *Window) SetLanguages(ctx context.Context, languages core.LanguageSet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applyCalls++
	if w.failApply > 0 {
		w.failApply--
		return ErrApplyFailed
	}
	w.languages = languages.Clone()
	w.logger.Debug("Applied languages", zap.Strings("languages", languages))
	return nil
}

// SetLabel renders and records a label
func (w *Window) SetLabel(ctx context.Context, label core.Label) error {
	w.mu.Lock()
	shown := LabelShown{
		Label:     label,
		Languages: w.languages.Clone(),
	}
	shown.Text = w.printer.Render(label, shown.Languages)
	w.labels = append(w.labels, shown)
	hook := w.onLabel
	w.mu.Unlock()

	w.logger.Debug("Showing label", zap.String("label", string(label)), zap.String("text", shown.Text))
	if hook != nil {
		hook(shown)
	}
	return nil
}

// IsSpellcheckEnabled reports the spell check toggle
func (w *Window) IsSpellcheckEnabled(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spellcheckEnabled, nil
}

// SetRecipients replaces the recipients, as the user editing the header would
func (w *Window) SetRecipients(recipients core.Recipients) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recipients = recipients
}

// ChooseLanguages sets the languages, as the user picking them would
func (w *Window) ChooseLanguages(languages core.LanguageSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.languages = languages.Clone()
}

// SetSpellcheckEnabled toggles spell checking
func (w *Window) SetSpellcheckEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spellcheckEnabled = enabled
}

// NotReadyFor makes the next n readiness probes fail
func (w *Window) NotReadyFor(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notReady = n
}

// FailApplyFor makes the next n SetLanguages calls fail
func (w *Window) FailApplyFor(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failApply = n
}

// ApplyCalls returns how many times SetLanguages was called
func (w *Window) ApplyCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyCalls
}

// Labels returns every label shown so far
func (w *Window) Labels() []LabelShown {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]LabelShown(nil), w.labels...)
}

// LastLabel returns the most recent label, if any
func (w *Window) LastLabel() (core.Label, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.labels) == 0 {
		return "", false
	}
	return w.labels[len(w.labels)-1].Label, true
}
