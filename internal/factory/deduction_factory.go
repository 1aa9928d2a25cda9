package factory

import (
	"context"
	"fmt"

	"github.com/mikey/auto-dictionary/internal/config"
	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/heuristic"
	"github.com/mikey/auto-dictionary/internal/ignorelist"
	"github.com/mikey/auto-dictionary/internal/lru"
	"go.uber.org/zap"
)

// DeductionFactory owns the state shared by every controller of the process
// and creates controllers bound to it
type DeductionFactory struct {
	logger    *zap.Logger
	prefs     *core.Preferences
	store     *lru.Store
	heuristic *heuristic.Domain
	manager   *core.Manager
	opts      core.Options
	onLoad    bool
}

// NewPreferences creates the preference reader over the storage backend
func NewPreferences(cfg *config.Config, backend core.Storage, logger *zap.Logger) (*core.Preferences, error) {
	prefsCfg := cfg.GetPreferences()
	level, ok := core.ParseNotificationLevel(prefsCfg.NotificationLevel)
	if !ok {
		return nil, fmt.Errorf("invalid notification level: %s", prefsCfg.NotificationLevel)
	}
	keys := cfg.GetStorage().Keys

	return core.NewPreferences(backend,
		core.PreferenceKeys{
			MaxSize:           keys.MaxSize,
			MaxRecipients:     keys.MaxRecipients,
			NotificationLevel: keys.NotificationLevel,
		},
		core.PreferenceDefaults{
			MaxSize:           prefsCfg.MaxSize,
			MaxRecipients:     prefsCfg.MaxRecipients,
			NotificationLevel: level,
		},
		logger.Named("preferences"),
	), nil
}

// NewDeductionFactory builds the shared association store and heuristic.
// The store capacity is read from the preferences once, here.
func NewDeductionFactory(
	cfg *config.Config,
	backend core.Storage,
	prefs *core.Preferences,
	logger *zap.Logger,
) (*DeductionFactory, error) {
	deductionCfg, err := cfg.GetDeduction()
	if err != nil {
		return nil, err
	}
	heuristicCfg := cfg.GetHeuristic()
	keys := cfg.GetStorage().Keys

	maxSize := prefs.MaxSize(context.Background())
	store := lru.NewStore(backend, keys.Addresses, maxSize, logger)
	domain := heuristic.NewDomain(backend, keys.FreqTable, heuristicCfg.SuffixFallback,
		ignorelist.NewChecker(heuristicCfg.IgnoredDomains, logger), logger)
	domain.Attach(store)

	logger.Debug("Created shared deduction state",
		zap.Int("max_size", maxSize),
		zap.Bool("suffix_fallback", heuristicCfg.SuffixFallback))

	return &DeductionFactory{
		logger:    logger,
		prefs:     prefs,
		store:     store,
		heuristic: domain,
		manager:   core.NewManager(logger),
		opts: core.Options{
			Debounce:         deductionCfg.Debounce,
			MaxProbeAttempts: deductionCfg.MaxProbeAttempts,
			ProbeDelay:       deductionCfg.ProbeDelay,
			MaxApplyAttempts: deductionCfg.MaxApplyAttempts,
			ApplyRetryDelay:  deductionCfg.ApplyRetryDelay,
		},
		onLoad: deductionCfg.OnLoad,
	}, nil
}

// CreateController creates a controller for a compose window. It shares the
// store and heuristic with every other controller of this factory.
func (f *DeductionFactory) CreateController(window core.ComposeWindow, name string, opts ...core.Option) *core.Controller {
	opts = append([]core.Option{core.WithOptions(f.opts), core.WithName(name)}, opts...)
	c := core.NewController(window, f.store, f.heuristic, f.prefs, f.logger, opts...)
	f.heuristic.Watch(c)
	f.manager.Add(c)
	return c
}

// DeduceOnLoad tells whether a new window should be deduced right away
func (f *DeductionFactory) DeduceOnLoad() bool {
	return f.onLoad
}

// Store returns the shared association store
func (f *DeductionFactory) Store() *lru.Store {
	return f.store
}

// Heuristic returns the shared domain heuristic
func (f *DeductionFactory) Heuristic() *heuristic.Domain {
	return f.heuristic
}

// Preferences returns the preference reader
func (f *DeductionFactory) Preferences() *core.Preferences {
	return f.prefs
}

// Manager returns the controller manager
func (f *DeductionFactory) Manager() *core.Manager {
	return f.manager
}
