package core

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager tracks the controllers alive in the process
type Manager struct {
	mu          sync.Mutex
	controllers []*Controller
	logger      *zap.Logger
}

// NewManager creates an empty manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("manager")}
}

// Add registers a controller; it is forgotten when it shuts down
func (m *Manager) Add(c *Controller) {
	m.mu.Lock()
	m.controllers = append(m.controllers, c)
	m.mu.Unlock()

	c.AddEventListener(EventShutdown, func(ctx context.Context, _ Event) error {
		m.remove(c)
		return nil
	})
}

// Controllers returns the registered controllers
func (m *Manager) Controllers() []*Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Controller, len(m.controllers))
	copy(out, m.controllers)
	return out
}

// ShutdownAll shuts down every registered controller
func (m *Manager) ShutdownAll(ctx context.Context) error {
	var errs error
	for _, c := range m.Controllers() {
		errs = multierr.Append(errs, c.Shutdown(ctx))
	}
	m.logger.Debug("Shut down all controllers", zap.Error(errs))
	return errs
}

func (m *Manager) remove(c *Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.controllers {
		if existing == c {
			m.controllers = append(m.controllers[:i:i], m.controllers[i+1:]...)
			return
		}
	}
}
