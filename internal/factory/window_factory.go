package factory

import (
	"github.com/mikey/auto-dictionary/internal/adapters/compose"
	"github.com/mikey/auto-dictionary/internal/config"
	"go.uber.org/zap"
)

// WindowFactory creates compose windows rendering labels in the configured locale
type WindowFactory struct {
	printer *compose.LabelPrinter
	logger  *zap.Logger
}

// NewWindowFactory creates a new window factory
func NewWindowFactory(cfg *config.Config, logger *zap.Logger) *WindowFactory {
	return &WindowFactory{
		printer: compose.NewLabelPrinter(cfg.GetLocale()),
		logger:  logger,
	}
}

// CreateWindow creates a window; opts are applied after the label printer
func (f *WindowFactory) CreateWindow(name string, opts ...compose.WindowOption) *compose.Window {
	opts = append([]compose.WindowOption{compose.WithLabelPrinter(f.printer)}, opts...)
	return compose.NewWindow(name, f.logger, opts...)
}

// Printer returns the label printer
func (f *WindowFactory) Printer() *compose.LabelPrinter {
	return f.printer
}
