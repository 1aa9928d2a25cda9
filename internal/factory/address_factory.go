package factory

import (
	"github.com/mikey/auto-dictionary/internal/utils"
	"go.uber.org/zap"
)

// AddressProcessorFactory creates address processors
type AddressProcessorFactory struct {
	logger *zap.Logger
}

// NewAddressProcessorFactory creates a new AddressProcessorFactory
func NewAddressProcessorFactory(logger *zap.Logger) *AddressProcessorFactory {
	return &AddressProcessorFactory{
		logger: logger,
	}
}

// CreateAddressProcessor creates a new AddressProcessor
func (f *AddressProcessorFactory) CreateAddressProcessor() *utils.AddressProcessor {
	return utils.NewAddressProcessor(f.logger.Named("addresses"))
}
