package utils

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/mikey/auto-dictionary/internal/core"
	"go.uber.org/zap"
)

// AddressProcessor cleans recipient addresses coming from outside the core
type AddressProcessor struct {
	logger *zap.Logger
}

// NewAddressProcessor creates a new AddressProcessor
func NewAddressProcessor(logger *zap.Logger) *AddressProcessor {
	return &AddressProcessor{
		logger: logger,
	}
}

// Normalize turns `"Name" <User@Example.com>` into `user@example.com`.
// Values that do not parse as an address are kept trimmed, since keys
// accept free-form recipients. Empty values are rejected.
func (p *AddressProcessor) Normalize(raw string) (string, bool) {
	value := strings.TrimSpace(p.SanitizeUTF8(raw))
	if value == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(value)
	if err != nil {
		p.logger.Debug("Keeping unparsable address as is", zap.String("address", value), zap.Error(err))
		return value, true
	}
	return strings.ToLower(addr.Address), true
}

// ParseHeader splits an address list such as a To header and normalizes each entry
func (p *AddressProcessor) ParseHeader(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	list, err := mail.ParseAddressList(value)
	if err != nil {
		p.logger.Debug("Address list did not parse, splitting on commas", zap.Error(err))
		return p.NormalizeAll(strings.Split(value, ","))
	}

	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, strings.ToLower(addr.Address))
	}
	return out
}

// NormalizeAll normalizes each value, dropping empty ones
func (p *AddressProcessor) NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if addr, ok := p.Normalize(value); ok {
			out = append(out, addr)
		}
	}
	return out
}

// Recipients builds normalized recipients from raw TO and CC values
func (p *AddressProcessor) Recipients(to, cc []string) core.Recipients {
	return core.Recipients{
		To: p.NormalizeAll(to),
		CC: p.NormalizeAll(cc),
	}
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (p *AddressProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	p.logger.Debug("Address sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}
