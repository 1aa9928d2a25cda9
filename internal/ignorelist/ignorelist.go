// Package ignorelist decides which email domains carry no language signal.
package ignorelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches domains against a configured list. A listed domain also
// covers its subdomains.
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a checker; entries are trimmed and lowercased
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			normalized[domain] = struct{}{}
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized ignored domains", zap.Int("count", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsIgnored reports whether domain or one of its parents is listed
func (c *Checker) IsIgnored(domain string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	domain = strings.ToLower(domain)
	for {
		if _, ok := c.domains[domain]; ok {
			if c.logger != nil {
				c.logger.Debug("Domain is ignored", zap.String("domain", domain))
			}
			return true
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			return false
		}
		domain = domain[dot+1:]
	}
}
