package ignorelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsIgnored(t *testing.T) {
	checker := NewChecker([]string{" Gmail.com ", "mail.example.org", ""}, zap.NewNop())

	tests := []struct {
		domain string
		want   bool
	}{
		{"gmail.com", true},
		{"GMAIL.COM", true},
		{"eu.gmail.com", true},
		{"notgmail.com", false},
		{"example.org", false},
		{"mail.example.org", true},
		{"com", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsIgnored(tt.domain))
		})
	}
}

func TestChecker_Empty(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsIgnored("gmail.com"))

	var checker *Checker
	assert.False(t, checker.IsIgnored("gmail.com"))
}
