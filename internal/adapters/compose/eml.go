package compose

import (
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/utils"
	"golang.org/x/text/language"
)

// Message is what a sent message tells about the languages used for its recipients
type Message struct {
	Recipients core.Recipients
	Languages  core.LanguageSet
	Subject    string
}

// ReadMessage parses an RFC 5322 message and extracts its recipients and
// the tags of its Content-Language header
func ReadMessage(r io.Reader, addresses *utils.AddressProcessor) (*Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	decoder := new(mimeWordDecoder)
	return &Message{
		Recipients: core.Recipients{
			To: addresses.ParseHeader(msg.Header.Get("To")),
			CC: addresses.ParseHeader(msg.Header.Get("Cc")),
		},
		Languages: ParseContentLanguage(msg.Header.Get("Content-Language")),
		Subject:   decoder.decode(msg.Header.Get("Subject")),
	}, nil
}

// ParseContentLanguage reads a comma separated list of language tags in
// canonical form. Invalid tags and duplicates are skipped.
func ParseContentLanguage(value string) core.LanguageSet {
	out := core.LanguageSet{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, err := language.Parse(part)
		if err != nil {
			continue
		}
		code := tag.String()
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
