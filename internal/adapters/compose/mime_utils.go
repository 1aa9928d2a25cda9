package compose

import (
	"mime"
)

// mimeWordDecoder decodes RFC 2047 encoded header words, leaving the
// header untouched when it cannot be decoded
type mimeWordDecoder struct {
	dec mime.WordDecoder
}

func (d *mimeWordDecoder) decode(header string) string {
	decoded, err := d.dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}
