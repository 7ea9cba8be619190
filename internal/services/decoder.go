package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StreamDecoder incrementally decodes UTF-8 text that arrives in arbitrary byte chunks. A multi-byte
// character split across two chunks is held back until the rest of it arrives, so the concatenation
// of every Decode result plus Flush equals decoding the whole body at once.
//
// Invalid byte sequences are replaced with U+FFFD. A StreamDecoder is not safe for concurrent use.
type StreamDecoder struct {
	t       transform.Transformer
	pending []byte
}

// NewStreamDecoder returns a decoder with an empty remainder.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{
		t: unicode.UTF8.NewDecoder(),
	}
}

// Decode consumes one chunk and returns the text that can be fully decoded so far. Bytes of an
// incomplete trailing character are kept for the next call.
func (d *StreamDecoder) Decode(chunk []byte) string {
	return d.decode(chunk, false)
}

// Flush decodes whatever remainder is still held, replacing an incomplete trailing character with
// U+FFFD, and resets the decoder.
func (d *StreamDecoder) Flush() string {
	s := d.decode(nil, true)
	d.t.Reset()
	return s
}

func (d *StreamDecoder) decode(chunk []byte, atEOF bool) string {
	src := append(d.pending, chunk...)
	d.pending = nil
	if len(src) == 0 {
		return ""
	}

	var sb strings.Builder
	// Each invalid byte expands to the 3-byte replacement character.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		sb.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return sb.String()
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return sb.String()
		case errors.Is(err, transform.ErrShortDst):
			if nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		default:
			// The UTF-8 decoder only reports buffer conditions; anything else is passed through
			// verbatim rather than dropped.
			sb.Write(src)
			return sb.String()
		}
	}
}
