package services_test

import (
	"strings"
	"testing"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/services"
	"github.com/stretchr/testify/assert"
)

func decodeChunks(chunks ...[]byte) string {
	dec := services.NewStreamDecoder()
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(dec.Decode(c))
	}
	sb.WriteString(dec.Flush())
	return sb.String()
}

func TestStreamDecoderChunking(t *testing.T) {
	whole := decodeChunks([]byte("Hello world"))
	split := decodeChunks([]byte("Hel"), []byte("lo wor"), []byte("ld"))

	assert.Equal(t, "Hello world", whole)
	assert.Equal(t, whole, split)
}

func TestStreamDecoderMultiByteSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "two byte", text: "pH of soil: é"},
		{name: "three byte", text: "गेहूं की खेती"},
		{name: "four byte", text: "crop 🌾 info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := []byte(tt.text)
			// Every split point, including ones inside a character.
			for i := 0; i <= len(b); i++ {
				got := decodeChunks(b[:i], b[i:])
				assert.Equal(t, tt.text, got, "split at %d", i)
			}
		})
	}
}

func TestStreamDecoderHoldsIncompleteCharacter(t *testing.T) {
	dec := services.NewStreamDecoder()
	grain := []byte("🌾")

	assert.Equal(t, "a", dec.Decode(append([]byte("a"), grain[:2]...)))
	assert.Equal(t, "", dec.Decode(grain[2:3]))
	assert.Equal(t, "🌾b", dec.Decode(append(grain[3:], 'b')))
	assert.Equal(t, "", dec.Flush())
}

func TestStreamDecoderInvalidBytes(t *testing.T) {
	got := decodeChunks([]byte{'o', 'k', 0xff, '!'})
	assert.Equal(t, "ok�!", got)
}

func TestStreamDecoderTruncatedAtEnd(t *testing.T) {
	grain := []byte("🌾")
	got := decodeChunks([]byte("rice "), grain[:2])
	// The incomplete sequence collapses to a single replacement character.
	assert.Equal(t, "rice \uFFFD", got)
}
