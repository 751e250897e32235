package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barazo-forum/barazo-api/internal/sanitize"
)

func TestTitleStripsBidiOverridesAndNewlines(t *testing.T) {
	got := sanitize.Title("Hello‮world\nsecond line")
	assert.NotContains(t, got, "‮")
	assert.NotContains(t, got, "\n")
}

func TestContentNormalizesNFC(t *testing.T) {
	// "e" + combining acute vs precomposed "é" normalize to the same form.
	decomposed := "café"
	precomposed := "café"

	assert.Equal(t, sanitize.Content(precomposed), sanitize.Content(decomposed))
}

func TestContentDropsControlCharsKeepsNewlines(t *testing.T) {
	got := sanitize.Content("line one\nline two\x07")
	assert.Contains(t, got, "\n")
	assert.NotContains(t, got, "\x07")
}
