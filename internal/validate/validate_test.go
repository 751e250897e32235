package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barazo-forum/barazo-api/internal/validate"
)

func TestRecordRejectsUnknownCollection(t *testing.T) {
	r := validate.Record("forum.x.unknown.thing", map[string]any{})
	assert.False(t, r.OK)
}

func TestRecordRejectsMissingFields(t *testing.T) {
	r := validate.Record("forum.x.topic.post", map[string]any{"title": "hi"})
	assert.False(t, r.OK)
}

func TestRecordAcceptsValidTopicPost(t *testing.T) {
	r := validate.Record("forum.x.topic.post", map[string]any{
		"title": "hi", "content": "body", "category": "general",
		"community": "c1", "createdAt": "2026-01-01T00:00:00Z",
	})
	assert.True(t, r.OK)
}

func TestRecordSizeCap(t *testing.T) {
	// A 100-byte content field is accepted; one of twice MaxRecordBytes is
	// rejected.
	base := map[string]any{
		"title": "hi", "category": "general",
		"community": "c1", "createdAt": "2026-01-01T00:00:00Z",
	}

	pad := func(n int) map[string]any {
		m := map[string]any{}
		for k, v := range base {
			m[k] = v
		}
		m["content"] = strings.Repeat("a", n)

		return m
	}

	small := validate.Record("forum.x.topic.post", pad(100))
	assert.True(t, small.OK)

	huge := validate.Record("forum.x.topic.post", pad(validate.MaxRecordBytes*2))
	assert.False(t, huge.OK)
}

func TestGraphemeLenBoundary(t *testing.T) {
	exactly30 := strings.Repeat("a", 30)
	thirtyOne := strings.Repeat("a", 31)

	rxn := func(t string) map[string]any {
		return map[string]any{
			"type": t, "community": "c1", "createdAt": "2026-01-01T00:00:00Z",
			"subject": map[string]any{"uri": "at://repo/forum.x.topic.post/abc"},
		}
	}

	assert.True(t, validate.Record("forum.x.interaction.reaction", rxn(exactly30)).OK)
	assert.False(t, validate.Record("forum.x.interaction.reaction", rxn(thirtyOne)).OK)
}
