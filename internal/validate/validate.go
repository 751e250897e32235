// Package validate is the record-validator boundary: it rejects unsupported
// collections, oversized payloads, and records missing required fields,
// before any indexer sees them. Grounded on other_examples'
// coves jetstream comment consumer's required-field extraction in
// parseCommentRecord, generalized to a per-collection schema table.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/clipperhouse/uax29/v2/graphemes"

	"github.com/barazo-forum/barazo-api/internal/collection"
)

// MaxRecordBytes is the serialized-record size cap.
const MaxRecordBytes = 64 * 1024

// MaxReactionTypeGraphemes is the grapheme cap for a reaction type string;
// AT-Proto lexicons define string limits in graphemes, not bytes or
// runes, so grapheme segmentation (github.com/clipperhouse/uax29/v2,
// present in the pack via the teacher's own indirect dependency set) is
// used rather than naive counting.
const MaxReactionTypeGraphemes = 30

// Result is the outcome of validating one record.
type Result struct {
	OK     bool
	Reason string
}

func reject(format string, args ...any) Result {
	return Result{OK: false, Reason: fmt.Sprintf(format, args...)}
}

var ok = Result{OK: true}

// Record validates a raw record payload against its collection's schema.
func Record(nsid string, raw map[string]any) Result {
	kind := collection.Classify(nsid)
	if kind == collection.KindUnknown {
		return reject("unsupported collection %q", nsid)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return reject("record is not serializable: %v", err)
	}

	if len(encoded) > MaxRecordBytes {
		return reject("record exceeds %d byte cap (got %d)", MaxRecordBytes, len(encoded))
	}

	switch kind {
	case collection.KindTopicPost:
		return validateTopicPost(raw)
	case collection.KindReply:
		return validateTopicReply(raw)
	case collection.KindReaction:
		return validateReaction(raw)
	default:
		return reject("unsupported collection %q", nsid)
	}
}

func requireString(raw map[string]any, field string) (string, bool) {
	v, present := raw[field]
	if !present {
		return "", false
	}

	s, isString := v.(string)

	return s, isString && s != ""
}

func requireRef(raw map[string]any, field string) bool {
	v, present := raw[field]
	if !present {
		return false
	}

	ref, isMap := v.(map[string]any)
	if !isMap {
		return false
	}

	_, valid := requireString(ref, "uri")

	return valid
}

func validateTopicPost(raw map[string]any) Result {
	for _, field := range []string{"title", "content", "category", "community", "createdAt"} {
		if _, valid := requireString(raw, field); !valid {
			return reject("topic post missing required field %q", field)
		}
	}

	return ok
}

func validateTopicReply(raw map[string]any) Result {
	for _, field := range []string{"content", "community", "createdAt"} {
		if _, valid := requireString(raw, field); !valid {
			return reject("topic reply missing required field %q", field)
		}
	}

	if !requireRef(raw, "root") {
		return reject("topic reply missing required ref field %q", "root")
	}

	if !requireRef(raw, "parent") {
		return reject("topic reply missing required ref field %q", "parent")
	}

	return ok
}

func validateReaction(raw map[string]any) Result {
	for _, field := range []string{"type", "community", "createdAt"} {
		if _, valid := requireString(raw, field); !valid {
			return reject("reaction missing required field %q", field)
		}
	}

	if !requireRef(raw, "subject") {
		return reject("reaction missing required ref field %q", "subject")
	}

	reactionType, _ := requireString(raw, "type")
	if GraphemeLen(reactionType) > MaxReactionTypeGraphemes {
		return reject("reaction type exceeds %d grapheme cap", MaxReactionTypeGraphemes)
	}

	return ok
}

// GraphemeLen counts the user-perceived characters in s.
func GraphemeLen(s string) int {
	count := 0

	segments := graphemes.FromString(s)
	for segments.Next() {
		count++
	}

	return count
}
