package domain

import (
	"fmt"
	"strings"
)

// RecordURI is a content-addressed reference of the form
// at://<repo-id>/<collection>/<record-key>.
type RecordURI struct {
	Repo       string
	Collection string
	RKey       string
}

// ParseRecordURI parses a raw "at://" URI into its three segments.
func ParseRecordURI(raw string) (RecordURI, error) {
	const scheme = "at://"

	if !strings.HasPrefix(raw, scheme) {
		return RecordURI{}, fmt.Errorf("record uri %q: missing at:// scheme", raw)
	}

	parts := strings.SplitN(strings.TrimPrefix(raw, scheme), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return RecordURI{}, fmt.Errorf("record uri %q: expected at://repo/collection/rkey", raw)
	}

	return RecordURI{Repo: parts[0], Collection: parts[1], RKey: parts[2]}, nil
}

// String renders the canonical at:// form.
func (u RecordURI) String() string {
	return fmt.Sprintf("at://%s/%s/%s", u.Repo, u.Collection, u.RKey)
}

// BuildRecordURI constructs a URI string from its segments without requiring
// a round-trip through ParseRecordURI.
func BuildRecordURI(repo, collection, rkey string) string {
	return RecordURI{Repo: repo, Collection: collection, RKey: rkey}.String()
}
