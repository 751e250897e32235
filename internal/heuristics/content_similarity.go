package heuristics

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/barazo-forum/barazo-api/internal/domain"
)

const (
	contentSimilarityWindow    = 24 * time.Hour
	contentSimilarityThreshold = 0.8
	contentSimilarityMinAuthors = 3
)

// ContentItem is one piece of authored text considered by the
// content-similarity detector.
type ContentItem struct {
	URI          string
	AuthorRepoID string
	Text         string
}

// ContentWindowSource loads topics and replies created within a trailing
// window.
type ContentWindowSource interface {
	ContentSince(ctx context.Context, since time.Time) ([]ContentItem, error)
}

func (r *Runner) runContentSimilarity(ctx context.Context) (int, error) {
	since := r.now().Add(-contentSimilarityWindow)

	items, err := r.content.ContentSince(ctx, since)
	if err != nil {
		return 0, err
	}

	trigrams := make([]map[string]bool, len(items))
	for i, item := range items {
		trigrams[i] = trigramSet(item.Text)
	}

	uf := newUnionFind(len(items))

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].AuthorRepoID == items[j].AuthorRepoID {
				continue
			}

			if jaccard(trigrams[i], trigrams[j]) >= contentSimilarityThreshold {
				uf.union(i, j)
			}
		}
	}

	clusters := map[int][]int{}
	for i := range items {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	flagged := 0

	for _, memberIdx := range clusters {
		authors := map[string]bool{}
		for _, idx := range memberIdx {
			authors[items[idx].AuthorRepoID] = true
		}

		if len(authors) < contentSimilarityMinAuthors {
			continue
		}

		authorList := make([]string, 0, len(authors))
		for a := range authors {
			authorList = append(authorList, a)
		}

		uris := make([]string, 0, len(memberIdx))
		for _, idx := range memberIdx {
			uris = append(uris, items[idx].URI)
		}

		flag := domain.BehavioralFlag{
			Type:        domain.FlagContentSimilarity,
			AffectedIDs: authorList,
			Details:     map[string]any{"uris": uris, "cluster_key": uris[0]},
			DetectedAt:  r.now(),
		}

		if err := r.sink.PersistFlag(ctx, flag); err != nil {
			return flagged, err
		}

		flagged++
	}

	return flagged, nil
}

// trigramSet normalizes text (lowercase, strip non-alphanumeric, collapse
// whitespace) and returns its set of 3-character trigrams.
func trigramSet(text string) map[string]bool {
	var b strings.Builder
	lastWasSpace := true

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		case !lastWasSpace:
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}

	normalized := strings.TrimSpace(b.String())

	set := map[string]bool{}
	runes := []rune(normalized)
	for i := 0; i+2 < len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}

	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}

	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
