package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// MaxHits caps how many topic IDs a single search returns.
const MaxHits = 1000

// Query is a topic text search.
type Query struct {
	Text     string
	Category domain.Category // empty matches all categories
	Limit    int
}

// Search returns the IDs of matching topics, most relevant first.
func (s *Index) Search(ctx context.Context, q Query) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 || limit > MaxHits {
		limit = MaxHits
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(q), limit, 0, false)
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func buildSearchQuery(q Query) query.Query {
	var queries []query.Query

	text := strings.TrimSpace(q.Text)
	if text != "" {
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		contentMatch := bleve.NewMatchQuery(text)
		contentMatch.SetField("content")

		textQueries := []query.Query{titleMatch, contentMatch}

		// Tags are stored as slugs, so search the slug of the whole phrase
		if slug := domain.Slugify(text); slug != "" {
			tagMatch := bleve.NewTermQuery(slug)
			tagMatch.SetField("tags")
			tagMatch.SetBoost(2.0)
			textQueries = append(textQueries, tagMatch)
		}

		// Typo tolerance on titles
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.5)
		textQueries = append(textQueries, fuzzy)

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if q.Category != "" {
		cq := bleve.NewTermQuery(string(q.Category))
		cq.SetField("category")
		queries = append(queries, cq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
