package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const meiliTopicsIndex = "wellspring_topics"

// Meili is a Meilisearch-backed topic index.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the topics index.
// An unreachable server is not an error: the client reports unhealthy
// and a background loop reconfigures it once it recovers.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        meiliTopicsIndex,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create meilisearch index (may already exist)", "index", meiliTopicsIndex, "error", err)
	}

	index := m.client.Index(meiliTopicsIndex)
	filterable := []interface{}{"category", "tags"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", meiliTopicsIndex, "error", err)
	}
	searchable := []string{"title", "tags", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", meiliTopicsIndex, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() error {
	close(m.done)
	return nil
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// IndexDocuments adds or replaces topic documents.
func (m *Meili) IndexDocuments(docs []*TopicDocument) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := m.client.Index(meiliTopicsIndex).AddDocuments(docs, nil)
	return err
}

// DeleteDocument removes a topic from the index.
func (m *Meili) DeleteDocument(id string) error {
	_, err := m.client.Index(meiliTopicsIndex).DeleteDocument(id, nil)
	return err
}

// Search returns matching topic IDs, most relevant first.
func (m *Meili) Search(q Query) ([]string, error) {
	if !m.healthy.Load() {
		return nil, errors.New("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 || limit > MaxHits {
		limit = MaxHits
	}

	sr := &meili.SearchRequest{
		IndexUID:             meiliTopicsIndex,
		Query:                q.Text,
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	}
	if q.Category != "" {
		sr.Filter = fmt.Sprintf("category = %q", string(q.Category))
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var ids []string
	for _, res := range resp.Results {
		for _, hit := range res.Hits {
			if id := decodeString(hit, "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
