package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/search"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

// SearchHandle wraps the search service with shutdown capability.
type SearchHandle struct {
	*search.Service
}

// Shutdown implements do.Shutdownable.
func (h *SearchHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearch provides the topic search service: the local Bleve index,
// fronted by Meilisearch when SEARCH_BACKEND=meilisearch.
func ProvideSearch(i do.Injector) (*SearchHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	var meili *search.Meili
	if cfg.Search.Backend == config.SearchBackendMeilisearch {
		meili = search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliAPIKey, log.Logger)
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized",
		"documents", docCount,
		"backend", cfg.Search.Backend,
	)

	return &SearchHandle{Service: search.NewService(index, meili, log.Logger)}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index in the background when it
// is empty but topics exist, e.g. after the index directory was removed.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchHandle := do.MustInvoke[*SearchHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	topics := do.MustInvoke[*service.TopicService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := searchHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	existing, err := storeHandle.AllTopics(ctx)
	if err != nil || len(existing) == 0 {
		return
	}

	log.Info("Search index is empty but topics exist, triggering initial reindex",
		"topic_count", len(existing),
	)

	go func() {
		n, err := topics.Reindex(context.Background())
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		log.Info("Initial search reindex completed", "documents", n)
	}()
}
