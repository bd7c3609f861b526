package providers

import (
	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// StoreHandle closes badger when the container shuts down.
type StoreHandle struct {
	*store.Store
}

func (h *StoreHandle) Shutdown() error { return h.Close() }

// ProvideStore opens the badger store under the data path.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i).WithComponent("store")

	s, err := store.New(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("Store opened", "path", cfg.DatabasePath())
	return &StoreHandle{Store: s}, nil
}
