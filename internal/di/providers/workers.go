package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

const storeGCInterval = 10 * time.Minute

// backgroundJob is a goroutine stopped by container shutdown.
type backgroundJob struct {
	stop context.CancelFunc
}

func (j *backgroundJob) Shutdown() error {
	j.stop()
	return nil
}

func startJob(run func(ctx context.Context)) backgroundJob {
	ctx, cancel := context.WithCancel(context.Background())
	go run(ctx)
	return backgroundJob{stop: cancel}
}

// BookmarkRepairJob reconciles profile bookmark lists with topic
// bookmark sets.
type BookmarkRepairJob struct{ backgroundJob }

// ProvideBookmarkRepairJob runs the reconciler once at startup and then
// every BOOKMARK_REPAIR_INTERVAL, unless that is zero.
func ProvideBookmarkRepairJob(i do.Injector) (*BookmarkRepairJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i).WithComponent("bookmark-repair")

	interval := cfg.Jobs.BookmarkRepairInterval
	reconciler := service.NewBookmarkReconciler(storeHandle.Store, log.Logger)
	job := startJob(func(ctx context.Context) { reconciler.Start(ctx, interval) })

	log.Info("Bookmark repair scheduled", "interval", interval)
	return &BookmarkRepairJob{job}, nil
}

// StoreGCJob reclaims badger value log space.
type StoreGCJob struct{ backgroundJob }

func ProvideStoreGCJob(i do.Injector) (*StoreGCJob, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i).WithComponent("store-gc")

	job := startJob(func(ctx context.Context) {
		tick := time.NewTicker(storeGCInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if err := storeHandle.RunGC(); err != nil {
					log.Warn("Value log GC failed", "error", err)
				}
			}
		}
	})
	return &StoreGCJob{job}, nil
}
