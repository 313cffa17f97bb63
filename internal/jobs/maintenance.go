package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/schedule"
	"go.uber.org/zap"
)

// ReloadSchedule перечитывает файл расписания и синхронизирует направления.
// Файл может обновляться извне (volume, загрузка XLSX через бота).
func ReloadSchedule(sched *schedule.Parser, database *sql.DB, log *zap.SugaredLogger) Job {
	return func(ctx context.Context) error {
		if err := sched.Load(); err != nil {
			log.Warnw("schedule reload", "err", err)
			return err
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		if err := db.SyncDirections(dbCtx, database, sched.Directions()); err != nil {
			log.Warnw("sync directions", "err", err)
			return err
		}
		return nil
	}
}

// PingDB держит метрику живости БД актуальной между health-запросами.
func PingDB(database *sql.DB) Job {
	return func(ctx context.Context) error {
		dbCtx, cancel := context.WithTimeout(ctx, 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := database.PingContext(dbCtx); err != nil {
			return err
		}
		metrics.ObserveDBPing(time.Since(t0))
		return nil
	}
}
