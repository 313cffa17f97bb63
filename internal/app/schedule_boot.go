package app

import (
	"github.com/itcube/itcube-bot/internal/config"
	"github.com/itcube/itcube-bot/internal/schedule"
	"go.uber.org/zap"
)

// MustSchedule — парсер расписания на старте. Отсутствующий файл не фатален:
// расписание можно загрузить позже через настройки.
func MustSchedule(cfg *config.Config, log *zap.SugaredLogger) *schedule.Parser {
	sched := schedule.NewParser(cfg.ScheduleFile)
	if err := sched.Load(); err != nil {
		log.Warnw("загрузка расписания", "file", cfg.ScheduleFile, "err", err)
	}
	return sched
}
