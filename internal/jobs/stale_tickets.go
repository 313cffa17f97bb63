package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/tg"
	"go.uber.org/zap"
)

// StaleTicketsDigest раз в запуск напоминает администраторам о заявках,
// висящих без ответа дольше olderThan.
func StaleTicketsDigest(bot tg.API, database *sql.DB, log *zap.SugaredLogger, loc *time.Location, olderThan time.Duration) Job {
	return func(ctx context.Context) error {
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		tickets, err := db.ListActiveTickets(dbCtx, database, 50)
		cancel()
		if err != nil {
			return err
		}

		cutoff := time.Now().Add(-olderThan)
		var stale []string
		for _, t := range tickets {
			if t.CreatedAt.After(cutoff) {
				continue
			}
			stale = append(stale, fmt.Sprintf("📝 #%d от %s", t.ID, t.CreatedAt.In(loc).Format("02.01 15:04")))
		}
		if len(stale) == 0 {
			return nil
		}

		text := fmt.Sprintf("⏰ *Заявки без ответа* (%d)\n\n%s\n\n💡 Для ответа сделайте reply на уведомление о заявке.",
			len(stale), strings.Join(stale, "\n"))

		dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
		admins, err := db.ListAdmins(dbCtx, database)
		cancel()
		if err != nil {
			return err
		}
		for _, a := range admins {
			out := tgbotapi.NewMessage(a.UserID, text)
			out.ParseMode = tgbotapi.ModeMarkdown
			if _, err := tg.Send(bot, out); err != nil {
				log.Warnw("stale digest send", "admin", a.UserID, "err", err)
			}
		}
		return nil
	}
}
