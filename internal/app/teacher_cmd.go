package app

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/tg"
)

// HandleMyTickets — активные заявки по направлениям преподавателя (🎫 Мои заявки).
func HandleMyTickets(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	teacherID := msg.From.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	tickets, err := db.ListActiveForTeacher(dbCtx, d.DB, teacherID, 10)
	cancel()
	if err != nil {
		d.Log.Errorw("list teacher tickets", "teacher", teacherID, "err", err)
		metrics.HandlerErrors.Inc()
		return
	}

	if len(tickets) == 0 {
		out := tgbotapi.NewMessage(chatID,
			"🎫 *Ваши заявки*\n\n"+
				"✅ У вас нет активных заявок!\n\n"+
				"💡 Заявки будут появляться здесь, когда обучающиеся обратятся по вашим направлениям.")
		out.ParseMode = tgbotapi.ModeMarkdown
		_, _ = tg.Send(d.Bot, out)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎫 *Ваши активные заявки* (%d)\n\n", len(tickets))
	for _, t := range tickets {
		short := t.MessageText
		if len([]rune(short)) > 60 {
			short = string([]rune(short)[:57]) + "..."
		}
		userDisplay := displayName(&t)
		if t.Username.Valid {
			userDisplay = "@" + t.Username.String
		}
		fmt.Fprintf(&b, "📝 *#%d* (%s)\n", t.ID, t.CreatedAt.In(d.Cfg.Location).Format("02.01 15:04"))
		fmt.Fprintf(&b, "👤 %s\n💬 %s\n\n", userDisplay, short)
	}
	b.WriteString("💡 *Для ответа:* сделайте reply на уведомление о заявке.")

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}

// HandleMyDirections — направления преподавателя с расписанием и числом заявок.
func HandleMyDirections(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	teacherID := msg.From.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	dirs, err := db.ListDirectionsForTeacher(dbCtx, d.DB, teacherID)
	cancel()
	if err != nil {
		d.Log.Errorw("list teacher directions", "teacher", teacherID, "err", err)
		metrics.HandlerErrors.Inc()
		return
	}

	if len(dirs) == 0 {
		out := tgbotapi.NewMessage(chatID,
			"📚 *Ваши направления*\n\n"+
				"❌ У вас нет привязанных направлений.\n\n"+
				"💡 Обратитесь к администратору для назначения направлений.")
		out.ParseMode = tgbotapi.ModeMarkdown
		_, _ = tg.Send(d.Bot, out)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 *Ваши направления* (%d)\n\n", len(dirs))
	for _, dir := range dirs {
		fmt.Fprintf(&b, "📖 *%s*\n", dir.Name)
		if e, ok := d.Sched.DirectionInfo(dir.Name); ok {
			if e.Cabinet != "" {
				fmt.Fprintf(&b, "🏢 Кабинет: %s\n", e.Cabinet)
			}
			if len(e.Days) > 0 {
				days := make([]string, 0, len(e.Days))
				for _, ds := range e.Days {
					days = append(days, ds.Day)
				}
				fmt.Fprintf(&b, "📅 Дни: %s\n", strings.Join(days, ", "))
			}
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		active, err := db.CountActiveForDirection(dbCtx, d.DB, dir.ID)
		cancel()
		if err == nil && active > 0 {
			fmt.Fprintf(&b, "🎫 Активных заявок: %d\n", active)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "💡 Расписание обновляется автоматически из файла %s", d.Cfg.ScheduleFile)

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}
