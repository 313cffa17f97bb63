package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/export"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/tg"
)

// HandleActiveTickets — список активных заявок с кнопками закрытия (🎫 Заявки).
func HandleActiveTickets(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	tickets, err := db.ListActiveTickets(dbCtx, d.DB, 10)
	cancel()
	if err != nil {
		d.Log.Errorw("list active tickets", "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	if len(tickets) == 0 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "✅ Активных заявок нет!"))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎫 *Активные заявки* (%d)\n\n", len(tickets))
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range tickets {
		short := t.MessageText
		if len([]rune(short)) > 60 {
			short = string([]rune(short)[:57]) + "..."
		}
		fmt.Fprintf(&b, "📝 *#%d* (%s)\n", t.ID, t.CreatedAt.In(d.Cfg.Location).Format("02.01 15:04"))
		fmt.Fprintf(&b, "👤 %s", displayName(&t))
		if t.Username.Valid {
			fmt.Fprintf(&b, " (@%s)", t.Username.String)
		}
		fmt.Fprintf(&b, "\n💬 %s\n\n", short)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔒 Закрыть #%d", t.ID), "tk_close_"+strconv.FormatInt(t.ID, 10)),
		))
	}
	b.WriteString("💡 *Для ответа:* сделайте reply на уведомление о заявке.")

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(d.Bot, out)
}

// TryHandleTicketCallback — закрытие заявки без ответа из списка.
func TryHandleTicketCallback(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery) bool {
	data := cb.Data
	if !strings.HasPrefix(data, "tk_close_") {
		return false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, "tk_close_"), 10, 64)
	if err != nil {
		answerCB(d, cb)
		return true
	}

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	closed, err := db.CloseTicket(dbCtx, d.DB, id)
	cancel()
	if err != nil {
		d.Log.Errorw("close ticket", "ticket", id, "err", err)
		metrics.HandlerErrors.Inc()
		answerCB(d, cb)
		return true
	}
	if !closed {
		_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, "Заявка уже закрыта"))
		return true
	}
	metrics.TicketsClosed.Inc()
	_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, fmt.Sprintf("Заявка #%d закрыта", id)))

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	ticket, err := db.GetTicketByID(dbCtx, d.DB, id)
	cancel()
	if err == nil && ticket != nil {
		EditNotificationsClosed(ctx, d.Bot, d.DB, d.Log, ticket)
	}
	return true
}

// HandleStatistics — сводка по заявкам, направлениям и пользователям.
func HandleStatistics(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	ts, err := db.GetTicketStats(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("ticket stats", "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	counts, err := db.CountsByDirection(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("counts by direction", "err", err)
	}
	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	us, err := db.GetUsersStats(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("users stats", "err", err)
	}

	var b strings.Builder
	b.WriteString("📊 *Статистика*\n\n")
	fmt.Fprintf(&b, "🎫 *Заявки:*\n• Всего: %d\n• Активных: %d\n• Закрытых: %d\n• За 24 часа: %d\n\n",
		ts.Total, ts.Active, ts.Closed, ts.Last24h)
	if len(counts) > 0 {
		b.WriteString("📚 *По направлениям* (активных/всего):\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "• %s: %d/%d\n", c.DirectionName, c.Active, c.Total)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "👥 *Пользователи:*\n• Всего: %d\n• Активных за неделю: %d\n• Сообщений всего: %d\n",
		us.Total, us.ActiveWeek, us.Messages)

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕐 Заявки за 24 часа", "stats_recent"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Экспорт пользователей (XLSX)", "stats_export"),
		),
	)
	_, _ = tg.Send(d.Bot, out)
}

// TryHandleStatsCallback — детализация статистики: свежие заявки и выгрузка
// журнала пользователей в Excel.
func TryHandleStatsCallback(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery) bool {
	if cb.Data == "stats_recent" {
		answerCB(d, cb)
		handleRecentTickets(ctx, d, cb.Message.Chat.ID)
		return true
	}
	if cb.Data != "stats_export" {
		return false
	}
	answerCB(d, cb)
	chatID := cb.Message.Chat.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	users, err := db.ListUsersLog(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("list users log", "err", err)
		metrics.HandlerErrors.Inc()
		return true
	}

	wb, err := export.NewActivityWorkbook(users, d.Cfg.Location)
	if err != nil {
		d.Log.Errorw("build activity workbook", "err", err)
		return true
	}
	path, err := wb.SaveTemp()
	if err != nil {
		d.Log.Errorw("save activity workbook", "err", err)
		return true
	}
	defer func() { _ = os.Remove(path) }()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := tg.Send(d.Bot, doc); err != nil {
		metrics.HandlerErrors.Inc()
		d.Log.Errorw("send export", "err", err)
	}
	return true
}

// handleRecentTickets — заявки за последние сутки, свежие сверху.
func handleRecentTickets(ctx context.Context, d *Deps, chatID int64) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	tickets, err := db.ListRecentTickets(dbCtx, d.DB, 24*time.Hour, 20)
	cancel()
	if err != nil {
		d.Log.Errorw("list recent tickets", "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	if len(tickets) == 0 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "За последние 24 часа заявок не было."))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🕐 *Заявки за 24 часа* (%d)\n\n", len(tickets))
	for _, t := range tickets {
		status := "🔓 Активна"
		if t.Status == models.TicketStatusClosed {
			status = "🔒 Закрыта"
		}
		short := t.MessageText
		if len([]rune(short)) > 60 {
			short = string([]rune(short)[:57]) + "..."
		}
		fmt.Fprintf(&b, "📝 *#%d* (%s) — %s\n", t.ID, t.CreatedAt.In(d.Cfg.Location).Format("02.01 15:04"), status)
		fmt.Fprintf(&b, "💬 %s\n\n", short)
	}

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}
