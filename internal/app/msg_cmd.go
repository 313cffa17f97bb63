package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/tg"
)

// HandleMsgCommand — /msg <user_id>: история переписки пользователя для персонала.
func HandleMsgCommand(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	arg := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/msg"))
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Использование: /msg <ID пользователя>"))
		return
	}

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	tickets, err := db.ListTicketsByUser(dbCtx, d.DB, userID, 10)
	cancel()
	if err != nil {
		d.Log.Errorw("list tickets by user", "user", userID, "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	if len(tickets) == 0 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("У пользователя %d нет заявок.", userID)))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💬 *Заявки пользователя* `%d` (%d)\n\n", userID, len(tickets))
	for _, t := range tickets {
		status := "🔓 Активна"
		if t.Status == models.TicketStatusClosed {
			status = "🔒 Закрыта"
		}
		fmt.Fprintf(&b, "📝 *#%d* (%s) — %s\n", t.ID, t.CreatedAt.In(d.Cfg.Location).Format("02.01.2006 15:04"), status)
		fmt.Fprintf(&b, "💬 %s\n", t.MessageText)
		if t.AnswerText.Valid {
			fmt.Fprintf(&b, "📝 Ответ: %s\n", t.AnswerText.String)
		}
		b.WriteString("\n")
	}

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}
