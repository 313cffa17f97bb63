package app

import (
	"context"
	"database/sql"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/observability"
	"github.com/itcube/itcube-bot/internal/tg"
	"go.uber.org/zap"
)

const (
	RoleAdmin   = "Администратор"
	RoleTeacher = "Преподаватель"
)

// resolveResponderRole — единственное место, где выбирается подпись роли.
// У двойной роли админская побеждает.
func resolveResponderRole(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleTeacher
}

// TryHandleTicketReply — протокол «ответ реплаем». Срабатывает только на
// reply по сообщению бота; возвращает false, если это не наш случай и
// сообщение должен обработать кто-то другой.
func TryHandleTicketReply(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, msg *tgbotapi.Message, botID int64) bool {
	quoted := msg.ReplyToMessage
	if quoted == nil || quoted.From == nil || quoted.From.ID != botID {
		return false
	}

	chatID := msg.Chat.ID
	responderID := msg.From.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	isAdmin, err := db.IsAdmin(dbCtx, database, responderID)
	cancel()
	if err != nil {
		log.Errorw("is admin", "user", responderID, "err", err)
		return true
	}
	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	isTeacher, err := db.IsTeacher(dbCtx, database, responderID)
	cancel()
	if err != nil {
		log.Errorw("is teacher", "user", responderID, "err", err)
		return true
	}

	if !isAdmin && !isTeacher {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			"❌ У вас нет прав для ответа на сообщения. Только администраторы и преподаватели могут отвечать на заявки."))
		return true
	}

	quotedText := quoted.Text
	if quotedText == "" {
		quotedText = quoted.Caption
	}
	ticketID, ok := ParseTicketRef(quotedText)
	if !ok {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось найти номер сообщения для ответа."))
		return true
	}

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	ticket, err := db.GetTicketByID(dbCtx, database, ticketID)
	cancel()
	if err != nil {
		log.Errorw("get ticket", "ticket", ticketID, "err", err)
		metrics.HandlerErrors.Inc()
		return true
	}
	if ticket == nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("❌ Заявка #%d не найдена.", ticketID)))
		return true
	}
	if ticket.Status == models.TicketStatusClosed || ticket.IsAnswered {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ Заявка #%d уже закрыта.", ticketID)))
		return true
	}

	// Преподаватель без админских прав отвечает только по своим направлениям.
	if isTeacher && !isAdmin {
		dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
		canReply, err := db.CanTeacherReplyToTicket(dbCtx, database, responderID, ticketID)
		cancel()
		if err != nil {
			log.Errorw("can teacher reply", "ticket", ticketID, "err", err)
			return true
		}
		if !canReply {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
				"❌ У вас нет прав для ответа на заявку #%d.\nВы можете отвечать только на заявки по направлениям, к которым вы привязаны.", ticketID)))
			return true
		}
	}

	responderRole := resolveResponderRole(isAdmin)

	answer := msg.Text
	if answer == "" {
		answer = msg.Caption
	}

	userReply := fmt.Sprintf(
		"✅ *Ответ на вашу заявку #%d*\n\n"+
			"👤 *Ответил:* %s\n"+
			"📋 *Статус:* Заявка закрыта\n\n"+
			"💬 *Ваша заявка:*\n%s\n\n"+
			"📝 *Ответ:*\n%s\n\n"+
			"💡 Теперь вы можете создать новую заявку, если это необходимо.",
		ticketID, responderRole, ticket.MessageText, answer)

	// Недоставленный ответ (бот заблокирован, аккаунт удалён) не мешает
	// закрытию: работа ответившего сделана.
	out := tgbotapi.NewMessage(ticket.UserID, userReply)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := tg.Send(bot, out); err != nil {
		metrics.HandlerErrors.Inc()
		log.Warnw("deliver answer", "ticket", ticketID, "user", ticket.UserID, "err", err)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"⚠️ Не удалось доставить ответ пользователю (возможно, бот заблокирован). Заявка #%d всё равно будет закрыта.", ticketID)))
	}

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	closed, err := db.MarkAnswered(dbCtx, database, ticketID, responderID, answer)
	cancel()
	if err != nil {
		// Пользователь ответ уже получил — заявка осталась открытой, это важно.
		log.Errorw("mark answered", "ticket", ticketID, "err", err)
		observability.CaptureMsg(fmt.Sprintf("ticket %d: answer delivered but not closed: %v", ticketID, err))
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			"⚠️ Ответ отправлен, но заявка не закрыта в БД. Обратитесь к техническому администратору."))
		return true
	}
	if !closed {
		// Гонка двух ответчиков: победил другой.
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ Заявка #%d уже закрыта.", ticketID)))
		return true
	}
	metrics.TicketsClosed.Inc()

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	ticket, err = db.GetTicketByID(dbCtx, database, ticketID)
	cancel()
	if err != nil || ticket == nil {
		log.Errorw("reload ticket", "ticket", ticketID, "err", err)
	} else {
		EditNotificationsClosed(ctx, bot, database, log, ticket)
		NotifyTeachersClosed(ctx, bot, database, log, ticket, responderRole)
	}

	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Ответ на заявку #%d отправлен! Заявка закрыта.", ticketID)))
	return true
}
