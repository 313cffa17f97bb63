package app

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/tg"
	"go.uber.org/zap"
)

// Токен "#<id>" в тексте уведомления — опорная точка всего протокола
// ответов: по нему reply-хендлер находит заявку.
var ticketRef = regexp.MustCompile(`#(\d+)`)

// ParseTicketRef — первый токен "#<id>" из процитированного текста.
func ParseTicketRef(text string) (int64, bool) {
	m := ticketRef.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

const (
	statusPending = "На рассмотрении"
	statusClosed  = "Закрыта"

	framePrefixTeacher = "👨‍🏫 *Заявка по вашему направлению*\n\n"
	framePrefixAdmin   = "👑 *Заявка для администрации*\n\n"
)

// BuildTicketNotice — каноничный текст уведомления о заявке.
// status == statusPending даёт подсказку про reply, для закрытой добавляется ответ.
func BuildTicketNotice(t *models.Ticket, directionName, status, answerText string) string {
	var b strings.Builder
	b.WriteString("🎫 *Новая заявка*\n\n")
	fmt.Fprintf(&b, "👤 *От:* %s", displayName(t))
	if t.Username.Valid {
		fmt.Fprintf(&b, " (@%s)", t.Username.String)
	}
	fmt.Fprintf(&b, "\n🆔 *ID пользователя:* `%d`\n", t.UserID)
	fmt.Fprintf(&b, "📝 *Номер заявки:* #%d\n", t.ID)
	if directionName != "" {
		fmt.Fprintf(&b, "📚 *Направление:* %s\n", directionName)
	} else {
		b.WriteString("👑 *Адресовано:* Администрация\n")
	}
	fmt.Fprintf(&b, "📋 *Статус:* %s\n\n", status)
	fmt.Fprintf(&b, "💬 *Текст заявки:*\n%s\n\n", t.MessageText)
	if status == statusPending {
		b.WriteString("💡 *Для ответа и закрытия заявки:* просто ответьте на это сообщение (reply/свайп)\n")
		b.WriteString("✅ После ответа заявка будет автоматически закрыта")
	} else if answerText != "" {
		fmt.Fprintf(&b, "📝 *Ответ:*\n%s", answerText)
	}
	return b.String()
}

func displayName(t *models.Ticket) string {
	if t.FirstName.Valid && t.FirstName.String != "" {
		return t.FirstName.String
	}
	return "Без имени"
}

func directionName(ctx context.Context, database *sql.DB, t *models.Ticket) string {
	if !t.DirectionID.Valid {
		return ""
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	d, err := db.GetDirectionByID(dbCtx, database, t.DirectionID.Int64)
	if err != nil || d == nil {
		return "Неизвестное направление"
	}
	return d.Name
}

// NotifyNewTicket — рассылка уведомлений о новой заявке.
// Преподаватели направления получают свою рамку; админская копия уходит
// в активные чаты уведомлений, а при их отсутствии — каждому админу в ЛС.
// По каждой админской отправке пишем NotificationRecord для правки на месте.
// Ошибка по одному адресату не прерывает остальных.
func NotifyNewTicket(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, t *models.Ticket) {
	dirName := directionName(ctx, database, t)
	base := BuildTicketNotice(t, dirName, statusPending, "")

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	atts, err := db.ListAttachments(dbCtx, database, t.ID)
	cancel()
	if err != nil {
		log.Errorw("list attachments", "ticket", t.ID, "err", err)
	}

	if t.DirectionID.Valid {
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		teachers, err := db.ListTeachersForDirection(dbCtx, database, t.DirectionID.Int64)
		cancel()
		if err != nil {
			log.Errorw("list teachers for direction", "ticket", t.ID, "err", err)
		}
		for _, teacher := range teachers {
			msg := tgbotapi.NewMessage(teacher.UserID, framePrefixTeacher+base)
			msg.ParseMode = tgbotapi.ModeMarkdown
			if _, err := tg.Send(bot, msg); err != nil {
				metrics.NotifySendErrors.Inc()
				log.Warnw("notify teacher", "ticket", t.ID, "teacher", teacher.UserID, "err", err)
				continue
			}
			sendAttachments(bot, log, teacher.UserID, atts)
		}
	}

	for _, chatID := range adminTargets(ctx, database, log) {
		msg := tgbotapi.NewMessage(chatID, framePrefixAdmin+base)
		msg.ParseMode = tgbotapi.ModeMarkdown
		sent, err := tg.Send(bot, msg)
		if err != nil {
			metrics.NotifySendErrors.Inc()
			log.Warnw("notify admin target", "ticket", t.ID, "chat", chatID, "err", err)
			continue
		}
		sendAttachments(bot, log, chatID, atts)

		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		err = db.SaveNotificationRecord(dbCtx, database, t.ID, chatID, sent.MessageID)
		cancel()
		if err != nil {
			log.Errorw("save notification record", "ticket", t.ID, "chat", chatID, "err", err)
		}
	}
}

// adminTargets — куда слать админскую копию: активные чаты уведомлений,
// иначе ЛС всех админов. Каждый адресат получает ровно одну копию.
func adminTargets(ctx context.Context, database *sql.DB, log *zap.SugaredLogger) []int64 {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	chats, err := db.ListNotificationChats(dbCtx, database, true)
	if err != nil {
		log.Errorw("list notification chats", "err", err)
	}
	if len(chats) > 0 {
		out := make([]int64, 0, len(chats))
		for _, c := range chats {
			out = append(out, c.ChatID)
		}
		return out
	}

	admins, err := db.ListAdmins(dbCtx, database)
	if err != nil {
		log.Errorw("list admins", "err", err)
		return nil
	}
	out := make([]int64, 0, len(admins))
	for _, a := range admins {
		out = append(out, a.UserID)
	}
	return out
}

// sendAttachments — вложения заявки по file_id. Несколько фото/видео уходят
// медиагруппой, остальное по одному.
func sendAttachments(bot tg.API, log *zap.SugaredLogger, chatID int64, atts []models.Attachment) {
	if len(atts) == 0 {
		return
	}

	groupable := true
	for _, a := range atts {
		if a.FileType != "photo" && a.FileType != "video" {
			groupable = false
			break
		}
	}

	if groupable && len(atts) > 1 {
		media := make([]interface{}, 0, len(atts))
		for _, a := range atts {
			if a.FileType == "photo" {
				media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(a.FileID)))
			} else {
				media = append(media, tgbotapi.NewInputMediaVideo(tgbotapi.FileID(a.FileID)))
			}
		}
		if _, err := tg.SendMediaGroup(bot, tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			metrics.NotifySendErrors.Inc()
			log.Warnw("send media group", "chat", chatID, "err", err)
		}
		return
	}

	for _, a := range atts {
		var c tgbotapi.Chattable
		switch a.FileType {
		case "photo":
			c = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(a.FileID))
		case "video":
			c = tgbotapi.NewVideo(chatID, tgbotapi.FileID(a.FileID))
		case "voice":
			c = tgbotapi.NewVoice(chatID, tgbotapi.FileID(a.FileID))
		case "audio":
			c = tgbotapi.NewAudio(chatID, tgbotapi.FileID(a.FileID))
		default:
			c = tgbotapi.NewDocument(chatID, tgbotapi.FileID(a.FileID))
		}
		if _, err := tg.Send(bot, c); err != nil {
			metrics.NotifySendErrors.Inc()
			log.Warnw("send attachment", "chat", chatID, "file", a.FileID, "err", err)
		}
	}
}

// EditNotificationsClosed — правим разосланные админские уведомления на месте:
// статус меняется на закрытый, добавляется текст ответа. Ошибки по отдельным
// сообщениям глотаем (чат мог удалить сообщение или бота).
func EditNotificationsClosed(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, t *models.Ticket) {
	dirName := directionName(ctx, database, t)
	text := framePrefixAdmin + BuildTicketNotice(t, dirName, statusClosed, t.AnswerText.String)

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	records, err := db.ListNotificationRecords(dbCtx, database, t.ID)
	cancel()
	if err != nil {
		log.Errorw("list notification records", "ticket", t.ID, "err", err)
		return
	}

	for _, r := range records {
		edit := tgbotapi.NewEditMessageText(r.ChatID, r.MessageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		if _, err := tg.Send(bot, edit); err != nil {
			log.Warnw("edit notification", "ticket", t.ID, "chat", r.ChatID, "err", err)
		}
	}
}

// NotifyTeachersClosed — свежие сообщения преподавателям направления о закрытии.
// Для заявок администрации не шлём.
func NotifyTeachersClosed(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, t *models.Ticket, responderRole string) {
	if !t.DirectionID.Valid {
		return
	}
	dirName := directionName(ctx, database, t)

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	teachers, err := db.ListTeachersForDirection(dbCtx, database, t.DirectionID.Int64)
	cancel()
	if err != nil {
		log.Errorw("list teachers for direction", "ticket", t.ID, "err", err)
		return
	}

	var b strings.Builder
	b.WriteString("🔔 *Заявка по вашему направлению закрыта*\n\n")
	fmt.Fprintf(&b, "📚 *Направление:* %s\n", dirName)
	fmt.Fprintf(&b, "📝 *Номер заявки:* #%d\n", t.ID)
	fmt.Fprintf(&b, "👤 *Пользователь:* %s", displayName(t))
	if t.Username.Valid {
		fmt.Fprintf(&b, " (@%s)", t.Username.String)
	}
	fmt.Fprintf(&b, "\n🆔 *ID пользователя:* `%d`\n", t.UserID)
	fmt.Fprintf(&b, "👤 *Ответил:* %s\n", responderRole)
	b.WriteString("📋 *Статус:* Заявка закрыта\n\n")
	fmt.Fprintf(&b, "💬 *Текст заявки:*\n%s\n\n", t.MessageText)
	fmt.Fprintf(&b, "📝 *Ответ:*\n%s", t.AnswerText.String)
	text := b.String()

	for _, teacher := range teachers {
		msg := tgbotapi.NewMessage(teacher.UserID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := tg.Send(bot, msg); err != nil {
			metrics.NotifySendErrors.Inc()
			log.Warnw("notify teacher closed", "ticket", t.ID, "teacher", teacher.UserID, "err", err)
		}
	}
}
