package app

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/bot/menu"
	"github.com/itcube/itcube-bot/internal/chatctx"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/tg"
	"go.uber.org/zap"
)

const (
	fbStepDirection = iota
	fbStepText
)

type feedbackState struct {
	Step        int
	DirectionID *int64 // nil = адресовано администрации
}

var feedbackFSM sync.Map // chatID -> *feedbackState

func getFeedbackState(chatID int64) *feedbackState {
	if v, ok := feedbackFSM.Load(chatID); ok {
		return v.(*feedbackState)
	}
	return nil
}

func setFeedbackState(chatID int64, st *feedbackState) { feedbackFSM.Store(chatID, st) }
func clearFeedbackState(chatID int64)                  { feedbackFSM.Delete(chatID) }

// StartFeedback — вход в сценарий создания заявки: проверяем рабочие часы
// и отсутствие активной заявки, затем предлагаем выбрать направление.
func StartFeedback(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, msg *tgbotapi.Message, loc *time.Location) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	available, reason, err := db.IsFeedbackAvailable(dbCtx, database, time.Now().In(loc))
	cancel()
	if err != nil {
		log.Errorw("working hours check", "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	if !available {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🕐 Сейчас приём заявок закрыт.\n\n"+reason))
		return
	}

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	active, err := db.GetActiveTicket(dbCtx, database, userID)
	cancel()
	if err != nil {
		log.Errorw("get active ticket", "user", userID, "err", err)
		metrics.HandlerErrors.Inc()
		return
	}
	if active != nil {
		text := fmt.Sprintf(
			"⚠️ *У вас есть активная заявка на рассмотрении*\n\n"+
				"📝 *Заявка #%d*\n"+
				"📅 *Создана:* %s\n\n"+
				"💬 *Текст заявки:*\n%s\n\n"+
				"❌ Вы не можете создать новую заявку, пока текущая активна.\n"+
				"⏳ Пожалуйста, дождитесь ответа от администрации.\n\n"+
				"💡 После получения ответа вы сможете создать новую заявку.",
			active.ID, active.CreatedAt.In(loc).Format("02.01.2006 15:04"), active.MessageText)
		out := tgbotapi.NewMessage(chatID, text)
		out.ParseMode = tgbotapi.ModeMarkdown
		_, _ = tg.Send(bot, out)
		return
	}

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	dirs, err := db.ListDirections(dbCtx, database)
	cancel()
	if err != nil {
		log.Errorw("list directions", "err", err)
		metrics.HandlerErrors.Inc()
		return
	}

	out := tgbotapi.NewMessage(chatID, "📚 Выберите направление, по которому хотите обратиться:")
	out.ReplyMarkup = menu.Directions(dirs)
	if _, err := tg.Send(bot, out); err != nil {
		metrics.HandlerErrors.Inc()
		return
	}
	setFeedbackState(chatID, &feedbackState{Step: fbStepDirection})
}

// TryHandleFeedbackCallback — выбор направления / отмена.
func TryHandleFeedbackCallback(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, cb *tgbotapi.CallbackQuery) bool {
	data := cb.Data
	if !strings.HasPrefix(data, "fb_") {
		return false
	}
	chatID := cb.Message.Chat.ID
	_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	st := getFeedbackState(chatID)
	if st == nil || st.Step != fbStepDirection {
		if data == "fb_cancel" {
			clearFeedbackState(chatID)
		}
		return true
	}

	switch {
	case data == "fb_cancel":
		clearFeedbackState(chatID)
		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "Отменено.")
		_, _ = tg.Send(bot, edit)
		return true

	case data == "fb_dir_admin":
		st.DirectionID = nil
		st.Step = fbStepText
		setFeedbackState(chatID, st)
		promptTicketText(bot, chatID, cb.Message.MessageID, "Администрации")
		return true

	case strings.HasPrefix(data, "fb_dir_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "fb_dir_"), 10, 64)
		if err != nil {
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		dir, err := db.GetDirectionByID(dbCtx, database, id)
		cancel()
		if err != nil || dir == nil {
			log.Warnw("direction not found", "id", id, "err", err)
			edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "❌ Направление не найдено, попробуйте ещё раз.")
			_, _ = tg.Send(bot, edit)
			clearFeedbackState(chatID)
			return true
		}
		st.DirectionID = &dir.ID
		st.Step = fbStepText
		setFeedbackState(chatID, st)
		promptTicketText(bot, chatID, cb.Message.MessageID, dir.Name)
		return true
	}
	return true
}

func promptTicketText(bot tg.API, chatID int64, messageID int, target string) {
	text := fmt.Sprintf(
		"📚 *Адресат:* %s\n\n"+
			"✍️ Опишите ваш вопрос или проблему одним сообщением.\n"+
			"📎 Можно прикрепить фото, документ или голосовое.", target)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, menu.Cancel("fb_cancel"))
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(bot, edit)
}

// TryHandleFeedbackMessage — приём текста заявки (с вложениями) и создание.
func TryHandleFeedbackMessage(ctx context.Context, bot tg.API, database *sql.DB, log *zap.SugaredLogger, msg *tgbotapi.Message, c chatctx.Context) bool {
	chatID := msg.Chat.ID
	st := getFeedbackState(chatID)
	if st == nil || st.Step != fbStepText {
		return false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	atts := extractAttachments(msg)
	if text == "" && len(atts) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "✍️ Отправьте текст заявки (можно с вложением)."))
		return true
	}
	if text == "" {
		text = "(без текста, см. вложения)"
	}

	userID := msg.From.ID
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	ticketID, created, err := db.CreateTicket(dbCtx, database, userID, msg.From.UserName, msg.From.FirstName, text, st.DirectionID)
	cancel()
	if err != nil {
		log.Errorw("create ticket", "user", userID, "err", err)
		metrics.HandlerErrors.Inc()
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось создать заявку, попробуйте позже."))
		clearFeedbackState(chatID)
		return true
	}
	if !created {
		out := tgbotapi.NewMessage(chatID, "⚠️ У вас уже есть активная заявка на рассмотрении.\nПожалуйста, дождитесь ответа администрации.")
		out.ReplyMarkup = menu.ForContext(c)
		_, _ = tg.Send(bot, out)
		clearFeedbackState(chatID)
		return true
	}
	metrics.TicketsCreated.Inc()

	for _, a := range atts {
		a.TicketID = ticketID
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		if err := db.SaveAttachment(dbCtx, database, a); err != nil {
			log.Errorw("save attachment", "ticket", ticketID, "err", err)
		}
		cancel()
	}

	target := "Администрация"
	if st.DirectionID != nil {
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		if dir, err := db.GetDirectionByID(dbCtx, database, *st.DirectionID); err == nil && dir != nil {
			target = dir.Name
		}
		cancel()
	}

	confirm := fmt.Sprintf(
		"✅ *Заявка создана успешно!*\n\n"+
			"📝 *Номер заявки:* #%d\n"+
			"📚 *Направление:* %s\n"+
			"📋 *Статус:* На рассмотрении\n\n"+
			"💬 *Ваша заявка:*\n%s\n\n"+
			"⏳ Ваша заявка направлена преподавателю и администрации.\n"+
			"📱 Ответ придёт в ближайшее время.\n"+
			"❌ До получения ответа создание новых заявок недоступно.",
		ticketID, target, text)
	out := tgbotapi.NewMessage(chatID, confirm)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = menu.ForContext(c)
	_, _ = tg.Send(bot, out)

	clearFeedbackState(chatID)

	dbCtx, cancel = ctxutil.WithDBTimeout(ctx)
	ticket, err := db.GetTicketByID(dbCtx, database, ticketID)
	cancel()
	if err != nil || ticket == nil {
		log.Errorw("reload ticket for notify", "ticket", ticketID, "err", err)
		return true
	}
	NotifyNewTicket(ctx, bot, database, log, ticket)
	return true
}

// extractAttachments — вложения из сообщения по file_id.
func extractAttachments(msg *tgbotapi.Message) []models.Attachment {
	var out []models.Attachment
	if n := len(msg.Photo); n > 0 {
		best := msg.Photo[n-1]
		out = append(out, models.Attachment{
			FileID:   best.FileID,
			FileType: "photo",
			FileSize: sql.NullInt64{Int64: int64(best.FileSize), Valid: true},
		})
	}
	if d := msg.Document; d != nil {
		out = append(out, models.Attachment{
			FileID:   d.FileID,
			FileType: "document",
			FileName: sql.NullString{String: d.FileName, Valid: d.FileName != ""},
			FileSize: sql.NullInt64{Int64: int64(d.FileSize), Valid: true},
			MimeType: sql.NullString{String: d.MimeType, Valid: d.MimeType != ""},
		})
	}
	if v := msg.Video; v != nil {
		out = append(out, models.Attachment{
			FileID:   v.FileID,
			FileType: "video",
			FileSize: sql.NullInt64{Int64: int64(v.FileSize), Valid: true},
			MimeType: sql.NullString{String: v.MimeType, Valid: v.MimeType != ""},
		})
	}
	if v := msg.Voice; v != nil {
		out = append(out, models.Attachment{
			FileID:   v.FileID,
			FileType: "voice",
			FileSize: sql.NullInt64{Int64: int64(v.FileSize), Valid: true},
			MimeType: sql.NullString{String: v.MimeType, Valid: v.MimeType != ""},
		})
	}
	if a := msg.Audio; a != nil {
		out = append(out, models.Attachment{
			FileID:   a.FileID,
			FileType: "audio",
			FileSize: sql.NullInt64{Int64: int64(a.FileSize), Valid: true},
			MimeType: sql.NullString{String: a.MimeType, Valid: a.MimeType != ""},
		})
	}
	return out
}
