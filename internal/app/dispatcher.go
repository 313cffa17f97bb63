package app

import (
	"context"
	"database/sql"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/bot/menu"
	"github.com/itcube/itcube-bot/internal/chatctx"
	"github.com/itcube/itcube-bot/internal/config"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/schedule"
	"github.com/itcube/itcube-bot/internal/tg"
	"go.uber.org/zap"
)

// Deps — всё, что нужно хендлерам. Собирается один раз в main.
type Deps struct {
	Bot     tg.API
	BotID   int64
	BotName string
	DB      *sql.DB
	Log     *zap.SugaredLogger
	Cfg     *config.Config
	Sched   *schedule.Parser
	Limiter *ChatLimiter
}

// HandleUpdate — единая точка входа для апдейтов.
func HandleUpdate(ctx context.Context, d *Deps, update tgbotapi.Update) {
	metrics.BotUpdates.Inc()

	switch {
	case update.Message != nil:
		logUser(ctx, d, update.Message.From)
		handleMessage(ctx, d, update.Message)
	case update.CallbackQuery != nil:
		logUser(ctx, d, update.CallbackQuery.From)
		handleCallback(ctx, d, update.CallbackQuery)
	case update.MyChatMember != nil:
		handleChatMember(ctx, d, update.MyChatMember)
	}
}

// logUser — журнал пользователей на каждый апдейт.
func logUser(ctx context.Context, d *Deps, user *tgbotapi.User) {
	if user == nil || user.IsBot {
		return
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if err := db.LogUserInteraction(dbCtx, d.DB, user.ID, user.UserName, user.FirstName, user.LastName); err != nil {
		d.Log.Warnw("log user interaction", "user", user.ID, "err", err)
	}
}

func handleMessage(ctx context.Context, d *Deps, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	unlock := d.Limiter.lock(chatID)
	defer unlock()

	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithUserID(ctx, msg.From.ID)
	ctx = ctxutil.WithOp(ctx, "message")

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	c, err := chatctx.Classify(dbCtx, d.DB, msg.From.ID, msg.Chat)
	cancel()
	if err != nil {
		d.Log.Errorw("classify chat", "chat", chatID, "err", err)
		metrics.HandlerErrors.Inc()
		return
	}

	// Ответ реплаем на уведомление — до всех остальных веток.
	if TryHandleTicketReply(ctx, d.Bot, d.DB, d.Log, msg, d.BotID) {
		return
	}

	// Активные сценарии.
	if TryHandleAdminDocument(ctx, d, msg) {
		return
	}
	if TryHandleAdminText(ctx, d, msg) {
		return
	}
	if TryHandleFeedbackMessage(ctx, d.Bot, d.DB, d.Log, msg, c) {
		return
	}

	text := msg.Text
	switch text {
	case "/start", "/start@" + botMention(d):
		welcome(d, c, chatID)
		return
	case "/help":
		welcome(d, c, chatID)
		return
	case "/chatid":
		HandleChatID(d, msg)
		return
	case "/today":
		if require(d, c, chatctx.CapQuickSchedule, chatID) {
			HandleQuickSchedule(d, msg, 0)
		}
		return
	case "/tomorrow":
		if require(d, c, chatctx.CapQuickSchedule, chatID) {
			HandleQuickSchedule(d, msg, 1)
		}
		return
	case menu.BtnSchedule, "/schedule":
		if require(d, c, chatctx.CapSchedule, chatID) {
			HandleScheduleMenu(d, msg)
		}
		return
	case menu.BtnFeedback, "/feedback":
		if require(d, c, chatctx.CapFeedback, chatID) {
			StartFeedback(ctx, d.Bot, d.DB, d.Log, msg, d.Cfg.Location)
		}
		return
	case menu.BtnActiveTickets, "/requests":
		if require(d, c, chatctx.CapViewRequests, chatID) {
			HandleActiveTickets(ctx, d, msg)
		}
		return
	case menu.BtnStatistics, "/stats":
		if require(d, c, chatctx.CapStatistics, chatID) {
			HandleStatistics(ctx, d, msg)
		}
		return
	case menu.BtnSettings, "/settings":
		if require(d, c, chatctx.CapAdminManagement, chatID) {
			HandleSettings(d, msg)
		}
		return
	case menu.BtnMyTickets, "/my_requests":
		if require(d, c, chatctx.CapMyRequests, chatID) {
			HandleMyTickets(ctx, d, msg)
		}
		return
	case menu.BtnMyDirections, "/my_directions":
		if require(d, c, chatctx.CapMyRequests, chatID) {
			HandleMyDirections(ctx, d, msg)
		}
		return
	}

	if strings.HasPrefix(text, "/msg ") {
		if chatctx.Allowed(c, chatctx.CapViewRequests) || chatctx.Allowed(c, chatctx.CapMyRequests) {
			HandleMsgCommand(ctx, d, msg)
		} else {
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, chatctx.Restricted(c)))
		}
		return
	}

	// В группах на незнакомый текст не отвечаем, чтобы не шуметь.
	if c.IsPrivate() && text != "" {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Неизвестная команда. Используйте /start"))
	}
}

func handleCallback(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	unlock := d.Limiter.lock(chatID)
	defer unlock()

	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithUserID(ctx, cb.From.ID)
	ctx = ctxutil.WithOp(ctx, "callback")

	if TryHandleFeedbackCallback(ctx, d.Bot, d.DB, d.Log, cb) {
		return
	}
	if TryHandleScheduleCallback(d, cb) {
		return
	}

	// Остальные колбэки — только для админов.
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	isAdmin, err := db.IsAdmin(dbCtx, d.DB, cb.From.ID)
	cancel()
	if err != nil {
		d.Log.Errorw("is admin", "user", cb.From.ID, "err", err)
		return
	}
	if !isAdmin {
		_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, "Нет доступа"))
		return
	}

	if TryHandleTicketCallback(ctx, d, cb) {
		return
	}
	if TryHandleStatsCallback(ctx, d, cb) {
		return
	}
	if TryHandleAdminCallback(ctx, d, cb) {
		return
	}
	answerCB(d, cb)
}

// handleChatMember — бота добавили в группу: подсказываем /chatid.
func handleChatMember(ctx context.Context, d *Deps, upd *tgbotapi.ChatMemberUpdated) {
	if upd.NewChatMember.Status != "member" && upd.NewChatMember.Status != "administrator" {
		return
	}
	if upd.Chat.IsPrivate() {
		return
	}
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(upd.Chat.ID,
		"👋 Привет! Чтобы этот чат получал уведомления о заявках, администратор должен добавить его ID: /chatid"))
}

func welcome(d *Deps, c chatctx.Context, chatID int64) {
	out := tgbotapi.NewMessage(chatID, chatctx.Welcome(c))
	out.ParseMode = tgbotapi.ModeMarkdown
	if c.IsPrivate() {
		out.ReplyMarkup = menu.ForContext(c)
	}
	_, _ = tg.Send(d.Bot, out)
}

func require(d *Deps, c chatctx.Context, cap chatctx.Capability, chatID int64) bool {
	if chatctx.Allowed(c, cap) {
		return true
	}
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, chatctx.Restricted(c)))
	return false
}

func botMention(d *Deps) string { return d.BotName }
