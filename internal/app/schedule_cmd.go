package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/bot/menu"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/schedule"
	"github.com/itcube/itcube-bot/internal/tg"
)

// HandleScheduleMenu — выбор направления для просмотра расписания (📅 Расписание).
func HandleScheduleMenu(d *Deps, msg *tgbotapi.Message) {
	names := d.Sched.Directions()
	if len(names) == 0 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(msg.Chat.ID, "📅 Расписание пока не загружено."))
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, "📚 Выберите направление:")
	out.ReplyMarkup = menu.ScheduleDirections(names)
	_, _ = tg.Send(d.Bot, out)
}

// TryHandleScheduleCallback — карточка направления по индексу в списке.
func TryHandleScheduleCallback(d *Deps, cb *tgbotapi.CallbackQuery) bool {
	if !strings.HasPrefix(cb.Data, "sched_dir_") {
		return false
	}
	answerCB(d, cb)

	idx, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "sched_dir_"))
	names := d.Sched.Directions()
	if err != nil || idx < 0 || idx >= len(names) {
		return true
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, d.Sched.FormatDirection(names[idx]))
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, edit)
	return true
}

// HandleQuickSchedule — /today и /tomorrow в группах.
func HandleQuickSchedule(d *Deps, msg *tgbotapi.Message, dayOffset int) {
	now := time.Now().In(d.Cfg.Location).AddDate(0, 0, dayOffset)
	idx := db.WeekdayIndex(now)

	var text string
	if idx >= len(schedule.Days) {
		text = "📅 *Воскресенье*\n\nЗанятий нет 🎉"
	} else {
		text = d.Sched.FormatDay(schedule.Days[idx])
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}

// HandleChatID — /chatid: ID чата для настройки уведомлений.
func HandleChatID(d *Deps, msg *tgbotapi.Message) {
	text := fmt.Sprintf("🆔 ID этого чата: `%d`", msg.Chat.ID)
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	_, _ = tg.Send(d.Bot, out)
}
