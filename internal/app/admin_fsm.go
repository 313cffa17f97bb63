package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/backupclient"
	"github.com/itcube/itcube-bot/internal/bot/menu"
	"github.com/itcube/itcube-bot/internal/ctxutil"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/metrics"
	"github.com/itcube/itcube-bot/internal/schedule"
	"github.com/itcube/itcube-bot/internal/tg"
)

const (
	admStepAddAdmin = iota
	admStepDelAdmin
	admStepAddTeacher
	admStepDelTeacher
	admStepBindTeacher
	admStepUnbindTeacher
	admStepAddChat
	admStepSetHours
	admStepBroadcastText
	admStepBroadcastConfirm
	admStepUploadXLSX
)

type adminState struct {
	Step          int
	BroadcastText string
}

var adminFSM sync.Map // chatID -> *adminState

func getAdminState(chatID int64) *adminState {
	if v, ok := adminFSM.Load(chatID); ok {
		return v.(*adminState)
	}
	return nil
}

func setAdminState(chatID int64, st *adminState) { adminFSM.Store(chatID, st) }
func clearAdminState(chatID int64)               { adminFSM.Delete(chatID) }

// HandleSettings — корневое меню настроек (кнопка ⚙️ Настройки).
func HandleSettings(d *Deps, msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID, "⚙️ *Настройки бота*\n\nВыберите раздел:")
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = menu.Settings()
	_, _ = tg.Send(d.Bot, out)
}

// TryHandleAdminCallback — разделы настроек и действия внутри них.
func TryHandleAdminCallback(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery) bool {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case data == "set_admins":
		answerCB(d, cb)
		showAdmins(ctx, d, chatID)
	case data == "adm_add":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepAddAdmin})
		promptCancel(d, chatID, "Отправьте Telegram ID нового администратора:")
	case data == "adm_del":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepDelAdmin})
		promptCancel(d, chatID, "Отправьте Telegram ID администратора, которого нужно удалить:")

	case data == "set_teachers":
		answerCB(d, cb)
		showTeachers(ctx, d, chatID)
	case data == "tch_add":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepAddTeacher})
		promptCancel(d, chatID, "Отправьте Telegram ID нового преподавателя:")
	case data == "tch_del":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepDelTeacher})
		promptCancel(d, chatID, "Отправьте Telegram ID преподавателя, которого нужно удалить.\nЕго привязки к направлениям будут сняты.")
	case data == "tch_bind":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepBindTeacher})
		showDirectionsForBinding(ctx, d, chatID, "Привязка: отправьте два числа — ID преподавателя и ID направления из списка, через пробел.")
	case data == "tch_unbind":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepUnbindTeacher})
		showDirectionsForBinding(ctx, d, chatID, "Отвязка: отправьте два числа — ID преподавателя и ID направления, через пробел.")

	case data == "set_chats":
		answerCB(d, cb)
		showNotificationChats(ctx, d, chatID)
	case data == "chat_add":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepAddChat})
		promptCancel(d, chatID, "Отправьте ID группового чата (узнать: команда /chatid в нужном чате).")
	case strings.HasPrefix(data, "chat_toggle_"):
		toggleNotificationChat(ctx, d, cb, strings.TrimPrefix(data, "chat_toggle_"))
	case strings.HasPrefix(data, "chat_del_"):
		deleteNotificationChat(ctx, d, cb, strings.TrimPrefix(data, "chat_del_"))

	case data == "set_hours":
		answerCB(d, cb)
		showWorkingHours(ctx, d, chatID)
	case data == "wh_set":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepSetHours})
		promptCancel(d, chatID, "Формат: <день 0-6> <начало> <конец>, например: 0 09:00 18:00\n(0 = понедельник). Для выключения дня добавьте слово off: 6 00:00 00:00 off")
	case strings.HasPrefix(data, "wh_del_"):
		deleteWorkingHours(ctx, d, cb, strings.TrimPrefix(data, "wh_del_"))

	case data == "set_broadcast":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepBroadcastText})
		promptCancel(d, chatID, "Отправьте текст рассылки. Его получат все пользователи, когда-либо писавшие боту.")
	case data == "bc_confirm":
		answerCB(d, cb)
		runBroadcast(ctx, d, chatID)
	case data == "bc_cancel":
		answerCB(d, cb)
		clearAdminState(chatID)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Рассылка отменена."))

	case data == "schedule_upload_xlsx":
		answerCB(d, cb)
		setAdminState(chatID, &adminState{Step: admStepUploadXLSX})
		promptCancel(d, chatID, "📤 Отправьте файл Excel (.xlsx) с расписанием.\nКолонки: Направление, Преподаватель, Кабинет, дни недели.")

	case data == "db_backup":
		answerCB(d, cb)
		runBackup(ctx, d, chatID)

	case data == "adm_cancel":
		answerCB(d, cb)
		clearAdminState(chatID)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Отменено."))

	default:
		return false
	}
	return true
}

func answerCB(d *Deps, cb *tgbotapi.CallbackQuery) {
	_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, ""))
}

func promptCancel(d *Deps, chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = menu.Cancel("adm_cancel")
	_, _ = tg.Send(d.Bot, out)
}

// TryHandleAdminText — текстовые шаги настроечных сценариев.
func TryHandleAdminText(ctx context.Context, d *Deps, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	st := getAdminState(chatID)
	if st == nil {
		return false
	}
	text := strings.TrimSpace(msg.Text)

	switch st.Step {
	case admStepAddAdmin:
		id, ok := parseID(d, chatID, text)
		if !ok {
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		err := db.AddAdmin(dbCtx, d.DB, id, "", "", msg.From.ID)
		cancel()
		finishStep(d, chatID, err, fmt.Sprintf("✅ Администратор %d добавлен.", id))

	case admStepDelAdmin:
		id, ok := parseID(d, chatID, text)
		if !ok {
			return true
		}
		if id == msg.From.ID {
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Нельзя удалить самого себя."))
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		removed, err := db.RemoveAdmin(dbCtx, d.DB, id)
		cancel()
		if err == nil && !removed {
			clearAdminState(chatID)
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Такого администратора нет."))
			return true
		}
		finishStep(d, chatID, err, fmt.Sprintf("✅ Администратор %d удалён.", id))

	case admStepAddTeacher:
		id, ok := parseID(d, chatID, text)
		if !ok {
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		err := db.AddTeacher(dbCtx, d.DB, id, "", "", msg.From.ID)
		cancel()
		finishStep(d, chatID, err, fmt.Sprintf("✅ Преподаватель %d добавлен. Теперь привяжите его к направлениям (⚙️ Настройки → Преподаватели).", id))

	case admStepDelTeacher:
		id, ok := parseID(d, chatID, text)
		if !ok {
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		removed, err := db.RemoveTeacher(dbCtx, d.DB, id)
		cancel()
		if err == nil && !removed {
			clearAdminState(chatID)
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Такого преподавателя нет."))
			return true
		}
		finishStep(d, chatID, err, fmt.Sprintf("✅ Преподаватель %d удалён вместе с привязками.", id))

	case admStepBindTeacher, admStepUnbindTeacher:
		teacherID, directionID, ok := parseIDPair(d, chatID, text)
		if !ok {
			return true
		}
		var err error
		var okMsg string
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		if st.Step == admStepBindTeacher {
			err = db.AssignTeacherDirection(dbCtx, d.DB, teacherID, directionID, msg.From.ID)
			okMsg = fmt.Sprintf("✅ Преподаватель %d привязан к направлению %d.", teacherID, directionID)
		} else {
			_, err = db.UnassignTeacherDirection(dbCtx, d.DB, teacherID, directionID)
			okMsg = fmt.Sprintf("✅ Привязка %d → %d снята.", teacherID, directionID)
		}
		cancel()
		finishStep(d, chatID, err, okMsg)

	case admStepAddChat:
		id, ok := parseID(d, chatID, text)
		if !ok {
			return true
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		err := db.AddNotificationChat(dbCtx, d.DB, id, "", "group", msg.From.ID)
		cancel()
		finishStep(d, chatID, err, fmt.Sprintf("✅ Чат %d добавлен в получатели уведомлений.", id))

	case admStepSetHours:
		handleSetHoursInput(ctx, d, chatID, text)

	case admStepBroadcastText:
		if text == "" {
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Текст рассылки пуст, отправьте ещё раз."))
			return true
		}
		st.BroadcastText = text
		st.Step = admStepBroadcastConfirm
		setAdminState(chatID, st)
		out := tgbotapi.NewMessage(chatID, "📣 *Подтвердите рассылку:*\n\n"+text)
		out.ParseMode = tgbotapi.ModeMarkdown
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Отправить", "bc_confirm"),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "bc_cancel"),
			),
		)
		_, _ = tg.Send(d.Bot, out)

	case admStepBroadcastConfirm:
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Нажмите кнопку подтверждения или отмены выше."))

	case admStepUploadXLSX:
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "📤 Пожалуйста, отправьте файл Excel (.xlsx) с расписанием."))

	default:
		return false
	}
	return true
}

func parseID(d *Deps, chatID int64, text string) (int64, bool) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Нужно число (Telegram ID). Попробуйте ещё раз."))
		return 0, false
	}
	return id, true
}

func parseIDPair(d *Deps, chatID int64, text string) (int64, int64, bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Нужно два числа через пробел. Попробуйте ещё раз."))
		return 0, 0, false
	}
	a, err1 := strconv.ParseInt(parts[0], 10, 64)
	b, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Нужно два числа через пробел. Попробуйте ещё раз."))
		return 0, 0, false
	}
	return a, b, true
}

func finishStep(d *Deps, chatID int64, err error, okText string) {
	clearAdminState(chatID)
	if err != nil {
		metrics.HandlerErrors.Inc()
		d.Log.Errorw("admin step", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Ошибка, попробуйте позже."))
		return
	}
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, okText))
}

func showAdmins(ctx context.Context, d *Deps, chatID int64) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	admins, err := db.ListAdmins(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("list admins", "err", err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👑 *Администраторы* (%d)\n\n", len(admins))
	for _, a := range admins {
		fmt.Fprintf(&b, "• `%d`", a.UserID)
		if a.FirstName.Valid {
			fmt.Fprintf(&b, " — %s", a.FirstName.String)
		}
		if a.Username.Valid {
			fmt.Fprintf(&b, " (@%s)", a.Username.String)
		}
		b.WriteString("\n")
	}
	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "adm_add"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Удалить", "adm_del"),
		),
	)
	_, _ = tg.Send(d.Bot, out)
}

func showTeachers(ctx context.Context, d *Deps, chatID int64) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	teachers, err := db.ListTeachers(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("list teachers", "err", err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👨‍🏫 *Преподаватели* (%d)\n\n", len(teachers))
	for _, t := range teachers {
		fmt.Fprintf(&b, "• `%d`", t.UserID)
		if t.FirstName.Valid {
			fmt.Fprintf(&b, " — %s", t.FirstName.String)
		}
		dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
		dirs, err := db.ListDirectionsForTeacher(dbCtx, d.DB, t.UserID)
		cancel()
		if err == nil && len(dirs) > 0 {
			names := make([]string, 0, len(dirs))
			for _, dir := range dirs {
				names = append(names, dir.Name)
			}
			fmt.Fprintf(&b, " — %s", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "tch_add"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Удалить", "tch_del"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Привязать", "tch_bind"),
			tgbotapi.NewInlineKeyboardButtonData("✂️ Отвязать", "tch_unbind"),
		),
	)
	_, _ = tg.Send(d.Bot, out)
}

func showDirectionsForBinding(ctx context.Context, d *Deps, chatID int64, prompt string) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	dirs, err := db.ListDirections(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("list directions", "err", err)
		return
	}
	var b strings.Builder
	b.WriteString(prompt + "\n\n📚 Направления:\n")
	for _, dir := range dirs {
		fmt.Fprintf(&b, "• %d — %s\n", dir.ID, dir.Name)
	}
	promptCancel(d, chatID, b.String())
}

func showNotificationChats(ctx context.Context, d *Deps, chatID int64) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	chats, err := db.ListNotificationChats(dbCtx, d.DB, false)
	cancel()
	if err != nil {
		d.Log.Errorw("list notification chats", "err", err)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *Чаты уведомлений* (%d)\n\n", len(chats))
	if len(chats) == 0 {
		b.WriteString("Чаты не настроены: уведомления уходят каждому администратору в ЛС.\n")
	}
	for _, c := range chats {
		mark := "🔕"
		if c.IsActive {
			mark = "🔔"
		}
		title := c.ChatTitle.String
		if title == "" {
			title = strconv.FormatInt(c.ChatID, 10)
		}
		fmt.Fprintf(&b, "%s `%d` %s\n", mark, c.ChatID, title)
		idStr := strconv.FormatInt(c.ChatID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+idStr, "chat_toggle_"+idStr),
			tgbotapi.NewInlineKeyboardButtonData("🗑", "chat_del_"+idStr),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить чат", "chat_add"),
	))

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(d.Bot, out)
}

func toggleNotificationChat(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		answerCB(d, cb)
		return
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	active, err := db.ToggleNotificationChat(dbCtx, d.DB, id)
	cancel()
	if err != nil {
		d.Log.Errorw("toggle notification chat", "chat", id, "err", err)
		answerCB(d, cb)
		return
	}
	state := "выключен"
	if active {
		state = "включен"
	}
	_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, "Чат "+state))
	showNotificationChats(ctx, d, cb.Message.Chat.ID)
}

func deleteNotificationChat(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		answerCB(d, cb)
		return
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	_, err = db.RemoveNotificationChat(dbCtx, d.DB, id)
	cancel()
	if err != nil {
		d.Log.Errorw("remove notification chat", "chat", id, "err", err)
	}
	answerCB(d, cb)
	showNotificationChats(ctx, d, cb.Message.Chat.ID)
}

func showWorkingHours(ctx context.Context, d *Deps, chatID int64) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	rules, err := db.ListWorkingHours(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("list working hours", "err", err)
		return
	}

	dayNames := []string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"}
	byDay := map[int]string{}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range rules {
		label := fmt.Sprintf("%s - %s", r.StartTime, r.EndTime)
		if !r.IsActive {
			label = "отключено"
		}
		byDay[r.DayOfWeek] = label
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+dayNames[r.DayOfWeek], "wh_del_"+strconv.Itoa(r.DayOfWeek)),
		))
	}

	var b strings.Builder
	b.WriteString("🕐 *Рабочие часы обратной связи*\n\n")
	for i, name := range dayNames {
		label, ok := byDay[i]
		if !ok {
			label = "не настроено"
		}
		fmt.Fprintf(&b, "• %s: %s\n", name, label)
	}
	b.WriteString("\nДень без настройки не принимает заявки.")

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Задать день", "wh_set"),
	))
	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(d.Bot, out)
}

func handleSetHoursInput(ctx context.Context, d *Deps, chatID int64, text string) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Формат: <день 0-6> <начало> <конец>, например: 0 09:00 18:00"))
		return
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 0 || day > 6 {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ День — число от 0 (понедельник) до 6 (воскресенье)."))
		return
	}
	start, end := parts[1], parts[2]
	if !validHHMM(start) || !validHHMM(end) {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Время в формате HH:MM, например 09:00."))
		return
	}
	if start > end {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Начало позже конца: окна через полночь не поддерживаются."))
		return
	}
	active := !(len(parts) > 3 && parts[3] == "off")

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	err = db.SetWorkingHours(dbCtx, d.DB, day, start, end, active)
	cancel()
	finishStep(d, chatID, err, "✅ Рабочие часы обновлены.")
}

func validHHMM(s string) bool {
	t, err := time.Parse("15:04", s)
	return err == nil && t.Format("15:04") == s
}

func deleteWorkingHours(ctx context.Context, d *Deps, cb *tgbotapi.CallbackQuery, dayStr string) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		answerCB(d, cb)
		return
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	_, err = db.DeleteWorkingHours(dbCtx, d.DB, day)
	cancel()
	if err != nil {
		d.Log.Errorw("delete working hours", "day", day, "err", err)
	}
	answerCB(d, cb)
	showWorkingHours(ctx, d, cb.Message.Chat.ID)
}

// runBroadcast — рассылка с паузой между отправками и итоговым счётом.
func runBroadcast(ctx context.Context, d *Deps, chatID int64) {
	st := getAdminState(chatID)
	if st == nil || st.Step != admStepBroadcastConfirm || st.BroadcastText == "" {
		return
	}
	text := st.BroadcastText
	clearAdminState(chatID)

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	targets, err := db.ListBroadcastTargets(dbCtx, d.DB)
	cancel()
	if err != nil {
		d.Log.Errorw("broadcast targets", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить список получателей."))
		return
	}

	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("📣 Рассылка началась, получателей: %d", len(targets))))

	success, failed := 0, 0
	for _, userID := range targets {
		if _, err := tg.Send(d.Bot, tgbotapi.NewMessage(userID, text)); err != nil {
			failed++
			metrics.BroadcastSends.WithLabelValues("error").Inc()
		} else {
			success++
			metrics.BroadcastSends.WithLabelValues("ok").Inc()
		}
		time.Sleep(50 * time.Millisecond)
	}

	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID,
		fmt.Sprintf("📣 Рассылка завершена.\n✅ Доставлено: %d\n❌ Ошибок: %d", success, failed)))
}

// TryHandleAdminDocument — приём XLSX с расписанием.
func TryHandleAdminDocument(ctx context.Context, d *Deps, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	st := getAdminState(chatID)
	if st == nil || st.Step != admStepUploadXLSX {
		return false
	}
	doc := msg.Document
	if doc == nil {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Неверный формат файла! Отправьте файл с расширением .xlsx"))
		return true
	}

	path, err := downloadFile(d, doc.FileID, "schedule_*.xlsx")
	if err != nil {
		d.Log.Errorw("download schedule", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Не удалось скачать файл, попробуйте ещё раз."))
		return true
	}
	defer func() { _ = os.Remove(path) }()

	if ok, problem := schedule.ValidateXLSX(path); !ok {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Файл не подходит: "+problem))
		return true
	}
	if err := d.Sched.LoadXLSX(path); err != nil {
		d.Log.Errorw("load xlsx schedule", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Не удалось загрузить расписание: "+err.Error()))
		return true
	}
	if err := d.Sched.ExportCSV(d.Cfg.ScheduleFile); err != nil {
		d.Log.Errorw("persist schedule csv", "err", err)
	}

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	err = db.SyncDirections(dbCtx, d.DB, d.Sched.Directions())
	cancel()
	if err != nil {
		d.Log.Errorw("sync directions", "err", err)
	}

	clearAdminState(chatID)
	s := d.Sched.Statistics()
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Расписание обновлено!\n📚 Направлений: %d\n🗓 Занятий в неделю: %d", s.Directions, s.Lessons)))
	return true
}

// runBackup — ручной запуск бэкапа через sidecar pgbackup.
func runBackup(ctx context.Context, d *Deps, chatID int64) {
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "💾 Запускаю резервное копирование..."))
	out, err := backupclient.TriggerBackup(ctx)
	if err != nil {
		d.Log.Errorw("trigger backup", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "❌ Бэкап не удался: "+err.Error()))
		return
	}
	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "✅ Бэкап готов: "+out))
}

func downloadFile(d *Deps, fileID, pattern string) (string, error) {
	url, err := d.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", err
	}
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
