package menu

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/chatctx"
	"github.com/itcube/itcube-bot/internal/models"
)

// Кнопки главных меню (reply-клавиатуры).
const (
	BtnSchedule      = "📅 Расписание"
	BtnFeedback      = "💬 Обратная связь"
	BtnMyTickets     = "🎫 Мои заявки"
	BtnMyDirections  = "📚 Мои направления"
	BtnActiveTickets = "🎫 Заявки"
	BtnStatistics    = "📊 Статистика"
	BtnSettings      = "⚙️ Настройки"
)

// ForContext — главное меню по контексту чата. В группах reply-клавиатуру не даём.
func ForContext(c chatctx.Context) tgbotapi.ReplyKeyboardMarkup {
	switch c {
	case chatctx.PrivateAdmin:
		return adminMenu()
	case chatctx.PrivateTeacher:
		return teacherMenu()
	default:
		return userMenu()
	}
}

func userMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSchedule),
			tgbotapi.NewKeyboardButton(BtnFeedback),
		),
	)
}

func teacherMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMyTickets),
			tgbotapi.NewKeyboardButton(BtnMyDirections),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSchedule),
		),
	)
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnActiveTickets),
			tgbotapi.NewKeyboardButton(BtnStatistics),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSchedule),
			tgbotapi.NewKeyboardButton(BtnFeedback),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSettings),
		),
	)
}

// Directions — инлайн-клавиатура выбора направления при создании заявки.
// Последней строкой идёт адресат «Администрации» и отмена.
func Directions(dirs []models.Direction) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range dirs {
		name := d.Name
		if len([]rune(name)) > 30 {
			name = string([]rune(name)[:27]) + "..."
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 "+name, "fb_dir_"+itoa(d.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👑 Администрации", "fb_dir_admin"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "fb_cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ScheduleDirections — выбор направления для просмотра расписания.
func ScheduleDirections(names []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, name := range names {
		short := name
		if len([]rune(short)) > 30 {
			short = string([]rune(short)[:27]) + "..."
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 "+short, "sched_dir_"+itoa(int64(i))),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func Cancel(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", data),
		),
	)
}

// Settings — корневое меню настроек администратора.
func Settings() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👑 Администраторы", "set_admins"),
			tgbotapi.NewInlineKeyboardButtonData("👨‍🏫 Преподаватели", "set_teachers"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Чаты уведомлений", "set_chats"),
			tgbotapi.NewInlineKeyboardButtonData("🕐 Рабочие часы", "set_hours"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Загрузить расписание", "schedule_upload_xlsx"),
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", "set_broadcast"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Резервная копия БД", "db_backup"),
		),
	)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
