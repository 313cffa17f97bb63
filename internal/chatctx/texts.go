package chatctx

// Welcome — приветствие /start для контекста.
func Welcome(c Context) string {
	switch c {
	case PrivateAdmin:
		return "👑 *Добро пожаловать, администратор!*\n\n" +
			"Вам доступны заявки, статистика и настройки бота.\n" +
			"Выберите действие в меню ниже."
	case PrivateTeacher:
		return "👨‍🏫 *Добро пожаловать, преподаватель!*\n\n" +
			"Здесь можно посмотреть заявки по вашим направлениям и расписание.\n" +
			"Для ответа на заявку сделайте reply на уведомление о ней."
	case AdminGroup:
		return "👑 Этот чат получает уведомления о новых заявках.\n" +
			"Отвечайте на уведомления reply'ем, заявка закроется автоматически."
	case TeacherGroup:
		return "👨‍🏫 Чат преподавателей. Доступно быстрое расписание и заявки."
	case PublicGroup:
		return "👋 Привет! Я бот IT-Cube.\n" +
			"В группе доступно быстрое расписание (/today, /tomorrow).\n" +
			"Для обратной связи напишите мне в личные сообщения."
	default:
		return "👋 *Добро пожаловать в IT-Cube!*\n\n" +
			"📅 Расписание занятий и 💬 обратная связь — в меню ниже."
	}
}

// Restricted — отказ при попытке использовать недоступную возможность.
func Restricted(c Context) string {
	if c.IsPrivate() {
		return "❌ Эта команда вам недоступна."
	}
	return "❌ Эта команда недоступна в групповом чате. Напишите боту в личные сообщения."
}
