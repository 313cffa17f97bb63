package chatctx

import (
	"context"
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/db"
)

// Context — тип чата с учётом роли пользователя.
type Context int

const (
	PrivateUser Context = iota
	PrivateAdmin
	PrivateTeacher
	PublicGroup
	AdminGroup
	// TeacherGroup пока не назначается: механизма регистрации таких групп нет,
	// но таблица возможностей его уже учитывает.
	TeacherGroup
)

func (c Context) String() string {
	switch c {
	case PrivateUser:
		return "private_user"
	case PrivateAdmin:
		return "private_admin"
	case PrivateTeacher:
		return "private_teacher"
	case PublicGroup:
		return "public_group"
	case AdminGroup:
		return "admin_group"
	case TeacherGroup:
		return "teacher_group"
	}
	return "unknown"
}

func (c Context) IsPrivate() bool {
	return c == PrivateUser || c == PrivateAdmin || c == PrivateTeacher
}

// Capability — именованная возможность, на которую смотрит диспетчер.
type Capability string

const (
	CapStart                Capability = "start"
	CapHelp                 Capability = "help"
	CapChatID               Capability = "chatid"
	CapSchedule             Capability = "schedule"
	CapFeedback             Capability = "feedback"
	CapAdminManagement      Capability = "admin_management"
	CapTeacherManagement    Capability = "teacher_management"
	CapNotificationSettings Capability = "notification_settings"
	CapViewRequests         Capability = "view_requests"
	CapStatistics           Capability = "statistics"
	CapMyRequests           Capability = "my_requests"
	CapReplyToRequest       Capability = "reply_to_request"
	CapGroupInfo            Capability = "group_info"
	CapQuickSchedule        Capability = "quick_schedule"
)

var capabilities = map[Context]map[Capability]bool{
	PrivateUser: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapSchedule: true, CapFeedback: true,
	},
	PrivateAdmin: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapSchedule: true, CapFeedback: true,
		CapAdminManagement: true, CapTeacherManagement: true,
		CapNotificationSettings: true, CapViewRequests: true,
		CapStatistics: true, CapReplyToRequest: true,
	},
	PrivateTeacher: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapSchedule: true,
		CapMyRequests: true, CapReplyToRequest: true,
	},
	PublicGroup: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapGroupInfo: true, CapQuickSchedule: true,
	},
	AdminGroup: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapGroupInfo: true, CapQuickSchedule: true,
		CapViewRequests: true, CapStatistics: true, CapReplyToRequest: true,
	},
	TeacherGroup: {
		CapStart: true, CapHelp: true, CapChatID: true,
		CapGroupInfo: true, CapQuickSchedule: true,
		CapMyRequests: true, CapReplyToRequest: true,
	},
}

func Allowed(c Context, cap Capability) bool {
	return capabilities[c][cap]
}

// Classify — определяем контекст по чату и отправителю.
// В личке админ побеждает преподавателя (у двойной роли админский кабинет).
func Classify(ctx context.Context, database *sql.DB, userID int64, chat *tgbotapi.Chat) (Context, error) {
	if chat.IsPrivate() {
		isAdmin, err := db.IsAdmin(ctx, database, userID)
		if err != nil {
			return PrivateUser, err
		}
		if isAdmin {
			return PrivateAdmin, nil
		}
		isTeacher, err := db.IsTeacher(ctx, database, userID)
		if err != nil {
			return PrivateUser, err
		}
		if isTeacher {
			return PrivateTeacher, nil
		}
		return PrivateUser, nil
	}

	isNotify, err := db.IsNotificationChat(ctx, database, chat.ID)
	if err != nil {
		return PublicGroup, err
	}
	if isNotify {
		return AdminGroup, nil
	}
	return PublicGroup, nil
}
