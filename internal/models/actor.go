package models

import (
	"database/sql"
	"time"
)

type Admin struct {
	UserID    int64
	Username  sql.NullString
	FirstName sql.NullString
	AddedBy   sql.NullInt64
	AddedAt   time.Time
}

type Teacher struct {
	UserID    int64
	Username  sql.NullString
	FirstName sql.NullString
	AddedBy   sql.NullInt64
	AddedAt   time.Time
	IsActive  bool
}

type Direction struct {
	ID   int64
	Name string
}

// NotificationChat — групповой чат для админских уведомлений.
type NotificationChat struct {
	ChatID    int64
	ChatTitle sql.NullString
	ChatType  sql.NullString
	AddedBy   sql.NullInt64
	IsActive  bool
}

// WorkingHoursRule — окно приёма заявок на день недели (0 = понедельник).
// Времена храним строками "HH:MM", сравнение лексикографическое.
type WorkingHoursRule struct {
	DayOfWeek int
	StartTime string
	EndTime   string
	IsActive  bool
}

// UserActivity — строка журнала пользователей (users_log).
type UserActivity struct {
	UserID           int64
	Username         sql.NullString
	FirstName        sql.NullString
	LastName         sql.NullString
	FirstInteraction time.Time
	LastInteraction  time.Time
	TotalMessages    int64
}
