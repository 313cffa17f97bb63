package models

import (
	"database/sql"
	"time"
)

const (
	TicketStatusActive = "active"
	TicketStatusClosed = "closed"
)

// Ticket — обращение пользователя (заявка обратной связи).
// DirectionID NULL = заявка адресована администрации.
type Ticket struct {
	ID          int64
	UserID      int64
	Username    sql.NullString
	FirstName   sql.NullString
	MessageText string
	DirectionID sql.NullInt64
	Status      string
	IsAnswered  bool
	AnsweredBy  sql.NullInt64
	AnswerText  sql.NullString
	AnsweredAt  sql.NullTime
	CreatedAt   time.Time
}

// Attachment — вложение заявки, храним только телеграмный file_id.
type Attachment struct {
	ID       int64
	TicketID int64
	FileID   string
	FileType string // photo|document|video|voice|audio
	FileName sql.NullString
	FileSize sql.NullInt64
	MimeType sql.NullString
}

// NotificationRecord — отправленное админское уведомление о заявке.
// По этим записям редактируем текст на месте при закрытии.
type NotificationRecord struct {
	ID        int64
	TicketID  int64
	ChatID    int64
	MessageID int
}

type DirectionCount struct {
	DirectionID   sql.NullInt64
	DirectionName string
	Active        int
	Total         int
}
