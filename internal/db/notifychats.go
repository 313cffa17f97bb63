package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

func AddNotificationChat(ctx context.Context, database *sql.DB, chatID int64, title, chatType string, addedBy int64) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO notification_chats (chat_id, chat_title, chat_type, added_by, is_active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, TRUE)
		ON CONFLICT (chat_id) DO UPDATE
		SET chat_title = EXCLUDED.chat_title, chat_type = EXCLUDED.chat_type, is_active = TRUE
	`, chatID, title, chatType, addedBy)
	return err
}

func RemoveNotificationChat(ctx context.Context, database *sql.DB, chatID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `DELETE FROM notification_chats WHERE chat_id = $1`, chatID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ToggleNotificationChat — вкл/выкл без удаления. Возвращает новое состояние.
func ToggleNotificationChat(ctx context.Context, database *sql.DB, chatID int64) (bool, error) {
	var active bool
	err := database.QueryRowContext(ctx, `
		UPDATE notification_chats SET is_active = NOT is_active
		WHERE chat_id = $1
		RETURNING is_active
	`, chatID).Scan(&active)
	return active, err
}

func IsNotificationChat(ctx context.Context, database *sql.DB, chatID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `
		SELECT 1 FROM notification_chats WHERE chat_id = $1 AND is_active
	`, chatID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func ListNotificationChats(ctx context.Context, database *sql.DB, onlyActive bool) ([]models.NotificationChat, error) {
	q := `SELECT chat_id, chat_title, chat_type, added_by, is_active FROM notification_chats`
	if onlyActive {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY added_at`

	rows, err := database.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NotificationChat
	for rows.Next() {
		var c models.NotificationChat
		if err := rows.Scan(&c.ChatID, &c.ChatTitle, &c.ChatType, &c.AddedBy, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
