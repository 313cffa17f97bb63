package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

// SaveNotificationRecord — запоминаем отправленное уведомление,
// чтобы при закрытии заявки отредактировать его на месте.
// Повтор по (ticket_id, chat_id) перезаписывает message_id.
func SaveNotificationRecord(ctx context.Context, database *sql.DB, ticketID, chatID int64, messageID int) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO notification_messages (ticket_id, chat_id, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_id, chat_id) DO UPDATE SET message_id = EXCLUDED.message_id
	`, ticketID, chatID, messageID)
	return err
}

func ListNotificationRecords(ctx context.Context, database *sql.DB, ticketID int64) ([]models.NotificationRecord, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, ticket_id, chat_id, message_id
		FROM notification_messages WHERE ticket_id = $1 ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NotificationRecord
	for rows.Next() {
		var r models.NotificationRecord
		if err := rows.Scan(&r.ID, &r.TicketID, &r.ChatID, &r.MessageID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
