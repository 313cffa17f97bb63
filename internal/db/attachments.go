package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

func SaveAttachment(ctx context.Context, database *sql.DB, a models.Attachment) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO attachments (ticket_id, file_id, file_type, file_name, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.TicketID, a.FileID, a.FileType, a.FileName, a.FileSize, a.MimeType)
	return err
}

func ListAttachments(ctx context.Context, database *sql.DB, ticketID int64) ([]models.Attachment, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, ticket_id, file_id, file_type, file_name, file_size, mime_type
		FROM attachments WHERE ticket_id = $1 ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.FileID, &a.FileType, &a.FileName, &a.FileSize, &a.MimeType); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
