package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

// AddAdmin — идемпотентно: повторное добавление обновляет username/first_name.
func AddAdmin(ctx context.Context, database *sql.DB, userID int64, username, firstName string, addedBy int64) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO admins (user_id, username, first_name, added_by)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
	`, userID, username, firstName, addedBy)
	return err
}

func RemoveAdmin(ctx context.Context, database *sql.DB, userID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func IsAdmin(ctx context.Context, database *sql.DB, userID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE user_id = $1`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func ListAdmins(ctx context.Context, database *sql.DB) ([]models.Admin, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT user_id, username, first_name, added_by, added_at
		FROM admins ORDER BY added_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Admin
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.UserID, &a.Username, &a.FirstName, &a.AddedBy, &a.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SeedFirstAdmin — добавляет стартового администратора, если его ещё нет.
func SeedFirstAdmin(ctx context.Context, database *sql.DB, userID int64) error {
	if userID == 0 {
		return nil
	}
	_, err := database.ExecContext(ctx, `
		INSERT INTO admins (user_id, first_name, added_by)
		VALUES ($1, 'Первый админ', $1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}
