package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

// LogUserInteraction — вызывается на каждый апдейт (аналог middleware).
func LogUserInteraction(ctx context.Context, database *sql.DB, userID int64, username, firstName, lastName string) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO users_log (user_id, username, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    last_interaction = now(),
		    total_messages = users_log.total_messages + 1
	`, userID, username, firstName, lastName)
	return err
}

func ListUsersLog(ctx context.Context, database *sql.DB) ([]models.UserActivity, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT user_id, username, first_name, last_name, first_interaction, last_interaction, total_messages
		FROM users_log ORDER BY last_interaction DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserActivity
	for rows.Next() {
		var u models.UserActivity
		if err := rows.Scan(&u.UserID, &u.Username, &u.FirstName, &u.LastName, &u.FirstInteraction, &u.LastInteraction, &u.TotalMessages); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type UsersStats struct {
	Total      int
	ActiveWeek int
	Messages   int64
}

func GetUsersStats(ctx context.Context, database *sql.DB) (UsersStats, error) {
	var s UsersStats
	err := database.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE last_interaction > now() - interval '7 days'),
		       COALESCE(SUM(total_messages), 0)
		FROM users_log
	`).Scan(&s.Total, &s.ActiveWeek, &s.Messages)
	return s, err
}

// ListBroadcastTargets — все пользователи, когда-либо писавшие боту.
func ListBroadcastTargets(ctx context.Context, database *sql.DB) ([]int64, error) {
	rows, err := database.QueryContext(ctx, `SELECT user_id FROM users_log ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
