package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/itcube/itcube-bot/internal/models"
)

// SetWorkingHours — задаёт окно приёма на день недели (0 = понедельник).
func SetWorkingHours(ctx context.Context, database *sql.DB, day int, start, end string, active bool) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("bad day_of_week %d", day)
	}
	_, err := database.ExecContext(ctx, `
		INSERT INTO working_hours (day_of_week, start_time, end_time, is_active, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (day_of_week) DO UPDATE
		SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		    is_active = EXCLUDED.is_active, updated_at = now()
	`, day, start, end, active)
	return err
}

func DeleteWorkingHours(ctx context.Context, database *sql.DB, day int) (bool, error) {
	res, err := database.ExecContext(ctx, `DELETE FROM working_hours WHERE day_of_week = $1`, day)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func ListWorkingHours(ctx context.Context, database *sql.DB) ([]models.WorkingHoursRule, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT day_of_week, start_time, end_time, is_active
		FROM working_hours ORDER BY day_of_week
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WorkingHoursRule
	for rows.Next() {
		var r models.WorkingHoursRule
		if err := rows.Scan(&r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsActive); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WeekdayIndex — наш индекс дня недели: 0 = понедельник ... 6 = воскресенье.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsFeedbackAvailable — можно ли сейчас подать заявку.
// Сравнение строк "HH:MM" лексикографическое, поэтому окна через полночь
// не поддерживаются. При недоступности возвращается готовый текст отказа.
func IsFeedbackAvailable(ctx context.Context, database *sql.DB, now time.Time) (bool, string, error) {
	var r models.WorkingHoursRule
	err := database.QueryRowContext(ctx, `
		SELECT day_of_week, start_time, end_time, is_active
		FROM working_hours WHERE day_of_week = $1
	`, WeekdayIndex(now)).Scan(&r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsActive)
	if err == sql.ErrNoRows {
		return false, "Обратная связь не настроена для этого дня недели", nil
	}
	if err != nil {
		return false, "", err
	}
	if !r.IsActive {
		return false, "Обратная связь отключена для этого дня недели", nil
	}

	hhmm := now.Format("15:04")
	if r.StartTime <= hhmm && hhmm <= r.EndTime {
		return true, "", nil
	}
	return false, fmt.Sprintf("Рабочие часы: %s - %s", r.StartTime, r.EndTime), nil
}
