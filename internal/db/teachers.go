package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
)

func AddTeacher(ctx context.Context, database *sql.DB, userID int64, username, firstName string, addedBy int64) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO teachers (user_id, username, first_name, added_by, is_active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, is_active = TRUE
	`, userID, username, firstName, addedBy)
	return err
}

// RemoveTeacher — вместе с привязками к направлениям (одной транзакцией).
func RemoveTeacher(ctx context.Context, database *sql.DB, userID int64) (bool, error) {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_directions WHERE teacher_id = $1`, userID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n == 1, nil
}

func IsTeacher(ctx context.Context, database *sql.DB, userID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `
		SELECT 1 FROM teachers WHERE user_id = $1 AND is_active
	`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func ListTeachers(ctx context.Context, database *sql.DB) ([]models.Teacher, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT user_id, username, first_name, added_by, added_at, is_active
		FROM teachers WHERE is_active ORDER BY added_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Teacher
	for rows.Next() {
		var t models.Teacher
		if err := rows.Scan(&t.UserID, &t.Username, &t.FirstName, &t.AddedBy, &t.AddedAt, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func AssignTeacherDirection(ctx context.Context, database *sql.DB, teacherID, directionID, assignedBy int64) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO teacher_directions (teacher_id, direction_id, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id, direction_id) DO NOTHING
	`, teacherID, directionID, assignedBy)
	return err
}

func UnassignTeacherDirection(ctx context.Context, database *sql.DB, teacherID, directionID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		DELETE FROM teacher_directions WHERE teacher_id = $1 AND direction_id = $2
	`, teacherID, directionID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListTeachersForDirection — активные преподаватели направления (адресаты рассылки).
func ListTeachersForDirection(ctx context.Context, database *sql.DB, directionID int64) ([]models.Teacher, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT t.user_id, t.username, t.first_name, t.added_by, t.added_at, t.is_active
		FROM teachers t
		JOIN teacher_directions td ON td.teacher_id = t.user_id
		WHERE td.direction_id = $1 AND t.is_active
		ORDER BY t.user_id
	`, directionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Teacher
	for rows.Next() {
		var t models.Teacher
		if err := rows.Scan(&t.UserID, &t.Username, &t.FirstName, &t.AddedBy, &t.AddedAt, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func ListDirectionsForTeacher(ctx context.Context, database *sql.DB, teacherID int64) ([]models.Direction, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT d.id, d.name
		FROM directions d
		JOIN teacher_directions td ON td.direction_id = d.id
		WHERE td.teacher_id = $1
		ORDER BY d.name
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Direction
	for rows.Next() {
		var d models.Direction
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CanTeacherReplyToTicket — преподаватель отвечает только по своим направлениям.
func CanTeacherReplyToTicket(ctx context.Context, database *sql.DB, teacherID, ticketID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `
		SELECT 1
		FROM tickets tk
		JOIN teacher_directions td ON td.direction_id = tk.direction_id
		WHERE tk.id = $1 AND td.teacher_id = $2
	`, ticketID, teacherID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
