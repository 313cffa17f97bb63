package db

import (
	"context"
	"database/sql"

	"github.com/itcube/itcube-bot/internal/models"
	"github.com/lib/pq"
)

// SyncDirections — приводим справочник направлений к списку из расписания.
// Новые имена добавляем, исчезнувшие удаляем вместе с привязками преподавателей.
// Заявки на исчезнувшие направления остаются (direction_id становится NULL по FK).
func SyncDirections(ctx context.Context, database *sql.DB, names []string) error {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO directions (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, name); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM teacher_directions
		WHERE direction_id IN (SELECT id FROM directions WHERE name <> ALL($1))
	`, pq.Array(names)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM directions WHERE name <> ALL($1)
	`, pq.Array(names)); err != nil {
		return err
	}

	return tx.Commit()
}

func ListDirections(ctx context.Context, database *sql.DB) ([]models.Direction, error) {
	rows, err := database.QueryContext(ctx, `SELECT id, name FROM directions ORDER BY name`)
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

func GetDirectionByID(ctx context.Context, database *sql.DB, id int64) (*models.Direction, error) {
	var d models.Direction
	err := database.QueryRowContext(ctx, `SELECT id, name FROM directions WHERE id = $1`, id).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func GetDirectionByName(ctx context.Context, database *sql.DB, name string) (*models.Direction, error) {
	var d models.Direction
	err := database.QueryRowContext(ctx, `SELECT id, name FROM directions WHERE name = $1`, name).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
