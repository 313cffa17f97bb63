package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/itcube/itcube-bot/internal/models"
)

const ticketCols = `id, user_id, username, first_name, message_text, direction_id,
	status, is_answered, answered_by, answer_text, answered_at, created_at`

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.FirstName, &t.MessageText, &t.DirectionID,
		&t.Status, &t.IsAnswered, &t.AnsweredBy, &t.AnswerText, &t.AnsweredAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTicket — создаёт заявку, если у пользователя нет активной.
// Гонку двух параллельных создании гасит частичный уникальный индекс:
// при конфликте вставка молча не происходит и возвращается (0, false).
func CreateTicket(ctx context.Context, database *sql.DB, userID int64, username, firstName, text string, directionID *int64) (int64, bool, error) {
	var dir sql.NullInt64
	if directionID != nil {
		dir = sql.NullInt64{Int64: *directionID, Valid: true}
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO tickets (user_id, username, first_name, message_text, direction_id)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
		RETURNING id
	`, userID, username, firstName, text, dir).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func HasActiveTicket(ctx context.Context, database *sql.DB, userID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `
		SELECT 1 FROM tickets WHERE user_id = $1 AND status = 'active'
	`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func GetActiveTicket(ctx context.Context, database *sql.DB, userID int64) (*models.Ticket, error) {
	t, err := scanTicket(database.QueryRowContext(ctx, `
		SELECT `+ticketCols+` FROM tickets WHERE user_id = $1 AND status = 'active'
	`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func GetTicketByID(ctx context.Context, database *sql.DB, id int64) (*models.Ticket, error) {
	t, err := scanTicket(database.QueryRowContext(ctx, `
		SELECT `+ticketCols+` FROM tickets WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// CloseTicket — закрытие без ответа (админом из списка заявок).
// false, если заявка уже закрыта или не существует.
func CloseTicket(ctx context.Context, database *sql.DB, id int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE tickets SET status = 'closed' WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// MarkAnswered — атомарная точка закрытия при ответе: из двух одновременных
// ответчиков победит ровно один, второй получит false.
func MarkAnswered(ctx context.Context, database *sql.DB, id, answeredBy int64, answerText string) (bool, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE tickets
		SET is_answered = TRUE, answered_by = $1, answer_text = $2, answered_at = now(), status = 'closed'
		WHERE id = $3 AND status = 'active'
	`, answeredBy, answerText, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListTicketsByUser — история заявок пользователя в хронологическом порядке.
func ListTicketsByUser(ctx context.Context, database *sql.DB, userID int64, limit int) ([]models.Ticket, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+ticketCols+` FROM tickets
		WHERE user_id = $1 ORDER BY created_at ASC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func ListActiveTickets(ctx context.Context, database *sql.DB, limit int) ([]models.Ticket, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+ticketCols+` FROM tickets
		WHERE status = 'active' ORDER BY created_at LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListActiveForTeacher — активные заявки по направлениям преподавателя.
func ListActiveForTeacher(ctx context.Context, database *sql.DB, teacherID int64, limit int) ([]models.Ticket, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+ticketCols+` FROM tickets
		WHERE status = 'active'
		  AND direction_id IN (SELECT direction_id FROM teacher_directions WHERE teacher_id = $1)
		ORDER BY created_at LIMIT $2
	`, teacherID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func ListRecentTickets(ctx context.Context, database *sql.DB, window time.Duration, limit int) ([]models.Ticket, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+ticketCols+` FROM tickets
		WHERE created_at > now() - $1::interval
		ORDER BY created_at DESC LIMIT $2
	`, window.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func collectTickets(rows *sql.Rows) ([]models.Ticket, error) {
	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountsByDirection — активные/всего в разрезе направлений.
// Заявки администрации идут строкой с пустым DirectionID.
func CountsByDirection(ctx context.Context, database *sql.DB) ([]models.DirectionCount, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT tk.direction_id, COALESCE(d.name, 'Администрация'),
		       COUNT(*) FILTER (WHERE tk.status = 'active'), COUNT(*)
		FROM tickets tk
		LEFT JOIN directions d ON d.id = tk.direction_id
		GROUP BY tk.direction_id, d.name
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DirectionCount
	for rows.Next() {
		var c models.DirectionCount
		if err := rows.Scan(&c.DirectionID, &c.DirectionName, &c.Active, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func CountActiveForDirection(ctx context.Context, database *sql.DB, directionID int64) (int, error) {
	var n int
	err := database.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tickets WHERE direction_id = $1 AND status = 'active'
	`, directionID).Scan(&n)
	return n, err
}

type TicketStats struct {
	Total   int
	Active  int
	Closed  int
	Last24h int
}

func GetTicketStats(ctx context.Context, database *sql.DB) (TicketStats, error) {
	var s TicketStats
	err := database.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'closed'),
		       COUNT(*) FILTER (WHERE created_at > now() - interval '24 hours')
		FROM tickets
	`).Scan(&s.Total, &s.Active, &s.Closed, &s.Last24h)
	return s, err
}
