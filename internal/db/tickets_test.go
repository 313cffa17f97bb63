//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/testutil/testdb"
)

func TestCreateTicket_OneActivePerUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	id1, created, err := db.CreateTicket(ctx, h.DB, 100, "vasya", "Вася", "не работает станок", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !created || id1 == 0 {
		t.Fatalf("первая заявка должна создаться, got id=%d created=%v", id1, created)
	}

	_, created, err = db.CreateTicket(ctx, h.DB, 100, "vasya", "Вася", "вторая заявка", nil)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("вторая активная заявка того же пользователя не должна создаться")
	}

	if ok, err := db.HasActiveTicket(ctx, h.DB, 100); err != nil || !ok {
		t.Fatalf("ожидали активную заявку, ok=%v err=%v", ok, err)
	}

	// После закрытия можно создать новую.
	if closed, err := db.CloseTicket(ctx, h.DB, id1); err != nil || !closed {
		t.Fatalf("закрытие: closed=%v err=%v", closed, err)
	}
	id2, created, err := db.CreateTicket(ctx, h.DB, 100, "vasya", "Вася", "новая заявка", nil)
	if err != nil || !created {
		t.Fatalf("после закрытия заявка должна создаться: id=%d created=%v err=%v", id2, created, err)
	}
	if id2 == id1 {
		t.Fatal("новая заявка получила старый id")
	}
}

func TestCreateTicket_ParallelSingleWinner(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	const workers = 8
	var wg sync.WaitGroup
	createdCount := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := db.CreateTicket(ctx, h.DB, 200, "petya", "Петя", "гонка", nil)
			if err != nil {
				t.Error(err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	wins := 0
	for c := range createdCount {
		if c {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("ровно одна горутина должна создать заявку, получили %d", wins)
	}
}

func TestMarkAnswered_Idempotent(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	id, _, err := db.CreateTicket(ctx, h.DB, 300, "", "Оля", "вопрос по 3D-печати", nil)
	if err != nil {
		t.Fatal(err)
	}

	won, err := db.MarkAnswered(ctx, h.DB, id, 1, "приходите завтра")
	if err != nil || !won {
		t.Fatalf("первый ответ должен закрыть заявку: won=%v err=%v", won, err)
	}
	won, err = db.MarkAnswered(ctx, h.DB, id, 2, "повторный ответ")
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Fatal("повторный ответ не должен перезакрыть заявку")
	}

	tk, err := db.GetTicketByID(ctx, h.DB, id)
	if err != nil {
		t.Fatal(err)
	}
	if tk.Status != models.TicketStatusClosed {
		t.Fatalf("статус: %q", tk.Status)
	}
	if !tk.AnsweredBy.Valid || tk.AnsweredBy.Int64 != 1 {
		t.Fatalf("ответивший: %+v, ожидали первого", tk.AnsweredBy)
	}
	if tk.AnswerText.String != "приходите завтра" {
		t.Fatalf("текст ответа перезаписан: %q", tk.AnswerText.String)
	}
}

func TestSyncDirections_PrunesRemoved(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := db.SyncDirections(ctx, h.DB, []string{"Робототехника", "Программирование", "VR/AR"}); err != nil {
		t.Fatal(err)
	}
	dirs, err := db.ListDirections(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 3 {
		t.Fatalf("направлений: %d", len(dirs))
	}

	robo, err := db.GetDirectionByName(ctx, h.DB, "Робототехника")
	if err != nil || robo == nil {
		t.Fatalf("Робототехника не найдена: %v", err)
	}
	if err := db.AddTeacher(ctx, h.DB, 500, "teach", "Иван", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.AssignTeacherDirection(ctx, h.DB, 500, robo.ID, 1); err != nil {
		t.Fatal(err)
	}

	// Робототехника исчезла из расписания: направление и привязка удаляются.
	if err := db.SyncDirections(ctx, h.DB, []string{"Программирование", "VR/AR"}); err != nil {
		t.Fatal(err)
	}
	if d, _ := db.GetDirectionByName(ctx, h.DB, "Робототехника"); d != nil {
		t.Fatal("удалённое направление осталось")
	}
	left, err := db.ListDirectionsForTeacher(ctx, h.DB, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("привязки к удалённому направлению остались: %v", left)
	}

	// Заявки направление не теряют жёстко: ticket.direction_id обнуляется.
	prog, _ := db.GetDirectionByName(ctx, h.DB, "Программирование")
	id, _, err := db.CreateTicket(ctx, h.DB, 600, "", "Катя", "вопрос", &prog.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SyncDirections(ctx, h.DB, []string{"VR/AR"}); err != nil {
		t.Fatal(err)
	}
	tk, err := db.GetTicketByID(ctx, h.DB, id)
	if err != nil {
		t.Fatal(err)
	}
	if tk.DirectionID.Valid {
		t.Fatalf("direction_id должен обнулиться, got %+v", tk.DirectionID)
	}
}

func TestListTicketsByUser_ChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	var ids []int64
	for _, text := range []string{"первая", "вторая", "третья"} {
		id, created, err := db.CreateTicket(ctx, h.DB, 400, "", "Женя", text, nil)
		if err != nil || !created {
			t.Fatalf("заявка %q: created=%v err=%v", text, created, err)
		}
		if _, err := db.CloseTicket(ctx, h.DB, id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	tickets, err := db.ListTicketsByUser(ctx, h.DB, 400, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tickets) != 3 {
		t.Fatalf("заявок: %d", len(tickets))
	}
	// История читается как переписка: старые сверху.
	for i, tk := range tickets {
		if tk.ID != ids[i] {
			t.Fatalf("порядок: позиция %d — #%d, ожидали #%d", i, tk.ID, ids[i])
		}
	}
	if tickets[0].MessageText != "первая" || tickets[2].MessageText != "третья" {
		t.Fatalf("тексты не в хронологическом порядке: %q ... %q",
			tickets[0].MessageText, tickets[2].MessageText)
	}
}

func TestListRecentTickets_WindowFilter(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	oldID, _, err := db.CreateTicket(ctx, h.DB, 410, "", "Стар", "старая заявка", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CloseTicket(ctx, h.DB, oldID); err != nil {
		t.Fatal(err)
	}
	_, err = h.DB.ExecContext(ctx, `UPDATE tickets SET created_at = now() - interval '2 days' WHERE id = $1`, oldID)
	if err != nil {
		t.Fatal(err)
	}

	freshID, _, err := db.CreateTicket(ctx, h.DB, 411, "", "Нов", "свежая заявка", nil)
	if err != nil {
		t.Fatal(err)
	}

	recent, err := db.ListRecentTickets(ctx, h.DB, 24*time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != freshID {
		t.Fatalf("за сутки ожидали только #%d, получили %+v", freshID, recent)
	}

	// Широкое окно захватывает обе, свежие сверху.
	all, err := db.ListRecentTickets(ctx, h.DB, 72*time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != freshID || all[1].ID != oldID {
		t.Fatalf("за трое суток: %+v", all)
	}
}

func TestCanTeacherReplyToTicket(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := db.SyncDirections(ctx, h.DB, []string{"Робототехника", "Программирование"}); err != nil {
		t.Fatal(err)
	}
	robo, _ := db.GetDirectionByName(ctx, h.DB, "Робототехника")
	prog, _ := db.GetDirectionByName(ctx, h.DB, "Программирование")

	if err := db.AddTeacher(ctx, h.DB, 700, "", "Мария", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.AssignTeacherDirection(ctx, h.DB, 700, robo.ID, 1); err != nil {
		t.Fatal(err)
	}

	roboTicket, _, err := db.CreateTicket(ctx, h.DB, 801, "", "", "т1", &robo.ID)
	if err != nil {
		t.Fatal(err)
	}
	progTicket, _, err := db.CreateTicket(ctx, h.DB, 802, "", "", "т2", &prog.ID)
	if err != nil {
		t.Fatal(err)
	}
	adminTicket, _, err := db.CreateTicket(ctx, h.DB, 803, "", "", "т3", nil)
	if err != nil {
		t.Fatal(err)
	}

	check := func(ticketID int64, want bool) {
		t.Helper()
		ok, err := db.CanTeacherReplyToTicket(ctx, h.DB, 700, ticketID)
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Fatalf("ticket %d: ожидали %v, получили %v", ticketID, want, ok)
		}
	}
	check(roboTicket, true)
	check(progTicket, false)
	check(adminTicket, false)
}
