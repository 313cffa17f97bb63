//go:build testutil
// +build testutil

package app

import (
	"context"
	"strings"
	"testing"

	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/testutil/testdb"
	"go.uber.org/zap"
)

func TestNotifyNewTicket_FanOut(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	bot := &fakeBot{}
	log := zap.NewNop().Sugar()

	if err := db.SyncDirections(ctx, h.DB, []string{"Робототехника"}); err != nil {
		t.Fatal(err)
	}
	robo, _ := db.GetDirectionByName(ctx, h.DB, "Робототехника")

	if err := db.AddTeacher(ctx, h.DB, 51, "", "Преп1", 0); err != nil {
		t.Fatal(err)
	}
	if err := db.AddTeacher(ctx, h.DB, 52, "", "Преп2", 0); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{51, 52} {
		if err := db.AssignTeacherDirection(ctx, h.DB, id, robo.ID, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AddAdmin(ctx, h.DB, 61, "", "Админ", 0); err != nil {
		t.Fatal(err)
	}

	ticketID, _, err := db.CreateTicket(ctx, h.DB, 950, "kid", "Ребёнок", "сломался датчик", &robo.ID)
	if err != nil {
		t.Fatal(err)
	}
	NotifyNewTicket(ctx, bot, h.DB, log, mustTicket(t, ctx, h, ticketID))

	// Оба преподавателя направления получили уведомление со своей рамкой.
	for _, id := range []int64{51, 52} {
		msgs := bot.toChat(id)
		if len(msgs) != 1 || !strings.Contains(msgs[0], "Заявка по вашему направлению") {
			t.Fatalf("преподаватель %d: %v", id, msgs)
		}
	}

	// Чатов уведомлений нет: админская копия ушла админу в ЛС и записана для правки.
	adminMsgs := bot.toChat(61)
	if len(adminMsgs) != 1 || !strings.Contains(adminMsgs[0], "Заявка для администрации") {
		t.Fatalf("админ: %v", adminMsgs)
	}
	records, err := db.ListNotificationRecords(ctx, h.DB, ticketID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ChatID != 61 {
		t.Fatalf("записи уведомлений: %+v", records)
	}

	// С активным чатом уведомлений ЛС админов не используются.
	bot2 := &fakeBot{}
	if err := db.AddNotificationChat(ctx, h.DB, -100500, "Дежурка", "group", 61); err != nil {
		t.Fatal(err)
	}
	ticket2, _, err := db.CreateTicket(ctx, h.DB, 951, "", "", "ещё вопрос", nil)
	if err != nil {
		t.Fatal(err)
	}
	NotifyNewTicket(ctx, bot2, h.DB, log, mustTicket(t, ctx, h, ticket2))

	if msgs := bot2.toChat(-100500); len(msgs) != 1 {
		t.Fatalf("групповой чат: %v", msgs)
	}
	if msgs := bot2.toChat(61); len(msgs) != 0 {
		t.Fatalf("дубль в ЛС админа: %v", msgs)
	}
}

func TestNotifyNewTicket_PartialFailure(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	log := zap.NewNop().Sugar()

	if err := db.SyncDirections(ctx, h.DB, []string{"Программирование"}); err != nil {
		t.Fatal(err)
	}
	prog, _ := db.GetDirectionByName(ctx, h.DB, "Программирование")

	if err := db.AddTeacher(ctx, h.DB, 71, "", "Преп1", 0); err != nil {
		t.Fatal(err)
	}
	if err := db.AddTeacher(ctx, h.DB, 72, "", "Преп2", 0); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{71, 72} {
		if err := db.AssignTeacherDirection(ctx, h.DB, id, prog.ID, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AddAdmin(ctx, h.DB, 81, "", "Админ", 0); err != nil {
		t.Fatal(err)
	}
	if err := db.AddNotificationChat(ctx, h.DB, -200100, "Дежурка-1", "group", 81); err != nil {
		t.Fatal(err)
	}
	if err := db.AddNotificationChat(ctx, h.DB, -200200, "Дежурка-2", "group", 81); err != nil {
		t.Fatal(err)
	}

	// Один преподаватель и один чат уведомлений недоступны.
	bot := &fakeBot{failChats: map[int64]bool{71: true, -200100: true}}

	ticketID, _, err := db.CreateTicket(ctx, h.DB, 960, "", "Лев", "не запускается среда", &prog.ID)
	if err != nil {
		t.Fatal(err)
	}
	NotifyNewTicket(ctx, bot, h.DB, log, mustTicket(t, ctx, h, ticketID))

	// Отказ одного адресата не трогает остальных.
	if msgs := bot.toChat(71); len(msgs) != 0 {
		t.Fatalf("заблокировавший преподаватель получил сообщение: %v", msgs)
	}
	if msgs := bot.toChat(72); len(msgs) != 1 {
		t.Fatalf("второй преподаватель: %v", msgs)
	}
	if msgs := bot.toChat(-200100); len(msgs) != 0 {
		t.Fatalf("недоступный чат получил сообщение: %v", msgs)
	}
	if msgs := bot.toChat(-200200); len(msgs) != 1 {
		t.Fatalf("живой чат уведомлений: %v", msgs)
	}

	// Запись для правки на месте есть только по успешной отправке.
	records, err := db.ListNotificationRecords(ctx, h.DB, ticketID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ChatID != -200200 {
		t.Fatalf("записи уведомлений: %+v", records)
	}

	// Заявка остаётся созданной несмотря на частичные отказы доставки.
	if tk := mustTicket(t, ctx, h, ticketID); tk.Status != models.TicketStatusActive {
		t.Fatalf("статус заявки: %q", tk.Status)
	}
}
