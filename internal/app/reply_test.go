//go:build testutil
// +build testutil

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/models"
	"github.com/itcube/itcube-bot/internal/testutil/testdb"
	"go.uber.org/zap"
)

const testBotID = int64(42)

// fakeBot копит исходящие сообщения вместо похода в Telegram.
// Чаты из failChats отвечают ошибкой, как заблокировавший бота пользователь.
type fakeBot struct {
	mu        sync.Mutex
	sent      []tgbotapi.MessageConfig
	failChats map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		if f.failChats[m.ChatID] {
			return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
		}
		f.mu.Lock()
		f.sent = append(f.sent, m)
		f.mu.Unlock()
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	return nil, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) { return "", nil }

func (f *fakeBot) toChat(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func replyMsg(fromID, chatID int64, text, quoted string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: fromID},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		ReplyToMessage: &tgbotapi.Message{
			Text: quoted,
			From: &tgbotapi.User{ID: testBotID},
		},
	}
}

func TestTicketReply_AdminClosesTicket(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	bot := &fakeBot{}
	log := zap.NewNop().Sugar()

	if err := db.AddAdmin(ctx, h.DB, 1, "", "Админ", 0); err != nil {
		t.Fatal(err)
	}
	ticketID, _, err := db.CreateTicket(ctx, h.DB, 900, "user", "Юзер", "не включается ноутбук", nil)
	if err != nil {
		t.Fatal(err)
	}

	notice := BuildTicketNotice(mustTicket(t, ctx, h, ticketID), "", statusPending, "")
	handled := TryHandleTicketReply(ctx, bot, h.DB, log, replyMsg(1, 10, "перезагрузите и приходите", notice), testBotID)
	if !handled {
		t.Fatal("reply по уведомлению бота должен обрабатываться")
	}

	tk := mustTicket(t, ctx, h, ticketID)
	if tk.Status != models.TicketStatusClosed || !tk.IsAnswered {
		t.Fatalf("заявка не закрылась: %+v", tk)
	}

	// Пользователь получил ответ с ролью и текстом.
	userMsgs := bot.toChat(900)
	if len(userMsgs) != 1 {
		t.Fatalf("сообщений пользователю: %d", len(userMsgs))
	}
	if !strings.Contains(userMsgs[0], RoleAdmin) || !strings.Contains(userMsgs[0], "перезагрузите") {
		t.Fatalf("ответ пользователю: %s", userMsgs[0])
	}

	// Ответивший получил подтверждение.
	confirm := bot.toChat(10)
	if len(confirm) == 0 || !strings.Contains(confirm[len(confirm)-1], "Заявка закрыта") {
		t.Fatalf("подтверждение: %v", confirm)
	}
}

func TestTicketReply_TeacherForeignDirection(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	bot := &fakeBot{}
	log := zap.NewNop().Sugar()

	if err := db.SyncDirections(ctx, h.DB, []string{"Робототехника", "VR/AR"}); err != nil {
		t.Fatal(err)
	}
	robo, _ := db.GetDirectionByName(ctx, h.DB, "Робототехника")
	vr, _ := db.GetDirectionByName(ctx, h.DB, "VR/AR")

	if err := db.AddTeacher(ctx, h.DB, 2, "", "Преп", 0); err != nil {
		t.Fatal(err)
	}
	if err := db.AssignTeacherDirection(ctx, h.DB, 2, vr.ID, 0); err != nil {
		t.Fatal(err)
	}

	ticketID, _, err := db.CreateTicket(ctx, h.DB, 901, "", "", "вопрос по роботам", &robo.ID)
	if err != nil {
		t.Fatal(err)
	}

	notice := BuildTicketNotice(mustTicket(t, ctx, h, ticketID), "Робототехника", statusPending, "")
	TryHandleTicketReply(ctx, bot, h.DB, log, replyMsg(2, 20, "отвечаю не по своему", notice), testBotID)

	tk := mustTicket(t, ctx, h, ticketID)
	if tk.Status != models.TicketStatusActive {
		t.Fatalf("чужой преподаватель закрыл заявку: %+v", tk)
	}
	refusal := bot.toChat(20)
	if len(refusal) != 1 || !strings.Contains(refusal[0], "нет прав") {
		t.Fatalf("отказ: %v", refusal)
	}
	if msgs := bot.toChat(901); len(msgs) != 0 {
		t.Fatalf("пользователю ушёл ответ от неавторизованного: %v", msgs)
	}
}

func TestTicketReply_SecondResponderLoses(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	bot := &fakeBot{}
	log := zap.NewNop().Sugar()

	if err := db.AddAdmin(ctx, h.DB, 1, "", "Первый", 0); err != nil {
		t.Fatal(err)
	}
	if err := db.AddAdmin(ctx, h.DB, 3, "", "Второй", 0); err != nil {
		t.Fatal(err)
	}
	ticketID, _, err := db.CreateTicket(ctx, h.DB, 902, "", "", "вопрос", nil)
	if err != nil {
		t.Fatal(err)
	}
	notice := BuildTicketNotice(mustTicket(t, ctx, h, ticketID), "", statusPending, "")

	TryHandleTicketReply(ctx, bot, h.DB, log, replyMsg(1, 30, "первый ответ", notice), testBotID)
	TryHandleTicketReply(ctx, bot, h.DB, log, replyMsg(3, 31, "второй ответ", notice), testBotID)

	tk := mustTicket(t, ctx, h, ticketID)
	if !tk.AnsweredBy.Valid || tk.AnsweredBy.Int64 != 1 {
		t.Fatalf("победил не первый ответчик: %+v", tk.AnsweredBy)
	}
	second := bot.toChat(31)
	if len(second) != 1 || !strings.Contains(second[0], "уже закрыта") {
		t.Fatalf("второй ответчик: %v", second)
	}
	if msgs := bot.toChat(902); len(msgs) != 1 {
		t.Fatalf("пользователь должен получить ровно один ответ: %v", msgs)
	}
}

func mustTicket(t *testing.T, ctx context.Context, h *testdb.DBHandle, id int64) *models.Ticket {
	t.Helper()
	tk, err := db.GetTicketByID(ctx, h.DB, id)
	if err != nil || tk == nil {
		t.Fatalf("заявка %d: %v", id, err)
	}
	return tk
}
