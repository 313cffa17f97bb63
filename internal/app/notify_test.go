package app

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/itcube/itcube-bot/internal/models"
)

func TestParseTicketRef(t *testing.T) {
	cases := []struct {
		text string
		want int64
		ok   bool
	}{
		{"📝 *Номер заявки:* #42\n", 42, true},
		{"ответ по #7 и ещё #9", 7, true},
		{"#007", 7, true},
		{"без номера", 0, false},
		{"решётка # без цифр", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseTicketRef(c.text)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseTicketRef(%q) = %d,%v; ожидали %d,%v", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestBuildTicketNotice_RoundTrip(t *testing.T) {
	tk := &models.Ticket{
		ID:          314,
		UserID:      777,
		Username:    sql.NullString{String: "masha", Valid: true},
		FirstName:   sql.NullString{String: "Маша", Valid: true},
		MessageText: "сломался 3D-принтер",
	}

	text := BuildTicketNotice(tk, "Робототехника", statusPending, "")

	// Номер заявки из уведомления должен разбираться reply-хендлером.
	id, ok := ParseTicketRef(text)
	if !ok || id != 314 {
		t.Fatalf("номер заявки не распознан: id=%d ok=%v", id, ok)
	}
	for _, want := range []string{"Маша", "@masha", "`777`", "Робототехника", "сломался 3D-принтер", "reply"} {
		if !strings.Contains(text, want) {
			t.Fatalf("в уведомлении нет %q:\n%s", want, text)
		}
	}
}

func TestBuildTicketNotice_AdminAndClosed(t *testing.T) {
	tk := &models.Ticket{ID: 5, UserID: 1, MessageText: "вопрос"}

	open := BuildTicketNotice(tk, "", statusPending, "")
	if !strings.Contains(open, "Администрация") {
		t.Fatal("заявка без направления должна адресоваться администрации")
	}

	closed := BuildTicketNotice(tk, "", statusClosed, "приходите в кабинет 5")
	if strings.Contains(closed, "reply") {
		t.Fatal("закрытая заявка не должна подсказывать reply")
	}
	if !strings.Contains(closed, "приходите в кабинет 5") {
		t.Fatal("в закрытом уведомлении нет текста ответа")
	}
}

func TestDisplayName(t *testing.T) {
	named := &models.Ticket{FirstName: sql.NullString{String: "Оля", Valid: true}}
	if displayName(named) != "Оля" {
		t.Fatal("имя из профиля потеряно")
	}
	anon := &models.Ticket{}
	if displayName(anon) != "Без имени" {
		t.Fatal("нет запасного имени")
	}
}
