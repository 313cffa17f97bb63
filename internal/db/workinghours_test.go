//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/testutil/testdb"
)

// Понедельник 10:30 в UTC — день с индексом 0.
var monday = time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC)

func TestIsFeedbackAvailable(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	// День не настроен.
	ok, reason, err := db.IsFeedbackAvailable(ctx, h.DB, monday)
	if err != nil {
		t.Fatal(err)
	}
	if ok || !strings.Contains(reason, "не настроена") {
		t.Fatalf("ненастроенный день: ok=%v reason=%q", ok, reason)
	}

	// Внутри окна.
	if err := db.SetWorkingHours(ctx, h.DB, 0, "09:00", "18:00", true); err != nil {
		t.Fatal(err)
	}
	ok, reason, err = db.IsFeedbackAvailable(ctx, h.DB, monday)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || reason != "" {
		t.Fatalf("внутри окна: ok=%v reason=%q", ok, reason)
	}

	// Вне окна — отказ с расписанием.
	evening := monday.Add(9 * time.Hour)
	ok, reason, err = db.IsFeedbackAvailable(ctx, h.DB, evening)
	if err != nil {
		t.Fatal(err)
	}
	if ok || !strings.Contains(reason, "09:00 - 18:00") {
		t.Fatalf("вне окна: ok=%v reason=%q", ok, reason)
	}

	// Границы включительно.
	edge := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	if ok, _, _ = db.IsFeedbackAvailable(ctx, h.DB, edge); !ok {
		t.Fatal("граница окна должна быть доступна")
	}

	// Выключенный день.
	if err := db.SetWorkingHours(ctx, h.DB, 0, "09:00", "18:00", false); err != nil {
		t.Fatal(err)
	}
	ok, reason, _ = db.IsFeedbackAvailable(ctx, h.DB, monday)
	if ok || !strings.Contains(reason, "отключена") {
		t.Fatalf("выключенный день: ok=%v reason=%q", ok, reason)
	}
}

func TestWeekdayIndex(t *testing.T) {
	cases := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), 0},  // понедельник
		{time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), 5}, // суббота
		{time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), 6}, // воскресенье
	}
	for _, c := range cases {
		if got := db.WeekdayIndex(c.day); got != c.want {
			t.Fatalf("%s: индекс %d, ожидали %d", c.day.Weekday(), got, c.want)
		}
	}
}
