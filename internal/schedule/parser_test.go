package schedule

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplitGroups(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"1гр 14:00 - 14:45 2гр 15:00 - 15:45", []string{"1гр 14:00 - 14:45", "2гр 15:00 - 15:45"}},
		{"1гр 10:00 - 10:45", []string{"1гр 10:00 - 10:45"}},
		{"14:00 - 14:45", []string{"14:00 - 14:45"}},
		{"", []string{""}},
	}
	for _, c := range cases {
		if got := SplitGroups(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitGroups(%q) = %#v, ожидали %#v", c.in, got, c.want)
		}
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rasp.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleCSV = `Направление,Преподаватель,Кабинет,Понедельник,Вторник,Среда,Четверг,Пятница,Суббота
Робототехника,Иванов И.И.,101,1гр 14:00 - 14:45 2гр 15:00 - 15:45,,1гр 14:00 - 14:45,,,
Программирование,Петрова А.А.,202,,16:00 - 17:30,,16:00 - 17:30,,
VR/AR,Сидоров К.К.,303,,,,,,10:00 - 11:30
`

func TestParser_Load(t *testing.T) {
	p := NewParser(writeCSV(t, sampleCSV))
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	dirs := p.Directions()
	want := []string{"Робототехника", "Программирование", "VR/AR"}
	if !reflect.DeepEqual(dirs, want) {
		t.Fatalf("направления %v, ожидали %v", dirs, want)
	}

	e, ok := p.DirectionInfo("Робототехника")
	if !ok {
		t.Fatal("Робототехника не найдена")
	}
	if e.Teacher != "Иванов И.И." || e.Cabinet != "101" {
		t.Fatalf("карточка: %+v", e)
	}
	if len(e.Days) != 2 || len(e.Days[0].Groups) != 2 {
		t.Fatalf("дни/группы: %+v", e.Days)
	}

	s := p.Statistics()
	if s.Directions != 3 || s.Lessons != 6 {
		t.Fatalf("статистика: %+v", s)
	}
	if s.BusiestDay != "Понедельник" {
		t.Fatalf("самый загруженный день: %q", s.BusiestDay)
	}
}

func TestParser_FormatDay(t *testing.T) {
	p := NewParser(writeCSV(t, sampleCSV))
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	mon := p.FormatDay("Понедельник")
	for _, want := range []string{"Робототехника", "каб. 101", "1гр 14:00 - 14:45"} {
		if !strings.Contains(mon, want) {
			t.Fatalf("в понедельнике нет %q:\n%s", want, mon)
		}
	}
	if strings.Contains(mon, "Программирование") {
		t.Fatal("в понедельник попало чужое направление")
	}

	empty := p.FormatDay("Пятница")
	if !strings.Contains(empty, "Занятий нет") {
		t.Fatalf("пустой день: %s", empty)
	}
}

func TestParser_ExportCSVRoundTrip(t *testing.T) {
	p := NewParser(writeCSV(t, sampleCSV))
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "export.csv")
	if err := p.ExportCSV(out); err != nil {
		t.Fatal(err)
	}

	p2 := NewParser(out)
	if err := p2.Load(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Directions(), p2.Directions()) {
		t.Fatalf("направления после экспорта: %v vs %v", p.Directions(), p2.Directions())
	}
	e1, _ := p.DirectionInfo("Робототехника")
	e2, _ := p2.DirectionInfo("Робототехника")
	if !reflect.DeepEqual(e1, e2) {
		t.Fatalf("карточка после экспорта: %+v vs %+v", e1, e2)
	}
}

func TestParser_LoadMissingColumns(t *testing.T) {
	p := NewParser(writeCSV(t, "Кружок,Педагог\nШахматы,Ляхов\n"))
	if err := p.Load(); err == nil {
		t.Fatal("файл без колонки направления должен отвергаться")
	}
}
