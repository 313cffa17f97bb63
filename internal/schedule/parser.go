package schedule

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Days — дни недели в порядке колонок файла расписания.
var Days = []string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

// DaySlot — занятия направления в конкретный день, по группам.
type DaySlot struct {
	Day    string
	Groups []string // "1гр 14:00 - 14:45"
}

type Entry struct {
	Direction string
	Teacher   string
	Cabinet   string
	Days      []DaySlot
}

// Parser держит разобранное расписание в памяти; перечитывание потокобезопасно.
type Parser struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
}

func NewParser(path string) *Parser {
	return &Parser{path: path}
}

// Load — перечитать CSV (колонки: Направление, Преподаватель, Кабинет, дни недели).
func (p *Parser) Load() error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}

	entries, err := parseRows(records)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	return nil
}

// LoadXLSX — загрузить расписание из Excel-файла (первый лист).
func (p *Parser) LoadXLSX(path string) error {
	rows, err := readXLSXRows(path)
	if err != nil {
		return err
	}
	entries, err := parseRows(rows)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	return nil
}

// ValidateXLSX — проверка структуры до загрузки, с человеческим описанием проблемы.
func ValidateXLSX(path string) (bool, string) {
	rows, err := readXLSXRows(path)
	if err != nil {
		return false, "Не удалось открыть файл: " + err.Error()
	}
	if len(rows) < 2 {
		return false, "Файл пустой: нужна строка заголовков и хотя бы одно направление"
	}
	idx := headerIndex(rows[0])
	for _, col := range []string{"Направление", "Преподаватель", "Кабинет"} {
		if _, ok := idx[col]; !ok {
			return false, fmt.Sprintf("Не найдена колонка «%s»", col)
		}
	}
	hasDay := false
	for _, d := range Days {
		if _, ok := idx[d]; ok {
			hasDay = true
			break
		}
	}
	if !hasDay {
		return false, "Не найдено ни одной колонки с днём недели"
	}
	return true, ""
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// ExportCSV — сохранить текущее расписание в CSV (после загрузки XLSX).
func (p *Parser) ExportCSV(path string) error {
	p.mu.RLock()
	entries := p.entries
	p.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"Направление", "Преподаватель", "Кабинет"}, Days...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{e.Direction, e.Teacher, e.Cabinet}
		byDay := map[string]string{}
		for _, ds := range e.Days {
			byDay[ds.Day] = strings.Join(ds.Groups, " ")
		}
		for _, d := range Days {
			row = append(row, byDay[d])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parseRows(rows [][]string) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("schedule is empty")
	}
	idx := headerIndex(rows[0])
	dirCol, ok := idx["Направление"]
	if !ok {
		return nil, fmt.Errorf("column %q not found", "Направление")
	}

	var entries []Entry
	for _, row := range rows[1:] {
		dir := cell(row, dirCol)
		if dir == "" {
			continue
		}
		e := Entry{
			Direction: dir,
			Teacher:   cell(row, idx["Преподаватель"]),
			Cabinet:   cell(row, idx["Кабинет"]),
		}
		for _, d := range Days {
			col, ok := idx[d]
			if !ok {
				continue
			}
			if text := cell(row, col); text != "" {
				e.Days = append(e.Days, DaySlot{Day: d, Groups: SplitGroups(text)})
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// SplitGroups — делим ячейку дня на группы по токенам вида "1гр".
// "1гр 14:00 - 14:45 2гр 15:00 - 15:45" -> две записи.
func SplitGroups(text string) []string {
	parts := strings.Fields(text)
	var groups []string
	var current []string
	for _, part := range parts {
		if strings.Contains(part, "гр") {
			if len(current) > 0 {
				groups = append(groups, strings.Join(current, " "))
			}
			current = []string{part}
		} else {
			current = append(current, part)
		}
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, " "))
	}
	if len(groups) == 0 {
		return []string{text}
	}
	return groups
}

func (p *Parser) Directions() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.Direction)
	}
	return out
}

func (p *Parser) DirectionInfo(name string) (Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.entries {
		if e.Direction == name {
			return e, true
		}
	}
	return Entry{}, false
}

// FormatDirection — карточка направления для отправки в чат (Markdown).
func (p *Parser) FormatDirection(name string) string {
	e, ok := p.DirectionInfo(name)
	if !ok {
		return "Направление не найдено"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 *%s*\n\n", e.Direction)
	fmt.Fprintf(&b, "👨‍🏫 *Преподаватель:* %s\n", e.Teacher)
	fmt.Fprintf(&b, "🏢 *Кабинет:* %s\n\n", e.Cabinet)
	if len(e.Days) == 0 {
		b.WriteString("На данный момент занятий не запланировано")
		return b.String()
	}
	b.WriteString("*📅 Расписание:*\n\n")
	for _, ds := range e.Days {
		fmt.Fprintf(&b, "*%s:*\n", ds.Day)
		for _, g := range ds.Groups {
			fmt.Fprintf(&b, "• %s\n", g)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDay — все занятия в заданный день (для /today и /tomorrow в группах).
func (p *Parser) FormatDay(day string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *%s*\n\n", day)
	found := false
	for _, e := range p.entries {
		for _, ds := range e.Days {
			if ds.Day != day {
				continue
			}
			found = true
			fmt.Fprintf(&b, "📚 *%s* (каб. %s)\n", e.Direction, e.Cabinet)
			for _, g := range ds.Groups {
				fmt.Fprintf(&b, "• %s\n", g)
			}
			b.WriteString("\n")
		}
	}
	if !found {
		b.WriteString("Занятий нет 🎉")
	}
	return strings.TrimRight(b.String(), "\n")
}

type Stats struct {
	Directions int
	Lessons    int
	BusiestDay string
}

func (p *Parser) Statistics() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{Directions: len(p.entries)}
	perDay := map[string]int{}
	for _, e := range p.entries {
		for _, ds := range e.Days {
			s.Lessons += len(ds.Groups)
			perDay[ds.Day] += len(ds.Groups)
		}
	}
	best := 0
	for _, d := range Days {
		if perDay[d] > best {
			best = perDay[d]
			s.BusiestDay = d
		}
	}
	return s
}
