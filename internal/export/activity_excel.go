package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/itcube/itcube-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type ActivityWorkbook struct {
	File *excelize.File
}

// NewActivityWorkbook — выгрузка журнала пользователей в один лист.
func NewActivityWorkbook(users []models.UserActivity, loc *time.Location) (*ActivityWorkbook, error) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.UserID, 10),
			u.Username.String,
			u.FirstName.String,
			u.LastName.String,
			u.FirstInteraction.In(loc).Format("02.01.2006 15:04"),
			u.LastInteraction.In(loc).Format("02.01.2006 15:04"),
			strconv.FormatInt(u.TotalMessages, 10),
		})
	}
	spec := SheetSpec{
		Title:  "Пользователи",
		Header: []string{"Telegram ID", "Username", "Имя", "Фамилия", "Первое обращение", "Последняя активность", "Сообщений"},
		Rows:   rows,
	}
	f, err := buildWorkbook([]SheetSpec{spec})
	if err != nil {
		return nil, err
	}
	return &ActivityWorkbook{File: f}, nil
}

func (w *ActivityWorkbook) SaveTemp() (string, error) {
	name := BuildActivityFilename(time.Now().Format("02.01.2006"))
	path := filepath.Join("/tmp", name)
	return path, w.File.SaveAs(path)
}

func buildWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}
		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", columName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", columName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		if err := ApplyDefaultExcelFormatting(f, name); err != nil {
			return nil, fmt.Errorf("format sheet %s: %w", name, err)
		}
	}
	return f, nil
}
