package ui

import (
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
)

// ShowHolidaysWindow lists the holidays of the last computation in a table
// whose header buttons toggle the sort order.
func (app *BridgeDaysApp) ShowHolidaysWindow() {
	if app.holidaysWindow != nil {
		app.Log.Debug(config.MsgUIWindowOpen)
		app.holidaysWindow.RequestFocus()
		return
	}

	app.mu.RLock()
	var rows []holiday.Holiday
	if app.Result != nil {
		rows = make([]holiday.Holiday, len(app.Result.Holidays))
		copy(rows, app.Result.Holidays)
	}
	app.mu.RUnlock()

	app.holidaysWindow = app.App.NewWindow(app.GetMsg(config.TKeySecHolidays))
	app.holidaysWindow.Resize(fyne.NewSize(config.HolidaysWinWidth, config.HolidaysWinHeight))

	sortCol := config.ColIDDate
	sortAsc := true

	performSort := func() { sortHolidays(rows, sortCol, sortAsc) }
	performSort()

	table := widget.NewTable(
		func() (int, int) { return len(rows), 3 },
		func() fyne.CanvasObject { return widget.NewLabel(config.TablePlaceholder) },
		func(id widget.TableCellID, o fyne.CanvasObject) {
			label := o.(*widget.Label)
			if id.Row >= len(rows) {
				return
			}
			h := rows[id.Row]
			switch id.Col {
			case config.ColIDName:
				label.SetText(h.Name)
			case config.ColIDWeekday:
				label.SetText(app.Tr.WeekdayLong(h.Date.Weekday()))
			default:
				label.SetText(app.Tr.Date(h.Date))
			}
		},
	)

	table.ShowHeaderRow = true
	table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton(config.TablePlaceholder, func() {})
	}
	table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		btn := o.(*widget.Button)

		key := config.TKeyColDate
		switch id.Col {
		case config.ColIDName:
			key = config.TKeyColName
		case config.ColIDWeekday:
			key = config.TKeyColWeekday
		}
		text := app.GetMsg(key)
		if id.Col == sortCol {
			if sortAsc {
				text += config.SortIconAsc
			} else {
				text += config.SortIconDesc
			}
		}
		btn.SetText(text)

		btn.OnTapped = func() {
			if sortCol == id.Col {
				sortAsc = !sortAsc
			} else {
				sortCol = id.Col
				sortAsc = true
			}
			performSort()
			table.Refresh()
		}
	}

	table.SetColumnWidth(config.ColIDDate, config.ColWidthDate)
	table.SetColumnWidth(config.ColIDName, config.ColWidthName)
	table.SetColumnWidth(config.ColIDWeekday, config.ColWidthWeekday)

	app.Log.Info(config.MsgUIHolidays, zap.Int(config.LogKeyCount, len(rows)))

	app.holidaysWindow.SetContent(container.NewBorder(nil, nil, nil, nil, table))
	app.holidaysWindow.SetOnClosed(func() { app.holidaysWindow = nil })
	app.holidaysWindow.Show()
}

// sortHolidays orders rows by column col. Descending order swaps the
// operands so equal rows stay equal.
func sortHolidays(rows []holiday.Holiday, col int, asc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return holidayLess(rows[i], rows[j], col)
		}
		return holidayLess(rows[j], rows[i], col)
	})
}

func holidayLess(a, b holiday.Holiday, col int) bool {
	switch col {
	case config.ColIDName:
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	case config.ColIDWeekday:
		// Monday first
		wa, wb := (a.Date.Weekday()+6)%7, (b.Date.Weekday()+6)%7
		if wa != wb {
			return wa < wb
		}
	}
	return a.Date.Before(b.Date)
}
