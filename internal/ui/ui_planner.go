package ui

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/calendar"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/export"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/view"
)

// mainWidgets holds references to the planner window elements.
type mainWidgets struct {
	cantonSelect *widget.Select
	yearEntry    *NumericalEntry
	maxEntry     *NumericalEntry
	computeBtn   *widget.Button
	exportBtn    *widget.Button
	statusLabel  *widget.Label
	statsLabel   *widget.Label
	pickedLabel  *widget.Label
	feedLabel    *widget.Label
	bridgeList   *fyne.Container
	checks       []*widget.Check
	yearGrid     *fyne.Container
}

func cantonOption(c holiday.Canton) string {
	return fmt.Sprintf(config.FormatCantonOption, c, c.Name())
}

func cantonFromOption(opt string) string {
	code, _, _ := strings.Cut(opt, " ")
	return code
}

// selection returns the stored canton, year and cap, falling back to the
// defaults.
func (app *BridgeDaysApp) selection() (string, int, int) {
	canton := app.Preferences.StringWithFallback(config.PrefCanton, config.DefaultCanton)

	year := app.Preferences.IntWithFallback(config.PrefYear, 0)
	if year <= 0 {
		year = engine.Today(app.Planner.Clock).Year()
	}

	fallback := app.Planner.Analyzer.MaxVacationDays
	if fallback <= 0 {
		fallback = config.DefaultMaxVacationDays
	}
	maxDays := app.Preferences.IntWithFallback(config.PrefMaxDays, fallback)
	if maxDays <= 0 || maxDays > config.MaxVacationDaysLimit {
		maxDays = fallback
	}
	return canton, year, maxDays
}

// ShowMainWindow opens the planner window or focuses it.
func (app *BridgeDaysApp) ShowMainWindow() {
	if app.Window != nil {
		app.Window.Show()
		app.Window.RequestFocus()
		return
	}

	w := app.App.NewWindow(app.GetMsg(config.TKeyAppTitle))
	app.Window = w
	w.SetContent(app.buildContent())
	w.Resize(fyne.NewSize(config.MainWindowWidth, config.MainWindowHeight))
	w.SetMaster()
	w.SetOnClosed(func() { app.Window = nil })
	w.Show()
}

// buildContent creates every widget of the planner window. It is called
// again after a language change.
func (app *BridgeDaysApp) buildContent() fyne.CanvasObject {
	canton, year, maxDays := app.selection()
	mw := mainWidgets{}

	options := make([]string, 0, len(holiday.Cantons()))
	for _, c := range holiday.Cantons() {
		options = append(options, cantonOption(c))
	}
	mw.cantonSelect = widget.NewSelect(options, nil)
	if c, err := holiday.ParseCanton(canton); err == nil {
		mw.cantonSelect.SetSelected(cantonOption(c))
	}

	mw.yearEntry = NewNumericalEntry()
	mw.yearEntry.SetText(strconv.Itoa(year))

	mw.maxEntry = NewNumericalEntry()
	mw.maxEntry.SetText(strconv.Itoa(maxDays))
	mw.maxEntry.Validator = app.validateMaxDays

	mw.computeBtn = widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCompute), theme.ViewRefreshIcon(), func() {
		_ = app.Compute()
	})
	mw.computeBtn.Importance = widget.HighImportance

	mw.exportBtn = widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnExport), theme.DocumentSaveIcon(), app.showExportDialog)
	holidaysBtn := widget.NewButtonWithIcon(app.GetMsg(config.TKeySecHolidays), theme.ListIcon(), app.ShowHolidaysWindow)
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), app.ShowSettingsWindow)

	form := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblCanton), mw.cantonSelect),
		widget.NewFormItem(app.GetMsg(config.TKeyLblYear), mw.yearEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblMaxDays), mw.maxEntry),
	)
	actions := container.NewHBox(mw.computeBtn, mw.exportBtn, holidaysBtn, settingsBtn)

	mw.statusLabel = widget.NewLabel("")
	mw.statusLabel.Importance = widget.DangerImportance
	mw.statsLabel = widget.NewLabel("")
	mw.statsLabel.TextStyle = fyne.TextStyle{Bold: true}
	mw.pickedLabel = widget.NewLabel("")
	mw.feedLabel = widget.NewLabel("")
	mw.feedLabel.TextStyle = fyne.TextStyle{Italic: true}

	mw.bridgeList = container.NewVBox()
	mw.yearGrid = container.NewGridWithColumns(config.MonthGridColumns)

	bridges := widget.NewCard(app.GetMsg(config.TKeySecBridges), "",
		container.NewBorder(mw.pickedLabel, nil, nil, nil, container.NewVScroll(mw.bridgeList)))
	cal := widget.NewCard(app.GetMsg(config.TKeySecCalendar), "", container.NewVScroll(mw.yearGrid))

	split := container.NewHSplit(bridges, cal)
	split.Offset = config.SplitOffset

	app.w = mw
	top := container.NewVBox(form, actions, mw.statsLabel, mw.statusLabel)
	return container.NewPadded(container.NewBorder(top, mw.feedLabel, nil, nil, split))
}

// Compute plans the selected canton and year and refreshes the window.
func (app *BridgeDaysApp) Compute() error {
	if app.w.cantonSelect == nil {
		return errors.New(config.ErrNothingComputed)
	}

	code := cantonFromOption(app.w.cantonSelect.Selected)
	year, err := app.w.yearEntry.Int()
	if err != nil {
		err = fmt.Errorf("%w: %q", holiday.ErrInvalidYear, app.w.yearEntry.Text)
		app.showComputeError(err)
		return err
	}
	if err := app.validateMaxDays(app.w.maxEntry.Text); err != nil {
		app.showComputeError(err)
		return err
	}
	maxDays, _ := app.w.maxEntry.Int()

	res, err := app.Planner.Plan(code, year, engine.WithMaxVacationDays(maxDays))
	if err != nil {
		app.showComputeError(err)
		return err
	}

	app.mu.Lock()
	app.Result = res
	app.picked = make([]bool, len(res.Recommendations))
	for i := range app.picked {
		app.picked[i] = true
	}
	app.mu.Unlock()

	app.Preferences.SetString(config.PrefCanton, string(res.Canton))
	app.Preferences.SetInt(config.PrefYear, res.Year)
	app.Preferences.SetInt(config.PrefMaxDays, maxDays)

	app.w.statusLabel.SetText("")
	app.refreshResult()
	return nil
}

// validateMaxDays accepts a cap between 1 and MaxVacationDaysLimit.
func (app *BridgeDaysApp) validateMaxDays(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > config.MaxVacationDaysLimit {
		return errors.New(app.GetMsg(config.TKeyErrMaxDays))
	}
	return nil
}

func (app *BridgeDaysApp) showComputeError(err error) {
	app.Log.Warn(config.MsgUIComputeFail, zap.Error(err))
	if app.w.statusLabel != nil {
		app.w.statusLabel.SetText(err.Error())
	}
}

// refreshResult redraws the stats, the recommendation list and the year
// grid from the current result.
func (app *BridgeDaysApp) refreshResult() {
	app.mu.RLock()
	res := app.Result
	app.mu.RUnlock()
	if res == nil || app.w.bridgeList == nil {
		return
	}

	app.w.statsLabel.SetText(strings.Join([]string{
		fmt.Sprintf(config.FormatStat, res.Summary.Holidays, app.GetMsg(config.TKeyStatHolidays)),
		fmt.Sprintf(config.FormatStat, res.Summary.OnWorkdays, app.GetMsg(config.TKeyStatOnWorkdays)),
		fmt.Sprintf(config.FormatStat, res.Summary.Recommendations, app.GetMsg(config.TKeyStatBridges)),
		fmt.Sprintf(config.FormatStat, res.Summary.FreeDays, app.GetMsg(config.TKeyStatFreeDays)),
	}, config.StatSeparator))

	app.w.bridgeList.RemoveAll()
	app.w.checks = app.w.checks[:0]
	if len(res.Recommendations) == 0 {
		app.w.bridgeList.Add(widget.NewLabel(app.GetMsg(config.TKeyBridgeNone)))
	}
	for i, rec := range res.Recommendations {
		check := widget.NewCheck(view.Describe(app.Tr, rec), func(on bool) {
			app.setPicked(i, on)
		})
		check.SetChecked(true)
		app.w.checks = append(app.w.checks, check)
		app.w.bridgeList.Add(container.NewVBox(check, widget.NewLabel(view.Score(app.Tr, rec))))
	}
	app.w.bridgeList.Refresh()

	app.w.yearGrid.RemoveAll()
	for _, m := range view.BuildMonths(res.Calendar, res.Today, res.Recommendations) {
		app.w.yearGrid.Add(app.monthCard(m))
	}
	app.w.yearGrid.Refresh()

	app.w.feedLabel.SetText("")
	if feed := app.feedURL(string(res.Canton)); feed != "" {
		app.w.feedLabel.SetText(app.GetMsg(config.TKeyLblFeed) + ": " + feed)
	}

	app.updatePickedLabel()
	app.updateTrayStatus()
}

func (app *BridgeDaysApp) setPicked(i int, on bool) {
	app.mu.Lock()
	if i < len(app.picked) {
		app.picked[i] = on
	}
	app.mu.Unlock()
	app.updatePickedLabel()
}

// pickedRecommendations returns the checked recommendations.
func (app *BridgeDaysApp) pickedRecommendations() (*engine.Result, []bridge.Recommendation) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	if app.Result == nil {
		return nil, nil
	}
	var recs []bridge.Recommendation
	for i, r := range app.Result.Recommendations {
		if i < len(app.picked) && app.picked[i] {
			recs = append(recs, r)
		}
	}
	return app.Result, recs
}

func (app *BridgeDaysApp) updatePickedLabel() {
	if app.w.pickedLabel == nil {
		return
	}
	_, recs := app.pickedRecommendations()
	days := 0
	for _, r := range recs {
		days += r.VacationDays
	}
	app.w.pickedLabel.SetText(app.Tr.Plural(config.TKeyLblPicked, days))
}

// monthCard draws one month as a Monday-first grid of colored cells.
func (app *BridgeDaysApp) monthCard(m view.Month) fyne.CanvasObject {
	grid := container.NewGridWithColumns(config.WeekColumns)
	for _, h := range app.Tr.WeekHeader() {
		lbl := widget.NewLabel(h)
		lbl.Alignment = fyne.TextAlignCenter
		lbl.TextStyle = fyne.TextStyle{Bold: true}
		grid.Add(lbl)
	}
	for _, week := range m.Weeks {
		for _, cell := range week {
			grid.Add(dayCell(cell))
		}
	}
	return widget.NewCard(app.Tr.Month(m.Month), "", grid)
}

func dayCell(c view.Cell) fyne.CanvasObject {
	if c.Empty() {
		return widget.NewLabel("")
	}
	bg := canvas.NewRectangle(cellColor(c.Kind))
	if c.Today {
		bg.StrokeColor = config.ColorToday
		bg.StrokeWidth = config.CellStrokeWidth
	}
	lbl := widget.NewLabel(strconv.Itoa(c.Day()))
	lbl.Alignment = fyne.TextAlignCenter
	return container.NewStack(bg, lbl)
}

func cellColor(k calendar.Kind) color.Color {
	switch k {
	case calendar.Holiday:
		return config.ColorHoliday
	case calendar.BridgeCandidate:
		return config.ColorBridge
	case calendar.Weekend:
		return config.ColorWeekend
	default:
		return config.ColorNone
	}
}

// ExportTo writes the checked bridge days as iCalendar. An empty selection
// yields an empty calendar.
func (app *BridgeDaysApp) ExportTo(w io.Writer) error {
	res, recs := app.pickedRecommendations()
	if res == nil {
		return errors.New(config.ErrNothingComputed)
	}

	f := app.Tr.ExportFormatter()
	entries, err := export.PlanEntries(f, res, recs)
	if err != nil {
		return err
	}
	if err := export.ICS(w, f.MetaFor(res), entries, app.Planner.Clock.Now()); err != nil {
		return err
	}

	app.Log.Info(config.MsgUIExported,
		zap.String(config.LogKeyCanton, string(res.Canton)),
		zap.Int(config.LogKeyYear, res.Year),
		zap.Int(config.LogKeyCount, len(entries)),
	)
	return nil
}

func (app *BridgeDaysApp) showExportDialog() {
	res, _ := app.pickedRecommendations()
	if res == nil || app.Window == nil {
		return
	}

	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, app.Window)
			return
		}
		if wc == nil {
			return
		}
		defer func() { _ = wc.Close() }()

		if err := app.ExportTo(wc); err != nil {
			app.Log.Error(config.ErrWriteFile, zap.Error(err))
			dialog.ShowError(fmt.Errorf("%s: %w", app.GetMsg(config.TKeyErrExport), err), app.Window)
			return
		}
		app.App.SendNotification(fyne.NewNotification(config.AppName,
			app.Tr.TData(config.TKeyNotifExported, map[string]any{"File": wc.URI().Name()})))
	}, app.Window)
	d.SetFileName(export.FileName(string(res.Canton), res.Year, config.ExtICS))
	d.SetFilter(storage.NewExtensionFileFilter([]string{config.ExtICS}))
	d.Show()
}
