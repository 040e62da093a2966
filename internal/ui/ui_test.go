package ui

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/calendar"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
	"github.com/tartampluch/go-bridgedays/internal/view"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockTray implements minimal system tray functionality for headless testing.
type MockTray struct {
	Menu *fyne.Menu
}

func (m *MockTray) SetSystemTrayMenu(menu *fyne.Menu) {
	m.Menu = menu
}

func (m *MockTray) SetSystemTrayIcon(icon fyne.Resource) {}
func (m *MockTray) SetSystemTrayWindow(w fyne.Window)    {}

// -----------------------------------------------------------------------------
// Test Setup Helper
// -----------------------------------------------------------------------------

var fixedNow = time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)

// setupTestApp initializes a headless Fyne app over the embedded table.
func setupTestApp(t *testing.T) (*BridgeDaysApp, *MockTray) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	tbl, err := holiday.DefaultTable()
	require.NoError(t, err)
	cat, err := i18n.NewCatalog(nil)
	require.NoError(t, err)
	p := engine.NewPlanner(tbl, bridge.NewAnalyzer(config.DefaultMaxVacationDays), engine.FixedClock(fixedNow), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := NewBridgeDaysApp(a, ctx, p, cat, nil, zap.NewNop())

	tray := &MockTray{}
	app.Tray = tray
	app.UpdateLocalizer()
	app.setupTrayMenu()
	return app, tray
}

// computed opens the planner window and runs the first computation.
func computed(t *testing.T) (*BridgeDaysApp, *MockTray) {
	t.Helper()
	app, tray := setupTestApp(t)
	app.ShowMainWindow()
	require.NoError(t, app.Compute())
	return app, tray
}

func startOf(r bridge.Recommendation) time.Time { return r.Vacation.Start }

// -----------------------------------------------------------------------------
// Localization
// -----------------------------------------------------------------------------

func TestLocalization_Switching(t *testing.T) {
	app, _ := setupTestApp(t)

	assert.Equal(t, "Einstellungen", app.GetMsg(config.TKeyMenuSettings))

	app.Preferences.SetString(config.PrefLanguage, "en")
	app.UpdateLocalizer()
	assert.Equal(t, "Settings", app.GetMsg(config.TKeyMenuSettings))

	app.Preferences.SetString(config.PrefLanguage, "fr")
	app.UpdateLocalizer()
	assert.Equal(t, "Paramètres", app.GetMsg(config.TKeyMenuSettings))
}

func TestLocalization_TrayRefresh(t *testing.T) {
	app, tray := setupTestApp(t)
	require.NotNil(t, tray.Menu)

	app.Preferences.SetString(config.PrefLanguage, "en")
	app.UpdateLocalizer()
	app.RefreshTrayMenu()
	assert.Equal(t, "Settings", app.TraySettingsItem.Label)
}

// -----------------------------------------------------------------------------
// Planner Window
// -----------------------------------------------------------------------------

func TestSelection_Defaults(t *testing.T) {
	app, _ := setupTestApp(t)

	canton, year, maxDays := app.selection()
	assert.Equal(t, config.DefaultCanton, canton)
	assert.Equal(t, 2024, year)
	assert.Equal(t, config.DefaultMaxVacationDays, maxDays)

	app.Preferences.SetString(config.PrefCanton, "BE")
	app.Preferences.SetInt(config.PrefYear, 2025)
	app.Preferences.SetInt(config.PrefMaxDays, 2)
	canton, year, maxDays = app.selection()
	assert.Equal(t, "BE", canton)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 2, maxDays)
}

func TestCantonOption_RoundTrip(t *testing.T) {
	opt := cantonOption(holiday.Canton("ZH"))
	assert.Equal(t, "ZH - Zürich", opt)
	assert.Equal(t, "ZH", cantonFromOption(opt))
}

func TestCompute_Success(t *testing.T) {
	app, _ := computed(t)

	require.NotNil(t, app.Result)
	assert.Equal(t, holiday.Canton("ZH"), app.Result.Canton)
	assert.Len(t, app.Result.Recommendations, 13)
	assert.Len(t, app.w.checks, 13)
	assert.Len(t, app.w.yearGrid.Objects, 12)
	assert.Contains(t, app.w.statsLabel.Text, "13")
	assert.Empty(t, app.w.statusLabel.Text)

	assert.Equal(t, "ZH", app.Preferences.String(config.PrefCanton))
	assert.Equal(t, 2024, app.Preferences.Int(config.PrefYear))
	assert.Equal(t, config.DefaultMaxVacationDays, app.Preferences.Int(config.PrefMaxDays))
}

func TestCompute_MaxDays(t *testing.T) {
	app, _ := setupTestApp(t)
	app.ShowMainWindow()
	app.w.maxEntry.SetText("1")

	require.NoError(t, app.Compute())
	assert.Len(t, app.Result.Recommendations, 3)
	assert.Equal(t, 1, app.Preferences.Int(config.PrefMaxDays))
}

func TestCompute_MaxDaysOutOfRange(t *testing.T) {
	for _, text := range []string{"0", "32", "1001", ""} {
		t.Run(text, func(t *testing.T) {
			app, _ := setupTestApp(t)
			app.ShowMainWindow()
			app.w.maxEntry.SetText(text)

			require.Error(t, app.Compute())
			assert.Nil(t, app.Result)
			assert.Equal(t, app.GetMsg(config.TKeyErrMaxDays), app.w.statusLabel.Text)
			assert.Error(t, app.w.maxEntry.Validate())
		})
	}
}

func TestSelection_IgnoresStoredCapAboveLimit(t *testing.T) {
	app, _ := setupTestApp(t)
	app.Preferences.SetInt(config.PrefMaxDays, 500)

	_, _, maxDays := app.selection()
	assert.Equal(t, config.DefaultMaxVacationDays, maxDays)
}

func TestCompute_InvalidYear(t *testing.T) {
	app, _ := setupTestApp(t)
	app.ShowMainWindow()
	app.w.yearEntry.SetText("")

	err := app.Compute()
	require.Error(t, err)
	assert.ErrorIs(t, err, holiday.ErrInvalidYear)
	assert.NotEmpty(t, app.w.statusLabel.Text)
	assert.Nil(t, app.Result)
}

func TestCompute_OutOfRangeYear(t *testing.T) {
	app, _ := setupTestApp(t)
	app.ShowMainWindow()
	app.w.yearEntry.SetText("99999")

	assert.ErrorIs(t, app.Compute(), holiday.ErrInvalidYear)
}

func TestCompute_WithoutWindow(t *testing.T) {
	app, _ := setupTestApp(t)
	assert.Error(t, app.Compute())
}

func TestPicked_Toggle(t *testing.T) {
	app, _ := computed(t)
	app.Preferences.SetString(config.PrefLanguage, "en")
	app.UpdateLocalizer()

	for _, c := range app.w.checks {
		c.SetChecked(false)
	}
	_, recs := app.pickedRecommendations()
	assert.Empty(t, recs)
	assert.Equal(t, "0 days selected", app.w.pickedLabel.Text)

	app.w.checks[0].SetChecked(true)
	_, recs = app.pickedRecommendations()
	require.Len(t, recs, 1)
	assert.Equal(t, app.Result.Recommendations[0], recs[0])
}

// -----------------------------------------------------------------------------
// Export
// -----------------------------------------------------------------------------

func TestExport_PickedOnly(t *testing.T) {
	app, _ := computed(t)

	aug2 := time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC)
	found := false
	for i, r := range app.Result.Recommendations {
		keep := startOf(r).Equal(aug2) && r.VacationDays == 1
		found = found || keep
		app.w.checks[i].SetChecked(keep)
	}
	require.True(t, found)

	var buf bytes.Buffer
	require.NoError(t, app.ExportTo(&buf))
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "20240802")
}

func TestExport_NoneSelected(t *testing.T) {
	app, _ := computed(t)
	for _, c := range app.w.checks {
		c.SetChecked(false)
	}

	var buf bytes.Buffer
	require.NoError(t, app.ExportTo(&buf))
	assert.Equal(t, config.StubVCalendar, buf.String())
}

func TestExport_NothingComputed(t *testing.T) {
	app, _ := setupTestApp(t)
	var buf bytes.Buffer
	assert.EqualError(t, app.ExportTo(&buf), config.ErrNothingComputed)
}

// -----------------------------------------------------------------------------
// Tray, Grid and Windows
// -----------------------------------------------------------------------------

func TestTrayStatus(t *testing.T) {
	app, _ := computed(t)
	assert.Contains(t, app.TrayStatusItem.Label, "ZH 2024")
	assert.Contains(t, app.TrayStatusItem.Label, "13")
}

func TestDayCell(t *testing.T) {
	assert.Equal(t, config.ColorHoliday, cellColor(calendar.Holiday))
	assert.Equal(t, config.ColorBridge, cellColor(calendar.BridgeCandidate))
	assert.Equal(t, config.ColorWeekend, cellColor(calendar.Weekend))
	assert.Equal(t, config.ColorNone, cellColor(calendar.Workday))

	_, ok := dayCell(view.Cell{}).(*widget.Label)
	assert.True(t, ok)

	today := view.Cell{Date: fixedNow, Kind: calendar.Holiday, Today: true}
	stack, ok := dayCell(today).(*fyne.Container)
	require.True(t, ok)
	require.Len(t, stack.Objects, 2)
	bg := stack.Objects[0].(*canvas.Rectangle)
	assert.Equal(t, config.ColorToday, bg.StrokeColor)
	assert.Equal(t, "1", stack.Objects[1].(*widget.Label).Text)
}

func TestFeedURL(t *testing.T) {
	app, _ := setupTestApp(t)
	assert.Empty(t, app.feedURL("ZH"))
}

func TestSettings_Save(t *testing.T) {
	app, _ := computed(t)
	app.ShowSettingsWindow()
	require.NotNil(t, app.settingsWindow)

	sw := app.newSettingsWidgets()
	assert.Equal(t, config.DefaultLanguage, sw.langSelect.Selected)

	sw.langSelect.SetSelected("en")
	sw.maxEntry.SetText("1")
	require.NoError(t, sw.maxEntry.Validate())
	app.saveSettings(sw)

	assert.Equal(t, "en", app.Preferences.String(config.PrefLanguage))
	assert.Equal(t, 1, app.Preferences.Int(config.PrefMaxDays))
	assert.Equal(t, "en", app.Tr.Lang())
	assert.Equal(t, "1", app.w.maxEntry.Text)
	assert.Len(t, app.Result.Recommendations, 3)

	app.settingsWindow.Close()
	assert.Nil(t, app.settingsWindow)
}

func TestSettings_Validator(t *testing.T) {
	app, _ := setupTestApp(t)
	sw := app.newSettingsWidgets()

	for _, bad := range []string{"", "0", "32"} {
		sw.maxEntry.SetText(bad)
		assert.Error(t, sw.maxEntry.Validate(), bad)
	}
	sw.maxEntry.SetText("31")
	assert.NoError(t, sw.maxEntry.Validate())
}

func TestSortHolidays(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }
	base := []holiday.Holiday{
		{Date: d(time.May, 9), Name: "Auffahrt"},
		{Date: d(time.January, 1), Name: "neujahr"},
		{Date: d(time.December, 25), Name: "Auffahrt"},
		{Date: d(time.April, 1), Name: "Ostermontag"},
	}
	names := func(rows []holiday.Holiday) []string {
		out := make([]string, len(rows))
		for i, h := range rows {
			out[i] = h.Name + "@" + h.Date.Format("01-02")
		}
		return out
	}

	tests := []struct {
		name string
		col  int
		asc  bool
		want []string
	}{
		{"date asc", config.ColIDDate, true, []string{"neujahr@01-01", "Ostermontag@04-01", "Auffahrt@05-09", "Auffahrt@12-25"}},
		{"date desc", config.ColIDDate, false, []string{"Auffahrt@12-25", "Auffahrt@05-09", "Ostermontag@04-01", "neujahr@01-01"}},
		// Ties keep their input order in both directions.
		{"name asc", config.ColIDName, true, []string{"Auffahrt@05-09", "Auffahrt@12-25", "neujahr@01-01", "Ostermontag@04-01"}},
		{"name desc", config.ColIDName, false, []string{"Ostermontag@04-01", "neujahr@01-01", "Auffahrt@05-09", "Auffahrt@12-25"}},
		// Mon Apr 1, Mon Jan 1, Wed Dec 25, Thu May 9.
		{"weekday asc", config.ColIDWeekday, true, []string{"neujahr@01-01", "Ostermontag@04-01", "Auffahrt@12-25", "Auffahrt@05-09"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := slices.Clone(base)
			sortHolidays(rows, tt.col, tt.asc)
			assert.Equal(t, tt.want, names(rows))
		})
	}

	for _, col := range []int{config.ColIDDate, config.ColIDName, config.ColIDWeekday} {
		for _, h := range base {
			assert.False(t, holidayLess(h, h, col), "irreflexive")
		}
	}
}

func TestHolidaysWindow_Singleton(t *testing.T) {
	app, _ := computed(t)

	app.ShowHolidaysWindow()
	first := app.holidaysWindow
	require.NotNil(t, first)

	app.ShowHolidaysWindow()
	assert.Same(t, first, app.holidaysWindow)

	first.Close()
	assert.Nil(t, app.holidaysWindow)
}

func TestMainWindow_Singleton(t *testing.T) {
	app, _ := setupTestApp(t)
	app.ShowMainWindow()
	first := app.Window
	app.ShowMainWindow()
	assert.Same(t, first, app.Window)
}
