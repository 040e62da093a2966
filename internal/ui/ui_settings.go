package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// settingsWidgets holds the form elements read back on save.
type settingsWidgets struct {
	langSelect *widget.Select
	maxEntry   *NumericalEntry
}

// ShowSettingsWindow displays the preferences dialog.
func (app *BridgeDaysApp) ShowSettingsWindow() {
	if app.settingsWindow != nil {
		app.Log.Debug(config.MsgUIWindowOpen)
		app.settingsWindow.RequestFocus()
		return
	}

	w := app.App.NewWindow(app.GetMsg(config.TKeyMenuSettings))
	app.settingsWindow = w
	sw := app.newSettingsWidgets()

	form := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect),
		widget.NewFormItem(app.GetMsg(config.TKeyLblMaxDays), sw.maxEntry),
	)
	generalCard := widget.NewCard(app.GetMsg(config.TKeyMenuSettings), "", form)

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), func() {
		if err := sw.maxEntry.Validate(); err != nil {
			dialog.ShowError(err, w)
			return
		}
		app.saveSettings(sw)
		w.Close()
	})
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	footer := widget.NewLabel(fmt.Sprintf(config.FormatFooter, config.AppName, config.Version))
	footer.Alignment = fyne.TextAlignCenter
	footer.TextStyle = fyne.TextStyle{Italic: true}

	content := container.NewPadded(container.NewVBox(
		generalCard,
		container.NewGridWithColumns(config.LayoutColumns, btnCancel, btnSave),
		footer,
	))

	w.SetContent(content)
	w.Resize(fyne.NewSize(config.SettingsWindowWidth, content.MinSize().Height))
	w.SetFixedSize(true)
	w.SetOnClosed(func() { app.settingsWindow = nil })
	w.Show()
}

func (app *BridgeDaysApp) newSettingsWidgets() *settingsWidgets {
	sw := &settingsWidgets{}

	sw.langSelect = widget.NewSelect(app.Catalog.Languages(), nil)
	sw.langSelect.SetSelected(app.Tr.Lang())

	_, _, maxDays := app.selection()
	sw.maxEntry = NewNumericalEntry()
	sw.maxEntry.SetText(strconv.Itoa(maxDays))
	sw.maxEntry.Validator = app.validateMaxDays
	return sw
}

// saveSettings persists the preferences, relocalizes the window and tray,
// and recomputes with the new cap.
func (app *BridgeDaysApp) saveSettings(sw *settingsWidgets) {
	app.Log.Info(config.MsgUISettings,
		zap.String(config.LogKeyLang, sw.langSelect.Selected),
		zap.String(config.LogKeyCount, sw.maxEntry.Text),
	)

	if sw.langSelect.Selected != "" {
		app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)
	}
	if n, err := sw.maxEntry.Int(); err == nil {
		app.Preferences.SetInt(config.PrefMaxDays, n)
	}

	app.UpdateLocalizer()
	app.RefreshTrayMenu()

	if app.Window != nil {
		app.Window.SetTitle(app.GetMsg(config.TKeyAppTitle))
		app.Window.SetContent(app.buildContent())
		_ = app.Compute()
	}
}
