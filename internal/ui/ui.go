// Package ui implements the Fyne desktop front end.
package ui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
	"github.com/tartampluch/go-bridgedays/internal/server"
)

// BridgeDaysApp encapsulates the UI state, preferences, and the background
// web server.
type BridgeDaysApp struct {
	App         fyne.App
	Window      fyne.Window
	Preferences fyne.Preferences
	Catalog     *i18n.Catalog
	Tr          *i18n.Translator
	Ctx         context.Context
	Log         *zap.Logger

	Planner *engine.Planner
	Server  *server.Server // optional

	Tray desktop.App
	Menu *fyne.Menu

	TrayStatusItem   *fyne.MenuItem
	TraySettingsItem *fyne.MenuItem

	settingsWindow fyne.Window
	holidaysWindow fyne.Window

	// Computation state, guarded by mu.
	mu     sync.RWMutex
	Result *engine.Result
	picked []bool

	w mainWidgets
}

// NewBridgeDaysApp constructs the application and wires dependencies.
func NewBridgeDaysApp(a fyne.App, ctx context.Context, p *engine.Planner, cat *i18n.Catalog, srv *server.Server, log *zap.Logger) *BridgeDaysApp {
	a.SetIcon(theme.CalendarIcon())
	if log == nil {
		log = zap.NewNop()
	}

	return &BridgeDaysApp{
		App:         a,
		Preferences: a.Preferences(),
		Catalog:     cat,
		Ctx:         ctx,
		Log:         log.With(zap.String(config.LogKeyComponent, config.CompUI)),
		Planner:     p,
		Server:      srv,
	}
}

// Run launches the web server, shows the planner window and blocks in the
// Fyne main loop.
func (app *BridgeDaysApp) Run() {
	app.UpdateLocalizer()

	if app.Server != nil {
		go func() {
			if err := app.Server.Start(app.Ctx); err != nil {
				app.Log.Error(config.ErrServerStartup, zap.Error(err))
				fyne.Do(func() {
					app.App.SendNotification(fyne.NewNotification(
						config.TitleStartupError,
						fmt.Sprintf(config.MsgPortBusy, app.Server.Addr())))
				})
			}
		}()
	}

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	}

	app.ShowMainWindow()
	_ = app.Compute()
	app.App.Run()
}

// UpdateLocalizer switches the translator to the preferred language.
func (app *BridgeDaysApp) UpdateLocalizer() {
	lang := app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage)
	app.Tr = app.Catalog.Translator(lang)
}

// GetMsg translates key in the current language.
func (app *BridgeDaysApp) GetMsg(key string) string {
	if app.Tr == nil {
		app.UpdateLocalizer()
	}
	return app.Tr.T(key)
}

// setupTrayMenu constructs the system tray menu.
func (app *BridgeDaysApp) setupTrayMenu() {
	app.TrayStatusItem = fyne.NewMenuItem(app.GetMsg(config.TKeyAppTitle), func() {
		app.ShowMainWindow()
	})
	app.TraySettingsItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayStatusItem,
		fyne.NewMenuItemSeparator(),
		app.TraySettingsItem,
	)

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *BridgeDaysApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TraySettingsItem.Label = app.GetMsg(config.TKeyMenuSettings)
	app.updateTrayStatus()
}

// updateTrayStatus shows the number of bridge opportunities of the last
// computation in the tray.
func (app *BridgeDaysApp) updateTrayStatus() {
	if app.Menu == nil || app.TrayStatusItem == nil {
		return
	}

	app.mu.RLock()
	res := app.Result
	app.mu.RUnlock()

	label := app.GetMsg(config.TKeyAppTitle)
	if res != nil {
		label = fmt.Sprintf(config.FormatTrayStatus, res.Canton, res.Year,
			app.GetMsg(config.TKeyStatBridges), len(res.Recommendations))
	}
	app.TrayStatusItem.Label = label
	app.Menu.Refresh()
}

// feedURL is the subscription address of the current canton, or empty
// when no server runs.
func (app *BridgeDaysApp) feedURL(canton string) string {
	if app.Server == nil {
		return ""
	}
	return config.SchemeHTTP + "://" + app.Server.Addr() + config.RouteSubscribe + canton + config.ExtICS
}
