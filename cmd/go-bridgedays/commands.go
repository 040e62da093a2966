package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/export"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
	"github.com/tartampluch/go-bridgedays/internal/server"
	"github.com/tartampluch/go-bridgedays/internal/ui"
	"github.com/tartampluch/go-bridgedays/internal/view"
)

// sinkFactory opens the publish target.
type sinkFactory func(ctx context.Context, ps config.PublishSettings, log *zap.Logger) (export.Sink, error)

func s3Sink(ctx context.Context, ps config.PublishSettings, log *zap.Logger) (export.Sink, error) {
	return export.NewS3Sink(ctx, ps, log)
}

// cli carries the global flags and the dependencies built from them.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	cfgPath string
	debug   bool
	canton  string
	year    int
	yearSet bool
	lang    string

	clock   engine.Clock
	newSink sinkFactory

	settings *config.Settings
	log      *zap.Logger
	closer   io.Closer
	planner  *engine.Planner
	catalog  *i18n.Catalog
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout:  stdout,
		stderr:  stderr,
		clock:   engine.RealClock{},
		newSink: s3Sink,
	}
}

// execute runs the command tree with args. The logger is flushed and the
// log file closed whether the command succeeds or not.
func (c *cli) execute(ctx context.Context, args []string) error {
	defer c.teardown()

	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && c.log != nil {
		c.log.Error(config.ErrAppFailed, zap.String(config.LogKeyComponent, config.CompMain), zap.Error(err))
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               config.AppCommand,
		Short:             config.ShortRoot,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgPath, config.FlagConfig, config.FlagShortConfig, "", config.FlagDescConfig)
	pf.BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)
	pf.StringVarP(&c.canton, config.FlagCanton, config.FlagShortCanton, "", config.FlagDescCanton)
	pf.IntVarP(&c.year, config.FlagYear, config.FlagShortYear, 0, config.FlagDescYear)
	pf.StringVar(&c.lang, config.FlagLang, "", config.FlagDescLang)

	root.AddCommand(
		c.holidaysCmd(),
		c.bridgesCmd(),
		c.calendarCmd(),
		c.exportCmd(),
		c.overviewCmd(),
		c.serveCmd(),
		c.desktopCmd(),
		c.publishCmd(),
		c.versionCmd(),
	)
	return root
}

// setup loads the configuration, the logger, the table and the catalog.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == config.CmdVersion {
		return nil
	}
	c.yearSet = cmd.Flags().Changed(config.FlagYear)

	s, fromFile, err := config.Load(config.NewViper(), c.cfgPath)
	if err != nil {
		return err
	}
	c.settings = s
	c.log, c.closer = setupLogging(s.Log, c.debug, c.stderr)
	logStartupInfo(c.log)

	mainLog := c.log.With(zap.String(config.LogKeyComponent, config.CompMain))
	if fromFile {
		mainLog.Info(config.MsgConfigLoaded)
	} else {
		mainLog.Debug(config.MsgConfigDefault)
	}

	years := holiday.YearRange{Min: s.Years.Min, Max: s.Years.Max}
	tbl, err := engine.LoadTable(cmd.Context(), s.Table, years, engine.NewHTTPFetcher(c.log), c.log)
	if err != nil {
		return err
	}
	c.planner = engine.NewPlanner(tbl, bridge.NewAnalyzer(s.Analyzer.MaxVacationDays), c.clock, c.log)

	c.catalog, err = i18n.NewCatalog(c.log)
	return err
}

func (c *cli) teardown() {
	if c.log != nil {
		_ = c.log.Sync()
	}
	if c.closer != nil {
		_ = c.closer.Close()
		c.closer = nil
	}
}

// selection resolves the global flags against the configured defaults.
func (c *cli) selection() (string, int, *i18n.Translator) {
	canton := c.canton
	if canton == "" {
		canton = c.settings.Defaults.Canton
	}
	// An explicit --year is passed through as given, 0 included, so the
	// planner reports it as invalid.
	year := c.year
	if !c.yearSet {
		year = c.settings.Defaults.Year
		if year == 0 {
			year = engine.Today(c.clock).Year()
		}
	}
	lang := c.catalog.Match(c.lang, "")
	if c.lang == "" {
		lang = c.settings.Defaults.Language
	}
	return canton, year, c.catalog.Translator(lang)
}

// checkMax rejects a --max outside 0..MaxVacationDaysLimit; 0 keeps the
// configured cap.
func checkMax(n int) error {
	if n < 0 || n > config.MaxVacationDaysLimit {
		return fmt.Errorf("%s: --%s=%d (max %d)", config.ErrNumberRange, config.FlagMax, n, config.MaxVacationDaysLimit)
	}
	return nil
}

func (c *cli) plan(maxDays int) (*engine.Result, *i18n.Translator, error) {
	if err := checkMax(maxDays); err != nil {
		return nil, nil, err
	}
	canton, year, tr := c.selection()
	res, err := c.planner.Plan(canton, year, engine.WithMaxVacationDays(maxDays))
	return res, tr, err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, config.TabMinWidth, config.TabWidth, config.TabPadding, config.TabPadChar, 0)
}

func row(w io.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, config.TabSep))
}

func (c *cli) holidaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdHolidays,
		Short: config.ShortHolidays,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, tr, err := c.plan(0)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			row(tw, tr.T(config.TKeyColDate), tr.T(config.TKeyColWeekday), tr.T(config.TKeyColName))
			for _, h := range res.Holidays {
				row(tw, tr.Date(h.Date), tr.WeekdayLong(h.Date.Weekday()), h.Name)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) bridgesCmd() *cobra.Command {
	var maxDays, budget int
	cmd := &cobra.Command{
		Use:   config.CmdBridges,
		Short: config.ShortBridges,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, tr, err := c.plan(maxDays)
			if err != nil {
				return err
			}
			recs := res.Recommendations
			if budget > 0 {
				recs = bridge.Plan(recs, budget)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, config.FormatCantonOption+" %d\n", res.Canton, res.CantonName, res.Year)
			if len(recs) == 0 {
				fmt.Fprintln(out, tr.T(config.TKeyBridgeNone))
				return nil
			}
			tw := newTable(out)
			for _, r := range recs {
				row(tw, view.Describe(tr, r), view.Score(tr, r))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, summaryLine(tr, res.Summary))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDays, config.FlagMax, 0, config.FlagDescMax)
	cmd.Flags().IntVar(&budget, config.FlagBudget, 0, config.FlagDescBudget)
	return cmd
}

func summaryLine(tr *i18n.Translator, s bridge.Summary) string {
	return strings.Join([]string{
		fmt.Sprintf(config.FormatStat, s.Holidays, tr.T(config.TKeyStatHolidays)),
		fmt.Sprintf(config.FormatStat, s.OnWorkdays, tr.T(config.TKeyStatOnWorkdays)),
		fmt.Sprintf(config.FormatStat, s.Recommendations, tr.T(config.TKeyStatBridges)),
		fmt.Sprintf(config.FormatStat, s.FreeDays, tr.T(config.TKeyStatFreeDays)),
	}, config.StatSeparator)
}

// useColor decides whether the calendar gets ANSI colors.
func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case config.ColorAlways:
		return true, nil
	case config.ColorNever:
		return false, nil
	case config.ColorAuto, "":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, errors.New(config.ErrColorMode)
	}
}

func (c *cli) calendarCmd() *cobra.Command {
	var colorMode string
	var month, maxDays int
	cmd := &cobra.Command{
		Use:   config.CmdCalendar,
		Short: config.ShortCalendar,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month < 0 || month > 12 {
				return errors.New(config.ErrMonthRange)
			}
			out := cmd.OutOrStdout()
			color, err := useColor(colorMode, out)
			if err != nil {
				return err
			}
			res, tr, err := c.plan(maxDays)
			if err != nil {
				return err
			}
			months := view.BuildMonths(res.Calendar, res.Today, res.Recommendations)
			if month > 0 {
				months = months[month-1 : month]
			}
			return view.RenderTerminal(out, tr, res.Year, months, color)
		},
	}
	cmd.Flags().StringVar(&colorMode, config.FlagColor, config.ColorAuto, config.FlagDescColor)
	cmd.Flags().IntVar(&month, config.FlagMonthly, 0, config.FlagDescMonthly)
	cmd.Flags().IntVar(&maxDays, config.FlagMax, 0, config.FlagDescMax)
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format, out, pick string
	var maxDays int
	cmd := &cobra.Command{
		Use:   config.CmdExport,
		Short: config.ShortExport,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contentType, err := export.ContentType(format)
			if err != nil {
				return err
			}
			picks, err := export.ParsePicks(pick)
			if err != nil {
				return err
			}
			res, tr, err := c.plan(maxDays)
			if err != nil {
				return err
			}
			f := tr.ExportFormatter()
			entries, err := f.Entries(res, picks)
			if err != nil {
				return err
			}

			if out == "" {
				return export.Encode(cmd.OutOrStdout(), format, f.MetaFor(res), entries, c.clock.Now())
			}
			var buf bytes.Buffer
			if err := export.Encode(&buf, format, f.MetaFor(res), entries, c.clock.Now()); err != nil {
				return err
			}
			sink := export.FileSink{Dir: filepath.Dir(out), Log: c.log}
			return sink.Put(cmd.Context(), filepath.Base(out), contentType, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&format, config.FlagFormat, config.FormatICS, config.FlagDescFormat)
	cmd.Flags().StringVarP(&out, config.FlagOut, config.FlagShortOut, "", config.FlagDescOut)
	cmd.Flags().StringVar(&pick, config.FlagPick, "", config.FlagDescPick)
	cmd.Flags().IntVar(&maxDays, config.FlagMax, 0, config.FlagDescMax)
	return cmd
}

func (c *cli) overviewCmd() *cobra.Command {
	var maxDays int
	cmd := &cobra.Command{
		Use:   config.CmdOverview,
		Short: config.ShortOverview,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkMax(maxDays); err != nil {
				return err
			}
			_, year, tr := c.selection()
			rows, err := c.planner.Overview(cmd.Context(), year, engine.WithMaxVacationDays(maxDays))
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			row(tw, tr.T(config.TKeyColCanton), tr.T(config.TKeyColName),
				tr.T(config.TKeyStatHolidays), tr.T(config.TKeyStatBridges), tr.T(config.TKeyStatFreeDays),
				tr.T(config.TKeyColBest))
			for _, r := range rows {
				best := ""
				if r.Best != nil {
					best = view.Describe(tr, *r.Best)
				}
				row(tw, string(r.Canton), r.Name,
					strconv.Itoa(r.Summary.Holidays), strconv.Itoa(r.Summary.Recommendations),
					strconv.Itoa(r.Summary.FreeDays), best)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&maxDays, config.FlagMax, 0, config.FlagDescMax)
	return cmd
}

// applyServerFlags lets --port and --bind override the configuration.
func (c *cli) applyServerFlags(cmd *cobra.Command, port int, bind string) {
	if cmd.Flags().Changed(config.FlagPort) {
		c.settings.Server.Port = port
	}
	if cmd.Flags().Changed(config.FlagBind) {
		c.settings.Server.Bind = bind
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var port int
	var bind string
	cmd := &cobra.Command{
		Use:   config.CmdServe,
		Short: config.ShortServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.applyServerFlags(cmd, port, bind)
			srv, err := server.New(c.planner, c.catalog, *c.settings, c.log)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, config.FlagPort, config.DefaultPort, config.FlagDescPort)
	cmd.Flags().StringVar(&bind, config.FlagBind, config.DefaultBind, config.FlagDescBind)
	return cmd
}

func (c *cli) desktopCmd() *cobra.Command {
	var port int
	var bind string
	cmd := &cobra.Command{
		Use:   config.CmdDesktop,
		Short: config.ShortDesktop,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.applyServerFlags(cmd, port, bind)
			srv, err := server.New(c.planner, c.catalog, *c.settings, c.log)
			if err != nil {
				return err
			}

			a := app.NewWithID(config.AppID)
			a.Preferences().SetString(config.PrefLastRun, config.Version)
			if c.lang != "" {
				a.Preferences().SetString(config.PrefLanguage, c.catalog.Match(c.lang, ""))
			}

			ctx, log := cmd.Context(), c.log
			gui := ui.NewBridgeDaysApp(a, ctx, c.planner, c.catalog, srv, log)

			go func() {
				<-ctx.Done()
				log.Info(config.MsgCtxCancel, zap.String(config.LogKeyComponent, config.CompMain))
				a.Quit()
			}()

			gui.Run()
			c.log.Info(config.MsgAppStop, zap.String(config.LogKeyComponent, config.CompMain))
			return nil
		},
	}
	cmd.Flags().IntVar(&port, config.FlagPort, config.DefaultPort, config.FlagDescPort)
	cmd.Flags().StringVar(&bind, config.FlagBind, config.DefaultBind, config.FlagDescBind)
	return cmd
}

// publishCmd uploads one iCalendar feed per canton. With --canton only that
// canton is published.
func (c *cli) publishCmd() *cobra.Command {
	var bucket, prefix string
	cmd := &cobra.Command{
		Use:   config.CmdPublish,
		Short: config.ShortPublish,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps := c.settings.Publish
			if cmd.Flags().Changed(config.FlagBucket) {
				ps.Bucket = bucket
			}
			if cmd.Flags().Changed(config.FlagPrefix) {
				ps.Prefix = prefix
			}

			ctx := cmd.Context()
			sink, err := c.newSink(ctx, ps, c.log)
			if err != nil {
				return err
			}

			canton, year, tr := c.selection()
			targets := holiday.Cantons()
			if c.canton != "" {
				code, err := holiday.ParseCanton(canton)
				if err != nil {
					return err
				}
				targets = []holiday.Canton{code}
			}

			f := tr.ExportFormatter()
			for _, code := range targets {
				res, err := c.planner.Plan(string(code), year)
				if err != nil {
					return err
				}
				entries, err := f.Entries(res, nil)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := export.ICS(&buf, f.MetaFor(res), entries, res.Today); err != nil {
					return err
				}
				name := export.FileName(string(code), year, config.ExtICS)
				if err := sink.Put(ctx, name, config.MimeTextCalendar, buf.Bytes()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, config.FlagBucket, "", config.FlagDescBucket)
	cmd.Flags().StringVar(&prefix, config.FlagPrefix, "", config.FlagDescPrefix)
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdVersion,
		Short: config.ShortVersion,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
