package config

import (
	"image/color"
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Bridgedays/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Bridgedays"
	AppID             = "com.github.tartampluch.go-bridgedays"
	AppCommand        = "go-bridgedays"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	EnvPrefix         = "BRIDGEDAYS"
	ConfigFileName    = "config"
	ConfigFileType    = "yaml"
	ConfigDirHome     = "$HOME/.go-bridgedays"
	ConfigDirEtc      = "/etc/go-bridgedays"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// FilePermShared represents -rw-r--r--, used for exported calendar files.
	FilePermShared fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// Log Rotation (lumberjack)
// -----------------------------------------------------------------------------

const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig  = "config"
	FlagDebug   = "debug"
	FlagCanton  = "canton"
	FlagYear    = "year"
	FlagLang    = "lang"
	FlagMax     = "max"
	FlagBudget  = "budget"
	FlagFormat  = "format"
	FlagOut     = "out"
	FlagPick    = "pick"
	FlagPort    = "port"
	FlagBind    = "bind"
	FlagColor   = "color"
	FlagBucket  = "bucket"
	FlagPrefix  = "prefix"
	FlagMonthly = "month"

	FlagShortConfig = "c"
	FlagShortCanton = "k"
	FlagShortYear   = "y"
	FlagShortOut    = "o"

	FlagDescConfig  = "Config file path"
	FlagDescDebug   = "Enable debug logging"
	FlagDescCanton  = "Canton code (e.g. ZH)"
	FlagDescYear    = "Year (defaults to the current year)"
	FlagDescLang    = "Output language (de, en, fr)"
	FlagDescMax     = "Maximum vacation days per bridge"
	FlagDescBudget  = "Vacation budget for a plan (0 = list all)"
	FlagDescFormat  = "Export format (ics, csv, json)"
	FlagDescOut     = "Output file (defaults to stdout)"
	FlagDescPick    = "Only export these dates (YYYY-MM-DD, comma separated)"
	FlagDescPort    = "HTTP port"
	FlagDescBind    = "HTTP bind address"
	FlagDescColor   = "Color output (auto, always, never)"
	FlagDescBucket  = "S3 bucket"
	FlagDescPrefix  = "S3 key prefix"
	FlagDescMonthly = "Only print this month (1-12, 0 = whole year)"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"

	MsgVersionOutput = "%s version %s (%s/%s) commit %s built %s\n"
)

// -----------------------------------------------------------------------------
// CLI Commands
// -----------------------------------------------------------------------------

const (
	CmdHolidays = "holidays"
	CmdBridges  = "bridges"
	CmdCalendar = "calendar"
	CmdExport   = "export"
	CmdOverview = "overview"
	CmdServe    = "serve"
	CmdDesktop  = "desktop"
	CmdPublish  = "publish"
	CmdVersion  = "version"

	ShortRoot     = "Swiss public holidays and bridge-day planner"
	ShortHolidays = "List the public holidays of a canton"
	ShortBridges  = "Recommend bridge days"
	ShortCalendar = "Print the year calendar"
	ShortExport   = "Export bridge days as iCalendar, CSV or JSON"
	ShortOverview = "Compare bridge-day potential across all cantons"
	ShortServe    = "Run the web tool and calendar feed"
	ShortDesktop  = "Open the desktop planner"
	ShortPublish  = "Upload calendar feeds to S3"
	ShortVersion  = "Print build information"

	TabMinWidth = 0
	TabWidth    = 4
	TabPadding  = 2
	TabPadChar  = ' '
	TabSep      = "\t"

	ErrMonthRange = "month must be between 0 and 12"
	ErrColorMode  = "color must be auto, always or never"
)

// -----------------------------------------------------------------------------
// Settings Keys (viper)
// -----------------------------------------------------------------------------

const (
	KeyServerBind      = "server.bind"
	KeyServerPort      = "server.port"
	KeyDefaultCanton   = "defaults.canton"
	KeyDefaultYear     = "defaults.year"
	KeyDefaultLanguage = "defaults.language"
	KeyMaxVacationDays = "analyzer.max_vacation_days"
	KeyYearsMin        = "years.min"
	KeyYearsMax        = "years.max"
	KeyLogLevel        = "log.level"
	KeyLogFile         = "log.file"
	KeyTableSource     = "table.source"
	KeyTablePath       = "table.path"
	KeyTableURL        = "table.url"
	KeyPublishBucket   = "publish.bucket"
	KeyPublishRegion   = "publish.region"
	KeyPublishPrefix   = "publish.prefix"
	KeyPublishProfile  = "publish.profile"
)

// -----------------------------------------------------------------------------
// UI Constants & Preferences
// -----------------------------------------------------------------------------

const (
	MainWindowWidth  = 1100
	MainWindowHeight = 760

	PrefCanton   = "canton"
	PrefYear     = "year"
	PrefLanguage = "language"
	PrefMaxDays  = "max_vacation_days"
	PrefLastRun  = "last_run_version"

	MonthGridColumns    = 4
	WeekColumns         = 7
	LayoutColumns       = 2
	SplitOffset         = 0.35
	SettingsWindowWidth = 420
	CellStrokeWidth     = 2

	// MaxVacationDaysLimit bounds the cap in settings, query strings and forms.
	MaxVacationDaysLimit = 31
	// FeedCacheMaxEntries bounds the subscription cache; a full cache starts over.
	FeedCacheMaxEntries = 512

	// FormatCantonOption expects code and name.
	FormatCantonOption = "%s - %s"
	// FormatTrayStatus expects canton, year, label and count.
	FormatTrayStatus   = "%s %d: %s %d"
	// FormatStat expects value and label.
	FormatStat         = "%d %s"
	// FormatFooter expects app name and version.
	FormatFooter       = "%s %s"

	StatSeparator = "  |  "

	// Holiday table window
	HolidaysWinWidth  = 520
	HolidaysWinHeight = 480
	ColIDDate         = 0
	ColIDName         = 1
	ColIDWeekday      = 2
	ColWidthDate      = 120
	ColWidthName      = 260
	ColWidthWeekday   = 120
	TablePlaceholder  = "Placeholder"
	SortIconAsc       = " ▲"
	SortIconDesc      = " ▼"
)

// Month grid colors.
var (
	ColorHoliday = color.NRGBA{R: 0xd9, G: 0x38, B: 0x3a, A: 0xff}
	ColorBridge  = color.NRGBA{R: 0xf4, G: 0xc5, B: 0x42, A: 0xff}
	ColorWeekend = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x40}
	ColorToday   = color.NRGBA{R: 0x27, G: 0x63, B: 0xd8, A: 0xff}
	ColorNone    = color.Transparent
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"de", "en", "fr"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyAppTitle        = "app_title"
	TKeyAppTagline      = "app_tagline"
	TKeyLblCanton       = "lbl_canton"
	TKeyLblYear         = "lbl_year"
	TKeyLblMaxDays      = "lbl_max_days"
	TKeyBtnCompute      = "btn_compute"
	TKeyBtnExport       = "btn_export"
	TKeySecCalendar     = "sec_calendar"
	TKeySecBridges      = "sec_bridges"
	TKeySecExport       = "sec_export"
	TKeySecHolidays     = "sec_holidays"
	TKeyLegendHoliday   = "legend_holiday"
	TKeyLegendBridge    = "legend_bridge"
	TKeyLegendWeekend   = "legend_weekend"
	TKeyLegendToday     = "legend_today"
	TKeyStatHolidays    = "stat_holidays"
	TKeyStatOnWorkdays  = "stat_on_workdays"
	TKeyStatBridges     = "stat_bridges"
	TKeyStatFreeDays    = "stat_free_days"
	TKeyColName         = "col_name"
	TKeyColDate         = "col_date"
	TKeyColWeekday      = "col_weekday"
	TKeyBridgeSingle    = "bridge_single"   // Requires Date, Holiday, Total
	TKeyBridgeRange     = "bridge_range"    // Requires From, To, Holiday, Total, Vacation
	TKeyBridgeDaysOff   = "bridge_days_off" // Requires Count (plural)
	TKeyBridgeNone      = "bridge_none"
	TKeyBridgeScore     = "bridge_score" // Requires Score
	TKeyEvtSummary      = "event_summary"     // Requires Holiday
	TKeyEvtDescription  = "event_description" // Requires Total, Vacation
	TKeyCalName         = "cal_name"          // Requires Canton, Year
	TKeyFormatDate      = "format_date"
	TKeyFormatDateShort = "format_date_short"
	TKeyNotifExported   = "notif_exported" // Requires File
	TKeyErrExport       = "err_export"
	TKeyLblLanguage     = "lbl_language"
	TKeyLblBudget       = "lbl_budget"
	TKeySecOverview     = "sec_overview"
	TKeyColCanton       = "col_canton"
	TKeyColBest         = "col_best"
	TKeyLblFeed         = "lbl_feed"
	TKeyLblPicked       = "lbl_picked" // Requires Count (plural)
	TKeyBtnSave         = "btn_save"
	TKeyBtnCancel       = "btn_cancel"
	TKeyMenuSettings    = "menu_settings"
	TKeyErrMaxDays      = "err_max_days"

	// Month and weekday names are looked up as month_1..month_12 and wd_0..wd_6.
	TKeyMonthPrefix   = "month_"
	TKeyWeekdayPrefix = "wd_"
	TKeyWdLongPrefix  = "wdl_"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort            = 18081
	DefaultBind            = LocalhostBindAddr
	DefaultCanton          = "ZH"
	DefaultLanguage        = "de"
	DefaultLogLevel        = "info"
	DefaultMaxVacationDays = 4
	DefaultMinYear         = 1583 // First full year of the Gregorian computus.
	DefaultMaxYear         = 9999
	UIDSalt                = "go-bridgedays-v1-"

	TableSourceEmbedded = "embedded"
	TableSourceLocal    = "local"
	TableSourceWeb      = "web"

	HolidayNameJoin = " / "
	PickSeparator   = ","

	FormatICS     = "ics"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion     = "2.0"
	ICalProdid      = "-//Go Bridgedays//Engine//DE"
	ICalMethod      = "PUBLISH"
	ICalScale       = "GREGORIAN"
	ICalDomain      = "gobridgedays"
	ICalTransparent = "TRANSPARENT"

	PropUID          = "UID"
	PropSummary      = "SUMMARY"
	PropDescription  = "DESCRIPTION"
	PropDTStart      = "DTSTART"
	PropDTEnd        = "DTEND"
	PropDTStamp      = "DTSTAMP"
	PropTransp       = "TRANSP"
	PropRefresh      = "REFRESH-INTERVAL"
	PropVersion      = "VERSION"
	PropProdid       = "PRODID"
	PropXWRCalName   = "X-WR-CALNAME"
	PropXPublishedTT = "X-PUBLISHED-TTL"
	PropCalScale     = "CALSCALE"
	PropMethod       = "METHOD"

	PublishedTTL       = "PT12H"
	DefaultICalRefresh = 12 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events are selected.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Names
// -----------------------------------------------------------------------------

const (
	DateFormatISO     = "2006-01-02"
	DateFormatDisplay = "02.01.2006"
	DateFormatShort   = "02.01."

	// FormatFileName expects canton, year, extension.
	FormatFileName = "brueckentage_%s_%d.%s"

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s@%s"

	CSVHeaderDate        = "Datum"
	CSVHeaderSummary     = "Titel"
	CSVHeaderDescription = "Beschreibung"

	MinPort = 1
	MaxPort = 65535

	// OverviewPoolSize bounds the goroutines used for the all-canton overview.
	OverviewPoolSize = 8
)

// -----------------------------------------------------------------------------
// Terminal Rendering
// -----------------------------------------------------------------------------

const (
	ANSIReset   = "\x1b[0m"
	ANSIHoliday = "\x1b[1;37;41m" // bold white on red
	ANSIBridge  = "\x1b[30;43m"   // black on yellow
	ANSIWeekend = "\x1b[2m"       // dim
	ANSIToday   = "\x1b[4m"       // underline

	MarkHoliday = "*"
	MarkBridge  = "+"
	MarkToday   = "!"
	MarkNone    = " "

	TermMonthsPerRow = 3
	TermCellWidth    = 3
	TermMonthGap     = "   "
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	PublishTimeout      = 60 * time.Second
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 4 * 1024 * 1024 // Holiday tables are small.
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	RouteRoot      = "/"
	RouteHealth    = "/healthz"
	RouteConfig    = "/api/config"
	RouteHolidays  = "/api/holidays"
	RouteCalendar  = "/api/calendar"
	RouteBridges   = "/api/bridges"
	RouteOverview  = "/api/overview"
	RouteDownload  = "/api/download"
	RouteSubscribe = "/api/subscribe/"

	QueryCanton = "canton"
	QueryYear   = "year"
	QueryMax    = "max"
	QueryBudget = "budget"
	QueryFormat = "format"
	QueryPick   = "pick"
	QueryLang   = "lang"

	ExtICS = ".ics"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderETag               = "ETag"
	HeaderLastModified       = "Last-Modified"
	HeaderAllow              = "Allow"
	HeaderXContentType       = "X-Content-Type-Options"
	HeaderUserAgent          = "User-Agent"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderIfModifiedSince    = "If-Modified-Since"
	HeaderAccept             = "Accept"
	HeaderAcceptLanguage     = "Accept-Language"
	HeaderRequestID          = "X-Request-ID"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextCSV         = "text/csv; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeMsgpack         = "application/msgpack"
	MimeHTML            = "text/html; charset=utf-8"
	MimeText            = "text/plain; charset=utf-8"
	MimeTableAccept     = "application/yaml, text/yaml;q=0.9, */*;q=0.1"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
	// ETagWeakPrefix marks a weak validator (RFC 7232 section 2.3).
	ETagWeakPrefix = "W/"
	// ETagAny matches every current representation.
	ETagAny = "*"
	// FormatAttachment expects a file name.
	FormatAttachment = `attachment; filename="%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrInvalidCanton    = "invalid canton"
	ErrInvalidYear      = "invalid year"
	ErrUnknownDate      = "date is not a recommended bridge day"
	ErrPickParse        = "invalid pick date"
	ErrFormatUnsupport  = "unsupported export format"
	ErrTableRead        = "failed to read holiday table"
	ErrTableDecode      = "failed to decode holiday table"
	ErrTableInvalid     = "invalid holiday table"
	ErrTablePathEmpty   = "configuration error: table path is empty"
	ErrTableURLEmpty    = "configuration error: table URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrSourceUnsupport  = "configuration error: unsupported table source"
	ErrConfigRead       = "failed to read config"
	ErrConfigDecode     = "failed to unmarshal config"
	ErrConfigInvalid    = "invalid config"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrMaxDaysRange     = "analyzer.max_vacation_days out of range"
	ErrYearRange        = "years.min/years.max out of range"
	ErrLanguage         = "unsupported language"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrCSVEncode        = "failed to encode CSV data"
	ErrJSONEncode       = "failed to encode JSON data"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrWriteFile        = "failed to write export file"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrTemplate         = "failed to render page"
	ErrPoolCreate       = "failed to create worker pool"
	ErrPoolSubmit       = "failed to submit overview task"
	ErrAWSConfig        = "unable to load AWS config"
	ErrBucketEmpty      = "configuration error: publish bucket is empty"
	ErrS3Put            = "failed to upload object"
	ErrUnexpectedStatus = "server returned unexpected status"
	ErrRequestBuild     = "failed to create request"
	ErrNetwork          = "network error during fetch"
	ErrTableTooLarge    = "holiday table exceeds size limit"
	ErrInvalidNumber    = "invalid numeric parameter"
	ErrNumberRange      = "numeric parameter out of range"
	ErrFeedPath         = "feed path must be /api/subscribe/<CANTON>.ics"
	ErrNothingComputed  = "no bridge days computed yet"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgNotFound     = "Not Found"
	HTTPMsgOK           = "ok"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackCalName        = "Brückentage %s %d"
	FallbackSummary        = "Brückentag - %s"
	FallbackDescription    = "%d freie Tage für %d Ferientage"
	FallbackDescriptionOne = "%d freie Tage für %d Ferientag"

	TitleExportError  = "Export Error"
	TitleStartupError = "Startup Error"
	MsgPortBusy       = "Could not start the web server on %s"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgCtxCancel      = "Context cancelled, shutting down UI"
	MsgConfigLoaded   = "Configuration loaded"
	MsgConfigDefault  = "No config file found, using defaults"
	MsgTableLoaded    = "Holiday table loaded"
	MsgPlanComputed   = "Bridge days computed"
	MsgOverviewDone   = "Canton overview computed"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgRequest        = "HTTP request"
	MsgExportWritten  = "Export written"
	MsgPublished      = "Calendar published"
	MsgTableFetch     = "Downloading holiday table"
	MsgTableFetchDone = "Holiday table downloaded"
	MsgServerStatus   = "Server returned error status"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgUIComputeFail  = "Computation failed"
	MsgUIExported     = "Calendar exported from desktop"
	MsgCacheUpdated   = "Feed cache updated"
	MsgCacheReset     = "Feed cache full, starting over"
	MsgRequestFailed  = "Request failed"
	MsgUISettings     = "Saving preferences"
	MsgUIWindowOpen   = "Window already open, requesting focus"
	MsgUIHolidays     = "Opening holidays window"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (zap)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyAddr      = "addr"
	LogKeySource    = "source"
	LogKeyCanton    = "canton"
	LogKeyYear      = "year"
	LogKeyCount     = "count"
	LogKeyHolidays  = "holidays"
	LogKeyBridges   = "bridges"
	LogKeyCantons   = "cantons"
	LogKeyFormat    = "format"
	LogKeyBucket    = "bucket"
	LogKeySizeBytes = "size_bytes"
	LogKeyMethod    = "method"
	LogKeyPath      = "path"
	LogKeyRequestID = "request_id"
	LogKeyDuration  = "duration_ms"
	LogKeyTarget    = "target"
	LogKeyETag      = "etag"
	LogKeyFeed      = "feed"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyEnv     = "env"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyGoVer   = "go_version"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI      = "ui"
	CompEngine  = "engine"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompExport  = "export"
	CompMain    = "main"
	CompI18n    = "i18n"
)
