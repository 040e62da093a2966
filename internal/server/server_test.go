package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
)

var fixedNow = time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)

func testSettings(port int) config.Settings {
	return config.Settings{
		Server:   config.ServerSettings{Bind: config.LocalhostBindAddr, Port: port},
		Defaults: config.DefaultSettings{Canton: "ZH", Language: "de"},
		Analyzer: config.AnalyzerSettings{MaxVacationDays: config.DefaultMaxVacationDays},
		Years:    config.YearSettings{Min: config.DefaultMinYear, Max: config.DefaultMaxYear},
		Table:    config.TableSettings{Source: config.TableSourceEmbedded},
	}
}

func newTestServer(t *testing.T, log *zap.Logger) *Server {
	t.Helper()
	tbl, err := holiday.DefaultTable()
	require.NoError(t, err)
	cat, err := i18n.NewCatalog(nil)
	require.NoError(t, err)

	p := engine.NewPlanner(tbl, bridge.NewAnalyzer(config.DefaultMaxVacationDays), engine.FixedClock(fixedNow), nil)
	srv, err := New(p, cat, testSettings(config.DefaultPort), log)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	resp := w.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func get(t *testing.T, srv *Server, target string) (*http.Response, []byte) {
	t.Helper()
	return do(t, srv, httptest.NewRequest(http.MethodGet, target, nil))
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, config.RouteHealth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.HTTPMsgOK, string(body))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Len(t, resp.Header.Get(config.HeaderRequestID), 26, "ULID request id")
}

func TestRequestID_Preserved(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, config.RouteHealth, nil)
	req.Header.Set(config.HeaderRequestID, "abc-123")
	resp, _ := do(t, srv, req)
	assert.Equal(t, "abc-123", resp.Header.Get(config.HeaderRequestID))
}

// TestMethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, route := range []string{config.RouteRoot, config.RouteHolidays, config.RouteSubscribe + "ZH.ics"} {
		resp, _ := do(t, srv, httptest.NewRequest(http.MethodPost, route, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, route)
		assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
	}
}

func TestHead(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, srv, httptest.NewRequest(http.MethodHead, config.RouteConfig, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))
	assert.Empty(t, body)
}

func TestGzip(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/?year=2024", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, _ := do(t, srv, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := newTestServer(t, zap.New(core))

	get(t, srv, "/api/holidays?canton=XX")

	entries := logs.FilterMessage(config.MsgRequest).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, config.CompServer, fields[config.LogKeyComponent])
	assert.Equal(t, config.RouteHolidays, fields[config.LogKeyPath])
	assert.EqualValues(t, http.StatusBadRequest, fields[config.LogKeyStatus])
	assert.NotEmpty(t, fields[config.LogKeyRequestID])
}

// -----------------------------------------------------------------------------
// API
// -----------------------------------------------------------------------------

func TestConfig(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, config.RouteConfig)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto configDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Len(t, dto.Cantons, 26)
	assert.Equal(t, "AG", dto.Cantons[0].Code)
	assert.Contains(t, dto.Cantons, cantonDTO{Code: "ZH", Name: "Zürich"})
	assert.Equal(t, []string{"de", "en", "fr"}, dto.Languages)
	assert.Equal(t, 2024, dto.Defaults.Year)
	assert.Equal(t, config.DefaultMaxVacationDays, dto.Defaults.MaxVacationDays)
	assert.Equal(t, config.DefaultMinYear, dto.Years.Min)
}

func TestHolidays_JSON(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/api/holidays?canton=zh&year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))

	var dto holidaysDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, "ZH", dto.Canton)
	assert.Equal(t, 2024, dto.Year)
	require.Len(t, dto.Holidays, 13)
	assert.Equal(t, holidayDTO{Date: "2024-01-01", Weekday: "Montag", Name: "Neujahr"}, dto.Holidays[0])
}

func TestHolidays_Msgpack(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/holidays?canton=ZH&year=2024&lang=en", nil)
	req.Header.Set(config.HeaderAccept, config.MimeMsgpack)
	resp, body := do(t, srv, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeMsgpack, resp.Header.Get(config.HeaderContentType))

	var dto holidaysDTO
	require.NoError(t, msgpack.Unmarshal(body, &dto))
	assert.Equal(t, "ZH", dto.Canton)
	assert.Len(t, dto.Holidays, 13)
	assert.Equal(t, "Monday", dto.Holidays[0].Weekday)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name, target, contains string
	}{
		{"UnknownCanton", "/api/holidays?canton=XX&year=2024", config.ErrInvalidCanton},
		{"YearNotNumber", "/api/calendar?year=abc", config.ErrInvalidNumber},
		{"YearOutOfRange", "/api/bridges?year=1200", config.ErrInvalidYear},
		{"MaxZero", "/api/bridges?year=2024&max=0", config.ErrInvalidNumber},
		{"BudgetNegative", "/api/bridges?year=2024&budget=-1", config.ErrInvalidNumber},
		{"Format", "/api/download?year=2024&format=pdf", config.ErrFormatUnsupport},
		{"PickNotBridge", "/api/download?year=2024&pick=2024-08-01", config.ErrUnknownDate},
		{"PickGarbage", "/api/download?year=2024&pick=01.08.2024", config.ErrPickParse},
		{"FeedCanton", "/api/subscribe/XX.ics?year=2024", config.ErrInvalidCanton},
		{"PageYear", "/?year=0", config.ErrInvalidYear},
		{"FeedYearZero", "/api/subscribe/ZH.ics?year=0", config.ErrInvalidYear},
		{"YearNegative", "/api/holidays?year=-3", config.ErrInvalidYear},
		{"MaxAboveLimit", "/api/bridges?year=2024&max=32", config.ErrNumberRange},
		{"FeedMaxAboveLimit", "/api/subscribe/ZH.ics?year=2024&max=1001", config.ErrNumberRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestCalendar(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/api/calendar?canton=ZH&year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto calendarDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	require.Len(t, dto.Days, 366)
	assert.Equal(t, "2024-08-01", dto.Today)
	assert.Equal(t, dayDTO{Date: "2024-08-01", Kind: "holiday", Name: "Bundesfeiertag"}, dto.Days[213])
	assert.Equal(t, dayDTO{Date: "2024-08-02", Kind: "bridge"}, dto.Days[214])
	assert.Equal(t, "weekend", dto.Days[215].Kind)
	assert.Equal(t, summaryDTO{Holidays: 13, OnWorkdays: 11, Recommendations: 13, FreeDays: 86}, dto.Summary)
}

func TestBridges(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/api/bridges?canton=ZH&year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto bridgesDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	require.Len(t, dto.Recommendations, 13)
	best := dto.Recommendations[0]
	assert.Equal(t, "2024-12-27", best.VacationStart)
	assert.Equal(t, 5, best.TotalDaysOff)
	assert.Contains(t, best.Text, "Weihnachten")
	assert.Equal(t, config.DefaultMaxVacationDays, dto.MaxVacationDays)
}

func TestBridges_BudgetAndMax(t *testing.T) {
	srv := newTestServer(t, nil)

	_, body := get(t, srv, "/api/bridges?canton=ZH&year=2024&budget=3")
	var planned bridgesDTO
	require.NoError(t, json.Unmarshal(body, &planned))
	require.Len(t, planned.Recommendations, 3)
	starts := make([]string, 0, 3)
	for _, r := range planned.Recommendations {
		starts = append(starts, r.VacationStart)
	}
	assert.Equal(t, []string{"2024-05-10", "2024-08-02", "2024-12-27"}, starts)
	assert.Equal(t, 3, planned.Budget)

	_, body = get(t, srv, "/api/bridges?canton=ZH&year=2024&max=1")
	var capped bridgesDTO
	require.NoError(t, json.Unmarshal(body, &capped))
	assert.Len(t, capped.Recommendations, 3)
	assert.Equal(t, 1, capped.MaxVacationDays)
}

func TestOverview(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/api/overview?year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto overviewDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, 2024, dto.Year)
	require.Len(t, dto.Cantons, 26)
	for i := 1; i < len(dto.Cantons); i++ {
		assert.GreaterOrEqual(t, dto.Cantons[i-1].Summary.FreeDays, dto.Cantons[i].Summary.FreeDays)
	}
	for _, row := range dto.Cantons {
		if row.Canton == "ZH" {
			require.NotNil(t, row.Best)
			assert.Equal(t, "2024-12-27", row.Best.VacationStart)
			assert.Equal(t, 86, row.Summary.FreeDays)
		}
	}
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/api/download?canton=ZH&year=2024&pick=2024-08-02")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, `attachment; filename="brueckentage_ZH_2024.ics"`, resp.Header.Get(config.HeaderContentDisposition))
	assert.Contains(t, string(body), "DTSTART;VALUE=DATE:20240802")
	assert.Equal(t, 1, strings.Count(string(body), "BEGIN:VEVENT"))

	resp, body = get(t, srv, "/api/download?canton=ZH&year=2024&format=CSV&lang=en")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCSV, resp.Header.Get(config.HeaderContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderContentDisposition), "brueckentage_ZH_2024.csv")
	assert.True(t, strings.HasPrefix(string(body), config.CSVHeaderDate))
}

// -----------------------------------------------------------------------------
// Subscription feed
// -----------------------------------------------------------------------------

// TestSubscribe_Caching verifies the feed honors If-None-Match and
// If-Modified-Since with 304 Not Modified.
func TestSubscribe_Caching(t *testing.T) {
	srv := newTestServer(t, nil)
	target := config.RouteSubscribe + "zh.ics?year=2024"

	resp, body := get(t, srv, target)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.Contains(t, string(body), "X-WR-CALNAME:Brückentage Zürich 2024")

	etag := resp.Header.Get(config.HeaderETag)
	lastMod := resp.Header.Get(config.HeaderLastModified)
	require.NotEmpty(t, etag, "Server must provide an ETag")
	assert.Equal(t, fixedNow.Format(http.TimeFormat), lastMod)

	again, _ := get(t, srv, target)
	assert.Equal(t, etag, again.Header.Get(config.HeaderETag), "feed body must be stable between polls")

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(config.HeaderIfNoneMatch, etag)
	resp, body = do(t, srv, req)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")

	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(config.HeaderIfModifiedSince, lastMod)
	resp, _ = do(t, srv, req)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(config.HeaderIfModifiedSince, fixedNow.Add(-time.Hour).Format(http.TimeFormat))
	resp, _ = do(t, srv, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(config.HeaderIfNoneMatch, `"other"`)
	resp, _ = do(t, srv, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubscribe_IfNoneMatchForms(t *testing.T) {
	srv := newTestServer(t, nil)
	target := config.RouteSubscribe + "ZH.ics?year=2024"

	first, _ := get(t, srv, target)
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	tests := map[string]struct {
		header string
		want   int
	}{
		"weak":           {"W/" + etag, http.StatusNotModified},
		"list":           {`"other", ` + etag, http.StatusNotModified},
		"weak in list":   {`"a", W/` + etag + `, "b"`, http.StatusNotModified},
		"wildcard":       {"*", http.StatusNotModified},
		"no match":       {`"a", W/"b"`, http.StatusOK},
		"unquoted value": {strings.Trim(etag, `"`), http.StatusOK},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			req.Header.Set(config.HeaderIfNoneMatch, tt.header)
			resp, _ := do(t, srv, req)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

// Distinct caps are bounded by the limit and the cache never holds more
// than its configured number of feeds.
func TestSubscribe_CacheBounded(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.feeds.maxItems = 4

	for m := 1; m <= config.MaxVacationDaysLimit; m++ {
		resp, _ := get(t, srv, fmt.Sprintf("%sZH.ics?year=2024&max=%d", config.RouteSubscribe, m))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.LessOrEqual(t, len(*srv.feeds.items.Load()), 4)
	}

	resp, _ := get(t, srv, config.RouteSubscribe+"ZH.ics?year=2024&max=4000")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.LessOrEqual(t, len(*srv.feeds.items.Load()), 4)
}

func TestSubscribe_Keys(t *testing.T) {
	srv := newTestServer(t, nil)

	de, _ := get(t, srv, config.RouteSubscribe+"ZH.ics?year=2024")
	fr, _ := get(t, srv, config.RouteSubscribe+"ZH.ics?year=2024&lang=fr")
	be, _ := get(t, srv, config.RouteSubscribe+"BE.ics?year=2024")
	assert.NotEqual(t, de.Header.Get(config.HeaderETag), fr.Header.Get(config.HeaderETag))
	assert.NotEqual(t, de.Header.Get(config.HeaderETag), be.Header.Get(config.HeaderETag))

	resp, _ := get(t, srv, config.RouteSubscribe+"ZH")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, srv, config.RouteSubscribe+"a/ZH.ics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestFeedCache_RaceCondition validates the thread-safety of the
// copy-on-write map. Run this with `go test -race`.
func TestFeedCache_RaceCondition(t *testing.T) {
	var c feedCache
	var wg sync.WaitGroup
	end := time.Now().Add(300 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; time.Now().Before(end); i++ {
				c.update("k"+strconv.Itoa(id%2), []byte("VERSION:"+strconv.Itoa(id)+"-"+strconv.Itoa(i)))
			}
		}(w)
	}
	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				if item := c.load("k0"); item != nil && item.etag == "" {
					t.Errorf("partial cache item observed")
				}
			}
		}()
	}
	wg.Wait()

	assert.NotNil(t, c.load("k0"))
	assert.NotNil(t, c.load("k1"))
}

func TestFeedCache_StableLastModified(t *testing.T) {
	now := fixedNow
	c := feedCache{now: func() time.Time { return now }}

	first := c.update("k", []byte("a"))
	now = now.Add(time.Hour)
	assert.Same(t, first, c.update("k", []byte("a")))

	changed := c.update("k", []byte("b"))
	assert.NotEqual(t, first.etag, changed.etag)
	assert.Equal(t, now.Format(http.TimeFormat), changed.lastModified)
}

// -----------------------------------------------------------------------------
// Page
// -----------------------------------------------------------------------------

func TestPage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/?canton=ZH&year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeHTML, resp.Header.Get(config.HeaderContentType))

	page := string(body)
	assert.Contains(t, page, `<html lang="de">`)
	assert.Contains(t, page, "Brückentage Schweiz")
	assert.Contains(t, page, `<option value="ZH" selected>`)
	assert.Contains(t, page, "<caption>August</caption>")
	assert.Contains(t, page, `class="holiday today" title="Bundesfeiertag"`)
	assert.Contains(t, page, `class="bridge" title="Bundesfeiertag"`)
	assert.Contains(t, page, "Nimm den Fr 02.08.2024 frei.")
	assert.Contains(t, page, "01.08.2024")
	assert.Contains(t, page, "/api/subscribe/ZH.ics?")
	assert.Contains(t, page, "/api/download?")
}

func TestPage_AcceptLanguage(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/?year=2024", nil)
	req.Header.Set(config.HeaderAcceptLanguage, "en-GB,en;q=0.9")
	resp, body := do(t, srv, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<html lang="en">`)
	assert.Contains(t, string(body), "Swiss Bridge Days")
}

func TestPage_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = 18099

	srv := newTestServer(t, nil)
	srv.Settings = testSettings(port)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://" + srv.Addr() + config.RouteHealth

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_StartupError(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Settings.Server.Port = config.MaxPort + 1

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrServerStartup)
}
