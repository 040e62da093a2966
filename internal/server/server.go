// Package server exposes the planner as a small web tool: an HTML page, a
// JSON/msgpack API, file downloads and subscribable iCalendar feeds.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/export"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
)

// Server serves one planner over HTTP. It is safe for concurrent use.
type Server struct {
	Planner  *engine.Planner
	Catalog  *i18n.Catalog
	Settings config.Settings
	Log      *zap.Logger

	page  *template.Template
	feeds feedCache
}

// New wires a server and parses the page template.
func New(p *engine.Planner, cat *i18n.Catalog, s config.Settings, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(config.LogKeyComponent, config.CompServer))

	page, err := parsePage()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTemplate, err)
	}

	srv := &Server{Planner: p, Catalog: cat, Settings: s, Log: log, page: page}
	srv.feeds.now = p.Clock.Now
	srv.feeds.maxItems = config.FeedCacheMaxEntries
	srv.feeds.log = log
	return srv, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Settings.Server.Bind, strconv.Itoa(s.Settings.Server.Port))
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		s.Log.Info(config.MsgServerListen, zap.String(config.LogKeyAddr, srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.Log.Info(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Handler returns every route behind the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handlePage)
	mux.HandleFunc(config.RouteHealth, s.handleHealth)
	mux.HandleFunc(config.RouteConfig, s.handleConfig)
	mux.HandleFunc(config.RouteHolidays, s.handleHolidays)
	mux.HandleFunc(config.RouteCalendar, s.handleCalendar)
	mux.HandleFunc(config.RouteBridges, s.handleBridges)
	mux.HandleFunc(config.RouteOverview, s.handleOverview)
	mux.HandleFunc(config.RouteDownload, s.handleDownload)
	mux.HandleFunc(config.RouteSubscribe, s.handleSubscribe)

	var h http.Handler = mux
	h = allowMethods(h)
	h = gzhttp.GzipHandler(h)
	h = s.accessLog(h)
	return requestID(h)
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func allowMethods(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set(config.HeaderAllow, config.AllowedMethods)
			http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID keeps a client supplied X-Request-ID or assigns a ULID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(config.HeaderRequestID)
		if id == "" {
			id = ulid.Make().String()
			r.Header.Set(config.HeaderRequestID, id)
		}
		w.Header().Set(config.HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		s.Log.Info(config.MsgRequest,
			zap.String(config.LogKeyMethod, r.Method),
			zap.String(config.LogKeyPath, r.URL.Path),
			zap.Int(config.LogKeyStatus, sw.status),
			zap.Int(config.LogKeySizeBytes, sw.size),
			zap.String(config.LogKeyRequestID, r.Header.Get(config.HeaderRequestID)),
			zap.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()),
		)
	})
}

// -----------------------------------------------------------------------------
// Request parsing & responses
// -----------------------------------------------------------------------------

// requestError marks malformed query parameters.
type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

// selection is the canton, year, cap and language a request asks for,
// with the configured defaults filled in.
type selection struct {
	canton string
	year   int
	max    int
	lang   string
	tr     *i18n.Translator
}

func (s *Server) selection(r *http.Request) (selection, error) {
	q := r.URL.Query()

	sel := selection{
		canton: strings.TrimSpace(q.Get(config.QueryCanton)),
		year:   s.defaultYear(),
		max:    s.Settings.Analyzer.MaxVacationDays,
	}
	if sel.canton == "" {
		sel.canton = s.Settings.Defaults.Canton
	}

	if raw := q.Get(config.QueryYear); raw != "" {
		y, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return sel, requestError{fmt.Errorf("%s: %s=%q", config.ErrInvalidNumber, config.QueryYear, raw)}
		}
		if err := s.Planner.Table.Years().Check(y); err != nil {
			return sel, err
		}
		sel.year = y
	}
	if raw := q.Get(config.QueryMax); raw != "" {
		m, err := positiveInt(config.QueryMax, raw)
		if err != nil {
			return sel, err
		}
		if m > config.MaxVacationDaysLimit {
			return sel, requestError{fmt.Errorf("%s: %s=%d (max %d)", config.ErrNumberRange, config.QueryMax, m, config.MaxVacationDaysLimit)}
		}
		sel.max = m
	}

	explicit, accept := q.Get(config.QueryLang), r.Header.Get(config.HeaderAcceptLanguage)
	if explicit == "" && accept == "" {
		explicit = s.Settings.Defaults.Language
	}
	sel.lang = s.Catalog.Match(explicit, accept)
	sel.tr = s.Catalog.Translator(sel.lang)
	return sel, nil
}

func (s *Server) defaultYear() int {
	if s.Settings.Defaults.Year > 0 {
		return s.Settings.Defaults.Year
	}
	return engine.Today(s.Planner.Clock).Year()
}

func (s *Server) plan(sel selection) (*engine.Result, error) {
	return s.Planner.Plan(sel.canton, sel.year, engine.WithMaxVacationDays(sel.max))
}

func positiveInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, requestError{fmt.Errorf("%s: %s=%q", config.ErrInvalidNumber, name, raw)}
	}
	return n, nil
}

func statusFor(err error) int {
	var re requestError
	switch {
	case errors.As(err, &re),
		errors.Is(err, holiday.ErrInvalidCanton),
		errors.Is(err, holiday.ErrInvalidYear),
		errors.Is(err, export.ErrUnknownDate),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail answers 400 with the error text for bad input and a generic 500
// otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusBadRequest {
		http.Error(w, err.Error(), status)
		return
	}
	s.Log.Error(config.MsgRequestFailed,
		zap.String(config.LogKeyPath, r.URL.Path),
		zap.String(config.LogKeyRequestID, r.Header.Get(config.HeaderRequestID)),
		zap.Error(err),
	)
	http.Error(w, config.HTTPMsgInternalErr, status)
}

// writeBody sets the common headers and writes data unless the request is HEAD.
func (s *Server) writeBody(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	w.Header().Set(config.HeaderContentType, contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := bytes.NewReader(data).WriteTo(w); err != nil {
		s.Log.Error(config.ErrWriteResp, zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeBody(w, r, config.MimeText, []byte(config.HTTPMsgOK))
}
