package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"calengine/internal/alarm"
	"calengine/internal/config"
	"calengine/internal/ics"
	appLog "calengine/internal/log"
	"calengine/internal/lunar"
	"calengine/internal/model"
	"calengine/internal/rrule"
	"calengine/internal/store"
)

const (
	eventsCacheTTL   = 30 * time.Second
	maxLunarDays     = 62
	maxReminderHours = 24 * 31
)

// EventSource supplies events to the API. Both the local store and the
// subscription scheduler satisfy it.
type EventSource interface {
	Events() []model.VEvent
}

// Server provides the HTTP API over the local store and the subscribed
// feeds.
type Server struct {
	cfg   *config.Config
	store *store.Store
	feeds EventSource
	loc   *time.Location
	mux   *http.ServeMux

	// now is replaceable in tests.
	now func() time.Time

	// Expanded /api/events responses keyed by window, to avoid redundant
	// expansion on every request.
	eventsMu    sync.RWMutex
	eventsCache map[string]eventsCache
}

// NewServer constructs a new Server. feeds may be nil when no
// subscriptions are configured.
func NewServer(cfg *config.Config, st *store.Store, feeds EventSource) *Server {
	s := &Server{
		cfg:         cfg,
		store:       st,
		feeds:       feeds,
		loc:         cfg.Location(),
		mux:         http.NewServeMux(),
		now:         time.Now,
		eventsCache: make(map[string]eventsCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An
// empty username or password disables it.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calengine", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/lunar", s.handleLunar)
	s.mux.HandleFunc("GET /api/solar-terms", s.handleSolarTerms)
	s.mux.HandleFunc("GET /api/reminders", s.handleReminders)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar exports the local store as a VCALENDAR document.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	events := s.store.Events()
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	opts := ics.ExportOptions{ProdID: s.cfg.ProdID, Now: s.now}
	if err := ics.WriteCalendar(w, events, opts); err != nil {
		appLog.Error("calendar export write failed", err)
	}
}

// allEvents is the local store followed by the subscribed feeds.
func (s *Server) allEvents() []model.VEvent {
	events := s.store.Events()
	if s.feeds != nil {
		events = append(events, s.feeds.Events()...)
	}
	return events
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	TruncatedUIDs   []string           `json:"truncated_uids,omitempty"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
}

// eventsCache holds a cached /api/events response and its timestamp.
type eventsCache struct {
	resp      eventsResponse
	updatedAt time.Time
}

// handleEvents returns expanded occurrences within a window around now.
//
// GET /api/events?days=7&backfill=1
//   - days:     days ahead to include (default 7)
//   - backfill: days back to include (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	key := fmt.Sprintf("%d/%d", days, backfill)
	cacheNow := s.now()

	s.eventsMu.RLock()
	ec, ok := s.eventsCache[key]
	s.eventsMu.RUnlock()
	if ok && cacheNow.Sub(ec.updatedAt) < eventsCacheTTL {
		writeJSON(w, http.StatusOK, ec.resp)
		return
	}

	now := cacheNow.In(s.loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	appLog.Debug("api events request",
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	res, err := rrule.Expand(s.allEvents(), rrule.ExpandConfig{
		Location:   s.loc,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	resp := eventsResponse{
		Occurrences:     res.Occurrences,
		TruncatedUIDs:   res.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: s.loc.String(),
	}

	s.eventsMu.Lock()
	s.eventsCache[key] = eventsCache{resp: resp, updatedAt: cacheNow}
	s.eventsMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type lunarDay struct {
	Date        string `json:"date"`
	lunar.Info
	FullDisplay string `json:"fullDisplay"`
	Important   bool   `json:"important"`
}

// handleLunar returns lunar information for consecutive days.
//
// GET /api/lunar?date=2025-01-29&days=1
func (s *Server) handleLunar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := s.now().In(s.loc)
	if v := q.Get("date"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		start = t
	}
	days := parseIntDefault(q.Get("days"), 1)
	if days <= 0 || days > maxLunarDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxLunarDays))
		return
	}

	out := make([]lunarDay, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		info, ok := lunar.Lookup(d)
		if !ok {
			writeError(w, http.StatusBadRequest, "date outside the supported range 1900-2100")
			return
		}
		out = append(out, lunarDay{
			Date:        d.Format(time.DateOnly),
			Info:        info,
			FullDisplay: info.FullDisplay(),
			Important:   info.LunarFestival != "" || info.SolarFestival != "",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type solarTermDTO struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Important bool   `json:"important"`
}

// handleSolarTerms lists the 24 solar terms of a year (default: this year).
func (s *Server) handleSolarTerms(w http.ResponseWriter, r *http.Request) {
	year := parseIntDefault(r.URL.Query().Get("year"), s.now().In(s.loc).Year())
	terms := lunar.SolarTerms(year)
	if terms == nil {
		writeError(w, http.StatusBadRequest, "year must be between 1900 and 2100")
		return
	}
	out := make([]solarTermDTO, 0, len(terms))
	for _, t := range terms {
		out = append(out, solarTermDTO{
			Name:      t.Name,
			Date:      t.Date.Format(time.DateOnly),
			Important: lunar.IsImportantSolarTerm(t.Name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReminders lists the alarms firing from now within the horizon.
//
// GET /api/reminders?hours=24 (default: reminder_horizon_hours)
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	hours := parseIntDefault(r.URL.Query().Get("hours"), s.cfg.ReminderHorizonHours)
	if hours <= 0 || hours > maxReminderHours {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("hours must be between 1 and %d", maxReminderHours))
		return
	}
	from := s.now().In(s.loc)
	to := from.Add(time.Duration(hours) * time.Hour)
	writeJSON(w, http.StatusOK, alarm.Schedule(s.allEvents(), from, to, s.loc))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
