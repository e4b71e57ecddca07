package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calengine/internal/alarm"
	"calengine/internal/config"
	"calengine/internal/ics"
	"calengine/internal/model"
	"calengine/internal/store"
)

var now = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

type staticFeed []model.VEvent

func (f staticFeed) Events() []model.VEvent { return f }

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *store.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "events.ics"), "")
	require.NoError(t, err)
	standup := ics.NewAt(ics.Params{
		Summary: "Standup",
		DTStart: "20250303T090000",
		DTEnd:   "20250303T091500",
		RRule:   "FREQ=DAILY;COUNT=3",
		Alarms:  []model.VAlarm{alarm.New(alarm.Params{})},
	}, now)
	require.NoError(t, st.Add(standup))

	holiday := ics.NewAt(ics.Params{Summary: "休息日", DTStart: "20250304", AllDay: true}, now)
	holiday.SubscriptionID = "cn-holidays"
	holiday.ReadOnly = true

	s := NewServer(cfg, st, staticFeed{holiday})
	s.now = func() time.Time { return now }
	return s, st
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	post := httptest.NewRecorder()
	s.Handler().ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)
}

func TestCalendarExportsLocalEventsOnly(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.ProdID = "-//test//web//EN" })
	rec := get(t, s.Handler(), "/calendar.ics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, body, "PRODID:-//test//web//EN\r\n")
	assert.Contains(t, body, "SUMMARY:Standup\r\n")
	assert.NotContains(t, body, "休息日")

	parsed := ics.Parse(body)
	assert.True(t, parsed.Clean())
	assert.Len(t, parsed.Events, 1)
}

func TestEventsExpandsAndCaches(t *testing.T) {
	s, st := newTestServer(t, nil)

	decode := func() eventsResponse {
		rec := get(t, s.Handler(), "/api/events?days=2&backfill=0")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp eventsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := decode()
	assert.Equal(t, "UTC", resp.DisplayTimeZone)
	require.Len(t, resp.Occurrences, 3)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), resp.Occurrences[0].Start.UTC())
	assert.Equal(t, "cn-holidays", resp.Occurrences[1].SubscriptionID)
	assert.True(t, resp.Occurrences[1].AllDay)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), resp.Occurrences[2].Start.UTC())

	extra := ics.NewAt(ics.Params{Summary: "Lunch", DTStart: "20250303T120000"}, now)
	require.NoError(t, st.Add(extra))
	assert.Len(t, decode().Occurrences, 3, "served from cache")

	s.now = func() time.Time { return now.Add(eventsCacheTTL) }
	assert.Len(t, decode().Occurrences, 4)
}

func TestLunar(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/lunar?date=2025-01-29&days=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var days []struct {
		Date        string `json:"date"`
		Month       int    `json:"month"`
		Day         int    `json:"day"`
		Display     string `json:"display"`
		FullDisplay string `json:"fullDisplay"`
		Important   bool   `json:"important"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	require.Len(t, days, 2)
	assert.Equal(t, "2025-01-29", days[0].Date)
	assert.Equal(t, 1, days[0].Month)
	assert.Equal(t, 1, days[0].Day)
	assert.Equal(t, "春节", days[0].Display)
	assert.Equal(t, "乙巳年 蛇年 正月初一", days[0].FullDisplay)
	assert.True(t, days[0].Important)
	assert.Equal(t, "初二", days[1].Display)
	assert.False(t, days[1].Important)

	for _, target := range []string{
		"/api/lunar?date=29-01-2025",
		"/api/lunar?days=0",
		"/api/lunar?days=100",
		"/api/lunar?date=1850-01-01",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), target).Code, target)
	}
}

func TestSolarTerms(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/solar-terms?year=2025")
	require.Equal(t, http.StatusOK, rec.Code)

	var terms []solarTermDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &terms))
	require.Len(t, terms, 24)
	assert.Equal(t, solarTermDTO{Name: "小寒", Date: "2025-01-05"}, terms[0])
	assert.True(t, terms[2].Important, "立春")

	defaultYear := get(t, s.Handler(), "/api/solar-terms")
	require.NoError(t, json.Unmarshal(defaultYear.Body.Bytes(), &terms))
	assert.Equal(t, "2025-01-05", terms[0].Date)

	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/solar-terms?year=1800").Code)
}

func TestReminders(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/reminders")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []alarm.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Standup", got[0].Title)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 45, 0, 0, time.UTC), got[0].FireAt.UTC())
	assert.Equal(t, -15, got[0].Minutes)

	week := get(t, s.Handler(), "/api/reminders?hours=72")
	require.NoError(t, json.Unmarshal(week.Body.Bytes(), &got))
	assert.Len(t, got, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/reminders?hours=-1").Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	rec := get(t, h, "/api/solar-terms")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/solar-terms", nil)
	req.SetBasicAuth("admin", "wrong")
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	req.SetBasicAuth("admin", "secret")
	ok := httptest.NewRecorder()
	h.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}
