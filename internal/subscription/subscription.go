// Package subscription manages remote iCalendar feeds: fetching them with
// an HTTP disk cache, marking their events read-only and refreshing them
// on a cron schedule.
package subscription

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Category groups subscriptions in listings.
type Category string

const (
	CategoryHolidays Category = "holidays"
	CategorySports   Category = "sports"
	CategoryTV       Category = "tv"
	CategoryWeather  Category = "weather"
	CategoryCustom   Category = "custom"
)

// CategoryNames are the display names of the known categories.
var CategoryNames = map[Category]string{
	CategoryHolidays: "节假日",
	CategorySports:   "体育赛事",
	CategoryTV:       "电视节目",
	CategoryWeather:  "天气预报",
	CategoryCustom:   "自定义",
}

// SyncStatus is the outcome of the latest sync.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSuccess SyncStatus = "success"
	StatusError   SyncStatus = "error"
)

const (
	DefaultColor           = "#4A90E2"
	DefaultRefreshInterval = 24 * time.Hour
)

// Subscription is a remote calendar feed.
type Subscription struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	URL         string        `json:"url"`
	Description string        `json:"description,omitempty"`
	Category    Category      `json:"category"`
	Color       string        `json:"color"`
	Enabled     bool          `json:"enabled"`
	Refresh     time.Duration `json:"refreshInterval"`

	LastSync       time.Time  `json:"lastSync,omitempty"`
	LastSyncStatus SyncStatus `json:"lastSyncStatus"`
	LastSyncError  string     `json:"lastSyncError,omitempty"`
	EventCount     int        `json:"eventCount"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Params are the caller-supplied fields of a new subscription.
type Params struct {
	ID          string
	Name        string
	URL         string
	Description string
	Category    Category
	Color       string
	// Disabled is the inverse of Enabled so that the zero value enables.
	Disabled bool
	Refresh  time.Duration
}

// New builds a subscription with defaults: custom category, the default
// color, enabled, a daily refresh and a pending sync status.
func New(p Params, now time.Time) Subscription {
	s := Subscription{
		ID:             p.ID,
		Name:           p.Name,
		URL:            strings.TrimSpace(p.URL),
		Description:    p.Description,
		Category:       p.Category,
		Color:          p.Color,
		Enabled:        !p.Disabled,
		Refresh:        p.Refresh,
		LastSyncStatus: StatusPending,
		CreatedAt:      now.UTC(),
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("sub-%d", now.UnixMilli())
	}
	s.Normalize()
	return s
}

// Normalize fills defaults for fields left empty, as happens for entries
// loaded from a config file.
func (s *Subscription) Normalize() {
	if s.Category == "" {
		s.Category = CategoryCustom
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Refresh <= 0 {
		s.Refresh = DefaultRefreshInterval
	}
	if s.LastSyncStatus == "" {
		s.LastSyncStatus = StatusPending
	}
}

// Presets are well-known public feeds.
var Presets = []Subscription{
	{
		ID:          "cn-holidays",
		Name:        "中国法定节假日",
		URL:         "webcal://calendar.google.com/calendar/ical/zh.china%23holiday%40group.v.calendar.google.com/public/basic.ics",
		Description: "包含中国法定节假日和调休安排",
		Category:    CategoryHolidays,
		Color:       "#ff6b6b",
		Enabled:     true,
		Refresh:     DefaultRefreshInterval,
	},
}

// NeedsRefresh reports whether the subscription has never synced or its
// refresh interval has elapsed.
func (s Subscription) NeedsRefresh(now time.Time) bool {
	if s.LastSync.IsZero() {
		return true
	}
	interval := s.Refresh
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return now.Sub(s.LastSync) >= interval
}

// Status describes the age of the last sync, e.g. "3小时前同步".
func (s Subscription) Status(now time.Time) string {
	if s.LastSync.IsZero() {
		return "未同步"
	}
	elapsed := now.Sub(s.LastSync)
	hours := int(elapsed / time.Hour)
	minutes := int((elapsed % time.Hour) / time.Minute)

	switch {
	case hours > 24:
		return fmt.Sprintf("%d天前同步", hours/24)
	case hours > 0:
		return fmt.Sprintf("%d小时前同步", hours)
	case minutes > 0:
		return fmt.Sprintf("%d分钟前同步", minutes)
	default:
		return "刚刚同步"
	}
}

var (
	ErrEmptyURL  = errors.New("subscription URL is empty")
	ErrURLScheme = errors.New("subscription URL must be http, https or webcal")
)

// ValidateURL checks that raw is an absolute http, https or webcal URL
// with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse subscription URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "webcal":
	default:
		return ErrURLScheme
	}
	if u.Host == "" {
		return fmt.Errorf("subscription URL %q has no host", raw)
	}
	return nil
}

// FetchURL maps webcal:// to https://; other URLs are returned unchanged.
func FetchURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 9 && strings.EqualFold(raw[:9], "webcal://") {
		return "https://" + raw[9:]
	}
	return raw
}
