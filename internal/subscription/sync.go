package subscription

import (
	"context"
	"strings"
	"sync"
	"time"

	"calengine/internal/ics"
	appLog "calengine/internal/log"
	"calengine/internal/model"
)

// Result is the outcome of syncing one subscription.
type Result struct {
	SubscriptionID string
	Events         []model.VEvent
	Warnings       []ics.Warning
	FromCache      bool
	SyncTime       time.Time
	Err            error
}

// OK reports whether the sync produced events.
func (r Result) OK() bool {
	return r.Err == nil
}

// Sync fetches the feed of sub, parses it and marks every event with the
// subscription's identity as read-only. sub's sync bookkeeping is updated
// in place whether or not the sync succeeded.
func Sync(ctx context.Context, f *Fetcher, sub *Subscription) Result {
	res := Result{SubscriptionID: sub.ID, SyncTime: time.Now().UTC()}

	fr, err := f.Fetch(ctx, *sub)
	if err != nil {
		res.Err = err
		sub.LastSync = res.SyncTime
		sub.LastSyncStatus = StatusError
		sub.LastSyncError = err.Error()
		sub.EventCount = 0
		appLog.Error("subscription sync failed", err, "id", sub.ID, "url", redactURL(FetchURL(sub.URL)))
		return res
	}
	res.FromCache = fr.FromCache

	if _, err := ics.Validate(fr.Body); err != nil {
		appLog.Warn("subscription feed fails strict parse; continuing leniently", "id", sub.ID, "err", err)
	}

	parsed := ics.Parse(string(fr.Body))
	res.Warnings = parsed.Warnings
	res.Events = Mark(parsed.Events, *sub)

	sub.LastSync = res.SyncTime
	sub.LastSyncStatus = StatusSuccess
	sub.LastSyncError = ""
	sub.EventCount = len(res.Events)

	appLog.Info("subscription synced",
		"id", sub.ID,
		"events", len(res.Events),
		"warnings", len(res.Warnings),
		"from_cache", res.FromCache,
	)
	return res
}

// Mark tags events as belonging to sub and read-only.
func Mark(events []model.VEvent, sub Subscription) []model.VEvent {
	out := make([]model.VEvent, len(events))
	for i, ev := range events {
		ev.SubscriptionID = sub.ID
		ev.SubscriptionName = sub.Name
		ev.SubscriptionColor = sub.Color
		ev.ReadOnly = true
		out[i] = ev
	}
	return out
}

// SyncAll syncs the enabled subscriptions in subs concurrently and returns
// one result per enabled subscription, in input order.
func SyncAll(ctx context.Context, f *Fetcher, subs []Subscription) []Result {
	results := make([]Result, len(subs))
	var wg sync.WaitGroup
	for i := range subs {
		if !subs[i].Enabled {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Sync(ctx, f, &subs[i])
		}(i)
	}
	wg.Wait()

	out := make([]Result, 0, len(subs))
	for i, r := range results {
		if subs[i].Enabled {
			out = append(out, r)
		}
	}
	return out
}

var workKeywords = []string{"上班", "工作", "调休", "补班", "办公", "值班", "补课", "work", "office"}

var holidayKeywords = []string{
	"放假", "休假", "假期", "节假日", "公休", "休息",
	"元旦", "春节", "清明节", "劳动节", "端午节", "中秋节", "国庆节",
	"除夕", "初一", "初二", "初三", "初四", "初五", "初六", "初七",
	"五一", "十一", "清明", "端午", "中秋",
	"年初", "正月", "新年", "过年", "春假", "黄金周",
	"holiday", "vacation", "spring festival", "chinese new year", "lunar new year",
}

// IsHoliday reports whether ev is a day off published by a holiday feed.
// Make-up working days announced by the same feed are not holidays.
func IsHoliday(ev model.VEvent) bool {
	if !strings.Contains(ev.SubscriptionID, "holiday") {
		return false
	}
	if IsMakeupWorkday(ev) {
		return false
	}
	title := strings.ToLower(strings.TrimSpace(ev.Summary))
	for _, k := range holidayKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// IsMakeupWorkday reports whether ev is a working day announced by a
// holiday feed, e.g. "补班".
func IsMakeupWorkday(ev model.VEvent) bool {
	if !strings.Contains(ev.SubscriptionID, "holiday") {
		return false
	}
	title := strings.ToLower(ev.Summary)
	for _, k := range workKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
