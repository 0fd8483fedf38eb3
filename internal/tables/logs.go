package tables

import (
	"sort"
	"time"

	"songlake/internal/schema"
)

// PageNextSong marks a playback event; every other page value (Home, Login,
// Help, ...) is discarded by the log transform.
const PageNextSong = "NextSong"

// FilterPlays keeps playback events only and sorts them by (ts, session_id)
// so downstream derivations are deterministic.
func FilterPlays(events []schema.LogEvent) []schema.LogEvent {
	var plays []schema.LogEvent
	for _, e := range events {
		if e.Page == PageNextSong {
			plays = append(plays, e)
		}
	}
	sort.SliceStable(plays, func(i, j int) bool {
		if plays[i].TS != plays[j].TS {
			return plays[i].TS < plays[j].TS
		}
		return plays[i].SessionID < plays[j].SessionID
	})
	return plays
}

// BuildUsers derives the users dimension from playback events, one row per
// user_id. When a user's level differs across events the row from the most
// recent event wins (greatest ts; later input on equal ts). Events without a
// user_id are dropped. Output is sorted by user_id.
func BuildUsers(plays []schema.LogEvent) []UserRow {
	latest := make(map[string]schema.LogEvent)
	for _, e := range plays {
		id := string(e.UserID)
		if id == "" {
			continue
		}
		if prev, ok := latest[id]; !ok || e.TS >= prev.TS {
			latest[id] = e
		}
	}

	rows := make([]UserRow, 0, len(latest))
	for id, e := range latest {
		rows = append(rows, UserRow{
			UserID:    id,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows
}

// BuildTime derives the time dimension: one row per distinct ts value,
// decomposed in UTC. Weekday is numbered 1=Sunday through 7=Saturday and
// week is the ISO week number. Output is sorted by start_time.
func BuildTime(plays []schema.LogEvent) []TimeRow {
	seen := make(map[int64]struct{}, len(plays))
	var rows []TimeRow
	for _, e := range plays {
		if _, ok := seen[e.TS]; ok {
			continue
		}
		seen[e.TS] = struct{}{}

		t := time.UnixMilli(e.TS).UTC()
		_, week := t.ISOWeek()
		rows = append(rows, TimeRow{
			StartTime: e.TS,
			Hour:      int32(t.Hour()),
			Day:       int32(t.Day()),
			Week:      int32(week),
			Month:     int32(t.Month()),
			Year:      int32(t.Year()),
			Weekday:   int32(t.Weekday()) + 1,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime < rows[j].StartTime })
	return rows
}
