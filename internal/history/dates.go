package history

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/crimson-sun/advisor/internal/model"
)

// DateColumns are parsed on load. Values that fail to parse become missing.
var DateColumns = []string{
	model.ColumnDateIdentified,
	model.ColumnDateClosed,
	"date_chosen",
	"start_date_planned",
	"end_date_planned",
	"start_date_actual",
	"end_date_actual",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate tries the layouts seen in exported problem tables.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// build turns raw rows into a dataset. Date columns are rewritten in ISO form
// and resolution_time_days_calc is derived when the header lacks it.
func build(columns []string, rows []map[string]string) *model.Dataset {
	dates := lo.Filter(DateColumns, func(c string, _ int) bool { return lo.Contains(columns, c) })
	derive := !lo.Contains(columns, model.ColumnResolutionDays) &&
		lo.Contains(columns, model.ColumnDateIdentified) &&
		lo.Contains(columns, model.ColumnDateClosed)
	if derive {
		columns = append(columns, model.ColumnResolutionDays)
	}

	records := make([]model.HistoricalRecord, 0, len(rows))
	for _, fields := range rows {
		parsed := make(map[string]time.Time, len(dates))
		for _, c := range dates {
			v, ok := fields[c]
			if !ok {
				continue
			}
			t, ok := ParseDate(v)
			if !ok {
				fields[c] = ""
				continue
			}
			parsed[c] = t
			fields[c] = formatDate(t)
		}
		if derive {
			fields[model.ColumnResolutionDays] = resolutionDays(parsed)
		}
		records = append(records, model.NewHistoricalRecord(fields))
	}
	return model.NewDataset(columns, records)
}

// resolutionDays is the whole number of days from identification to closure.
// A negative or incomputable span is missing.
func resolutionDays(parsed map[string]time.Time) string {
	opened, ok1 := parsed[model.ColumnDateIdentified]
	closed, ok2 := parsed[model.ColumnDateClosed]
	if !ok1 || !ok2 {
		return ""
	}
	days := math.Floor(closed.Sub(opened).Hours() / 24)
	if days < 0 {
		return ""
	}
	return strconv.Itoa(int(days))
}
