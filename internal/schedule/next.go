package schedule

import (
	"time"

	"github.com/dpage/maildroid/internal/model"
)

// weekdaySet is the allowed day set for the weekdays frequency.
var weekdaySet = map[time.Weekday]bool{
	time.Monday:    true,
	time.Tuesday:   true,
	time.Wednesday: true,
	time.Thursday:  true,
	time.Friday:    true,
}

// NextFireTime computes the next instant strictly after now at which
// the given recurrence fires. It is a pure function of its arguments.
// It reports ok=false when the spec's minute or hour fall outside
// their valid ranges, or when no future candidate exists.
func NextFireTime(spec model.RecurrenceSpec, now time.Time) (time.Time, bool) {
	if spec.Minute < 0 || spec.Minute > 59 {
		return time.Time{}, false
	}

	switch spec.Frequency {
	case model.FrequencyHourly:
		candidate := time.Date(
			now.Year(), now.Month(), now.Day(),
			now.Hour(), spec.Minute, 0, 0, now.Location(),
		)
		if candidate.After(now) {
			return candidate, true
		}
		return candidate.Add(time.Hour), true

	case model.FrequencyDaily:
		return nextDaily(spec, now)

	case model.FrequencyWeekdays:
		return nextOnDays(spec, now, weekdaySet)

	case model.FrequencyCustom:
		if len(spec.DaysOfWeek) == 0 {
			return nextDaily(spec, now)
		}
		return nextOnDays(spec, now, daySet(spec.DaysOfWeek))

	default:
		return time.Time{}, false
	}
}

// nextDaily returns today at spec.Hour:spec.Minute, or the same time
// tomorrow if that has already passed.
func nextDaily(spec model.RecurrenceSpec, now time.Time) (time.Time, bool) {
	if spec.Hour < 0 || spec.Hour > 23 {
		return time.Time{}, false
	}

	candidate := time.Date(
		now.Year(), now.Month(), now.Day(),
		spec.Hour, spec.Minute, 0, 0, now.Location(),
	)
	if candidate.After(now) {
		return candidate, true
	}
	return candidate.AddDate(0, 0, 1), true
}

// nextOnDays scans forward from today for the first allowed day whose
// spec.Hour:spec.Minute instant is still in the future. Two 7-day
// windows are covered so a time that already passed on today's
// weekday resolves to the same weekday next week.
func nextOnDays(
	spec model.RecurrenceSpec,
	now time.Time,
	allowed map[time.Weekday]bool,
) (time.Time, bool) {
	if spec.Hour < 0 || spec.Hour > 23 {
		return time.Time{}, false
	}

	for offset := 0; offset < 14; offset++ {
		day := now.AddDate(0, 0, offset)
		if !allowed[day.Weekday()] {
			continue
		}
		candidate := time.Date(
			day.Year(), day.Month(), day.Day(),
			spec.Hour, spec.Minute, 0, 0, now.Location(),
		)
		if candidate.After(now) {
			return candidate, true
		}
	}

	return time.Time{}, false
}

// daySet converts 1=Sunday..7=Saturday day numbers into a weekday set,
// ignoring out-of-range values.
func daySet(days []int) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			continue
		}
		set[time.Weekday(d-1)] = true
	}
	return set
}
