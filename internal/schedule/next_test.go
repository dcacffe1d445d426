package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpage/maildroid/internal/model"
)

// 2025-03-10 is a Monday.
var monday = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

func TestNextFireTime_AlwaysFuture(t *testing.T) {
	specs := []model.RecurrenceSpec{
		{Frequency: model.FrequencyHourly, Minute: 0},
		{Frequency: model.FrequencyHourly, Minute: 30},
		{Frequency: model.FrequencyHourly, Minute: 59},
		{Frequency: model.FrequencyDaily, Hour: 0, Minute: 0},
		{Frequency: model.FrequencyDaily, Hour: 14, Minute: 30},
		{Frequency: model.FrequencyDaily, Hour: 23, Minute: 59},
		{Frequency: model.FrequencyWeekdays, Hour: 9, Minute: 0},
		{Frequency: model.FrequencyCustom, Hour: 9, Minute: 0},
		{Frequency: model.FrequencyCustom, Hour: 9, Minute: 0, DaysOfWeek: []int{1, 7}},
		{Frequency: model.FrequencyCustom, Hour: 9, Minute: 0, DaysOfWeek: []int{2, 3, 4, 5, 6}},
	}
	nows := []time.Time{
		monday,
		time.Date(2025, time.March, 8, 23, 59, 59, 0, time.UTC),    // Saturday night
		time.Date(2025, time.December, 31, 23, 30, 0, 0, time.UTC), // year boundary
		time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
	}

	for _, spec := range specs {
		for _, now := range nows {
			next, ok := NextFireTime(spec, now)
			require.True(t, ok, "spec %+v at %s", spec, now)
			assert.True(t, next.After(now), "spec %+v at %s returned %s", spec, now, next)
		}
	}
}

func TestNextFireTime_Hourly(t *testing.T) {
	t.Run("target minute later this hour", func(t *testing.T) {
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyHourly, Minute: 45,
		}, monday)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 14, 45, 0, 0, time.UTC), next)
	})

	t.Run("target minute already passed rolls to next hour", func(t *testing.T) {
		// now minute is 30, target (30+30) mod 60 = 0.
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyHourly, Minute: 0,
		}, monday)
		require.True(t, ok)
		assert.Equal(t, 0, next.Minute())
		assert.Equal(t, time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC), next)
	})

	t.Run("candidate equal to now rolls to next hour", func(t *testing.T) {
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyHourly, Minute: 30,
		}, monday)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC), next)
	})
}

func TestNextFireTime_Daily(t *testing.T) {
	t.Run("later today", func(t *testing.T) {
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyDaily, Hour: 18, Minute: 0,
		}, monday)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC), next)
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyDaily, Hour: 9, Minute: 0,
		}, monday)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("23:59 in the past returns the following day", func(t *testing.T) {
		now := time.Date(2025, time.March, 10, 23, 59, 30, 0, time.UTC)
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyDaily, Hour: 23, Minute: 59,
		}, now)
		require.True(t, ok)
		assert.Equal(t, 11, next.Day())
		assert.Equal(t, time.Date(2025, time.March, 11, 23, 59, 0, 0, time.UTC), next)
	})
}

func TestNextFireTime_Weekdays(t *testing.T) {
	t.Run("always lands on a weekday", func(t *testing.T) {
		spec := model.RecurrenceSpec{Frequency: model.FrequencyWeekdays, Hour: 9, Minute: 0}
		now := time.Date(2025, time.March, 5, 4, 0, 0, 0, time.UTC)
		for i := 0; i < 14; i++ {
			next, ok := NextFireTime(spec, now)
			require.True(t, ok)
			assert.NotEqual(t, time.Saturday, next.Weekday())
			assert.NotEqual(t, time.Sunday, next.Weekday())
			now = now.AddDate(0, 0, 1)
		}
	})

	t.Run("saturday resolves to monday", func(t *testing.T) {
		saturday := time.Date(2025, time.March, 8, 10, 0, 0, 0, time.UTC)
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyWeekdays, Hour: 9, Minute: 0,
		}, saturday)
		require.True(t, ok)
		assert.Equal(t, time.Monday, next.Weekday())
		assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("friday evening resolves to monday", func(t *testing.T) {
		friday := time.Date(2025, time.March, 7, 18, 0, 0, 0, time.UTC)
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyWeekdays, Hour: 9, Minute: 0,
		}, friday)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), next)
	})
}

func TestNextFireTime_Custom(t *testing.T) {
	t.Run("empty day set behaves as daily", func(t *testing.T) {
		for _, now := range []time.Time{
			monday,
			time.Date(2025, time.March, 8, 23, 0, 0, 0, time.UTC),
		} {
			daily, okDaily := NextFireTime(model.RecurrenceSpec{
				Frequency: model.FrequencyDaily, Hour: 7, Minute: 15,
			}, now)
			custom, okCustom := NextFireTime(model.RecurrenceSpec{
				Frequency: model.FrequencyCustom, Hour: 7, Minute: 15,
			}, now)
			require.True(t, okDaily)
			require.True(t, okCustom)
			assert.Equal(t, daily, custom)
		}
	})

	t.Run("sunday only", func(t *testing.T) {
		next, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyCustom, Hour: 8, Minute: 0,
			DaysOfWeek: []int{1},
		}, monday)
		require.True(t, ok)
		assert.Equal(t, time.Sunday, next.Weekday())
		assert.Equal(t, time.Date(2025, time.March, 16, 8, 0, 0, 0, time.UTC), next)
	})

	t.Run("day numbers 2 through 6 match weekdays frequency", func(t *testing.T) {
		saturday := time.Date(2025, time.March, 8, 10, 0, 0, 0, time.UTC)
		weekdays, _ := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyWeekdays, Hour: 9, Minute: 30,
		}, saturday)
		custom, ok := NextFireTime(model.RecurrenceSpec{
			Frequency: model.FrequencyCustom, Hour: 9, Minute: 30,
			DaysOfWeek: []int{2, 3, 4, 5, 6},
		}, saturday)
		require.True(t, ok)
		assert.Equal(t, weekdays, custom)
	})
}

func TestNextFireTime_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		spec model.RecurrenceSpec
	}{
		{"minute too large", model.RecurrenceSpec{Frequency: model.FrequencyHourly, Minute: 60}},
		{"negative minute", model.RecurrenceSpec{Frequency: model.FrequencyDaily, Hour: 9, Minute: -1}},
		{"hour too large", model.RecurrenceSpec{Frequency: model.FrequencyDaily, Hour: 24, Minute: 0}},
		{"negative hour", model.RecurrenceSpec{Frequency: model.FrequencyWeekdays, Hour: -1, Minute: 0}},
		{"unknown frequency", model.RecurrenceSpec{Frequency: "yearly", Minute: 0}},
		{"custom with only invalid day numbers", model.RecurrenceSpec{
			Frequency: model.FrequencyCustom, Hour: 9, Minute: 0, DaysOfWeek: []int{0, 8},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := NextFireTime(tc.spec, monday)
			assert.False(t, ok)
		})
	}
}
