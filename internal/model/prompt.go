package model

import "time"

// TriggerMode controls when a prompt may execute.
type TriggerMode string

const (
	TriggerOnDemand  TriggerMode = "on_demand"
	TriggerScheduled TriggerMode = "scheduled"
	TriggerBoth      TriggerMode = "both"
)

// TimeRange selects how far back messages are fetched for a prompt.
type TimeRange string

const (
	TimeRange24Hours TimeRange = "24h"
	TimeRange3Days   TimeRange = "3d"
	TimeRange7Days   TimeRange = "7d"
)

// Duration returns the lookback window for the range. Unknown values
// fall back to 24 hours.
func (r TimeRange) Duration() time.Duration {
	switch r {
	case TimeRange3Days:
		return 3 * 24 * time.Hour
	case TimeRange7Days:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Frequency identifies the recurrence pattern of a scheduled prompt.
type Frequency string

const (
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyCustom   Frequency = "custom"
)

// RecurrenceSpec determines when a scheduled prompt fires.
type RecurrenceSpec struct {
	// Frequency is the recurrence pattern (use Frequency* constants).
	Frequency Frequency `mapstructure:"frequency" yaml:"frequency" json:"frequency"`

	// Minute of the hour to fire at (0-59).
	Minute int `mapstructure:"minute" yaml:"minute" json:"minute"`

	// Hour of the day to fire at (0-23). Ignored for hourly frequency.
	Hour int `mapstructure:"hour" yaml:"hour" json:"hour"`

	// DaysOfWeek limits custom frequency to these days, numbered
	// 1=Sunday through 7=Saturday. Custom with an empty set behaves
	// as daily.
	DaysOfWeek []int `mapstructure:"days_of_week" yaml:"days_of_week" json:"days_of_week,omitempty"`
}

// PromptDefinition is a user-authored analysis job.
type PromptDefinition struct {
	// ID is the unique identifier for this prompt.
	ID string `mapstructure:"id" yaml:"id" json:"id"`

	// Name is the user-facing label shown in run history.
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Instruction is the natural-language request sent to the model.
	Instruction string `mapstructure:"instruction" yaml:"instruction" json:"instruction"`

	// TimeRange selects the message lookback window (use TimeRange*
	// constants).
	TimeRange TimeRange `mapstructure:"time_range" yaml:"time_range" json:"time_range"`

	// TriggerMode controls whether the prompt runs on demand, on a
	// schedule, or both.
	TriggerMode TriggerMode `mapstructure:"trigger_mode" yaml:"trigger_mode" json:"trigger_mode"`

	// Recurrence determines when a scheduled prompt fires. Prompts in
	// scheduled or both mode without a recurrence never fire.
	Recurrence *RecurrenceSpec `mapstructure:"recurrence" yaml:"recurrence,omitempty" json:"recurrence,omitempty"`

	// ActionableOnly suppresses presentation of non-actionable results;
	// records are still produced and stored.
	ActionableOnly bool `mapstructure:"actionable_only" yaml:"actionable_only" json:"actionable_only"`

	// Enabled controls whether the prompt may run at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}
