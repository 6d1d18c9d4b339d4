package domain

import "time"

// ScheduleType selects the recurrence rule of a schedule.
type ScheduleType string

const (
	ScheduleOnce      ScheduleType = "once"
	ScheduleMinutes   ScheduleType = "minutes"
	ScheduleHourly    ScheduleType = "hourly"
	ScheduleDaily     ScheduleType = "daily"
	ScheduleWeekly    ScheduleType = "weekly"
	ScheduleMonthly   ScheduleType = "monthly"
	ScheduleQuarterly ScheduleType = "quarterly"
	ScheduleYearly    ScheduleType = "yearly"
	ScheduleCron      ScheduleType = "cron"
)

// Schedule is a stored intent to submit a task on a recurrence rule. A
// scheduler process reads due schedules from the store and submits them; this
// layer only records them.
type Schedule struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Func   string         `json:"func" validate:"required"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
	Hook   string         `json:"hook,omitempty"`

	Type ScheduleType `json:"type" validate:"required,oneof=once minutes hourly daily weekly monthly quarterly yearly cron"`

	// Minutes is the interval for the "minutes" type.
	Minutes int `json:"minutes,omitempty"`

	// Cron is a standard five-field expression for the "cron" type.
	Cron string `json:"cron,omitempty"`

	// Repeats caps how many times the schedule fires; negative means forever.
	Repeats int `json:"repeats,omitempty"`

	NextRun time.Time `json:"next_run,omitempty"`
}
