package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdispatch/internal/domain"
)

func TestCreateScheduleFillsIdentityAndNextRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	before := time.Now().UTC()
	s, err := env.client.CreateSchedule(ctx, &domain.Schedule{
		Func: "reports.daily",
		Type: domain.ScheduleDaily,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.Name)
	assert.False(t, s.NextRun.Before(before))

	stored, err := env.store.GetSchedule(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Func, stored.Func)
}

func TestCreateScheduleCronComputesNextRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	s, err := env.client.CreateSchedule(ctx, &domain.Schedule{
		Func: "reports.hourly",
		Type: domain.ScheduleCron,
		Cron: "0 * * * *",
	})
	require.NoError(t, err)

	// Next run lands on an hour boundary in the future.
	assert.True(t, s.NextRun.After(time.Now().UTC().Add(-time.Second)))
	assert.Zero(t, s.NextRun.Minute())
}

func TestCreateScheduleRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	// Missing func.
	_, err := env.client.CreateSchedule(ctx, &domain.Schedule{Type: domain.ScheduleDaily})
	assert.Error(t, err)

	// Unknown type.
	_, err = env.client.CreateSchedule(ctx, &domain.Schedule{Func: "f", Type: "sometimes"})
	assert.Error(t, err)

	// Minutes type without an interval.
	_, err = env.client.CreateSchedule(ctx, &domain.Schedule{Func: "f", Type: domain.ScheduleMinutes})
	assert.Error(t, err)

	// Malformed cron expression.
	_, err = env.client.CreateSchedule(ctx, &domain.Schedule{
		Func: "f",
		Type: domain.ScheduleCron,
		Cron: "not a cron",
	})
	assert.Error(t, err)
}

func TestCreateScheduleKeepsCallerValues(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	next := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	s, err := env.client.CreateSchedule(ctx, &domain.Schedule{
		Name:    "nightly",
		Func:    "reports.run",
		Args:    []any{"full"},
		Type:    domain.ScheduleMinutes,
		Minutes: 30,
		Repeats: 5,
		NextRun: next,
	})
	require.NoError(t, err)
	assert.Equal(t, "nightly", s.Name)
	assert.Equal(t, next, s.NextRun)
	assert.Equal(t, 5, s.Repeats)
}
