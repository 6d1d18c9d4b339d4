package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"qdispatch/internal/domain"
	"qdispatch/internal/identity"
)

// CreateSchedule validates and persists a schedule definition, filling in
// the id, a label-derived name, and the first run time where the caller left
// them empty. Execution belongs to a scheduler process reading the store;
// this core only records the intent.
func (c *Client) CreateSchedule(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	if err := c.validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	now := time.Now().UTC()
	switch s.Type {
	case domain.ScheduleMinutes:
		if s.Minutes <= 0 {
			return nil, fmt.Errorf("invalid schedule: %q type needs a positive minutes interval", s.Type)
		}
	case domain.ScheduleCron:
		spec, err := cron.ParseStandard(s.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", s.Cron, err)
		}
		if s.NextRun.IsZero() {
			s.NextRun = spec.Next(now)
		}
	}
	if s.NextRun.IsZero() {
		s.NextRun = now
	}

	if s.ID == "" {
		name, id := identity.New()
		s.ID = id
		if s.Name == "" {
			s.Name = name
		}
	}

	if err := c.store.SaveSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	c.logger.Debug("created schedule", "schedule_id", s.ID, "func", s.Func, "type", s.Type)
	return s, nil
}
