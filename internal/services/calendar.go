package services

import (
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/routineflow-backend/internal/domain"
)

// Calendar fixes the time zone used for month, day and week boundaries.
type Calendar struct {
	Loc *time.Location
	Now func() time.Time
}

func NewCalendar(tz string) (Calendar, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Calendar{}, fmt.Errorf("load APP_TIMEZONE %q: %w", tz, err)
	}
	return Calendar{Loc: loc, Now: time.Now}, nil
}

func (c Calendar) now() time.Time {
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	if c.Now == nil {
		return time.Now().In(loc)
	}
	return c.Now().In(loc)
}

// MonthStart is 00:00 on the first day of the current month.
func (c Calendar) MonthStart() time.Time {
	n := c.now()
	return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, n.Location())
}

func (c Calendar) Today() string { return c.now().Format(types.DateLayout) }

func (c Calendar) Yesterday() string { return c.now().AddDate(0, 0, -1).Format(types.DateLayout) }

// Weekday is 0 for Sunday, matching routine_blocks.day_of_week.
func (c Calendar) Weekday() int { return int(c.now().Weekday()) }

// WeekStart is the Sunday of the current week.
func (c Calendar) WeekStart() string {
	n := c.now()
	return n.AddDate(0, 0, -int(n.Weekday())).Format(types.WeekStartLayout)
}

// ParseWeekStart accepts only a canonical yyyy-MM-dd date.
func ParseWeekStart(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("week_start is required")
	}
	t, err := time.Parse(types.WeekStartLayout, raw)
	if err != nil || t.Format(types.WeekStartLayout) != raw {
		return "", fmt.Errorf("week_start must be yyyy-MM-dd")
	}
	return raw, nil
}
