package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute resolution, stored as minutes
// since midnight (0..1439).  Every time that enters the system (slot
// declarations, booking requests, search queries) is normalized into this
// type once at the boundary; downstream code never re-parses strings.
type TimeOfDay int

const (
	// MinutesPerDay bounds the TimeOfDay range.
	MinutesPerDay = 24 * 60
	// LastMinute is the latest representable time of day (23:59).
	LastMinute TimeOfDay = MinutesPerDay - 1

	// DateLayout is the canonical calendar date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
)

var (
	clockRe    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clockSecRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`)
	meridiemRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s+([AaPp][Mm])$`)
)

// NewTimeOfDay builds a TimeOfDay from an hour (0-23) and minute (0-59).
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseClock parses the strict 24-hour "HH:MM" form used by slot
// declarations and availability queries.
func ParseClock(s string) (TimeOfDay, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return NewTimeOfDay(h, min)
}

// ParseTimeOfDay accepts the three shapes clients send when booking:
// 24-hour "HH:MM", "HH:MM:SS" (seconds are dropped) and 12-hour
// "H:MM AM/PM".  Any other input is rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	raw := strings.TrimSpace(s)
	if t, err := ParseClock(raw); err == nil {
		return t, nil
	}
	if m := clockSecRe.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		if sec > 59 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		return NewTimeOfDay(h, min)
	}
	if m := meridiemRe.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 {
			return 0, fmt.Errorf("invalid 12-hour time %q", s)
		}
		switch strings.ToUpper(m[3]) {
		case "PM":
			if h < 12 {
				h += 12
			}
		case "AM":
			if h == 12 {
				h = 0
			}
		}
		return NewTimeOfDay(h, min)
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the canonical "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// SQLTime renders the value for a MySQL TIME column.
func (t TimeOfDay) SQLTime() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute())
}

// Add shifts t by d, clamping the result to the same day.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	v := int(t) + int(d/time.Minute)
	if v < 0 {
		return 0
	}
	if v > int(LastMinute) {
		return LastMinute
	}
	return TimeOfDay(v)
}

// On combines t with a calendar date.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

// MarshalJSON encodes the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts any shape ParseTimeOfDay accepts.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// OccupancyWindow returns the inclusive range of start times that collide
// with a reservation starting at t: [t-59m, t+59m].  Every reservation
// holds its table for one hour, so a start exactly one hour earlier or
// later does not collide.  The range never crosses midnight.
func OccupancyWindow(t TimeOfDay) (from, to TimeOfDay) {
	return t.Add(-(time.Hour - time.Minute)), t.Add(time.Hour - time.Minute)
}

// SearchWindow returns the inclusive ±30 minute range around t used by
// availability search, clamped to the same day.
func SearchWindow(t TimeOfDay) (from, to TimeOfDay) {
	return t.Add(-30 * time.Minute), t.Add(30 * time.Minute)
}

// ParseDate parses a strict YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseSlots parses a comma separated slot declaration such as
// "18:00, 18:30,19:00".  Order is preserved and duplicates are dropped.
func ParseSlots(s string) ([]TimeOfDay, error) {
	out := []TimeOfDay{}
	seen := map[TimeOfDay]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := ParseClock(part)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// FormatSlots is the inverse of ParseSlots.
func FormatSlots(slots []TimeOfDay) string {
	parts := make([]string, len(slots))
	for i, t := range slots {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}
