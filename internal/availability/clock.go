package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidClock = errors.New("invalid time of day, use HH:MM")
	ErrInvalidDate  = errors.New("invalid date, use YYYY-MM-DD")
)

// Clock is a time of day expressed in minutes after midnight.
type Clock int

// ParseClock accepts "HH:MM" and the "HH:MM:SS" form Postgres returns for TIME columns.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidClock
	}
	for _, p := range parts {
		if len(p) != 2 {
			return 0, ErrInvalidClock
		}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, ErrInvalidClock
		}
	}
	return Clock(h*60 + m), nil
}

// MustParseClock is ParseClock for trusted literals.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// NormalizeClock rewrites a stored time-of-day to HH:MM.
func NormalizeClock(s string) (string, error) {
	c, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseDate parses a calendar date. The result is midnight UTC and must only
// be compared through its civil date, never converted to another zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// CivilDate formats a stored DATE value without any zone conversion.
func CivilDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today is the clinic-local calendar date at instant now, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBefore compares two civil dates.
func IsBefore(date, other time.Time) bool {
	return CivilDate(date) < CivilDate(other)
}

// WeekdayName returns the English weekday name stored in work schedules.
func WeekdayName(date time.Time) string {
	return time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC).Weekday().String()
}

var weekdays = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// ParseWeekday accepts an English weekday name in any case.
func ParseWeekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	name := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	if _, ok := weekdays[name]; !ok {
		return "", false
	}
	return name, true
}

// Instant places a civil date and time of day in the clinic timezone.
func Instant(date time.Time, at Clock, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(at)/60, int(at)%60, 0, 0, loc)
}
