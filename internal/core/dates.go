package core

import (
	"fmt"
	"strings"
	"time"
)

// DateKeyLayout is the canonical YYYY-MM-DD form used for every stored date.
const DateKeyLayout = "2006-01-02"

// DateRange is an inclusive range of date-keys. Date-keys sort lexicographically,
// so membership is plain string comparison.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether key falls inside the range, bounds included.
func (r DateRange) Contains(key string) bool {
	return r.Start <= key && key <= r.End
}

// Validate checks both bounds are date-keys and Start does not come after End.
func (r DateRange) Validate() error {
	if !IsDateKey(r.Start) {
		return NewValidationError("start", ErrInvalidDateKey, fmt.Sprintf("%q is not YYYY-MM-DD", r.Start))
	}
	if !IsDateKey(r.End) {
		return NewValidationError("end", ErrInvalidDateKey, fmt.Sprintf("%q is not YYYY-MM-DD", r.End))
	}
	if r.Start > r.End {
		return NewValidationError("range", ErrInvalidDateKey, "start is after end")
	}
	return nil
}

func (r DateRange) String() string {
	return r.Start + ".." + r.End
}

// LocalDateKey formats t using its own calendar components. The time is never
// converted to UTC, so a late-evening timestamp keeps its local day.
func LocalDateKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// MonthKey returns the YYYY-MM prefix shared by every date-key of t's month.
func MonthKey(t time.Time) string {
	y, m, _ := t.Date()
	return fmt.Sprintf("%04d-%02d", y, int(m))
}

// IsDateKey reports whether s is a valid calendar date in YYYY-MM-DD form.
func IsDateKey(s string) bool {
	if len(s) != len(DateKeyLayout) {
		return false
	}
	_, err := time.Parse(DateKeyLayout, s)
	return err == nil
}

// ParseDateKey parses a date-key as midnight in loc. A nil loc means UTC.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, NewValidationError("date", ErrInvalidDateKey, fmt.Sprintf("%q is not YYYY-MM-DD", key))
	}
	return t, nil
}

// NormalizeToDateKey accepts a date-key, a timestamp string starting with one,
// or a time value and returns the canonical date-key.
func NormalizeToDateKey(v any) (string, error) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return "", NewValidationError("date", ErrInvalidDateKey, "zero time")
		}
		return LocalDateKey(val), nil
	case *time.Time:
		if val == nil {
			return "", NewValidationError("date", ErrInvalidDateKey, "nil time")
		}
		return NormalizeToDateKey(*val)
	case string:
		s := strings.TrimSpace(val)
		if len(s) > len(DateKeyLayout) {
			// Stored values sometimes carry a time part; the date prefix is what counts.
			sep := s[len(DateKeyLayout)]
			if sep != 'T' && sep != ' ' {
				return "", NewValidationError("date", ErrInvalidDateKey, fmt.Sprintf("%q is not a date", val))
			}
			s = s[:len(DateKeyLayout)]
		}
		if !IsDateKey(s) {
			return "", NewValidationError("date", ErrInvalidDateKey, fmt.Sprintf("%q is not a date", val))
		}
		return s, nil
	default:
		return "", NewValidationError("date", ErrInvalidDateKey, fmt.Sprintf("unsupported date value %T", v))
	}
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDayToMonth returns the day-th of ref's month, or the month's last day when
// the month is shorter. The result never spills into the next month.
func ClampDayToMonth(ref time.Time, day int) time.Time {
	y, m, _ := ref.Date()
	last := DaysInMonth(y, m)
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(y, m, day, 0, 0, 0, 0, ref.Location())
}

// MonthRange returns the first and last day of ref's month.
func MonthRange(ref time.Time) DateRange {
	y, m, _ := ref.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	end := time.Date(y, m, DaysInMonth(y, m), 0, 0, 0, 0, ref.Location())
	return DateRange{Start: LocalDateKey(start), End: LocalDateKey(end)}
}

// CurrentMonthRange is the month containing ref.
func CurrentMonthRange(ref time.Time) DateRange {
	return MonthRange(ref)
}

// PreviousMonthRange is the month before the one containing ref.
func PreviousMonthRange(ref time.Time) DateRange {
	y, m, _ := ref.Date()
	return MonthRange(time.Date(y, m-1, 1, 0, 0, 0, 0, ref.Location()))
}

// Rolling7DayRange covers the six days before end plus end itself.
func Rolling7DayRange(end time.Time) DateRange {
	keys := Rolling7DayKeys(end)
	return DateRange{Start: keys[0], End: keys[len(keys)-1]}
}

// Rolling7DayKeys returns the seven ascending date-keys of Rolling7DayRange.
// Days are stepped by calendar date so DST changes cannot skip or repeat a day.
func Rolling7DayKeys(end time.Time) []string {
	y, m, d := end.Date()
	keys := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		keys = append(keys, LocalDateKey(time.Date(y, m, d-i, 0, 0, 0, 0, end.Location())))
	}
	return keys
}
