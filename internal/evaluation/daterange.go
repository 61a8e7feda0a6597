package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ErrUnknownPreset is returned for a preset token that is not recognised.
var ErrUnknownPreset = errors.New("unknown date preset")

var isoWeekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to midnight in its own location.
func NewDate(t time.Time) Date {
	return Date{Time: midnight(t)}
}

// ParseDate parses a YYYY-MM-DD string in UTC.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String implements fmt.Stringer.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive pair of calendar dates with Start <= End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int(midnightUTC(r.End).Sub(midnightUTC(r.Start)).Hours()/24) + 1
}

// Format returns both bounds as YYYY-MM-DD.
func (r DateRange) Format() (string, string) {
	return r.Start.Format(DateLayout), r.End.Format(DateLayout)
}

// Today covers the calendar day of now.
func Today(now time.Time) DateRange {
	day := midnight(now)
	return DateRange{Start: day, End: day}
}

// Last7 covers the seven days ending today.
func Last7(now time.Time) DateRange {
	end := midnight(now)
	return DateRange{Start: end.AddDate(0, 0, -6), End: end}
}

// Last30 covers the thirty days ending today.
func Last30(now time.Time) DateRange {
	end := midnight(now)
	return DateRange{Start: end.AddDate(0, 0, -29), End: end}
}

// ISOWeek covers the Monday to Sunday week containing now. Sunday closes its week.
func ISOWeek(now time.Time) DateRange {
	day := midnight(now)
	start := day.AddDate(0, 0, -(isoWeekday(day) - 1))
	return DateRange{Start: start, End: start.AddDate(0, 0, 6)}
}

// ISOMonth covers the calendar month containing now.
func ISOMonth(now time.Time) DateRange {
	year, month, _ := now.Date()
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	// day 0 of the next month is the last day of this one
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, now.Location())
	return DateRange{Start: start, End: end}
}

// ISOWeekRange resolves an ISO-8601 week to its Monday and Sunday in UTC.
// It reports false when the week does not exist in that ISO year.
func ISOWeekRange(isoYear, isoWeek int) (DateRange, bool) {
	if isoWeek < 1 || isoWeek > WeeksInYear(isoYear) {
		return DateRange{}, false
	}

	// Jan 4 always falls in week 1.
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	thursday := jan4.AddDate(0, 0, 4-isoWeekday(jan4))
	monday := thursday.AddDate(0, 0, -3+(isoWeek-1)*7)

	return DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}, true
}

// WeeksInYear returns 52 or 53, the number of ISO weeks in isoYear.
func WeeksInYear(isoYear int) int {
	_, week := time.Date(isoYear, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// ParseISOWeek parses a YYYY-Www designator. Anything else reports false.
func ParseISOWeek(raw string) (int, int, bool) {
	match := isoWeekPattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, false
	}
	week, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, false
	}
	return year, week, true
}

// ResolveISOWeek parses a designator and resolves it to a range.
// Malformed or out-of-range designators yield no range.
func ResolveISOWeek(raw string) (DateRange, bool) {
	year, week, ok := ParseISOWeek(raw)
	if !ok {
		return DateRange{}, false
	}
	return ISOWeekRange(year, week)
}

// WeekDesignator formats the ISO week containing t as YYYY-Www.
func WeekDesignator(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ResolvePreset maps a quick-filter token to a range.
func ResolvePreset(token string, now time.Time) (DateRange, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "today":
		return Today(now), nil
	case "7d", "last7":
		return Last7(now), nil
	case "30d", "last30":
		return Last30(now), nil
	case "week":
		return ISOWeek(now), nil
	case "month":
		return ISOMonth(now), nil
	}
	return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, token)
}

// WeekPreset resolves the current or previous week button to a designator and its range.
func WeekPreset(token string, now time.Time) (string, DateRange, error) {
	start := ISOWeek(now).Start
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "current", "this":
	case "prev", "previous":
		start = start.AddDate(0, 0, -7)
	default:
		return "", DateRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, token)
	}
	return WeekDesignator(start), DateRange{Start: start, End: start.AddDate(0, 0, 6)}, nil
}

// isoWeekday numbers Monday as 1 and Sunday as 7.
func isoWeekday(t time.Time) int {
	day := int(t.Weekday())
	if day == 0 {
		return 7
	}
	return day
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func midnightUTC(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
