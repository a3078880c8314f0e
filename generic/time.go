package generic

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// DATE - Calendar day, no time of day
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar day. It is always normalized to UTC midnight, so Dates
// compare with == and work as map keys.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now()) }

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: parse date %q: %v", ErrInvalidInput, s, err)
	}
	return DateOf(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date  { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) AddYears(n int) Date { return DateOf(d.t.AddDate(n, 0, 0)) }

// AddMonths moves n calendar months and clamps the day to the last day of
// the target month, so 2025-08-31 minus six months is 2025-02-28.
func (d Date) AddMonths(n int) Date {
	first := NewDate(d.Year(), d.Month()+time.Month(n), 1)
	last := EndOfMonth(first.Year(), first.Month())
	return NewDate(first.Year(), first.Month(), min(d.Day(), last.Day()))
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format(dateLayout) }

// At returns the instant on this day at the given time of day (UTC).
func (d Date) At(tod TimeOfDay) time.Time {
	return d.t.Add(time.Duration(tod) * time.Second)
}

// StartOfWeek returns the Monday of d's ISO week.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween counts calendar days from a to b (negative when b is before a).
func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date   { return NewDate(year, month+1, 1).AddDays(-1) }

// YearsOld returns the completed years of life on date d for someone born on
// birth.
func YearsOld(birth, d Date) int {
	years := d.Year() - birth.Year()
	if d.Month() < birth.Month() || (d.Month() == birth.Month() && d.Day() < birth.Day()) {
		years--
	}
	return years
}

// =============================================================================
// TIME OF DAY - Seconds since midnight
// =============================================================================

type TimeOfDay int32

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60)
}

// ParseTimeOfDay accepts "15:04" and "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("%w: parse time of day %q: expected HH:MM or HH:MM:SS", ErrInvalidInput, s)
}

func MustParseTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf extracts the clock reading of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, (int(t)%3600)/60, int(t)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// =============================================================================
// WORK WEEK - Configured working weekdays
// =============================================================================

// WorkWeek is the set of weekdays an employee is expected to work.
type WorkWeek struct {
	days [7]bool
}

func NewWorkWeek(days ...time.Weekday) WorkWeek {
	var w WorkWeek
	for _, d := range days {
		w.days[d] = true
	}
	return w
}

// DefaultWorkWeek is Monday through Friday.
func DefaultWorkWeek() WorkWeek {
	return NewWorkWeek(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

// ParseWorkWeek reads weekday names ("mon", "Monday", ...).
func ParseWorkWeek(names []string) (WorkWeek, error) {
	var w WorkWeek
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if key == full || key == full[:3] {
				w.days[d] = true
				found = true
				break
			}
		}
		if !found {
			return WorkWeek{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, n)
		}
	}
	return w, nil
}

func (w WorkWeek) Contains(d time.Weekday) bool { return w.days[d] }

// Len is the number of working weekdays.
func (w WorkWeek) Len() int {
	n := 0
	for _, on := range w.days {
		if on {
			n++
		}
	}
	return n
}

// =============================================================================
// HOLIDAY CALENDAR - Public holidays
// =============================================================================

// Holiday is a public holiday. Recurring holidays match the same month/day in
// every year.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	Recurring bool
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(date Date) bool
}

// NoHolidays is a calendar without holidays.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) bool { return false }

type monthDay struct {
	month time.Month
	day   int
}

// Holidays is an in-memory HolidayCalendar, safe for concurrent use.
type Holidays struct {
	mu        sync.RWMutex
	fixed     map[Date]Holiday
	recurring map[monthDay]Holiday
}

func NewHolidays(list ...Holiday) *Holidays {
	h := &Holidays{fixed: map[Date]Holiday{}, recurring: map[monthDay]Holiday{}}
	for _, hol := range list {
		h.Add(hol)
	}
	return h
}

func (h *Holidays) Add(hol Holiday) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hol.Recurring {
		h.recurring[monthDay{hol.Date.Month(), hol.Date.Day()}] = hol
		return
	}
	h.fixed[hol.Date] = hol
}

// Lookup returns the holiday on date, if any.
func (h *Holidays) Lookup(date Date) (Holiday, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hol, ok := h.fixed[date]; ok {
		return hol, true
	}
	hol, ok := h.recurring[monthDay{date.Month(), date.Day()}]
	return hol, ok
}

func (h *Holidays) IsHoliday(date Date) bool {
	_, ok := h.Lookup(date)
	return ok
}

// GermanFixedHolidays returns the nationwide German holidays with a fixed
// calendar date. Easter-dependent holidays must be added per year.
func GermanFixedHolidays() []Holiday {
	return []Holiday{
		{ID: "de-neujahr", Date: NewDate(2000, time.January, 1), Name: "Neujahr", Recurring: true},
		{ID: "de-tag-der-arbeit", Date: NewDate(2000, time.May, 1), Name: "Tag der Arbeit", Recurring: true},
		{ID: "de-einheit", Date: NewDate(2000, time.October, 3), Name: "Tag der Deutschen Einheit", Recurring: true},
		{ID: "de-weihnachten-1", Date: NewDate(2000, time.December, 25), Name: "1. Weihnachtstag", Recurring: true},
		{ID: "de-weihnachten-2", Date: NewDate(2000, time.December, 26), Name: "2. Weihnachtstag", Recurring: true},
	}
}

// IsWorkday reports whether d is a working weekday and not a holiday.
func IsWorkday(d Date, week WorkWeek, calendar HolidayCalendar) bool {
	if !week.Contains(d.Weekday()) {
		return false
	}
	if calendar != nil && calendar.IsHoliday(d) {
		return false
	}
	return true
}
