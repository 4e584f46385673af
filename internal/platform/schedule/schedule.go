package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"
)

// Time conversion constants.
const (
	minutesPerHour = 60
	maxHour        = 23
	// searchDays bounds the lookup for the next or previous fire time; a
	// schedule with any time on any day fires within a week.
	searchDays = 8
)

// Error messages.
const (
	errFmtInvalidTimezone = "invalid timezone: %w"
)

// Static errors for schedule validation.
var (
	ErrMidnightCrossing = errors.New("hourly range crosses midnight")
	ErrTimeFormat       = errors.New("time must be HH:MM")
	ErrInvalidHour      = errors.New("invalid hour")
	ErrInvalidMinute    = errors.New("invalid minute")
	ErrHourOutOfRange   = errors.New("hour out of range")
	ErrEmptySchedule    = errors.New("schedule has no times")
)

var timezoneAliases = map[string]string{
	"Asia/Nicosia": "Europe/Nicosia",
	"KST":          "Asia/Seoul",
}

// Schedule defines report send times for weekdays/weekends in a timezone.
type Schedule struct {
	Timezone string      `json:"timezone"`
	Weekdays DaySchedule `json:"weekdays"`
	Weekends DaySchedule `json:"weekends"`
}

// DaySchedule defines explicit times and optional hourly range.
type DaySchedule struct {
	Times  []string     `json:"times,omitempty"`
	Hourly *HourlyRange `json:"hourly,omitempty"`
}

// HourlyRange defines an inclusive on-the-hour range.
type HourlyRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Daily builds a schedule from configured entries. Each entry is either
// HH:MM or an hourly range HH:MM-HH:MM. Weekend entries default to the
// weekday entries when empty.
func Daily(timezone string, weekdays, weekends []string) Schedule {
	wd := parseEntries(weekdays)
	we := wd

	if len(weekends) > 0 {
		we = parseEntries(weekends)
	}

	return Schedule{Timezone: timezone, Weekdays: wd, Weekends: we}
}

func parseEntries(entries []string) DaySchedule {
	var d DaySchedule

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if start, end, ok := strings.Cut(entry, "-"); ok {
			d.Hourly = &HourlyRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
			continue
		}

		d.Times = append(d.Times, entry)
	}

	return d
}

// IsEmpty reports whether the schedule has no data.
func (s Schedule) IsEmpty() bool {
	return s.Weekdays.IsEmpty() && s.Weekends.IsEmpty()
}

// IsEmpty reports whether the day schedule has any entries.
func (d DaySchedule) IsEmpty() bool {
	return len(d.Times) == 0 && d.Hourly == nil
}

// Location resolves the schedule timezone or defaults to UTC.
func (s Schedule) Location() (*time.Location, error) {
	if strings.TrimSpace(s.Timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(NormalizeTimezone(s.Timezone))
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidTimezone, err)
	}

	return loc, nil
}

// Validate checks schedule fields for correctness.
func (s Schedule) Validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}

	if s.IsEmpty() {
		return ErrEmptySchedule
	}

	if err := s.Weekdays.validate("weekdays"); err != nil {
		return err
	}

	if err := s.Weekends.validate("weekends"); err != nil {
		return err
	}

	return nil
}

// NormalizeTimezone maps known aliases to canonical IANA names.
func NormalizeTimezone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if canonical, ok := timezoneAliases[value]; ok {
		return canonical
	}

	return value
}

// NextAfter returns the earliest scheduled time strictly after the given moment.
// Times are built with time.Date in the schedule location, so a wall-clock time
// skipped by a DST jump is normalized forward rather than dropped.
func (s Schedule) NextAfter(after time.Time) (time.Time, bool, error) {
	loc, err := s.Location()
	if err != nil {
		return time.Time{}, false, err
	}

	afterLocal := after.In(loc)
	startDate := dateOnly(afterLocal)

	for offset := 0; offset < searchDays; offset++ {
		d := startDate.AddDate(0, 0, offset)

		minutes, err := expandDayTimes(s.daySchedule(d.Weekday()))
		if err != nil {
			return time.Time{}, false, err
		}

		for _, m := range minutes {
			t := at(d, m, loc)
			if t.After(afterLocal) {
				return t, true, nil
			}
		}
	}

	return time.Time{}, false, nil
}

// String renders the schedule for status messages.
func (s Schedule) String() string {
	tz := NormalizeTimezone(s.Timezone)
	if tz == "" {
		tz = "UTC"
	}

	weekdays := s.Weekdays.String()
	weekends := s.Weekends.String()

	if weekdays == weekends {
		return fmt.Sprintf("daily %s (%s)", weekdays, tz)
	}

	return fmt.Sprintf("weekdays %s, weekends %s (%s)", weekdays, weekends, tz)
}

// String renders the day entries in configuration syntax.
func (d DaySchedule) String() string {
	if d.IsEmpty() {
		return "-"
	}

	parts := make([]string, 0, len(d.Times)+1)
	parts = append(parts, d.Times...)

	if d.Hourly != nil {
		parts = append(parts, d.Hourly.Start+"-"+d.Hourly.End)
	}

	return strings.Join(parts, ",")
}

func (s Schedule) daySchedule(day time.Weekday) DaySchedule {
	if day == time.Saturday || day == time.Sunday {
		return s.Weekends
	}

	return s.Weekdays
}

func (d DaySchedule) validate(label string) error {
	for _, t := range d.Times {
		if _, err := parseTimeHM(t); err != nil {
			return fmt.Errorf("invalid %s time %q: %w", label, t, err)
		}
	}

	if d.Hourly != nil {
		start, err := parseTimeHM(d.Hourly.Start)
		if err != nil {
			return fmt.Errorf("invalid %s hourly start %q: %w", label, d.Hourly.Start, err)
		}

		end, err := parseTimeHM(d.Hourly.End)
		if err != nil {
			return fmt.Errorf("invalid %s hourly end %q: %w", label, d.Hourly.End, err)
		}

		if start > end {
			return fmt.Errorf("%s: %w", label, ErrMidnightCrossing)
		}
	}

	return nil
}

func expandDayTimes(d DaySchedule) ([]int, error) {
	if d.IsEmpty() {
		return nil, nil
	}

	set := make(map[int]struct{})

	for _, t := range d.Times {
		minutes, err := parseTimeHM(t)
		if err != nil {
			return nil, err
		}

		set[minutes] = struct{}{}
	}

	if err := addHourlyTimes(d.Hourly, set); err != nil {
		return nil, err
	}

	minutes := make([]int, 0, len(set))
	for m := range set {
		minutes = append(minutes, m)
	}

	sort.Ints(minutes)

	return minutes, nil
}

func addHourlyTimes(hourly *HourlyRange, set map[int]struct{}) error {
	if hourly == nil {
		return nil
	}

	startMin, err := parseTimeHM(hourly.Start)
	if err != nil {
		return err
	}

	endMin, err := parseTimeHM(hourly.End)
	if err != nil {
		return err
	}

	if startMin > endMin {
		return ErrMidnightCrossing
	}

	firstHour := startMin / minutesPerHour
	if startMin%minutesPerHour != 0 {
		firstHour++
	}

	for hour := firstHour; hour*minutesPerHour <= endMin; hour++ {
		set[hour*minutesPerHour] = struct{}{}
	}

	return nil
}

func parseTimeHM(value string) (int, error) {
	normalized, err := NormalizeTimeHM(value)
	if err != nil {
		return 0, err
	}

	hour, err := strconv.Atoi(normalized[:2])
	if err != nil {
		return 0, ErrInvalidHour
	}

	minute, err := strconv.Atoi(normalized[3:])
	if err != nil {
		return 0, ErrInvalidMinute
	}

	return hour*minutesPerHour + minute, nil
}

// NormalizeTimeHM accepts H:MM or HH:MM and returns HH:MM.
func NormalizeTimeHM(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrTimeFormat
	}

	hourPart, minutePart, ok := strings.Cut(value, ":")
	if !ok || len(minutePart) != 2 {
		return "", ErrTimeFormat
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return "", ErrInvalidHour
	}

	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return "", ErrInvalidMinute
	}

	if hour > maxHour || hour < 0 {
		return "", ErrHourOutOfRange
	}

	if minute < 0 || minute >= minutesPerHour {
		return "", ErrInvalidMinute
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func at(day time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/minutesPerHour, minutes%minutesPerHour, 0, 0, loc)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
