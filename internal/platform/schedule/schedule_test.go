package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeFormat = "2006-01-02 15:04"

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()

	loc, err := time.LoadLocation(name)
	require.NoError(t, err)

	return loc
}

func TestNextAfterSameDay(t *testing.T) {
	seoul := mustLoad(t, "Asia/Seoul")
	s := Daily("Asia/Seoul", []string{"07:00"}, nil)

	// 2026-01-05 is a Monday.
	now := time.Date(2026, 1, 5, 6, 59, 0, 0, seoul)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-05 07:00", next.Format(testTimeFormat))
}

func TestNextAfterRollsToTomorrowAtExactFireTime(t *testing.T) {
	seoul := mustLoad(t, "Asia/Seoul")
	s := Daily("Asia/Seoul", []string{"07:00"}, nil)

	now := time.Date(2026, 1, 5, 7, 0, 0, 0, seoul)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-06 07:00", next.Format(testTimeFormat))
}

func TestNextAfterConvertsFromUTC(t *testing.T) {
	s := Daily("KST", []string{"07:00"}, nil)

	// 22:30 UTC is 07:30 KST on the next day, past the fire time.
	now := time.Date(2026, 1, 5, 22, 30, 0, 0, time.UTC)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 6, 22, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextAfterWeekendOverride(t *testing.T) {
	seoul := mustLoad(t, "Asia/Seoul")
	s := Daily("Asia/Seoul", []string{"07:00"}, []string{"09:30"})

	// Friday evening: next fire is Saturday 09:30.
	now := time.Date(2026, 1, 9, 20, 0, 0, 0, seoul)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-10 09:30", next.Format(testTimeFormat))
	assert.Equal(t, time.Saturday, next.Weekday())
}

func TestNextAfterHourlyRangeEntry(t *testing.T) {
	s := Daily("UTC", []string{"06:30-08:00"}, nil)
	require.NotNil(t, s.Weekdays.Hourly)

	now := time.Date(2026, 1, 5, 6, 45, 0, 0, time.UTC)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-05 07:00", next.Format(testTimeFormat))
}

func TestNextAfterSkippedDSTTime(t *testing.T) {
	berlin := mustLoad(t, "Europe/Berlin")
	s := Daily("Europe/Berlin", []string{"02:30"}, nil)

	// 2026-03-29 02:00 CET jumps to 03:00 CEST.
	now := time.Date(2026, 3, 29, 1, 0, 0, 0, berlin)

	next, ok, err := s.NextAfter(now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, next.After(now))
	assert.Equal(t, 29, next.Day())
}

func TestNextAfterEmptySchedule(t *testing.T) {
	s := Daily("UTC", nil, nil)

	_, ok, err := s.NextAfter(time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Validate(), ErrEmptySchedule)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
		errIs   error
	}{
		{name: "valid", s: Daily("Asia/Seoul", []string{"07:00"}, nil)},
		{name: "bad timezone", s: Daily("Mars/Olympus", []string{"07:00"}, nil), wantErr: true},
		{name: "hour out of range", s: Daily("UTC", []string{"24:00"}, nil), wantErr: true, errIs: ErrHourOutOfRange},
		{name: "bad format", s: Daily("UTC", []string{"0700"}, nil), wantErr: true, errIs: ErrTimeFormat},
		{name: "midnight crossing", s: Daily("UTC", []string{"22:00-02:00"}, nil), wantErr: true, errIs: ErrMidnightCrossing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)

			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestNormalizeTimeHM(t *testing.T) {
	got, err := NormalizeTimeHM("7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", got)

	_, err = NormalizeTimeHM("7:5")
	assert.ErrorIs(t, err, ErrTimeFormat)
}

func TestNormalizeTimezoneAlias(t *testing.T) {
	assert.Equal(t, "Europe/Nicosia", NormalizeTimezone("Asia/Nicosia"))
	assert.Equal(t, "Asia/Seoul", NormalizeTimezone(" KST "))
}

func TestScheduleString(t *testing.T) {
	assert.Equal(t, "daily 07:00 (Asia/Seoul)", Daily("Asia/Seoul", []string{"07:00"}, nil).String())
	assert.Equal(t, "weekdays 07:00, weekends 09:00 (UTC)", Daily("", []string{"07:00"}, []string{"09:00"}).String())
}
