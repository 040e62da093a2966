package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-bridgedays/internal/holiday"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsLeap(t *testing.T) {
	tests := map[int]bool{2024: true, 2023: false, 1900: false, 2000: true, 2100: false}
	for year, want := range tests {
		assert.Equal(t, want, IsLeap(year), "%d", year)
	}
	assert.Equal(t, 366, DaysIn(2024))
	assert.Equal(t, 365, DaysIn(2023))
}

func TestBuild_Length(t *testing.T) {
	y, err := Build(2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 366, y.Len())
	assert.Equal(t, date(2024, time.January, 1), y.At(0).Date)
	assert.Equal(t, date(2024, time.December, 31), y.At(365).Date)

	y, err = Build(2023, nil)
	require.NoError(t, err)
	assert.Equal(t, 365, y.Len())
}

func TestBuild_Classification(t *testing.T) {
	hs := []holiday.Holiday{
		{Date: date(2024, time.August, 1), Name: "Bundesfeiertag"},
		{Date: date(2024, time.December, 1), Name: "Sunday feast"},
		{Date: date(2023, time.August, 1), Name: "Other year"},
	}
	y, err := Build(2024, hs)
	require.NoError(t, err)

	d, ok := y.Day(date(2024, time.August, 1))
	require.True(t, ok)
	assert.Equal(t, Holiday, d.Kind)
	assert.Equal(t, "Bundesfeiertag", d.HolidayName)

	// December 1, 2024 is a Sunday: weekend wins, name is kept.
	d, _ = y.Day(date(2024, time.December, 1))
	assert.Equal(t, Weekend, d.Kind)
	assert.Equal(t, "Sunday feast", d.HolidayName)

	d, _ = y.Day(date(2024, time.August, 2))
	assert.Equal(t, Workday, d.Kind)

	_, ok = y.Day(date(2023, time.August, 1))
	assert.False(t, ok)

	total := y.Count(Workday) + y.Count(Weekend) + y.Count(Holiday) + y.Count(BridgeCandidate)
	assert.Equal(t, y.Len(), total)
	assert.Equal(t, 1, y.Count(Holiday))
	assert.Equal(t, 104, y.Count(Weekend))
}

func TestBuild_InvalidYear(t *testing.T) {
	_, err := Build(0, nil)
	assert.ErrorIs(t, err, holiday.ErrInvalidYear)
	_, err = Build(-1, nil)
	assert.ErrorIs(t, err, holiday.ErrInvalidYear)
}

func TestMark(t *testing.T) {
	y, err := Build(2024, nil)
	require.NoError(t, err)

	// Fri Aug 2 to Mon Aug 5: only the workdays are marked.
	marked := y.Mark(Span{Start: date(2024, time.August, 2), End: date(2024, time.August, 5)})
	assert.Equal(t, 2, marked.Count(BridgeCandidate))
	assert.Equal(t, 0, y.Count(BridgeCandidate), "original must stay untouched")

	d, _ := marked.Day(date(2024, time.August, 3))
	assert.Equal(t, Weekend, d.Kind)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "bridge", BridgeCandidate.String())
	assert.True(t, Weekend.Off())
	assert.True(t, Holiday.Off())
	assert.False(t, BridgeCandidate.Off())

	b, err := Holiday.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "holiday", string(b))
}

func TestSpan(t *testing.T) {
	s := Span{Start: date(2024, time.July, 29), End: date(2024, time.August, 4)}
	assert.Equal(t, 7, s.Days())
	assert.True(t, s.Contains(date(2024, time.August, 1)))
	assert.False(t, s.Contains(date(2024, time.August, 5)))
}
