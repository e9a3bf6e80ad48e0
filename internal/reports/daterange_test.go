package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dhakaResolver(t *testing.T) *RangeResolver {
	t.Helper()
	loc, err := ParseTimezone("+06:00")
	require.NoError(t, err)
	return NewRangeResolver(loc)
}

func TestParseTimezoneFixedOffset(t *testing.T) {
	loc, err := ParseTimezone("+06:00")
	require.NoError(t, err)
	_, offset := time.Date(2024, 3, 10, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 6*3600, offset)

	loc, err = ParseTimezone("-05:30")
	require.NoError(t, err)
	_, offset = time.Date(2024, 3, 10, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -(5*3600 + 30*60), offset)
}

func TestParseTimezoneIANA(t *testing.T) {
	loc, err := ParseTimezone("Asia/Dhaka")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Dhaka", loc.String())

	_, err = ParseTimezone("Not/AZone")
	assert.Error(t, err)
}

func TestParseDateOnlyExpandsToBusinessDay(t *testing.T) {
	r := dhakaResolver(t)
	dr := r.Parse("2024-03-10", "2024-03-10")

	require.NotNil(t, dr.Start)
	require.NotNil(t, dr.End)
	// Midnight March 10 at UTC+6 is 18:00 March 9 UTC.
	assert.Equal(t, time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC), *dr.Start)
	assert.Equal(t, time.Date(2024, 3, 10, 17, 59, 59, 999_000_000, time.UTC), *dr.End)
}

func TestParseFullTimestampKeepsTimeOfDay(t *testing.T) {
	r := dhakaResolver(t)

	dr := r.Parse("2024-03-10T08:30:00Z", "")
	require.NotNil(t, dr.Start)
	assert.Equal(t, time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC), *dr.Start)

	// Unzoned timestamps are interpreted in the business timezone.
	dr = r.Parse("2024-03-10 08:30:00", "")
	require.NotNil(t, dr.Start)
	assert.Equal(t, time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC), *dr.Start)
}

func TestParseUnparseableYieldsNilBound(t *testing.T) {
	r := dhakaResolver(t)
	dr := r.Parse("yesterday", "03/10/2024")
	assert.Nil(t, dr.Start)
	assert.Nil(t, dr.End)
	assert.True(t, dr.Unbounded())
}

func TestBoundedFillsOpenSides(t *testing.T) {
	r := dhakaResolver(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.WithNow(func() time.Time { return now })

	br := r.Bounded(DateRange{}, 30)
	assert.Equal(t, now, br.End)
	assert.Equal(t, now.AddDate(0, 0, -30), br.Start)

	start := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	br = r.Bounded(DateRange{Start: &start}, 30)
	assert.Equal(t, start, br.Start)
	assert.Equal(t, now, br.End)
}

func TestBoundedNeverInverts(t *testing.T) {
	r := dhakaResolver(t)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	br := r.Bounded(DateRange{Start: &start, End: &end}, 30)
	assert.False(t, br.Start.After(br.End))
	assert.Equal(t, br.End, br.Start)
}

func TestClampShrinksFromTheLeft(t *testing.T) {
	r := dhakaResolver(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	br := r.Clamp(DateRange{Start: &start, End: &end}, 30, 90)
	assert.Equal(t, end, br.End)
	assert.Equal(t, end.Add(-90*24*time.Hour), br.Start)

	// Inside the cap the range is untouched.
	start = end.AddDate(0, 0, -10)
	br = r.Clamp(DateRange{Start: &start, End: &end}, 30, 90)
	assert.Equal(t, start, br.Start)
	assert.Equal(t, end, br.End)
}

func TestDayKeyUsesBusinessTimezone(t *testing.T) {
	r := dhakaResolver(t)
	// 20:00 UTC on March 9 is already March 10 at UTC+6.
	at := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", r.DayKey(at))
}

func TestOffsetSeconds(t *testing.T) {
	r := dhakaResolver(t)
	assert.Equal(t, 6*3600, r.OffsetSeconds(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}
