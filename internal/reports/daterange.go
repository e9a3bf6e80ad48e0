package reports

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateOnlyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var tzOffsetRegex = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// timestampLayouts are tried in order for full timestamp inputs. Layouts
// without a zone designator are interpreted in the business timezone.
var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
}

// ParseTimezone resolves a business timezone from either a fixed offset
// ("+06:00") or an IANA zone name ("Asia/Dhaka").
func ParseTimezone(value string) (*time.Location, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "UTC") {
		return time.UTC, nil
	}
	if m := tzOffsetRegex.FindStringSubmatch(value); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone("UTC"+value, offset), nil
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		return nil, fmt.Errorf("reports: parse timezone %q: %w", value, err)
	}
	return loc, nil
}

// DateRange holds optional absolute bounds. A nil bound means the caller
// left that side open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded reports whether both sides are open.
func (r DateRange) Unbounded() bool {
	return r.Start == nil && r.End == nil
}

// BoundedRange is a concrete, non-inverted interval.
type BoundedRange struct {
	Start time.Time
	End   time.Time
}

// RangeResolver turns caller-supplied date or timestamp strings into
// absolute instants using the business timezone, and applies fallback and
// clamping policies.
type RangeResolver struct {
	loc *time.Location
	now func() time.Time
}

// NewRangeResolver constructs a resolver for the given business timezone.
func NewRangeResolver(loc *time.Location) *RangeResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &RangeResolver{loc: loc, now: time.Now}
}

// WithNow overrides the resolver clock for testing.
func (r *RangeResolver) WithNow(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// Location exposes the business timezone.
func (r *RangeResolver) Location() *time.Location {
	return r.loc
}

// Parse resolves from/to into absolute instants. Date-only values expand
// to business-timezone day boundaries (00:00:00.000 for from,
// 23:59:59.999 for to). Full timestamps keep their time-of-day as given.
// Unparseable values resolve to a nil bound, never an error.
func (r *RangeResolver) Parse(from, to string) DateRange {
	return DateRange{
		Start: r.parseBound(from, false),
		End:   r.parseBound(to, true),
	}
}

func (r *RangeResolver) parseBound(value string, endOfDay bool) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if dateOnlyRegex.MatchString(value) {
		day, err := time.ParseInLocation("2006-01-02", value, r.loc)
		if err != nil {
			return nil
		}
		t := day
		if endOfDay {
			t = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, r.loc)
		}
		u := t.UTC()
		return &u
	}
	for _, candidate := range timestampLayouts {
		var t time.Time
		var err error
		if candidate.zoned {
			t, err = time.Parse(candidate.layout, value)
		} else {
			t, err = time.ParseInLocation(candidate.layout, value, r.loc)
		}
		if err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// Bounded fills open sides: End defaults to now, Start to
// End - fallbackDays. The result is never inverted.
func (r *RangeResolver) Bounded(dr DateRange, fallbackDays int) BoundedRange {
	end := r.now().UTC()
	if dr.End != nil {
		end = *dr.End
	}
	start := end.AddDate(0, 0, -fallbackDays)
	if dr.Start != nil {
		start = *dr.Start
	}
	if start.After(end) {
		start = end
	}
	return BoundedRange{Start: start, End: end}
}

// Clamp bounds the range and then shrinks oversized windows from the
// left: when End - Start exceeds maxDays the Start moves to
// End - maxDays, End stays fixed.
func (r *RangeResolver) Clamp(dr DateRange, fallbackDays, maxDays int) BoundedRange {
	br := r.Bounded(dr, fallbackDays)
	if maxDays > 0 {
		maxSpan := time.Duration(maxDays) * 24 * time.Hour
		if br.End.Sub(br.Start) > maxSpan {
			br.Start = br.End.Add(-maxSpan)
		}
	}
	return br
}

// DayKey formats an instant as its calendar day in the business timezone.
// All day-bucketed aggregations share this key so the components of a
// trend never drift apart.
func (r *RangeResolver) DayKey(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}

// OffsetSeconds returns the business timezone's UTC offset at the given
// instant, used by the storage layer for day bucketing.
func (r *RangeResolver) OffsetSeconds(at time.Time) int {
	_, offset := at.In(r.loc).Zone()
	return offset
}
