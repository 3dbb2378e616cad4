package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidDateSpec is returned for date specifications that cannot be decoded.
var ErrInvalidDateSpec = errors.New("invalid date specification")

// pentadDays lists the day-of-month of every 5-day model average for each
// month of the 365-day model calendar. The table is authoritative and is
// not derived from calendar arithmetic.
var pentadDays = [12][]int{
	{5, 10, 15, 20, 25, 30},    // Jan
	{4, 9, 14, 19, 24},         // Feb
	{1, 6, 11, 16, 21, 26, 31}, // Mar
	{5, 10, 15, 20, 25, 30},    // Apr
	{5, 10, 15, 20, 25, 30},    // May
	{4, 9, 14, 19, 24, 29},     // Jun
	{4, 9, 14, 19, 24, 29},     // Jul
	{3, 8, 13, 18, 23, 28},     // Aug
	{2, 7, 12, 17, 22, 27},     // Sep
	{2, 7, 12, 17, 22, 27},     // Oct
	{1, 6, 11, 16, 21, 26},     // Nov
	{1, 6, 11, 16, 21, 26, 31}, // Dec
}

// Bare numeric date specifications are years strictly inside this range.
const (
	bareYearMin = 1988
	bareYearMax = 2010
)

// PentadsPerYear is the number of model output dates in one year.
var PentadsPerYear = func() int {
	n := 0
	for _, d := range pentadDays {
		n += len(d)
	}
	return n
}()

// PentadTags returns the model output date tags for a year, in calendar order.
func PentadTags(year int) []string {
	tags := make([]string, 0, PentadsPerYear)
	for m, days := range pentadDays {
		for _, d := range days {
			tags = append(tags, formatTag(year, m+1, d))
		}
	}
	return tags
}

// PentadAxis returns the timestamps of every model output date from year y1 to y2 inclusive.
func PentadAxis(y1, y2 int) []time.Time {
	var ts []time.Time
	for y := y1; y <= y2; y++ {
		for m, days := range pentadDays {
			for _, d := range days {
				ts = append(ts, time.Date(y, time.Month(m+1), d, 12, 0, 0, 0, time.UTC))
			}
		}
	}
	return ts
}

func formatTag(year, month, day int) string {
	return fmt.Sprintf("y%dm%02dd%02d", year, month, day)
}

// DateSpecKind identifies which form a date specification took.
type DateSpecKind int

// Date specification forms.
const (
	SpecYear DateSpecKind = iota
	SpecYearMonth
	SpecDate
)

// DateSpec is a decoded date specification.
type DateSpec struct {
	Raw   string
	Kind  DateSpecKind
	Year  int
	Month int
}

// DecodeDateSpec parses a compact date specification.
//
// Accepted forms are a bare year between 1988 and 2010 (exclusive),
// "y<YYYY>", "y<YYYY>m<MM>" and a full tag "y<YYYY>m<MM>d<DD>". The form is
// recognised from the letters alone, the digits supply the values.
func DecodeDateSpec(spec string) (DateSpec, error) {
	var letters, digits strings.Builder
	for _, r := range spec {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		} else {
			letters.WriteRune(r)
		}
	}
	alpha, nums := letters.String(), digits.String()

	ds := DateSpec{Raw: spec}
	switch alpha {
	case "":
		year, err := strconv.Atoi(nums)
		if err != nil {
			return ds, fmt.Errorf("%w: %q", ErrInvalidDateSpec, spec)
		}
		if year <= bareYearMin || year >= bareYearMax {
			return ds, fmt.Errorf("%w: bare year %d outside (%d, %d)", ErrInvalidDateSpec, year, bareYearMin, bareYearMax)
		}
		ds.Kind, ds.Year = SpecYear, year
	case "y":
		year, err := strconv.Atoi(nums)
		if err != nil {
			return ds, fmt.Errorf("%w: %q", ErrInvalidDateSpec, spec)
		}
		ds.Kind, ds.Year = SpecYear, year
	case "ym":
		if len(nums) != 6 {
			return ds, fmt.Errorf("%w: %q needs a 4-digit year and 2-digit month", ErrInvalidDateSpec, spec)
		}
		ds.Kind = SpecYearMonth
		ds.Year, _ = strconv.Atoi(nums[:4])
		ds.Month, _ = strconv.Atoi(nums[4:6])
		if ds.Month < 1 || ds.Month > 12 {
			return ds, fmt.Errorf("%w: month %d", ErrInvalidDateSpec, ds.Month)
		}
	case "ymd":
		if len(nums) < 4 {
			return ds, fmt.Errorf("%w: %q", ErrInvalidDateSpec, spec)
		}
		ds.Kind = SpecDate
		ds.Year, _ = strconv.Atoi(nums[:4])
	default:
		return ds, fmt.Errorf("%w: %q", ErrInvalidDateSpec, spec)
	}
	return ds, nil
}

// Tags returns the model date tags covered by the specification.
func (ds DateSpec) Tags() []string {
	switch ds.Kind {
	case SpecYearMonth:
		month := fmt.Sprintf("m%02d", ds.Month)
		var out []string
		for _, tag := range PentadTags(ds.Year) {
			if strings.Contains(tag, month) {
				out = append(out, tag)
			}
		}
		return out
	case SpecDate:
		return []string{ds.Raw}
	default:
		return PentadTags(ds.Year)
	}
}

// TagTime converts a date tag "y<YYYY>m<MM>d<DD>" to 12:00 UTC on that day.
func TagTime(tag string) (time.Time, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(tag, "y%4dm%2dd%2d", &y, &m, &d); err != nil {
		return time.Time{}, fmt.Errorf("%w: tag %q: %v", ErrInvalidDateSpec, tag, err)
	}
	return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC), nil
}
