// Package dates parses user supplied sync range boundaries.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable is returned when a string matches none of the accepted layouts
var ErrUnparseable = errors.New("couldn't parse dates, please use -h for accepted formats")

// Layouts lists the accepted date layouts in priority order. Several of them
// overlap on purely numeric input; the first layout that parses wins, so the
// order here decides ambiguous strings. Separated layouts accept months and
// days with or without a leading zero.
var Layouts = []string{
	"2006-1-2", // YYYY-MM-DD
	"2006/1/2", // YYYY/MM/DD
	"2006.1.2", // YYYY.MM.DD
	"20060102", // YYYYMMDD
	"1-2-2006", // MM-DD-YYYY
	"1/2/2006", // MM/DD/YYYY
	"1.2.2006", // MM.DD.YYYY
	"01022006", // MMDDYYYY
	"2-1-06",   // DD-MM-YY
	"2/1/06",   // DD/MM/YY
	"2.1.06",   // DD.MM.YY
	"02012006", // DDMMYYYY
}

var layoutNames = strings.NewReplacer(
	"2006", "YYYY",
	"06", "YY",
	"01", "MM",
	"02", "DD",
	"1", "MM",
	"2", "DD",
)

// Parse returns the calendar date (UTC midnight) encoded by s.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range Layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparseable)
}

// Usage lists the accepted formats for command line help output, in the
// order they are tried.
func Usage() string {
	var sb strings.Builder
	sb.WriteString("Accepted date formats, tried in this order (first match wins):\n")
	for i, layout := range Layouts {
		fmt.Fprintf(&sb, "  %2d. %s\n", i+1, layoutNames.Replace(layout))
	}
	sb.WriteString("Leading zeros on MM and DD are optional when the fields are separated.")
	return sb.String()
}
