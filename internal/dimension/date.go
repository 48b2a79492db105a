// Package dimension holds the in-memory dimension builders used by the
// transform pass: release-date parsing, the date dimension, attribute groups
// and the platform support dimension.
package dimension

import (
	"fmt"
	"strings"
	"time"
)

// UnknownDateKey is the dim_date key used for release dates that did not parse.
const UnknownDateKey = "unknown"

// Date is a parsed release date.
//
// A zero Date is the "unknown" sentinel. Month-only dates (e.g. "Jan 2020") carry
// Day == 0 so they never collide with the first day of that month.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// UnknownDate is returned by ParseReleaseDate when no layout matches.
var UnknownDate = Date{}

// Known reports whether d is an actual calendar date rather than the sentinel.
func (d Date) Known() bool { return d.Year != 0 }

// HasDay reports whether the day of month was present in the source string.
func (d Date) HasDay() bool { return d.Known() && d.Day != 0 }

// Quarter returns ceil(month/3) for known dates and 0 for the sentinel.
func (d Date) Quarter() int {
	if !d.Known() {
		return 0
	}
	return (int(d.Month) + 2) / 3
}

// Key is the join key shared by dim_date.date and fact_game.release_date.
//
//	full date   -> "2008-10-21"
//	month only  -> "2008-10"
//	unknown     -> "unknown"
func (d Date) Key() string {
	switch {
	case !d.Known():
		return UnknownDateKey
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
}

func (d Date) String() string { return d.Key() }

type dateLayout struct {
	layout  string
	withDay bool
}

// releaseDateLayouts are tried in order; the first successful parse wins.
var releaseDateLayouts = []dateLayout{
	{layout: "Jan 2, 2006", withDay: true},
	{layout: "Jan 2006", withDay: false},
}

// ParseReleaseDate parses a free-text store release date.
//
// It never fails: input that matches none of the layouts (e.g. "Coming soon", "")
// yields UnknownDate.
func ParseReleaseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownDate
	}
	for _, l := range releaseDateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		d := Date{Year: t.Year(), Month: t.Month()}
		if l.withDay {
			d.Day = t.Day()
		}
		return d
	}
	return UnknownDate
}
