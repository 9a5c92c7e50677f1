// Package measure converts raw scale readings into the decimal strings and
// local date/time expected by the destination API.
package measure

import (
	"strconv"
	"strings"
	"time"
)

// Type is the source provider's measure type code.
type Type int

const (
	TypeWeight  Type = 1
	TypeBodyFat Type = 6
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Measurement is a single reading worth Value × 10^Exponent.
type Measurement struct {
	Type     Type
	Value    int64
	Exponent int
}

// Group is a batch of measurements taken at the same instant.
type Group struct {
	Timestamp int64 // Unix seconds
	Measures  []Measurement
}

// Time returns the group timestamp as a time.Time.
func (g Group) Time() time.Time {
	return time.Unix(g.Timestamp, 0)
}

// Reading is the destination-ready form of a Group. Weight and Fat stay nil
// when the group has no such measurement.
type Reading struct {
	Weight *string `json:"weight,omitempty"`
	Fat    *string `json:"fat,omitempty"`
	Date   string  `json:"date"`
	Time   string  `json:"time"`
}

// Parse picks the first weight and body-fat entries of g and renders the
// group timestamp in loc.
func Parse(g Group, loc *time.Location) Reading {
	if loc == nil {
		loc = time.UTC
	}

	var r Reading
	for _, m := range g.Measures {
		switch {
		case m.Type == TypeWeight && r.Weight == nil:
			v := FormatScaled(m.Value, m.Exponent)
			r.Weight = &v
		case m.Type == TypeBodyFat && r.Fat == nil:
			v := FormatScaled(m.Value, m.Exponent)
			r.Fat = &v
		}
	}

	local := g.Time().In(loc)
	r.Date = local.Format(DateLayout)
	r.Time = local.Format(TimeLayout)
	return r
}

// FormatScaled renders raw × 10^exp without going through floating point.
// A negative exponent places the decimal point |exp| digits from the right;
// when the raw value has too few digits it is left-padded with zeros, so
// (5, -3) gives "0.005". A non-negative exponent appends zeros.
func FormatScaled(raw int64, exp int) string {
	digits := strconv.FormatInt(raw, 10)
	sign := ""
	if raw < 0 {
		sign = "-"
		digits = digits[1:]
	}

	if exp >= 0 {
		if raw == 0 {
			return "0"
		}
		return sign + digits + strings.Repeat("0", exp)
	}

	scale := -exp
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	cut := len(digits) - scale
	return sign + digits[:cut] + "." + digits[cut:]
}

// StartOfDay returns local midnight of the day containing now.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// OnOrAfter keeps the groups whose timestamp is not before since.
func OnOrAfter(groups []Group, since time.Time) []Group {
	cutoff := since.Unix()
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Timestamp >= cutoff {
			out = append(out, g)
		}
	}
	return out
}
