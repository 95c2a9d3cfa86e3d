// The gnsstime package provides the Epoch type, a point in time tagged with
// the GNSS time system that it's expressed in, and the civil time text
// encodings that RINEX 3 uses for epochs in the header and in data records.
//
// An Epoch is a civil date and time (year, month, day, hour, minute, second)
// held to a resolution of 100 nanoseconds, which is the resolution of the
// seconds field in a RINEX epoch line.  No conversion between time systems
// is done.  GPS time runs a number of leap seconds ahead of UTC, GLONASS time
// is UTC plus three hours and so on, but a RINEX file states which system
// its times are in and the codec just carries that through.
package gnsstime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goblimey/go-rinex/rinex/fixedwidth"
)

// TimeSystem identifies a GNSS time system.
type TimeSystem int

const (
	// Unknown means that the time system is not stated.
	Unknown TimeSystem = iota
	GPS                // GPS system time.
	GLO                // GLONASS time (UTC(SU) + 3 hours).
	GAL                // Galileo system time.
	BDT                // BeiDou time.
	QZS                // QZSS time.
	IRN                // IRNSS time.
	UTC                // Coordinated universal time.
	TAI                // International atomic time.
)

var timeSystemCodes = map[TimeSystem]string{
	GPS: "GPS",
	GLO: "GLO",
	GAL: "GAL",
	BDT: "BDT",
	QZS: "QZS",
	IRN: "IRN",
	UTC: "UTC",
	TAI: "TAI",
}

// String returns the three-letter RINEX code for the time system, for
// example "GPS".  Unknown gives an empty string, which is what goes in the
// header when the time system isn't stated.
func (ts TimeSystem) String() string {
	return timeSystemCodes[ts]
}

// ParseTimeSystem converts a three-letter RINEX code to a TimeSystem.  A
// blank code gives Unknown.
func ParseTimeSystem(code string) (TimeSystem, error) {
	code = strings.TrimSpace(code)
	if len(code) == 0 {
		return Unknown, nil
	}
	for ts, c := range timeSystemCodes {
		if c == code {
			return ts, nil
		}
	}
	return Unknown, fmt.Errorf("unknown time system %q", code)
}

// resolution is the resolution of an Epoch.
const resolution = 100 * time.Nanosecond

// Epoch is a civil date and time tagged with a time system.  The zero value
// is not a valid epoch - see IsZero.
type Epoch struct {
	// t holds the civil time.  Its location is always UTC, whatever the time
	// system, so that the fields of t are the civil time fields.
	t      time.Time
	system TimeSystem
}

// CivilTime is the broken down form of an Epoch.  Values can be compared
// with ==.
type CivilTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second float64
	System TimeSystem
}

// New creates an Epoch from its civil time fields.  The seconds are rounded
// to the nearest 100 nanoseconds.
func New(year int, month time.Month, day, hour, minute int, second float64, system TimeSystem) Epoch {
	whole := int(second)
	frac := time.Duration((second-float64(whole))*1e7+0.5) * resolution
	t := time.Date(year, month, day, hour, minute, whole, 0, time.UTC).Add(frac)
	return Epoch{t: t, system: system}
}

// FromTime creates an Epoch from a time value.  The civil time fields of the
// given time are used as they are, whatever its location, so
//
//	FromTime(time.Date(2015, 7, 19, 0, 0, 0, 0, paris), GPS)
//
// is midnight in GPS time.
func FromTime(t time.Time, system TimeSystem) Epoch {
	civil := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond(), time.UTC)
	return Epoch{t: civil.Round(resolution), system: system}
}

// IsZero is true for the zero Epoch.
func (e Epoch) IsZero() bool {
	return e.t.IsZero()
}

// System returns the time system of the epoch.
func (e Epoch) System() TimeSystem {
	return e.system
}

// WithSystem returns a copy of the epoch with the time system changed.  The
// civil time is not altered.
func (e Epoch) WithSystem(system TimeSystem) Epoch {
	return Epoch{t: e.t, system: system}
}

// Time returns the civil time as a time.Time in the UTC location.
func (e Epoch) Time() time.Time {
	return e.t
}

// Civil returns the broken-down civil time.
func (e Epoch) Civil() CivilTime {
	return CivilTime{
		Year:   e.t.Year(),
		Month:  e.t.Month(),
		Day:    e.t.Day(),
		Hour:   e.t.Hour(),
		Minute: e.t.Minute(),
		Second: float64(e.t.Second()) + float64(e.t.Nanosecond())/1e9,
		System: e.system,
	}
}

// Add returns the epoch plus the given duration.
func (e Epoch) Add(d time.Duration) Epoch {
	return Epoch{t: e.t.Add(d).Round(resolution), system: e.system}
}

// Sub returns the duration e - other.
func (e Epoch) Sub(other Epoch) time.Duration {
	return e.t.Sub(other.t)
}

// Compare returns -1, 0 or +1 as e is before, the same as or after other.
// Epochs are compared by their civil time fields.  The time systems are
// not taken into account.
func (e Epoch) Compare(other Epoch) int {
	switch {
	case e.t.Before(other.t):
		return -1
	case e.t.After(other.t):
		return 1
	default:
		return 0
	}
}

// Before is true if e is earlier than other.
func (e Epoch) Before(other Epoch) bool {
	return e.Compare(other) < 0
}

// After is true if e is later than other.
func (e Epoch) After(other Epoch) bool {
	return e.Compare(other) > 0
}

// Equal is true if the two epochs have the same civil time and time system.
func (e Epoch) Equal(other Epoch) bool {
	return e.t.Equal(other.t) && e.system == other.system
}

// String returns the epoch in the form "2015-07-19 00:59:30.0000000 GPS".
func (e Epoch) String() string {
	s := e.t.Format("2006-01-02 15:04:05.0000000")
	if e.system != Unknown {
		s += " " + e.system.String()
	}
	return s
}

// The epoch fields of a data record epoch line, relative to the start of
// the year (column 3 of the line): I4,4(1X,I2.2),F11.7.
var (
	recordYear   = fixedwidth.Field{Start: 0, Width: 4}
	recordMonth  = fixedwidth.Field{Start: 5, Width: 2}
	recordDay    = fixedwidth.Field{Start: 8, Width: 2}
	recordHour   = fixedwidth.Field{Start: 11, Width: 2}
	recordMinute = fixedwidth.Field{Start: 14, Width: 2}
	recordSecond = fixedwidth.Field{Start: 16, Width: 11}
)

// RecordTimeWidth is the width of the time in a data record epoch line.
const RecordTimeWidth = 27

// The epoch fields of a header time line such as TIME OF FIRST OBS:
// 5I6,F13.7,5X,A3.
var (
	headerYear   = fixedwidth.Field{Start: 0, Width: 6}
	headerMonth  = headerYear.Next(6)
	headerDay    = headerMonth.Next(6)
	headerHour   = headerDay.Next(6)
	headerMinute = headerHour.Next(6)
	headerSecond = headerMinute.Next(13)
	headerSystem = fixedwidth.Field{Start: 48, Width: 3}
)

// ParseRecordTime decodes the time from a data record epoch line, for
// example "2015 07 19 00 59 30.0000000".  The text starts with the year.
func ParseRecordTime(text string, system TimeSystem) (Epoch, error) {
	fields := []fixedwidth.Field{recordYear, recordMonth, recordDay, recordHour, recordMinute}
	return parseTime(text, fields, recordSecond, system)
}

// FormatRecordTime formats the epoch for a data record epoch line.  The
// result is RecordTimeWidth characters long.
func FormatRecordTime(e Epoch) string {
	sec, frac := secondsParts(e)
	return fmt.Sprintf("%4d %02d %02d %02d %02d%3d.%07d",
		e.t.Year(), int(e.t.Month()), e.t.Day(), e.t.Hour(), e.t.Minute(), sec, frac)
}

// ParseHeaderTime decodes a header time such as
//
//	"  2015     7    19     0     0    0.0000000     GPS"
//
// If the time system field is blank, the epoch's system is Unknown.
func ParseHeaderTime(text string) (Epoch, error) {
	system, err := ParseTimeSystem(headerSystem.Raw(text))
	if err != nil {
		return Epoch{}, err
	}
	fields := []fixedwidth.Field{headerYear, headerMonth, headerDay, headerHour, headerMinute}
	return parseTime(text, fields, headerSecond, system)
}

// FormatHeaderTime formats the epoch for a header time line.  The result is
// 51 characters long, or 48 if the time system is unknown.
func FormatHeaderTime(e Epoch) string {
	sec, frac := secondsParts(e)
	s := fmt.Sprintf("%6d%6d%6d%6d%6d%5d.%07d",
		e.t.Year(), int(e.t.Month()), e.t.Day(), e.t.Hour(), e.t.Minute(), sec, frac)
	if e.system != Unknown {
		s += fmt.Sprintf("%5s%-3s", "", e.system.String())
	}
	return s
}

// secondsParts returns the whole seconds and the fraction in units of 100
// nanoseconds.
func secondsParts(e Epoch) (int, int) {
	return e.t.Second(), e.t.Nanosecond() / int(resolution)
}

// parseTime decodes year, month, day, hour and minute integer fields and a
// seconds field and checks that they make a real date and time.
func parseTime(text string, fields []fixedwidth.Field, secondField fixedwidth.Field, system TimeSystem) (Epoch, error) {
	names := []string{"year", "month", "day", "hour", "minute"}
	values := make([]int, len(fields))
	for i, f := range fields {
		v, ok, err := f.Int(text)
		if err != nil {
			return Epoch{}, fmt.Errorf("%s: %w", names[i], err)
		}
		if !ok {
			return Epoch{}, fmt.Errorf("%s missing", names[i])
		}
		values[i] = v
	}

	sec, hundredNanos, err := parseSeconds(secondField.Text(text))
	if err != nil {
		return Epoch{}, err
	}

	year, month, day, hour, minute := values[0], values[1], values[2], values[3], values[4]

	t := time.Date(year, time.Month(month), day, hour, minute, sec, hundredNanos*int(resolution), time.UTC)

	// time.Date normalises out of range values (month 13 becomes January
	// of the next year) so a round trip detects them.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != sec {
		return Epoch{}, fmt.Errorf("invalid date/time %04d-%02d-%02d %02d:%02d:%02d",
			year, month, day, hour, minute, sec)
	}

	return Epoch{t: t, system: system}, nil
}

// parseSeconds decodes a seconds field such as "30.0000000" into whole
// seconds and units of 100 nanoseconds without going through floating
// point, so no precision is lost.
func parseSeconds(text string) (int, int, error) {
	if len(text) == 0 {
		return 0, 0, fmt.Errorf("seconds missing")
	}
	whole, frac := text, ""
	if i := strings.IndexByte(text, '.'); i >= 0 {
		whole, frac = text[:i], text[i+1:]
	}
	if len(whole) == 0 {
		whole = "0"
	}
	sec, err := strconv.Atoi(whole)
	if err != nil || sec < 0 {
		return 0, 0, fmt.Errorf("invalid seconds %q", text)
	}
	if len(frac) > 7 {
		frac = frac[:7]
	}
	for len(frac) < 7 {
		frac += "0"
	}
	hundredNanos, err := strconv.Atoi(frac)
	if err != nil || hundredNanos < 0 {
		return 0, 0, fmt.Errorf("invalid seconds %q", text)
	}
	return sec, hundredNanos, nil
}
