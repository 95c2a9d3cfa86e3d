// The record package handles the data records of a RINEX 3 observation
// file.
//
// A data record starts with an epoch line giving the time, the epoch flag
// and the number of lines that follow:
//
//	> 2015 07 19 00 00 30.0000000  0  7
//
// With flag 0, 1 or 6 the lines that follow are satellite lines, one per
// satellite, each holding one 16-column field per observation type that
// the header declares for the satellite's system:
//
//	G02  20246872.205 7 106398033.130 7     -1232.067          42.250  ...
//
// With flags 2 to 5 the lines that follow are special records, usually
// header lines such as COMMENT.  An event record may have no time:
//
//	>                              4  2
package record

import (
	"fmt"

	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/satellite"
)

// Flag is the epoch flag of a data record.
type Flag int

// The epoch flags.
const (
	OK            Flag = 0
	PowerFailure  Flag = 1
	StartMoving   Flag = 2
	NewSite       Flag = 3
	HeaderFollows Flag = 4
	ExternalEvent Flag = 5
	CycleSlip     Flag = 6
)

var flagNames = map[Flag]string{
	OK:            "OK",
	PowerFailure:  "power failure",
	StartMoving:   "start moving antenna",
	NewSite:       "new site occupation",
	HeaderFollows: "header information follows",
	ExternalEvent: "external event",
	CycleSlip:     "cycle slip",
}

// Valid is true if the flag is one of the defined values.
func (f Flag) Valid() bool {
	_, ok := flagNames[f]
	return ok
}

// HasObservations is true if records with this flag carry satellite lines
// rather than special records.
func (f Flag) HasObservations() bool {
	return f == OK || f == PowerFailure || f == CycleSlip
}

// String returns a description of the flag.
func (f Flag) String() string {
	name, ok := flagNames[f]
	if !ok {
		return fmt.Sprintf("unknown flag %d", int(f))
	}
	return name
}

// Indicator is a loss of lock indicator (0-7) or a signal strength
// indicator (1-9), or NoIndicator.
type Indicator int8

// NoIndicator means that the indicator column was blank.
const NoIndicator Indicator = -1

// Maximum values of the indicators.
const (
	MaxLossOfLock     Indicator = 7
	MaxSignalStrength Indicator = 9
)

// Value is one observation: the measurement and its indicators.  If Valid
// is false the measurement field was blank and Measurement is zero.
type Value struct {
	Measurement    float64
	Valid          bool
	LossOfLock     Indicator
	SignalStrength Indicator
}

// Missing returns a value with a blank measurement and no indicators.
func Missing() Value {
	return Value{LossOfLock: NoIndicator, SignalStrength: NoIndicator}
}

// NewValue returns a valid measurement with the given indicators.
func NewValue(measurement float64, lossOfLock, signalStrength Indicator) Value {
	return Value{
		Measurement:    measurement,
		Valid:          true,
		LossOfLock:     lossOfLock,
		SignalStrength: signalStrength,
	}
}

// String returns the value in a readable form, "missing" if it's not valid.
func (v Value) String() string {
	if !v.Valid {
		return "missing"
	}
	s := fmt.Sprintf("%.3f", v.Measurement)
	if v.LossOfLock != NoIndicator {
		s += fmt.Sprintf(" lli %d", v.LossOfLock)
	}
	if v.SignalStrength != NoIndicator {
		s += fmt.Sprintf(" ssi %d", v.SignalStrength)
	}
	return s
}

// SatelliteObservations holds the observations of one satellite at one
// epoch.  Values are in the order of the header's observation types for
// the satellite's system, one per type.
type SatelliteObservations struct {
	ID     satellite.ID
	Values []Value
}

// Content is the body of a data record.  It's either Observations or an
// Event.
type Content interface {
	// lineCount returns the number of lines that follow the epoch line.
	lineCount() int
}

// Observations is the content of a record with flag 0, 1 or 6.
type Observations struct {
	Satellites []SatelliteObservations
}

func (o Observations) lineCount() int {
	return len(o.Satellites)
}

// Lookup returns the observations of the given satellite.
func (o Observations) Lookup(id satellite.ID) ([]Value, bool) {
	for _, s := range o.Satellites {
		if s.ID == id {
			return s.Values, true
		}
	}
	return nil, false
}

// IDs returns the satellites in the order that they appear.
func (o Observations) IDs() []satellite.ID {
	ids := make([]satellite.ID, 0, len(o.Satellites))
	for _, s := range o.Satellites {
		ids = append(ids, s.ID)
	}
	return ids
}

// Event is the content of a record with flag 2, 3, 4 or 5: the special
// record lines, verbatim.
type Event struct {
	Lines []string
}

func (e Event) lineCount() int {
	return len(e.Lines)
}

// Record is one data record.
type Record struct {
	// Epoch is the time of the record.  Only event records may be without
	// one, in which case HasEpoch is false.
	Epoch    gnsstime.Epoch
	HasEpoch bool

	Flag Flag

	// ClockOffset is the receiver clock offset in seconds, if HasClockOffset
	// is true.
	ClockOffset    float64
	HasClockOffset bool

	// Content is Observations or Event, depending on the flag.
	Content Content
}

// NewObservations creates a record of satellite observations.
func NewObservations(epoch gnsstime.Epoch, flag Flag, satellites []SatelliteObservations) Record {
	return Record{
		Epoch:    epoch,
		HasEpoch: true,
		Flag:     flag,
		Content:  Observations{Satellites: satellites},
	}
}

// NewEvent creates an event record.  If epoch is the zero Epoch the record
// has no time.
func NewEvent(epoch gnsstime.Epoch, flag Flag, lines []string) Record {
	return Record{
		Epoch:    epoch,
		HasEpoch: !epoch.IsZero(),
		Flag:     flag,
		Content:  Event{Lines: lines},
	}
}

// Observations returns the satellite observations of the record.  ok is
// false for an event record.
func (r Record) Observations() (obs Observations, ok bool) {
	switch c := r.Content.(type) {
	case Observations:
		return c, true
	case nil:
		return Observations{}, r.Flag.HasObservations()
	}
	return Observations{}, false
}

// LineCount returns the number of lines that follow the epoch line.
func (r Record) LineCount() int {
	if r.Content == nil {
		return 0
	}
	return r.Content.lineCount()
}

// String returns a one-line summary of the record.
func (r Record) String() string {
	when := "no epoch"
	if r.HasEpoch {
		when = r.Epoch.String()
	}
	if obs, ok := r.Observations(); ok {
		return fmt.Sprintf("%s flag %d (%s): %d satellites", when, r.Flag, r.Flag, len(obs.Satellites))
	}
	return fmt.Sprintf("%s flag %d (%s): %d special records", when, r.Flag, r.Flag, r.LineCount())
}
