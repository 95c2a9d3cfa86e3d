package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goblimey/go-rinex/rinex/codecerror"
	"github.com/goblimey/go-rinex/rinex/fixedwidth"
	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/obstype"
	"github.com/goblimey/go-rinex/rinex/satellite"
)

// EpochMarker is the first character of an epoch line.
const EpochMarker = '>'

// Field positions in an epoch line:
// A1,1X,I4,4(1X,I2.2),F11.7,2X,I1,I3,6X,F15.12.
var (
	epochTimeField   = fixedwidth.Field{Start: 2, Width: gnsstime.RecordTimeWidth}
	epochFlagField   = fixedwidth.Field{Start: 31, Width: 1}
	epochCountField  = fixedwidth.Field{Start: 32, Width: 3}
	epochClockField  = fixedwidth.Field{Start: 41, Width: 15}
	epochClockDigits = 12
)

// MaxLines is the largest number of lines that can follow an epoch line.
const MaxLines = 999

// Field positions in a satellite line: A3 then, for each observation,
// F14.3,I1,I1.
var satelliteField = fixedwidth.Field{Start: 0, Width: 3}

const (
	observationStart  = 3
	observationWidth  = 16
	measurementWidth  = 14
	measurementDigits = 3
)

// IsEpochLine is true if the line starts a data record.
func IsEpochLine(line string) bool {
	return len(line) > 0 && line[0] == EpochMarker
}

// EpochLine is a decoded epoch line.
type EpochLine struct {
	Epoch          gnsstime.Epoch
	HasEpoch       bool
	Flag           Flag
	Count          int // The number of lines that follow.
	ClockOffset    float64
	HasClockOffset bool
}

// Record returns a record with the epoch line's time, flag and clock offset
// and empty content of the kind that the flag calls for.
func (el EpochLine) Record() Record {
	r := Record{
		Epoch:          el.Epoch,
		HasEpoch:       el.HasEpoch,
		Flag:           el.Flag,
		ClockOffset:    el.ClockOffset,
		HasClockOffset: el.HasClockOffset,
	}
	if el.Flag.HasObservations() {
		r.Content = Observations{Satellites: make([]SatelliteObservations, 0, el.Count)}
	} else {
		r.Content = Event{Lines: make([]string, 0, el.Count)}
	}
	return r
}

// DecodeEpochLine decodes an epoch line.  The epoch is tagged with the given
// time system, which comes from the header.  Errors are of kind
// MalformedDataField.
func DecodeEpochLine(line string, system gnsstime.TimeSystem) (EpochLine, error) {
	var el EpochLine

	if !IsEpochLine(line) {
		return el, codecerror.New(codecerror.MalformedDataField, 0, "epoch line",
			"expected a line starting with '>'")
	}

	flag, ok, err := epochFlagField.Int(line)
	if err != nil {
		return el, codecerror.Wrap(codecerror.MalformedDataField, 0, "epoch flag", err)
	}
	if !ok {
		return el, codecerror.New(codecerror.MalformedDataField, 0, "epoch flag", "missing")
	}
	el.Flag = Flag(flag)
	if !el.Flag.Valid() {
		return el, codecerror.Newf(codecerror.MalformedDataField, 0, "epoch flag",
			"%d is not a valid flag", flag)
	}

	// Event records may leave the time blank.
	if !el.Flag.HasObservations() && epochTimeField.Blank(line) {
		el.HasEpoch = false
	} else {
		el.Epoch, err = gnsstime.ParseRecordTime(epochTimeField.Raw(line), system)
		if err != nil {
			return el, codecerror.Wrap(codecerror.MalformedDataField, 0, "epoch", err)
		}
		el.HasEpoch = true
	}

	el.Count, ok, err = epochCountField.Int(line)
	if err != nil {
		return el, codecerror.Wrap(codecerror.MalformedDataField, 0, "number of satellites", err)
	}
	if !ok {
		return el, codecerror.New(codecerror.MalformedDataField, 0, "number of satellites", "missing")
	}
	if el.Count < 0 {
		return el, codecerror.Newf(codecerror.MalformedDataField, 0, "number of satellites",
			"%d is negative", el.Count)
	}

	el.ClockOffset, el.HasClockOffset, err = epochClockField.Float(line)
	if err != nil {
		return el, codecerror.Wrap(codecerror.MalformedDataField, 0, "receiver clock offset", err)
	}

	return el, nil
}

// encodeEpochLine writes the epoch line of a record that has count lines
// following it.
func encodeEpochLine(r Record, count int) (string, error) {
	l := fixedwidth.NewLine()
	l.PutText(fixedwidth.Field{Start: 0, Width: 1}, string(EpochMarker))

	switch {
	case r.HasEpoch:
		if err := l.PutRight(epochTimeField, gnsstime.FormatRecordTime(r.Epoch)); err != nil {
			return "", codecerror.Wrap(codecerror.NumericFieldOverflow, 0, "epoch", err)
		}
	case r.Flag.HasObservations():
		return "", codecerror.Newf(codecerror.InconsistentWriterInput, 0, "epoch",
			"a record with flag %d must have an epoch", r.Flag)
	default:
		l.PutBlank(epochTimeField)
	}

	if !r.Flag.Valid() {
		return "", codecerror.Newf(codecerror.InconsistentWriterInput, 0, "epoch flag",
			"%d is not a valid flag", r.Flag)
	}
	if err := l.PutInt(epochFlagField, int(r.Flag)); err != nil {
		return "", codecerror.Wrap(codecerror.NumericFieldOverflow, 0, "epoch flag", err)
	}
	if err := l.PutInt(epochCountField, count); err != nil {
		return "", codecerror.Wrap(codecerror.NumericFieldOverflow, 0, "number of satellites", err)
	}
	if r.HasClockOffset {
		if err := l.PutFloat(epochClockField, r.ClockOffset, epochClockDigits); err != nil {
			return "", codecerror.Wrap(codecerror.NumericFieldOverflow, 0, "receiver clock offset", err)
		}
	}
	return l.String(), nil
}

// measurementField returns the field of the ith observation.
func measurementField(i int) fixedwidth.Field {
	return fixedwidth.Field{Start: observationStart + observationWidth*i, Width: measurementWidth}
}

// DecodeSatelliteLine decodes a satellite line, using the observation types
// in the table for the satellite's system.  Fields missing from the end of
// a short line are missing values, so the result always has one value per
// observation type.
//
// A satellite of a system that the table doesn't declare gives an
// UndeclaredSatelliteSystem error, data beyond the declared observations an
// ObservationCountMismatch error and anything unreadable a
// MalformedDataField error.
func DecodeSatelliteLine(line string, table obstype.Table) (SatelliteObservations, error) {
	var result SatelliteObservations

	id, err := satellite.ParseID(satelliteField.Raw(line))
	if err != nil {
		return result, codecerror.Wrap(codecerror.MalformedDataField, 0, "satellite", err)
	}
	context := id.String()
	if !table.Has(id.System) {
		return result, codecerror.Newf(codecerror.UndeclaredSatelliteSystem, 0, context,
			"no observation types for %s", id.System)
	}

	n := table.Len(id.System)
	end := observationStart + observationWidth*n
	if len(line) > end && len(strings.TrimSpace(line[end:])) > 0 {
		return result, codecerror.Newf(codecerror.ObservationCountMismatch, 0, context,
			"data beyond the %d declared observations", n)
	}

	codes := table.Codes(id.System)
	values := make([]Value, n)
	for i := range values {
		v, err := decodeValue(line, i)
		if err != nil {
			return result, codecerror.Wrap(codecerror.MalformedDataField, 0,
				context+" "+string(codes[i]), err)
		}
		values[i] = v
	}

	result.ID = id
	result.Values = values
	return result, nil
}

func decodeValue(line string, i int) (Value, error) {
	f := measurementField(i)
	v := Missing()

	m, ok, err := f.Float(line)
	if err != nil {
		return v, err
	}
	v.Measurement, v.Valid = m, ok

	v.LossOfLock, err = decodeIndicator(line, f.Next(1), MaxLossOfLock)
	if err != nil {
		return v, fmt.Errorf("loss of lock indicator: %w", err)
	}
	v.SignalStrength, err = decodeIndicator(line, f.Next(1).Next(1), MaxSignalStrength)
	if err != nil {
		return v, fmt.Errorf("signal strength indicator: %w", err)
	}
	return v, nil
}

func decodeIndicator(line string, f fixedwidth.Field, max Indicator) (Indicator, error) {
	n, ok, err := f.Int(line)
	if err != nil {
		return NoIndicator, err
	}
	if !ok {
		return NoIndicator, nil
	}
	if n < 0 || Indicator(n) > max {
		return NoIndicator, fmt.Errorf("%d out of range 0-%d", n, max)
	}
	return Indicator(n), nil
}

// EncodeSatelliteLine writes a satellite line.  Every observation field is
// written in full, with blanks for missing values and indicators.
func EncodeSatelliteLine(s SatelliteObservations, table obstype.Table) (string, error) {
	context := s.ID.String()
	if !s.ID.System.Valid() || s.ID.System == satellite.Mixed {
		return "", codecerror.Newf(codecerror.InconsistentWriterInput, 0, context,
			"invalid satellite system")
	}
	if !table.Has(s.ID.System) {
		return "", codecerror.Newf(codecerror.InconsistentWriterInput, 0, context,
			"the header declares no observation types for %s", s.ID.System)
	}
	n := table.Len(s.ID.System)
	if len(s.Values) != n {
		return "", codecerror.Newf(codecerror.InconsistentWriterInput, 0, context,
			"%d values for %d observation types", len(s.Values), n)
	}

	l := fixedwidth.NewLine()
	if s.ID.Number < 1 || s.ID.Number > satellite.MaxNumber {
		return "", codecerror.Newf(codecerror.NumericFieldOverflow, 0, context,
			"satellite number %d out of range", s.ID.Number)
	}
	l.PutText(satelliteField, context)

	codes := table.Codes(s.ID.System)
	for i, v := range s.Values {
		if err := encodeValue(l, i, v); err != nil {
			kind := codecerror.InconsistentWriterInput
			if errors.Is(err, fixedwidth.ErrOverflow) {
				kind = codecerror.NumericFieldOverflow
			}
			return "", codecerror.Wrap(kind, 0, context+" "+string(codes[i]), err)
		}
	}
	l.Pad(observationStart + observationWidth*n)
	return l.String(), nil
}

func encodeValue(l *fixedwidth.Line, i int, v Value) error {
	f := measurementField(i)
	if v.Valid {
		if err := l.PutFloat(f, v.Measurement, measurementDigits); err != nil {
			return err
		}
	} else {
		l.PutBlank(f)
	}
	if err := encodeIndicator(l, f.Next(1), v.LossOfLock, MaxLossOfLock); err != nil {
		return fmt.Errorf("loss of lock indicator: %w", err)
	}
	if err := encodeIndicator(l, f.Next(1).Next(1), v.SignalStrength, MaxSignalStrength); err != nil {
		return fmt.Errorf("signal strength indicator: %w", err)
	}
	return nil
}

func encodeIndicator(l *fixedwidth.Line, f fixedwidth.Field, ind, max Indicator) error {
	if ind == NoIndicator {
		l.PutBlank(f)
		return nil
	}
	if ind < 0 || ind > max {
		return fmt.Errorf("%w: %d out of range 0-%d", fixedwidth.ErrOverflow, ind, max)
	}
	return l.PutInt(f, int(ind))
}

// Encode returns the lines of the record: the epoch line then the satellite
// lines or special records.  The table gives the observation types of each
// satellite system.
func (r Record) Encode(table obstype.Table) ([]string, error) {
	var body []string

	switch c := r.Content.(type) {
	case nil:
		body = []string{}
	case Observations:
		if !r.Flag.HasObservations() {
			return nil, codecerror.Newf(codecerror.InconsistentWriterInput, 0, "epoch flag",
				"a record with flag %d can't hold observations", r.Flag)
		}
		body = make([]string, 0, len(c.Satellites))
		for _, s := range c.Satellites {
			line, err := EncodeSatelliteLine(s, table)
			if err != nil {
				return nil, err
			}
			body = append(body, line)
		}
	case Event:
		if r.Flag.HasObservations() {
			return nil, codecerror.Newf(codecerror.InconsistentWriterInput, 0, "epoch flag",
				"a record with flag %d can't hold special records", r.Flag)
		}
		body = c.Lines
	}

	if len(body) > MaxLines {
		return nil, codecerror.Newf(codecerror.NumericFieldOverflow, 0, "number of satellites",
			"%d lines follow the epoch line, at most %d allowed", len(body), MaxLines)
	}

	epochLine, err := encodeEpochLine(r, len(body))
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, 1+len(body))
	lines = append(lines, epochLine)
	lines = append(lines, body...)
	return lines, nil
}
