package header

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-rinex/rinex/codecerror"
	"github.com/goblimey/go-rinex/rinex/fixedwidth"
	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/satellite"
)

// lineSpec describes one kind of header line.  encode returns the data
// parts of the lines for the kind - usually one, sometimes more.
type lineSpec struct {
	label  string
	field  FieldSet
	encode func(h *Header) ([]string, error)
}

// lineSpecs lists the header lines in the order in which they are written.
var lineSpecs = []lineSpec{
	{LabelVersion, HasVersion, encodeVersion},
	{LabelRunBy, HasRunBy, func(h *Header) ([]string, error) {
		return texts(a20First, h.Program, a20Second, h.RunBy, a20Third, h.Date), nil
	}},
	{LabelComment, HasComment, func(h *Header) ([]string, error) {
		return freeTexts(h.Comments), nil
	}},
	{LabelDOI, HasDOI, func(h *Header) ([]string, error) {
		return texts(a60, h.DOI), nil
	}},
	{LabelLicense, HasLicense, func(h *Header) ([]string, error) {
		return freeTexts(h.License), nil
	}},
	{LabelStationInformation, HasStationInformation, func(h *Header) ([]string, error) {
		return freeTexts(h.StationInformation), nil
	}},
	{LabelMarkerName, HasMarkerName, func(h *Header) ([]string, error) {
		return texts(a60, h.MarkerName), nil
	}},
	{LabelMarkerNumber, HasMarkerNumber, func(h *Header) ([]string, error) {
		return texts(a20First, h.MarkerNumber), nil
	}},
	{LabelMarkerType, HasMarkerType, func(h *Header) ([]string, error) {
		return texts(a20First, h.MarkerType), nil
	}},
	{LabelObserver, HasObserver, func(h *Header) ([]string, error) {
		return texts(a20First, h.Observer, a40Second, h.Agency), nil
	}},
	{LabelReceiver, HasReceiver, func(h *Header) ([]string, error) {
		return texts(a20First, h.ReceiverNumber, a20Second, h.ReceiverType, a20Third, h.ReceiverVersion), nil
	}},
	{LabelAntennaType, HasAntennaType, func(h *Header) ([]string, error) {
		return texts(a20First, h.AntennaNumber, a20Second, h.AntennaType), nil
	}},
	{LabelApproxPosition, HasApproxPosition, func(h *Header) ([]string, error) {
		return encodeTriple(h.ApproxPosition)
	}},
	{LabelAntennaDeltaHEN, HasAntennaDeltaHEN, func(h *Header) ([]string, error) {
		return encodeTriple(h.AntennaDeltaHEN)
	}},
	{LabelAntennaDeltaXYZ, HasAntennaDeltaXYZ, func(h *Header) ([]string, error) {
		return encodeTriple(h.AntennaDeltaXYZ)
	}},
	{LabelAntennaPhaseCenter, HasAntennaPhaseCenter, encodePhaseCenters},
	{LabelAntennaBoresight, HasAntennaBoresight, func(h *Header) ([]string, error) {
		return encodeTriple(h.AntennaBoresight)
	}},
	{LabelAntennaZeroDirAzimuth, HasAntennaZeroDirAzimuth, func(h *Header) ([]string, error) {
		return encodeFloat(f14, h.AntennaZeroDirAzimuth, 4)
	}},
	{LabelAntennaZeroDirXYZ, HasAntennaZeroDirXYZ, func(h *Header) ([]string, error) {
		return encodeTriple(h.AntennaZeroDirXYZ)
	}},
	{LabelCenterOfMass, HasCenterOfMass, func(h *Header) ([]string, error) {
		return encodeTriple(h.CenterOfMass)
	}},
	{LabelObsTypes, HasObsTypes, encodeObsTypes},
	{LabelSignalStrengthUnit, HasSignalStrengthUnit, func(h *Header) ([]string, error) {
		return texts(a20First, h.SignalStrengthUnit), nil
	}},
	{LabelInterval, HasInterval, func(h *Header) ([]string, error) {
		return encodeFloat(intervalField, h.Interval, 3)
	}},
	{LabelFirstObs, HasFirstObs, func(h *Header) ([]string, error) {
		return []string{gnsstime.FormatHeaderTime(h.FirstObs)}, nil
	}},
	{LabelLastObs, HasLastObs, func(h *Header) ([]string, error) {
		return []string{gnsstime.FormatHeaderTime(h.LastObs)}, nil
	}},
	{LabelReceiverClockOffset, HasReceiverClockOffset, func(h *Header) ([]string, error) {
		return encodeInt(i6, h.ReceiverClockOffsetApplied)
	}},
	{LabelDCBs, HasDCBs, func(h *Header) ([]string, error) {
		return encodeCorrections(h.DCBs), nil
	}},
	{LabelPCVs, HasPCVs, func(h *Header) ([]string, error) {
		return encodeCorrections(h.PCVs), nil
	}},
	{LabelScaleFactor, HasScaleFactor, encodeScaleFactors},
	{LabelPhaseShift, HasPhaseShift, encodePhaseShifts},
	{LabelGlonassSlots, HasGlonassSlots, encodeGlonassSlots},
	{LabelGlonassBiases, HasGlonassBiases, encodeGlonassBiases},
	{LabelLeapSeconds, HasLeapSeconds, encodeLeapSeconds},
	{LabelNumSatellites, HasNumSatellites, func(h *Header) ([]string, error) {
		return encodeInt(i6, h.NumSatellites)
	}},
	{LabelPrnObs, HasPrnObs, encodePrnObs},
	{LabelEndOfHeader, HasEndOfHeader, func(h *Header) ([]string, error) {
		return []string{""}, nil
	}},
}

// systemDescriptions gives the text that follows the system letter in the
// RINEX VERSION / TYPE line.
var systemDescriptions = map[satellite.System]string{
	satellite.GPS:     "G: GPS",
	satellite.GLONASS: "R: GLONASS",
	satellite.Galileo: "E: Galileo",
	satellite.BeiDou:  "C: BeiDou",
	satellite.QZSS:    "J: QZSS",
	satellite.IRNSS:   "I: IRNSS",
	satellite.SBAS:    "S: SBAS Payload",
	satellite.Mixed:   "M: Mixed",
}

// fileTypeDescription is the text of the file type field.
const fileTypeDescription = "OBSERVATION DATA"

// Encode returns the header as text lines, without line terminators.  Only
// the lines in the Valid set are written, in the standard order, and the
// END OF HEADER line is always written last.
func (h *Header) Encode() ([]string, error) {
	lines := make([]string, 0, 32)
	for _, spec := range lineSpecs {
		if spec.field != HasEndOfHeader && !h.Valid.Contains(spec.field) {
			continue
		}
		bodies, err := spec.encode(h)
		if err != nil {
			if errors.Is(err, fixedwidth.ErrOverflow) {
				return nil, codecerror.Wrap(codecerror.NumericFieldOverflow, 0, spec.label, err)
			}
			return nil, codecerror.Wrap(codecerror.InconsistentWriterInput, 0, spec.label, err)
		}
		for _, body := range bodies {
			lines = append(lines, fmt.Sprintf("%-60s%s", body, spec.label))
		}
	}
	return lines, nil
}

// texts builds a line from pairs of fields and text values.
func texts(pairs ...interface{}) []string {
	l := fixedwidth.NewLine()
	for i := 0; i+1 < len(pairs); i += 2 {
		l.PutText(pairs[i].(fixedwidth.Field), pairs[i+1].(string))
	}
	return []string{l.String()}
}

// freeTexts returns free text lines, each truncated to the body width.
func freeTexts(values []string) []string {
	bodies := make([]string, 0, len(values))
	for _, v := range values {
		bodies = append(bodies, texts(a60, v)[0])
	}
	return bodies
}

func encodeVersion(h *Header) ([]string, error) {
	desc, ok := systemDescriptions[h.System]
	if !ok {
		return nil, fmt.Errorf("invalid satellite system %q", string(h.System))
	}
	l := fixedwidth.NewLine()
	if err := l.PutFloat(versionField, h.Version, 2); err != nil {
		return nil, err
	}
	l.PutText(fileTypeField, fileTypeDescription)
	l.PutText(systemField, desc)
	return []string{l.String()}, nil
}

func encodeTriple(t Triple) ([]string, error) {
	return encodeTripleAt(fixedwidth.NewLine(), tripleFields, t)
}

func encodeTripleAt(l *fixedwidth.Line, fields [3]fixedwidth.Field, t Triple) ([]string, error) {
	for i, f := range fields {
		if err := l.PutFloat(f, t[i], 4); err != nil {
			return nil, err
		}
	}
	return []string{l.String()}, nil
}

func encodeFloat(f fixedwidth.Field, v float64, decimals int) ([]string, error) {
	l := fixedwidth.NewLine()
	if err := l.PutFloat(f, v, decimals); err != nil {
		return nil, err
	}
	return []string{l.String()}, nil
}

func encodeInt(f fixedwidth.Field, v int) ([]string, error) {
	l := fixedwidth.NewLine()
	if err := l.PutInt(f, v); err != nil {
		return nil, err
	}
	return []string{l.String()}, nil
}

func encodePhaseCenters(h *Header) ([]string, error) {
	bodies := make([]string, 0, len(h.AntennaPhaseCenters))
	for _, pc := range h.AntennaPhaseCenters {
		l := fixedwidth.NewLine()
		l.PutText(phaseSystem, pc.System.Letter())
		l.PutText(phaseCode, string(pc.Code))
		body, err := encodeTripleAt(l, phaseOffsets, pc.Offset)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, body...)
	}
	return bodies, nil
}

func encodeObsTypes(h *Header) ([]string, error) {
	table := h.ObservationTypes
	bodies := make([]string, 0)
	for _, sys := range table.Systems() {
		codes := table.Codes(sys)
		l := fixedwidth.NewLine()
		l.PutText(phaseSystem, sys.Letter())
		if err := l.PutInt(obsCount, len(codes)); err != nil {
			return nil, err
		}
		for i, code := range codes {
			if i > 0 && i%codesPerObsTypesLine == 0 {
				bodies = append(bodies, l.String())
				l = fixedwidth.NewLine()
				l.PutBlank(fixedwidth.Field{Start: 0, Width: obsTypesCodeStart - 1})
			}
			f := fixedwidth.Field{Start: obsTypesCodeStart + 4*(i%codesPerObsTypesLine), Width: 3}
			l.PutText(f, string(code))
		}
		bodies = append(bodies, l.String())
	}
	return bodies, nil
}

func encodeCorrections(corrections []Correction) []string {
	bodies := make([]string, 0, len(corrections))
	for _, c := range corrections {
		bodies = append(bodies, texts(phaseSystem, c.System.Letter(), corrProgram, c.Program,
			corrSource, c.Source)[0])
	}
	return bodies
}

func encodeScaleFactors(h *Header) ([]string, error) {
	bodies := make([]string, 0, len(h.ScaleFactors))
	for _, sf := range h.ScaleFactors {
		l := fixedwidth.NewLine()
		l.PutText(phaseSystem, sf.System.Letter())
		if err := l.PutInt(scaleFactor, sf.Factor); err != nil {
			return nil, err
		}
		if len(sf.Codes) > 0 {
			if err := l.PutInt(scaleCount, len(sf.Codes)); err != nil {
				return nil, err
			}
		}
		for i, code := range sf.Codes {
			if i > 0 && i%codesPerScaleFactorLine == 0 {
				bodies = append(bodies, l.String())
				l = fixedwidth.NewLine()
				l.PutBlank(fixedwidth.Field{Start: 0, Width: scaleFactorCodeStart - 1})
			}
			f := fixedwidth.Field{Start: scaleFactorCodeStart + 4*(i%codesPerScaleFactorLine), Width: 3}
			l.PutText(f, string(code))
		}
		bodies = append(bodies, l.String())
	}
	return bodies, nil
}

func encodePhaseShifts(h *Header) ([]string, error) {
	bodies := make([]string, 0, len(h.PhaseShifts))
	for _, ps := range h.PhaseShifts {
		l := fixedwidth.NewLine()
		l.PutText(phaseSystem, ps.System.Letter())
		l.PutText(shiftCode, string(ps.Code))
		if ps.HasCorrection {
			if err := l.PutFloat(shiftCorrection, ps.Correction, 5); err != nil {
				return nil, err
			}
		}
		if len(ps.Satellites) > 0 {
			if err := l.PutZeroPadded(shiftCount, len(ps.Satellites)); err != nil {
				return nil, err
			}
		}
		for i, id := range ps.Satellites {
			if i > 0 && i%satsPerPhaseShiftLine == 0 {
				bodies = append(bodies, l.String())
				l = fixedwidth.NewLine()
				l.PutBlank(fixedwidth.Field{Start: 0, Width: phaseShiftSatStart - 1})
			}
			f := fixedwidth.Field{Start: phaseShiftSatStart + 4*(i%satsPerPhaseShiftLine), Width: 3}
			l.PutText(f, id.String())
		}
		bodies = append(bodies, l.String())
	}
	return bodies, nil
}

func encodeGlonassSlots(h *Header) ([]string, error) {
	bodies := make([]string, 0)
	l := fixedwidth.NewLine()
	if err := l.PutInt(slotCount, len(h.GlonassSlots)); err != nil {
		return nil, err
	}
	for i, slot := range h.GlonassSlots {
		if i > 0 && i%slotsPerLine == 0 {
			bodies = append(bodies, l.String())
			l = fixedwidth.NewLine()
			l.PutBlank(fixedwidth.Field{Start: 0, Width: slotStart})
		}
		satField := fixedwidth.Field{Start: slotStart + slotWidth*(i%slotsPerLine), Width: 3}
		l.PutText(satField, slot.Satellite.String())
		if err := l.PutInt(satField.Next(1).Next(2), slot.Frequency); err != nil {
			return nil, err
		}
	}
	bodies = append(bodies, l.String())
	return bodies, nil
}

func encodeGlonassBiases(h *Header) ([]string, error) {
	if len(h.GlonassBiases) > biasesPerLine {
		return nil, fmt.Errorf("%d GLONASS biases, at most %d allowed", len(h.GlonassBiases), biasesPerLine)
	}
	l := fixedwidth.NewLine()
	for i, b := range h.GlonassBiases {
		codeField := fixedwidth.Field{Start: 1 + biasWidth*i, Width: 3}
		l.PutText(codeField, string(b.Code))
		biasField := codeField.Next(1).Next(8)
		if b.HasBias {
			if err := l.PutFloat(biasField, b.Bias, 3); err != nil {
				return nil, err
			}
		} else {
			l.PutBlank(biasField)
		}
	}
	return []string{l.String()}, nil
}

func encodeLeapSeconds(h *Header) ([]string, error) {
	ls := h.LeapSeconds
	l := fixedwidth.NewLine()
	if err := l.PutInt(leapFields[0], ls.Current); err != nil {
		return nil, err
	}
	if ls.Extended {
		for i, v := range []int{ls.Future, ls.Week, ls.Day} {
			if err := l.PutInt(leapFields[i+1], v); err != nil {
				return nil, err
			}
		}
	}
	if ls.System != gnsstime.Unknown {
		l.PutText(leapSystem, ls.System.String())
	}
	return []string{l.String()}, nil
}

func encodePrnObs(h *Header) ([]string, error) {
	bodies := make([]string, 0, len(h.SatelliteCounts))
	for _, sc := range h.SatelliteCounts {
		l := fixedwidth.NewLine()
		l.PutText(prnField, sc.Satellite.String())
		for i, n := range sc.Counts {
			if i > 0 && i%countsPerPrnObsLine == 0 {
				bodies = append(bodies, l.String())
				l = fixedwidth.NewLine()
				l.PutBlank(fixedwidth.Field{Start: 0, Width: prnObsCountStart})
			}
			f := fixedwidth.Field{Start: prnObsCountStart + 6*(i%countsPerPrnObsLine), Width: 6}
			if n < 0 {
				l.PutBlank(f)
				continue
			}
			if err := l.PutInt(f, n); err != nil {
				return nil, err
			}
		}
		bodies = append(bodies, l.String())
	}
	return bodies, nil
}
