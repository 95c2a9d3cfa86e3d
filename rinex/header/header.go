// The header package handles the header of a RINEX 3 observation file.
//
// The header is a block of 80-column lines.  Columns 1-60 of each line hold
// data and columns 61-80 hold a label saying what the data is.  The block
// ends with a line labelled "END OF HEADER".  For example:
//
//	     3.03           OBSERVATION DATA    M: Mixed            RINEX VERSION / TYPE
//	teqc  2013Mar15     BKG                 20150720 01:03:27UTCPGM / RUN BY / DATE
//	ARLM                                                        MARKER NAME
//	...
//	G   14 C1C L1C D1C S1C C1W L1W D1W S1W C2W L2W D2W S2W C2X  SYS / # / OBS TYPES
//	       L2X                                                  SYS / # / OBS TYPES
//	...
//	                                                            END OF HEADER
//
// Most lines are optional.  The Header's Valid field records which ones
// were present in the input (or, when a header is built in code, which
// ones should be written).
package header

import (
	"strings"

	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/obstype"
	"github.com/goblimey/go-rinex/rinex/satellite"
)

// The header line labels.
const (
	LabelVersion               = "RINEX VERSION / TYPE"
	LabelRunBy                 = "PGM / RUN BY / DATE"
	LabelComment               = "COMMENT"
	LabelDOI                   = "DOI"
	LabelLicense               = "LICENSE OF USE"
	LabelStationInformation    = "STATION INFORMATION"
	LabelMarkerName            = "MARKER NAME"
	LabelMarkerNumber          = "MARKER NUMBER"
	LabelMarkerType            = "MARKER TYPE"
	LabelObserver              = "OBSERVER / AGENCY"
	LabelReceiver              = "REC # / TYPE / VERS"
	LabelAntennaType           = "ANT # / TYPE"
	LabelApproxPosition        = "APPROX POSITION XYZ"
	LabelAntennaDeltaHEN       = "ANTENNA: DELTA H/E/N"
	LabelAntennaDeltaXYZ       = "ANTENNA: DELTA X/Y/Z"
	LabelAntennaPhaseCenter    = "ANTENNA: PHASECENTER"
	LabelAntennaBoresight      = "ANTENNA: B.SIGHT XYZ"
	LabelAntennaZeroDirAzimuth = "ANTENNA: ZERODIR AZI"
	LabelAntennaZeroDirXYZ     = "ANTENNA: ZERODIR XYZ"
	LabelCenterOfMass          = "CENTER OF MASS: XYZ"
	LabelObsTypes              = "SYS / # / OBS TYPES"
	LabelSignalStrengthUnit    = "SIGNAL STRENGTH UNIT"
	LabelInterval              = "INTERVAL"
	LabelFirstObs              = "TIME OF FIRST OBS"
	LabelLastObs               = "TIME OF LAST OBS"
	LabelReceiverClockOffset   = "RCV CLOCK OFFS APPL"
	LabelDCBs                  = "SYS / DCBS APPLIED"
	LabelPCVs                  = "SYS / PCVS APPLIED"
	LabelScaleFactor           = "SYS / SCALE FACTOR"
	LabelPhaseShift            = "SYS / PHASE SHIFT"
	LabelGlonassSlots          = "GLONASS SLOT / FRQ #"
	LabelGlonassBiases         = "GLONASS COD/PHS/BIS"
	LabelLeapSeconds           = "LEAP SECONDS"
	LabelNumSatellites         = "# OF SATELLITES"
	LabelPrnObs                = "PRN / # OF OBS"
	LabelEndOfHeader           = "END OF HEADER"
)

// BodyWidth is the width of the data part of a header line.  The label
// starts in the next column.
const BodyWidth = 60

// FieldSet is a set of header line types, one bit per label.
type FieldSet uint64

// The header line types.
const (
	HasVersion FieldSet = 1 << iota
	HasRunBy
	HasComment
	HasDOI
	HasLicense
	HasStationInformation
	HasMarkerName
	HasMarkerNumber
	HasMarkerType
	HasObserver
	HasReceiver
	HasAntennaType
	HasApproxPosition
	HasAntennaDeltaHEN
	HasAntennaDeltaXYZ
	HasAntennaPhaseCenter
	HasAntennaBoresight
	HasAntennaZeroDirAzimuth
	HasAntennaZeroDirXYZ
	HasCenterOfMass
	HasObsTypes
	HasSignalStrengthUnit
	HasInterval
	HasFirstObs
	HasLastObs
	HasReceiverClockOffset
	HasDCBs
	HasPCVs
	HasScaleFactor
	HasPhaseShift
	HasGlonassSlots
	HasGlonassBiases
	HasLeapSeconds
	HasNumSatellites
	HasPrnObs
	HasEndOfHeader
)

// Required is the set of lines that a strict read insists on.
const Required = HasVersion | HasRunBy | HasMarkerName | HasObserver |
	HasReceiver | HasAntennaType | HasAntennaDeltaHEN | HasObsTypes |
	HasFirstObs | HasEndOfHeader

// Contains is true if every member of other is in the set.
func (s FieldSet) Contains(other FieldSet) bool {
	return s&other == other
}

// Labels returns the labels of the members of the set, in the order that
// they are written.
func (s FieldSet) Labels() []string {
	labels := make([]string, 0)
	for _, spec := range lineSpecs {
		if s.Contains(spec.field) {
			labels = append(labels, spec.label)
		}
	}
	return labels
}

// String returns the labels of the members, separated by commas.
func (s FieldSet) String() string {
	return strings.Join(s.Labels(), ", ")
}

// Triple is a set of three coordinates: X, Y, Z or height, east, north.
type Triple [3]float64

// PhaseCenter is an antenna phase center offset for one observation code.
type PhaseCenter struct {
	System satellite.System
	Code   obstype.Code
	Offset Triple // North/East/Up or X/Y/Z, metres.
}

// Correction says which corrections (differential code biases or phase
// center variations) have been applied to the data.
type Correction struct {
	System  satellite.System
	Program string // The program used to apply the corrections.
	Source  string // Where the corrections came from (a URL).
}

// ScaleFactor says that the observations of the given codes were
// multiplied by Factor before being written.  An empty code list means
// all codes of the system.
type ScaleFactor struct {
	System satellite.System
	Factor int
	Codes  []obstype.Code
}

// PhaseShift is a phase shift correction applied to the carrier phase
// observations of one code.  An empty satellite list means all satellites.
type PhaseShift struct {
	System        satellite.System
	Code          obstype.Code
	Correction    float64 // cycles.
	HasCorrection bool
	Satellites    []satellite.ID
}

// GlonassSlot maps a GLONASS satellite to its frequency number.
type GlonassSlot struct {
	Satellite satellite.ID
	Frequency int
}

// GlonassBias is a GLONASS code-phase bias correction.
type GlonassBias struct {
	Code    obstype.Code
	Bias    float64 // metres.
	HasBias bool
}

// LeapSeconds holds the LEAP SECONDS line.  The future leap seconds, week
// and day are only present in the extended form of the line.
type LeapSeconds struct {
	Current  int
	Extended bool
	Future   int
	Week     int
	Day      int
	System   gnsstime.TimeSystem
}

// SatelliteCounts gives the number of observations of each code for one
// satellite, in PRN / # OF OBS.  A count of -1 means that the field was
// blank.
type SatelliteCounts struct {
	Satellite satellite.ID
	Counts    []int
}

// Header holds the header of a RINEX 3 observation file.
type Header struct {

	// Version is the RINEX format version, for example 3.03.
	Version float64

	// System is the satellite system of the file: GPS, GLONASS ... or Mixed.
	System satellite.System

	// Program is the name of the program that created the file, RunBy is
	// the agency that ran it and Date is the date of the run, as text.
	Program string
	RunBy   string
	Date    string

	// Comments holds the text of the COMMENT lines in order.
	Comments []string

	// DOI is the digital object identifier of the data set.
	DOI string

	// License holds the LICENSE OF USE lines.
	License []string

	// StationInformation holds the STATION INFORMATION lines.
	StationInformation []string

	MarkerName   string
	MarkerNumber string
	MarkerType   string

	Observer string
	Agency   string

	ReceiverNumber  string
	ReceiverType    string
	ReceiverVersion string

	AntennaNumber string
	AntennaType   string

	// ApproxPosition is the approximate position of the marker, ECEF metres.
	ApproxPosition Triple

	// AntennaDeltaHEN is the height of the antenna reference point above
	// the marker and its east and north eccentricities, metres.
	AntennaDeltaHEN Triple

	// AntennaDeltaXYZ is the position of the antenna reference point in a
	// body-fixed system, metres.
	AntennaDeltaXYZ Triple

	AntennaPhaseCenters []PhaseCenter

	AntennaBoresight      Triple
	AntennaZeroDirAzimuth float64 // degrees.
	AntennaZeroDirXYZ     Triple
	CenterOfMass          Triple

	// ObservationTypes gives the observation codes for each satellite
	// system.  It defines the layout of the satellite lines in the data.
	ObservationTypes obstype.Table

	SignalStrengthUnit string

	// Interval is the observation interval in seconds.
	Interval float64

	FirstObs gnsstime.Epoch
	LastObs  gnsstime.Epoch

	// ReceiverClockOffsetApplied is 1 if the receiver clock offset has been
	// applied to the epochs, codes and phases, 0 if not.
	ReceiverClockOffsetApplied int

	DCBs []Correction
	PCVs []Correction

	ScaleFactors  []ScaleFactor
	PhaseShifts   []PhaseShift
	GlonassSlots  []GlonassSlot
	GlonassBiases []GlonassBias

	LeapSeconds LeapSeconds

	// NumSatellites is the number of satellites for which there are
	// observations in the file.
	NumSatellites int

	// SatelliteCounts holds the PRN / # OF OBS lines.
	SatelliteCounts []SatelliteCounts

	// Valid is the set of header lines that are present.
	Valid FieldSet
}

// New creates a header with the given version and system and with the
// version line marked as valid.
func New(version float64, system satellite.System) *Header {
	return &Header{Version: version, System: system, Valid: HasVersion}
}

// Set marks the given lines as present.
func (h *Header) Set(fields FieldSet) {
	h.Valid |= fields
}

// Missing returns the members of the required set that are not present.
func (h *Header) Missing(required FieldSet) FieldSet {
	return required &^ h.Valid
}

// TimeSystem returns the time system of the file's epochs.  That's the one
// given in TIME OF FIRST OBS if there is one, otherwise the default for the
// file's satellite system.
func (h *Header) TimeSystem() gnsstime.TimeSystem {
	if h.Valid.Contains(HasFirstObs) && h.FirstObs.System() != gnsstime.Unknown {
		return h.FirstObs.System()
	}
	return h.System.DefaultTimeSystem()
}

// LineCount returns the number of lines that the header will produce when
// it's written, including END OF HEADER.
func (h *Header) LineCount() (int, error) {
	lines, err := h.Encode()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// SplitLine splits a header line into its data part and its label.  The
// data part is padded to BodyWidth if the line is short.
func SplitLine(line string) (body, label string) {
	if len(line) <= BodyWidth {
		return line + strings.Repeat(" ", BodyWidth-len(line)), ""
	}
	return line[:BodyWidth], strings.TrimSpace(line[BodyWidth:])
}
