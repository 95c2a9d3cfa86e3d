package header

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-rinex/rinex/codecerror"
	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/obstype"
	"github.com/goblimey/go-rinex/rinex/satellite"
)

// galileoHeader uses most of the less common header lines, including
// continuation lines for scale factors, phase shifts and PRN / # OF OBS.
const galileoHeader = `     3.04           OBSERVATION DATA    E: Galileo          RINEX VERSION / TYPE
gfzrnx-2.0          GFZ                 20230101 000000 UTC PGM / RUN BY / DATE
10.5880/GFZ.1.1.2023.001                                    DOI
CC BY 4.0                                                   LICENSE OF USE
https://example.org/stations/WTZR                           STATION INFORMATION
WTZR                                                        MARKER NAME
Automatic           BKG Frankfurt                           OBSERVER / AGENCY
3001376             SEPT POLARX5        5.3.2               REC # / TYPE / VERS
5000125             LEIAR25.R3      LEIT                    ANT # / TYPE
        0.0710        0.0000        0.0000                  ANTENNA: DELTA H/E/N
        0.0000        0.0000        0.0000                  ANTENNA: DELTA X/Y/Z
E L1C   0.0012       -0.0005        0.1546                  ANTENNA: PHASECENTER
        0.0000        0.0000        1.0000                  ANTENNA: B.SIGHT XYZ
       12.5000                                              ANTENNA: ZERODIR AZI
        1.0000        0.0000        0.0000                  ANTENNA: ZERODIR XYZ
        0.0000        0.0000        0.0000                  CENTER OF MASS: XYZ
E   16 C1C L1C D1C S1C C5Q L5Q D5Q S5Q C7Q L7Q D7Q S7Q C8Q  SYS / # / OBS TYPES
       L8Q D8Q S8Q                                          SYS / # / OBS TYPES
DBHZ                                                        SIGNAL STRENGTH UNIT
     1.000                                                  INTERVAL
  2023     1     1     0     0    0.0000000     GAL         TIME OF FIRST OBS
     0                                                      RCV CLOCK OFFS APPL
E CC2NONCC          http://example.org/dcb                  SYS / DCBS APPLIED
E PAGES             igs20.atx                               SYS / PCVS APPLIED
E   10  14 C1C L1C D1C S1C C5Q L5Q D5Q S5Q C7Q L7Q D7Q S7Q  SYS / SCALE FACTOR
           C8Q L8Q                                          SYS / SCALE FACTOR
E L1C  0.00000  11 E01 E02 E03 E04 E05 E07 E08 E09 E11 E12  SYS / PHASE SHIFT
                   E13                                      SYS / PHASE SHIFT
E L5Q                                                       SYS / PHASE SHIFT
    18    18  2185     7GPS                                 LEAP SECONDS
     2                                                      # OF SATELLITES
   E01  3600  3600  3600  3600  3600  3598  3600  3600  3600PRN / # OF OBS
        3600  3600  3600  3600  3600  3600  3600            PRN / # OF OBS
   E02  1800        1799                                    PRN / # OF OBS
                                                            END OF HEADER`

// headerLine builds a header line from its data part and label.
func headerLine(body, label string) string {
	return fmt.Sprintf("%-60s%s", body, label)
}

// decodeLines decodes header lines, stopping at the first error.
func decodeLines(lines []string, strict bool) (*Decoder, error) {
	d := NewDecoder(strict)
	for i, line := range lines {
		if err := d.Decode(line, i+1); err != nil {
			return d, err
		}
		if d.Done() {
			break
		}
	}
	return d, nil
}

// readSampleHeader reads the header lines from the sample file.
func readSampleHeader(t *testing.T) []string {
	file, err := os.Open("../testdata/arlm200a.15o")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lines := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if strings.HasSuffix(scanner.Text(), LabelEndOfHeader) {
			break
		}
	}
	return lines
}

// TestDecodeSampleHeader checks that the header of the sample file is
// decoded correctly.
func TestDecodeSampleHeader(t *testing.T) {
	lines := readSampleHeader(t)

	d, err := decodeLines(lines, true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Done() {
		t.Fatal("END OF HEADER not seen")
	}
	if err := d.Finish(Required); err != nil {
		t.Fatal(err)
	}

	h := d.Header

	if h.Version != 3.02 {
		t.Errorf("want version 3.02 got %f", h.Version)
	}
	if h.System != satellite.Mixed {
		t.Errorf("want Mixed got %s", h.System)
	}
	if h.Program != "teqc  2013Mar15" || h.RunBy != "BKG" || h.Date != "20150720 01:03:27UTC" {
		t.Errorf("PGM / RUN BY / DATE - got %q %q %q", h.Program, h.RunBy, h.Date)
	}
	wantComments := []string{
		"Hourly file converted from the receiver's native format",
		"  Antenna height refers to the antenna reference point",
	}
	if d := cmp.Diff(wantComments, h.Comments); d != "" {
		t.Error(d)
	}
	if h.MarkerName != "ARLM" {
		t.Errorf("want ARLM got %s", h.MarkerName)
	}
	if h.AntennaType != "TRM57971.00     NONE" {
		t.Errorf("want TRM57971.00     NONE got %s", h.AntennaType)
	}
	wantPosition := Triple{4075580.3110, 931853.8980, 4801567.9570}
	if h.ApproxPosition != wantPosition {
		t.Errorf("want %v got %v", wantPosition, h.ApproxPosition)
	}

	if h.ObservationTypes.Len(satellite.GPS) != 14 {
		t.Errorf("want 14 GPS types got %d", h.ObservationTypes.Len(satellite.GPS))
	}
	if h.ObservationTypes.Codes(satellite.GPS)[13] != "S2X" {
		t.Errorf("want S2X from the continuation line got %s", h.ObservationTypes.Codes(satellite.GPS)[13])
	}
	if h.ObservationTypes.Len(satellite.GLONASS) != 8 {
		t.Errorf("want 8 GLONASS types got %d", h.ObservationTypes.Len(satellite.GLONASS))
	}

	if h.Interval != 30 {
		t.Errorf("want interval 30 got %f", h.Interval)
	}

	wantFirst := gnsstime.New(2015, time.July, 19, 0, 0, 0, gnsstime.GPS)
	if !h.FirstObs.Equal(wantFirst) {
		t.Errorf("want %s got %s", wantFirst, h.FirstObs)
	}
	wantLast := gnsstime.New(2015, time.July, 19, 0, 59, 30, gnsstime.GPS)
	if !h.LastObs.Equal(wantLast) {
		t.Errorf("want %s got %s", wantLast, h.LastObs)
	}
	if h.TimeSystem() != gnsstime.GPS {
		t.Errorf("want GPS got %s", h.TimeSystem())
	}

	wantSlots := []GlonassSlot{
		{satellite.NewID(satellite.GLONASS, 1), 1},
		{satellite.NewID(satellite.GLONASS, 2), -4},
		{satellite.NewID(satellite.GLONASS, 8), 6},
		{satellite.NewID(satellite.GLONASS, 11), 0},
	}
	if d := cmp.Diff(wantSlots, h.GlonassSlots); d != "" {
		t.Error(d)
	}

	if len(h.GlonassBiases) != 4 || h.GlonassBiases[3].Code != "C2P" || h.GlonassBiases[3].Bias != -71.94 {
		t.Errorf("GLONASS biases - got %v", h.GlonassBiases)
	}

	if h.LeapSeconds.Current != 17 || h.LeapSeconds.Extended {
		t.Errorf("want 17 seconds, not extended - got %v", h.LeapSeconds)
	}

	if h.Valid.Contains(HasPrnObs) {
		t.Error("want no PRN / # OF OBS")
	}
}

// TestEncodeSampleHeader checks that decoding then encoding the sample
// header reproduces it exactly.
func TestEncodeSampleHeader(t *testing.T) {
	lines := readSampleHeader(t)

	d, err := decodeLines(lines, true)
	if err != nil {
		t.Fatal(err)
	}

	got, err := d.Header.Encode()
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join(lines, "\n")
	if strings.Join(got, "\n") != want {
		t.Error(diff.Diff(want, strings.Join(got, "\n")))
	}

	n, err := d.Header.LineCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != len(lines) {
		t.Errorf("want %d lines got %d", len(lines), n)
	}
}

// TestGalileoHeader checks the less common header lines in both directions.
func TestGalileoHeader(t *testing.T) {
	lines := strings.Split(galileoHeader, "\n")

	d, err := decodeLines(lines, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Finish(Required); err != nil {
		t.Fatal(err)
	}
	h := d.Header

	if h.System != satellite.Galileo {
		t.Errorf("want Galileo got %s", h.System)
	}
	if h.DOI != "10.5880/GFZ.1.1.2023.001" {
		t.Errorf("DOI - got %s", h.DOI)
	}
	if len(h.License) != 1 || len(h.StationInformation) != 1 {
		t.Errorf("want 1 license and 1 station information line, got %d and %d",
			len(h.License), len(h.StationInformation))
	}

	wantPC := []PhaseCenter{{satellite.Galileo, "L1C", Triple{0.0012, -0.0005, 0.1546}}}
	if d := cmp.Diff(wantPC, h.AntennaPhaseCenters); d != "" {
		t.Error(d)
	}
	if h.AntennaZeroDirAzimuth != 12.5 {
		t.Errorf("want 12.5 got %f", h.AntennaZeroDirAzimuth)
	}

	if h.ObservationTypes.Len(satellite.Galileo) != 16 {
		t.Errorf("want 16 codes got %d", h.ObservationTypes.Len(satellite.Galileo))
	}

	wantDCBs := []Correction{{satellite.Galileo, "CC2NONCC", "http://example.org/dcb"}}
	if d := cmp.Diff(wantDCBs, h.DCBs); d != "" {
		t.Error(d)
	}

	if len(h.ScaleFactors) != 1 {
		t.Fatalf("want 1 scale factor got %d", len(h.ScaleFactors))
	}
	sf := h.ScaleFactors[0]
	if sf.Factor != 10 || len(sf.Codes) != 14 || sf.Codes[13] != "L8Q" {
		t.Errorf("scale factor - got %v", sf)
	}

	if len(h.PhaseShifts) != 2 {
		t.Fatalf("want 2 phase shifts got %d", len(h.PhaseShifts))
	}
	ps := h.PhaseShifts[0]
	if ps.Code != "L1C" || !ps.HasCorrection || len(ps.Satellites) != 11 || ps.Satellites[10].String() != "E13" {
		t.Errorf("phase shift - got %v", ps)
	}
	if h.PhaseShifts[1].HasCorrection || len(h.PhaseShifts[1].Satellites) != 0 {
		t.Errorf("want no correction and no satellites - got %v", h.PhaseShifts[1])
	}

	wantLeap := LeapSeconds{Current: 18, Extended: true, Future: 18, Week: 2185, Day: 7, System: gnsstime.GPS}
	if h.LeapSeconds != wantLeap {
		t.Errorf("want %v got %v", wantLeap, h.LeapSeconds)
	}

	if len(h.SatelliteCounts) != 2 {
		t.Fatalf("want 2 PRN / # OF OBS entries got %d", len(h.SatelliteCounts))
	}
	e01 := h.SatelliteCounts[0].Counts
	if e01[5] != 3598 || e01[15] != 3600 {
		t.Errorf("E01 counts - got %v", e01)
	}
	e02 := h.SatelliteCounts[1].Counts
	if e02[0] != 1800 || e02[1] != -1 || e02[2] != 1799 {
		t.Errorf("E02 counts - got %v", e02)
	}

	got, err := h.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "\n") != galileoHeader {
		t.Error(diff.Diff(galileoHeader, strings.Join(got, "\n")))
	}
}

// TestObsTypesCountMismatch checks that an observation type list shorter
// than declared is an error in strict mode and a problem in lenient mode.
func TestObsTypesCountMismatch(t *testing.T) {
	lines := []string{
		headerLine("     3.03           OBSERVATION DATA    G: GPS", LabelVersion),
		headerLine("G   14 C1C L1C D1C S1C C1W L1W S1W C2W L2W D2W S2W C2X L2X", LabelObsTypes),
		headerLine("    30.000", LabelInterval),
	}

	_, err := decodeLines(lines, true)
	if !errors.Is(err, codecerror.ObservationCountMismatch) {
		t.Errorf("want a count mismatch, got %v", err)
	}
	var codecErr *codecerror.Error
	if errors.As(err, &codecErr) && codecErr.Line != 2 {
		t.Errorf("want the error on line 2 got line %d", codecErr.Line)
	}

	d, err := decodeLines(lines, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Problems) != 1 || !errors.Is(d.Problems[0], codecerror.ObservationCountMismatch) {
		t.Errorf("want one count mismatch problem, got %v", d.Problems)
	}
	// The codes that were found are kept.
	if d.Header.ObservationTypes.Len(satellite.GPS) != 13 {
		t.Errorf("want 13 codes got %d", d.Header.ObservationTypes.Len(satellite.GPS))
	}
	if !d.Header.Valid.Contains(HasInterval) {
		t.Error("want the interval line to be used")
	}
}

// TestDecodeErrors checks that bad lines are rejected with the right kind
// of error and leave the header unchanged.
func TestDecodeErrors(t *testing.T) {
	var testData = []struct {
		Description string
		Line        string
		WantKind    codecerror.Kind
	}{
		{"unknown label", headerLine("junk", "NOT A LABEL"), codecerror.MalformedHeaderField},
		{"no label", "short line", codecerror.MalformedHeaderField},
		{"bad interval", headerLine("    thirty", LabelInterval), codecerror.MalformedHeaderField},
		{"RINEX 2",
			headerLine("     2.11           OBSERVATION DATA    M (MIXED)", LabelVersion),
			codecerror.MalformedHeaderField},
		{"navigation file",
			headerLine("     3.03           N: GNSS NAV DATA    M: Mixed", LabelVersion),
			codecerror.MalformedHeaderField},
		{"bad system", headerLine("X    2 C1C L1C", LabelObsTypes), codecerror.MalformedHeaderField},
		{"bad code", headerLine("G    2 C1C Q1C", LabelObsTypes), codecerror.MalformedHeaderField},
		{"orphan continuation",
			headerLine("       L8Q D8Q S8Q", LabelObsTypes),
			codecerror.MalformedHeaderField},
		{"bad time",
			headerLine("  2015    13    19     0     0    0.0000000     GPS", LabelFirstObs),
			codecerror.MalformedHeaderField},
	}

	for _, td := range testData {
		d := NewDecoder(false)
		err := d.Decode(td.Line, 7)
		if !errors.Is(err, td.WantKind) {
			t.Errorf("%s: want %v got %v", td.Description, td.WantKind, err)
			continue
		}
		if codecerror.KindOf(err) != td.WantKind {
			t.Errorf("%s: want kind %v got %v", td.Description, td.WantKind, codecerror.KindOf(err))
		}
		if d.Header.Valid != 0 {
			t.Errorf("%s: want no valid fields got %s", td.Description, d.Header.Valid)
		}
	}
}

// TestFinishMissingFields checks the required field check.
func TestFinishMissingFields(t *testing.T) {
	lines := []string{
		headerLine("     3.03           OBSERVATION DATA    G: GPS", LabelVersion),
		headerLine("G    2 C1C L1C", LabelObsTypes),
		headerLine("", LabelEndOfHeader),
	}

	d, err := decodeLines(lines, true)
	if err != nil {
		t.Fatal(err)
	}
	err = d.Finish(Required)
	if !errors.Is(err, codecerror.MissingHeaderField) {
		t.Fatalf("want missing header field, got %v", err)
	}
	if !strings.Contains(err.Error(), LabelMarkerName) {
		t.Errorf("want the message to name %s, got %s", LabelMarkerName, err.Error())
	}

	lenient, err := decodeLines(lines, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := lenient.Finish(Required); err != nil {
		t.Fatal(err)
	}
	if len(lenient.Problems) != 1 {
		t.Errorf("want 1 problem got %d", len(lenient.Problems))
	}

	// A GPS file with no TIME OF FIRST OBS is in GPS time.
	if lenient.Header.TimeSystem() != gnsstime.GPS {
		t.Errorf("want GPS got %s", lenient.Header.TimeSystem())
	}
}

// TestEncodeBuiltHeader checks that a header built in code is written with
// only the lines marked valid, in the standard order.
func TestEncodeBuiltHeader(t *testing.T) {
	const want = `     3.03           OBSERVATION DATA    R: GLONASS          RINEX VERSION / TYPE
a comment that is much too long to fit in the sixty columns COMMENT
XXXX                                                        MARKER NAME
R    2 C1C L1C                                              SYS / # / OBS TYPES
                                                            END OF HEADER`

	h := New(3.03, satellite.GLONASS)
	h.ObservationTypes.Set(satellite.GLONASS, []obstype.Code{"C1C", "L1C"})
	h.MarkerName = "XXXX"
	h.Comments = []string{"a comment that is much too long to fit in the sixty columns available"}
	h.Interval = 30 // Not marked valid, so not written.
	h.Set(HasObsTypes | HasMarkerName | HasComment)

	got, err := h.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "\n") != want {
		t.Error(diff.Diff(want, strings.Join(got, "\n")))
	}
}

// TestEncodeOverflow checks that a value too wide for its field is an
// error rather than a corrupted line.
func TestEncodeOverflow(t *testing.T) {
	h := New(3.03, satellite.GPS)
	h.ApproxPosition = Triple{1e12, 0, 0}
	h.Set(HasApproxPosition)

	_, err := h.Encode()
	if !errors.Is(err, codecerror.NumericFieldOverflow) {
		t.Errorf("want overflow got %v", err)
	}

	h = New(3.03, satellite.System('Z'))
	_, err = h.Encode()
	if !errors.Is(err, codecerror.InconsistentWriterInput) {
		t.Errorf("want inconsistent input got %v", err)
	}
}

func TestFieldSet(t *testing.T) {
	s := HasInterval | HasVersion
	if s.String() != "RINEX VERSION / TYPE, INTERVAL" {
		t.Errorf("got %s", s.String())
	}
	if !s.Contains(HasVersion) || s.Contains(HasVersion|HasComment) {
		t.Error("Contains gave the wrong answer")
	}
}

func TestDump(t *testing.T) {
	d, err := decodeLines(readSampleHeader(t), true)
	if err != nil {
		t.Fatal(err)
	}
	text := d.Header.String()
	for _, want := range []string{
		"RINEX 3.02 observation file, system Mixed, time system GPS",
		"marker ARLM, number 10342M001, type GEODETIC",
		"GPS: 14 observation types",
		"    C1C L1 C/A pseudorange",
		"first observation 2015-07-19 00:00:00.0000000 GPS",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("want %q in\n%s", want, text)
		}
	}
}
