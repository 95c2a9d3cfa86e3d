package header

import (
	"fmt"
	"io"
	"strings"
)

// String returns a readable version of the header, for example:
//
//	RINEX 3.03 observation file, system Mixed, time system GPS
//	program teqc  2013Mar15, run by BKG, date 20150720 01:03:27UTC
//	marker ARLM, number 13434M001, type GEODETIC
//	...
func (h *Header) String() string {
	var sb strings.Builder
	h.Dump(&sb)
	return sb.String()
}

// Dump writes a readable version of the header.
func (h *Header) Dump(w io.Writer) {
	fmt.Fprintf(w, "RINEX %.2f observation file, system %s, time system %s\n",
		h.Version, h.System, h.TimeSystem())

	if h.Valid.Contains(HasRunBy) {
		fmt.Fprintf(w, "program %s, run by %s, date %s\n", h.Program, h.RunBy, h.Date)
	}
	for _, c := range h.Comments {
		fmt.Fprintf(w, "comment: %s\n", strings.TrimSpace(c))
	}
	if h.Valid.Contains(HasMarkerName) {
		fmt.Fprintf(w, "marker %s", h.MarkerName)
		if h.Valid.Contains(HasMarkerNumber) {
			fmt.Fprintf(w, ", number %s", h.MarkerNumber)
		}
		if h.Valid.Contains(HasMarkerType) {
			fmt.Fprintf(w, ", type %s", h.MarkerType)
		}
		fmt.Fprintln(w)
	}
	if h.Valid.Contains(HasObserver) {
		fmt.Fprintf(w, "observer %s, agency %s\n", h.Observer, h.Agency)
	}
	if h.Valid.Contains(HasReceiver) {
		fmt.Fprintf(w, "receiver %s, number %s, version %s\n",
			h.ReceiverType, h.ReceiverNumber, h.ReceiverVersion)
	}
	if h.Valid.Contains(HasAntennaType) {
		fmt.Fprintf(w, "antenna %s, number %s\n", h.AntennaType, h.AntennaNumber)
	}
	if h.Valid.Contains(HasApproxPosition) {
		p := h.ApproxPosition
		fmt.Fprintf(w, "approximate position %.4f %.4f %.4f\n", p[0], p[1], p[2])
	}
	if h.Valid.Contains(HasAntennaDeltaHEN) {
		d := h.AntennaDeltaHEN
		fmt.Fprintf(w, "antenna height %.4f east %.4f north %.4f\n", d[0], d[1], d[2])
	}
	if h.Valid.Contains(HasInterval) {
		fmt.Fprintf(w, "interval %.3f seconds\n", h.Interval)
	}
	if h.Valid.Contains(HasFirstObs) {
		fmt.Fprintf(w, "first observation %s\n", h.FirstObs)
	}
	if h.Valid.Contains(HasLastObs) {
		fmt.Fprintf(w, "last observation %s\n", h.LastObs)
	}
	if h.Valid.Contains(HasLeapSeconds) {
		fmt.Fprintf(w, "leap seconds %d\n", h.LeapSeconds.Current)
	}
	if h.Valid.Contains(HasNumSatellites) {
		fmt.Fprintf(w, "%d satellites\n", h.NumSatellites)
	}

	for _, sys := range h.ObservationTypes.Systems() {
		codes := h.ObservationTypes.Codes(sys)
		fmt.Fprintf(w, "%s: %d observation types\n", sys, len(codes))
		for _, code := range codes {
			fmt.Fprintf(w, "    %s %s\n", string(code), code.Description(sys))
		}
	}
}
