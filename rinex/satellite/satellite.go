// The satellite package identifies GNSS constellations and the satellites in
// them, in the form used by RINEX 3 ("G01" is GPS satellite 1, "R24" is
// GLONASS slot 24 and so on).
package satellite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goblimey/go-rinex/rinex/gnsstime"
)

// System is a satellite system (constellation).  Its value is the letter
// that identifies it in a RINEX file.
type System byte

// The satellite systems.
const (
	GPS     System = 'G'
	GLONASS System = 'R'
	Galileo System = 'E'
	BeiDou  System = 'C'
	QZSS    System = 'J'
	IRNSS   System = 'I' // NavIC.
	SBAS    System = 'S'
	Mixed   System = 'M' // Only valid in the RINEX VERSION / TYPE line.
)

var systemNames = map[System]string{
	GPS:     "GPS",
	GLONASS: "GLONASS",
	Galileo: "Galileo",
	BeiDou:  "BeiDou",
	QZSS:    "QZSS",
	IRNSS:   "IRNSS",
	SBAS:    "SBAS",
	Mixed:   "Mixed",
}

// defaultTimeSystems gives the time system that a file's times are in if
// the header doesn't say.  A mixed file is in GPS time by default.
var defaultTimeSystems = map[System]gnsstime.TimeSystem{
	GPS:     gnsstime.GPS,
	GLONASS: gnsstime.GLO,
	Galileo: gnsstime.GAL,
	BeiDou:  gnsstime.BDT,
	QZSS:    gnsstime.QZS,
	IRNSS:   gnsstime.IRN,
	SBAS:    gnsstime.GPS,
	Mixed:   gnsstime.GPS,
}

// ParseSystem converts a RINEX system letter to a System.
func ParseSystem(letter byte) (System, error) {
	sys := System(letter)
	if !sys.Valid() {
		return 0, fmt.Errorf("unknown satellite system %q", string(letter))
	}
	return sys, nil
}

// Valid is true if the system is one that RINEX 3 defines.
func (sys System) Valid() bool {
	_, ok := systemNames[sys]
	return ok
}

// Letter returns the RINEX letter for the system, "G", "R" etc.
func (sys System) Letter() string {
	return string(sys)
}

// String returns the name of the system, "GPS", "GLONASS" etc.
func (sys System) String() string {
	name, ok := systemNames[sys]
	if !ok {
		return fmt.Sprintf("unknown system %q", string(sys))
	}
	return name
}

// DefaultTimeSystem returns the time system that the system's observations
// are in unless the header says otherwise.
func (sys System) DefaultTimeSystem() gnsstime.TimeSystem {
	return defaultTimeSystems[sys]
}

// MaxNumber is the largest satellite number that fits in the two-digit
// satellite number field.
const MaxNumber = 99

// ID identifies a satellite by its system and its number within the system
// (the PRN, or the slot number for GLONASS).
type ID struct {
	System System
	Number int
}

// NewID creates an ID.
func NewID(system System, number int) ID {
	return ID{System: system, Number: number}
}

// ParseID converts a three-character satellite identifier such as "G01" or
// "G 1" to an ID.
func ParseID(text string) (ID, error) {
	if len(text) != 3 {
		return ID{}, fmt.Errorf("satellite ID %q should be 3 characters", text)
	}
	if text[0] == ' ' {
		return ID{}, fmt.Errorf("satellite ID %q has no system letter", text)
	}
	sys, err := ParseSystem(text[0])
	if err != nil {
		return ID{}, fmt.Errorf("satellite ID %q: %w", text, err)
	}
	if sys == Mixed {
		return ID{}, fmt.Errorf("satellite ID %q: M is not a satellite system", text)
	}
	n, err := strconv.Atoi(strings.TrimSpace(text[1:]))
	if err != nil || n < 1 || n > MaxNumber {
		return ID{}, fmt.Errorf("satellite ID %q: invalid satellite number", text)
	}
	return ID{System: sys, Number: n}, nil
}

// String returns the ID in RINEX 3 form, for example "G01".
func (id ID) String() string {
	return fmt.Sprintf("%s%02d", id.System.Letter(), id.Number)
}

// Less orders IDs by system letter and then number.
func (id ID) Less(other ID) bool {
	if id.System != other.System {
		return id.System < other.System
	}
	return id.Number < other.Number
}
