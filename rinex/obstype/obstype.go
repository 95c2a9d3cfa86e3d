// The obstype package handles RINEX 3 observation codes and the table of
// codes that a file's header declares for each satellite system.
//
// An observation code is three characters: the observation type, the
// frequency band and the attribute (the tracking mode or channel).  For
// example "C1C" is a pseudorange on band 1 using the C/A code and "L2W" is a
// carrier phase on band 2 using Z-tracking.
//
// The header's SYS / # / OBS TYPES lines give, for each satellite system,
// the ordered list of codes observed.  Each satellite line in the data
// section then has one value per code, in the same order, so the table
// defines the column layout of the data.
package obstype

import (
	"fmt"
	"strings"

	"github.com/goblimey/go-rinex/rinex/satellite"
)

// Code is a three-character observation code such as "C1C".
type Code string

// Observation types - the first character of a code.
const (
	TypeRange      byte = 'C' // Pseudorange.
	TypePhase      byte = 'L' // Carrier phase.
	TypeDoppler    byte = 'D' // Doppler.
	TypeSignal     byte = 'S' // Raw signal strength.
	TypeIonosphere byte = 'I' // Ionosphere phase delay.
	TypeChannel    byte = 'X' // Receiver channel number.
)

var typeNames = map[byte]string{
	TypeRange:      "pseudorange",
	TypePhase:      "phase",
	TypeDoppler:    "Doppler",
	TypeSignal:     "SNR",
	TypeIonosphere: "ionospheric delay",
	TypeChannel:    "channel number",
}

// bandNames gives the names of the frequency bands for each system.
var bandNames = map[satellite.System]map[byte]string{
	satellite.GPS:     {'1': "L1", '2': "L2", '5': "L5"},
	satellite.GLONASS: {'1': "G1", '2': "G2", '3': "G3", '4': "G1a", '6': "G2a"},
	satellite.Galileo: {'1': "E1", '5': "E5a", '6': "E6", '7': "E5b", '8': "E5a+b"},
	satellite.BeiDou:  {'1': "B1", '2': "B1-2", '5': "B2a", '6': "B3", '7': "B2b", '8': "B2a+b"},
	satellite.QZSS:    {'1': "L1", '2': "L2", '5': "L5", '6': "L6"},
	satellite.IRNSS:   {'5': "L5", '9': "S"},
	satellite.SBAS:    {'1': "L1", '5': "L5"},
}

// attributeNames gives the names of the tracking modes.  The same letter
// means slightly different things in different systems, so these are
// general descriptions.
var attributeNames = map[byte]string{
	'C': "C/A",
	'P': "P",
	'W': "Z-tracking",
	'Y': "Y",
	'M': "M",
	'N': "codeless",
	'D': "semi-codeless",
	'S': "L2C(M)",
	'L': "L2C(L)",
	'X': "combined",
	'I': "I",
	'Q': "Q",
	'A': "A",
	'B': "B",
	'Z': "A+B+C",
	'E': "E",
}

// Type returns the observation type, the first character of the code.
func (c Code) Type() byte {
	if len(c) < 1 {
		return 0
	}
	return c[0]
}

// Band returns the frequency band, the second character of the code.
func (c Code) Band() byte {
	if len(c) < 2 {
		return 0
	}
	return c[1]
}

// Attribute returns the attribute, the third character of the code.
func (c Code) Attribute() byte {
	if len(c) < 3 {
		return 0
	}
	return c[2]
}

// Validate checks that the code is well formed.
func (c Code) Validate() error {
	if len(c) != 3 {
		return fmt.Errorf("observation code %q should be 3 characters", string(c))
	}
	if _, ok := typeNames[c.Type()]; !ok {
		return fmt.Errorf("observation code %q: unknown type %q", string(c), string(c.Type()))
	}
	if c.Band() < '1' || c.Band() > '9' {
		return fmt.Errorf("observation code %q: invalid band %q", string(c), string(c.Band()))
	}
	a := c.Attribute()
	if a != ' ' && (a < 'A' || a > 'Z') {
		return fmt.Errorf("observation code %q: invalid attribute %q", string(c), string(a))
	}
	return nil
}

// Description returns a readable description of the code for the given
// system, for example "L1 C/A pseudorange".
func (c Code) Description(sys satellite.System) string {
	if c.Validate() != nil {
		return "unknown observation " + string(c)
	}
	band, ok := bandNames[sys][c.Band()]
	if !ok {
		band = "band " + string(c.Band())
	}
	attribute, ok := attributeNames[c.Attribute()]
	if !ok {
		attribute = strings.TrimSpace(string(c.Attribute()))
	}
	if len(attribute) == 0 {
		return band + " " + typeNames[c.Type()]
	}
	return band + " " + attribute + " " + typeNames[c.Type()]
}

// Table holds the ordered observation codes for each satellite system.  The
// order of the systems is the order in which they were added, which is the
// order of the lines in the header.  The zero value is an empty table ready
// for use.
type Table struct {
	systems []satellite.System
	codes   map[satellite.System][]Code
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{codes: make(map[satellite.System][]Code)}
}

// Set sets the codes for a system, replacing any that are already there.
// A system that is already in the table keeps its position.
func (t *Table) Set(sys satellite.System, codes []Code) {
	if t.codes == nil {
		t.codes = make(map[satellite.System][]Code)
	}
	if _, ok := t.codes[sys]; !ok {
		t.systems = append(t.systems, sys)
	}
	copied := make([]Code, len(codes))
	copy(copied, codes)
	t.codes[sys] = copied
}

// Append adds codes to the end of the list for a system, adding the system
// if necessary.
func (t *Table) Append(sys satellite.System, codes ...Code) {
	t.Set(sys, append(t.Codes(sys), codes...))
}

// Codes returns the codes for the system, or nil if there are none.  The
// caller must not modify the result.
func (t Table) Codes(sys satellite.System) []Code {
	return t.codes[sys]
}

// Has is true if the system is in the table.
func (t Table) Has(sys satellite.System) bool {
	_, ok := t.codes[sys]
	return ok
}

// Len returns the number of codes for the system.
func (t Table) Len(sys satellite.System) int {
	return len(t.codes[sys])
}

// Index returns the position of the code in the list for the system, or
// -1 if it's not there.
func (t Table) Index(sys satellite.System, code Code) int {
	for i, c := range t.codes[sys] {
		if c == code {
			return i
		}
	}
	return -1
}

// Systems returns the systems in the table in order.
func (t Table) Systems() []satellite.System {
	result := make([]satellite.System, len(t.systems))
	copy(result, t.systems)
	return result
}

// Empty is true if the table has no systems.
func (t Table) Empty() bool {
	return len(t.systems) == 0
}

// Equal is true if the two tables have the same systems in the same order,
// each with the same codes in the same order.
func (t Table) Equal(other Table) bool {
	if len(t.systems) != len(other.systems) {
		return false
	}
	for i, sys := range t.systems {
		if other.systems[i] != sys {
			return false
		}
		a, b := t.codes[sys], other.codes[sys]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the table.
func (t Table) Clone() *Table {
	c := NewTable()
	for _, sys := range t.systems {
		c.Set(sys, t.codes[sys])
	}
	return c
}

// String returns the table in the form "G: C1C L1C ...; R: ...".
func (t Table) String() string {
	parts := make([]string, 0, len(t.systems))
	for _, sys := range t.systems {
		codes := make([]string, 0, len(t.codes[sys]))
		for _, c := range t.codes[sys] {
			codes = append(codes, string(c))
		}
		parts = append(parts, sys.Letter()+": "+strings.Join(codes, " "))
	}
	return strings.Join(parts, "; ")
}
