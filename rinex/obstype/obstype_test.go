package obstype

import (
	"testing"

	"github.com/goblimey/go-rinex/rinex/satellite"
)

// TestValidate checks that well formed codes are accepted and others
// rejected.
func TestValidate(t *testing.T) {
	var testData = []struct {
		Code      Code
		WantError bool
	}{
		{"C1C", false},
		{"L2W", false},
		{"D5Q", false},
		{"S7I", false},
		{"X1 ", false},
		{"C0C", true},
		{"Q1C", true},
		{"C1c", true},
		{"C1", true},
		{"C1CX", true},
	}

	for _, td := range testData {
		err := td.Code.Validate()
		if td.WantError && err == nil {
			t.Errorf("%q: want an error", td.Code)
		}
		if !td.WantError && err != nil {
			t.Errorf("%q: %v", td.Code, err)
		}
	}
}

// TestDescription checks the readable description of a code.
func TestDescription(t *testing.T) {
	var testData = []struct {
		Code   Code
		System satellite.System
		Want   string
	}{
		{"C1C", satellite.GPS, "L1 C/A pseudorange"},
		{"L2W", satellite.GPS, "L2 Z-tracking phase"},
		{"S1P", satellite.GLONASS, "G1 P SNR"},
		{"D7Q", satellite.Galileo, "E5b Q Doppler"},
		{"C5X", satellite.Galileo, "E5a combined pseudorange"},
		{"X1 ", satellite.GPS, "L1 channel number"},
		{"C4C", satellite.GPS, "band 4 C/A pseudorange"},
		{"junk", satellite.GPS, "unknown observation junk"},
	}

	for _, td := range testData {
		got := td.Code.Description(td.System)
		if got != td.Want {
			t.Errorf("%q: want %q got %q", td.Code, td.Want, got)
		}
	}
}

// TestTable checks that the table keeps systems and codes in order.
func TestTable(t *testing.T) {
	var table Table

	table.Set(satellite.GPS, []Code{"C1C", "L1C"})
	table.Set(satellite.GLONASS, []Code{"C1C"})
	table.Append(satellite.GPS, "S1C")
	table.Append(satellite.Galileo, "C1X", "L1X")

	wantSystems := []satellite.System{satellite.GPS, satellite.GLONASS, satellite.Galileo}
	gotSystems := table.Systems()
	if len(gotSystems) != len(wantSystems) {
		t.Fatalf("want %d systems got %d", len(wantSystems), len(gotSystems))
	}
	for i := range wantSystems {
		if gotSystems[i] != wantSystems[i] {
			t.Errorf("%d: want %s got %s", i, wantSystems[i], gotSystems[i])
		}
	}

	if table.Len(satellite.GPS) != 3 {
		t.Errorf("want 3 got %d", table.Len(satellite.GPS))
	}

	if table.Index(satellite.GPS, "S1C") != 2 {
		t.Errorf("want 2 got %d", table.Index(satellite.GPS, "S1C"))
	}

	if table.Index(satellite.GPS, "D1C") != -1 {
		t.Errorf("want -1 got %d", table.Index(satellite.GPS, "D1C"))
	}

	if table.Has(satellite.BeiDou) {
		t.Error("want no BeiDou")
	}

	const wantString = "G: C1C L1C S1C; R: C1C; E: C1X L1X"
	if table.String() != wantString {
		t.Errorf("want %s got %s", wantString, table.String())
	}
}

// TestTableEqual checks Equal and Clone.
func TestTableEqual(t *testing.T) {
	a := NewTable()
	a.Set(satellite.GPS, []Code{"C1C", "L1C"})
	a.Set(satellite.GLONASS, []Code{"C1C"})

	b := a.Clone()
	if !a.Equal(*b) {
		t.Error("want a clone to be equal")
	}

	// Changing the clone doesn't change the original.
	b.Append(satellite.GPS, "D1C")
	if a.Equal(*b) {
		t.Error("want tables with different codes to differ")
	}
	if a.Len(satellite.GPS) != 2 {
		t.Errorf("original changed - want 2 codes got %d", a.Len(satellite.GPS))
	}

	// The order of the systems matters.
	c := NewTable()
	c.Set(satellite.GLONASS, []Code{"C1C"})
	c.Set(satellite.GPS, []Code{"C1C", "L1C"})
	if a.Equal(*c) {
		t.Error("want tables with different system order to differ")
	}

	var empty Table
	if !empty.Equal(*NewTable()) {
		t.Error("want empty tables to be equal")
	}
}
