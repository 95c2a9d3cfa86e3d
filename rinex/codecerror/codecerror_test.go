package codecerror

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
)

// TestError checks the error message.
func TestError(t *testing.T) {
	var testData = []struct {
		Description string
		Err         *Error
		Want        string
	}{
		{"all", New(MalformedHeaderField, 12, "INTERVAL", `not a number "abc"`),
			`line 12: malformed header field: INTERVAL: not a number "abc"`},
		{"no line", New(InconsistentWriterInput, 0, "R05", "system R is not in the header"),
			"inconsistent writer input: R05: system R is not in the header"},
		{"kind only", New(MissingHeaderTerminator, 0, "", ""), "missing END OF HEADER"},
		{"formatted", Newf(NumericFieldOverflow, 3, "G01", "value %d too wide", 12345),
			"line 3: numeric field overflow: G01: value 12345 too wide"},
	}

	for _, td := range testData {
		got := td.Err.Error()
		if got != td.Want {
			t.Errorf("%s: want %s got %s", td.Description, td.Want, got)
		}
	}
}

// TestIs checks that errors.Is matches on the kind.
func TestIs(t *testing.T) {
	err := fmt.Errorf("reading file: %w", New(UndeclaredSatelliteSystem, 40, "E11", ""))

	if !errors.Is(err, UndeclaredSatelliteSystem) {
		t.Error("want a match on the kind")
	}

	if errors.Is(err, MissingHeaderTerminator) {
		t.Error("want no match on a different kind")
	}

	if !errors.Is(err, New(UndeclaredSatelliteSystem, 1, "", "")) {
		t.Error("want a match on an error of the same kind")
	}

	if KindOf(err) != UndeclaredSatelliteSystem {
		t.Errorf("want %v got %v", UndeclaredSatelliteSystem, KindOf(err))
	}

	if KindOf(errors.New("junk")) != 0 {
		t.Error("want kind 0 for a foreign error")
	}
}

// TestWrap checks that the cause of a wrapped error can be recovered.
func TestWrap(t *testing.T) {
	_, cause := strconv.Atoi("x")

	err := Wrap(MalformedDataField, 7, "epoch", cause)

	var numError *strconv.NumError
	if !errors.As(err, &numError) {
		t.Error("want the cause to be reachable")
	}

	withLine := WithLine(err, 9, MalformedHeaderField)
	if withLine.Line != 9 || withLine.Kind != MalformedDataField {
		t.Errorf("want line 9 kind %v got line %d kind %v",
			MalformedDataField, withLine.Line, withLine.Kind)
	}
	if err.Line != 7 {
		t.Errorf("WithLine changed the original error - line %d", err.Line)
	}

	foreign := WithLine(cause, 4, MalformedHeaderField)
	if foreign.Kind != MalformedHeaderField || foreign.Line != 4 {
		t.Errorf("want line 4 kind %v got line %d kind %v",
			MalformedHeaderField, foreign.Line, foreign.Kind)
	}
}

func TestKindString(t *testing.T) {
	if Kind(99).String() != "unknown error kind 99" {
		t.Errorf("got %s", Kind(99).String())
	}
}
