// The fixedwidth package reads and writes the fixed-column text fields that
// RINEX uses.  A RINEX line is treated as a record with named byte-offset
// fields, each described by a Field value:
//
//	var interval = fixedwidth.Field{Start: 0, Width: 10} // F10.3
//
//	seconds, ok, err := interval.Float(line)
//
// Columns are counted from zero, so a field that the RINEX documents
// describe as "columns 1-6" has Start 0 and Width 6.  A line that is shorter
// than the field is treated as if it were padded with spaces, so trailing
// blanks that an editor has stripped don't cause an error.
package fixedwidth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrOverflow is returned (wrapped) when a value is too wide for its field.
var ErrOverflow = errors.New("value too wide for field")

// Field is a fixed-width field within a line.
type Field struct {
	Start int // The zero-based index of the first character.
	Width int // The number of characters.
}

// End returns the index just after the field.
func (f Field) End() int {
	return f.Start + f.Width
}

// Next returns the field of the given width that starts where this one ends.
func (f Field) Next(width int) Field {
	return Field{Start: f.End(), Width: width}
}

// Raw returns the characters of the field, shorter (possibly empty) if the
// line is short.
func (f Field) Raw(line string) string {
	if f.Start >= len(line) {
		return ""
	}
	end := f.End()
	if end > len(line) {
		end = len(line)
	}
	return line[f.Start:end]
}

// Text returns the contents of the field with surrounding spaces removed.
func (f Field) Text(line string) string {
	return strings.TrimSpace(f.Raw(line))
}

// Blank is true if the field is all spaces or beyond the end of the line.
func (f Field) Blank(line string) bool {
	return len(f.Text(line)) == 0
}

// Int decodes an integer field.  If the field is blank, ok is false and the
// error is nil.
func (f Field) Int(line string) (value int, ok bool, err error) {
	text := f.Text(line)
	if len(text) == 0 {
		return 0, false, nil
	}
	n, errConv := strconv.Atoi(text)
	if errConv != nil {
		return 0, false, fmt.Errorf("columns %d-%d: not an integer %q", f.Start+1, f.End(), text)
	}
	return n, true, nil
}

// Float decodes a floating point field.  FORTRAN style exponents ("1.0D+01")
// are accepted.  If the field is blank, ok is false and the error is nil.
func (f Field) Float(line string) (value float64, ok bool, err error) {
	text := f.Text(line)
	if len(text) == 0 {
		return 0, false, nil
	}
	text = strings.NewReplacer("D", "E", "d", "e").Replace(text)
	v, errConv := strconv.ParseFloat(text, 64)
	if errConv != nil {
		return 0, false, fmt.Errorf("columns %d-%d: not a number %q", f.Start+1, f.End(), f.Text(line))
	}
	return v, true, nil
}

// Line builds an output line field by field.  The zero value is an empty
// line ready for use.  Gaps between fields are filled with spaces.
type Line struct {
	buf []byte
}

// NewLine creates an empty Line.
func NewLine() *Line {
	return &Line{buf: make([]byte, 0, 80)}
}

// extend makes sure that the buffer is at least n bytes long.
func (l *Line) extend(n int) {
	for len(l.buf) < n {
		l.buf = append(l.buf, ' ')
	}
}

// put writes text into the field, which must fit.
func (l *Line) put(f Field, text string) {
	l.extend(f.End())
	copy(l.buf[f.Start:f.End()], text)
}

// PutText writes left-justified text into the field.  Text that is too long
// is truncated, which is what the RINEX documents require of free text.
func (l *Line) PutText(f Field, text string) {
	if len(text) > f.Width {
		text = text[:f.Width]
	}
	l.put(f, fmt.Sprintf("%-*s", f.Width, text))
}

// PutRight writes right-justified text into the field.  It returns an error
// if the text doesn't fit.
func (l *Line) PutRight(f Field, text string) error {
	if len(text) > f.Width {
		return fmt.Errorf("%w: %q in %d columns", ErrOverflow, text, f.Width)
	}
	l.put(f, fmt.Sprintf("%*s", f.Width, text))
	return nil
}

// PutInt writes a right-justified integer into the field.
func (l *Line) PutInt(f Field, value int) error {
	return l.PutRight(f, strconv.Itoa(value))
}

// PutZeroPadded writes an integer padded with leading zeros, as in the I2.2
// format of a satellite number.
func (l *Line) PutZeroPadded(f Field, value int) error {
	return l.PutRight(f, fmt.Sprintf("%0*d", f.Width, value))
}

// PutFloat writes a right-justified fixed point number with the given number
// of decimal places, as in the FORTRAN F format.  NaN and the infinities
// can't be written.
func (l *Line) PutFloat(f Field, value float64, decimals int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v is not a finite number", ErrOverflow, value)
	}
	return l.PutRight(f, strconv.FormatFloat(value, 'f', decimals, 64))
}

// PutBlank fills the field with spaces.
func (l *Line) PutBlank(f Field) {
	l.put(f, strings.Repeat(" ", f.Width))
}

// Pad extends the line with spaces to at least the given length.
func (l *Line) Pad(n int) {
	l.extend(n)
}

// Len returns the current length of the line.
func (l *Line) Len() int {
	return len(l.buf)
}

// String returns the line.
func (l *Line) String() string {
	return string(l.buf)
}
