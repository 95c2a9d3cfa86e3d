package rinex

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goblimey/go-crc24q/crc24q"

	"github.com/goblimey/go-rinex/rinex/codecerror"
	"github.com/goblimey/go-rinex/rinex/header"
	"github.com/goblimey/go-rinex/rinex/record"
)

// Write returns the lines of a RINEX 3 observation file holding the header
// and records, without line terminators.  The header must have a version and
// observation types, and every record must be consistent with them.  On
// error no lines are returned.
func Write(h *header.Header, records []record.Record) ([]string, error) {
	if h == nil {
		return nil, codecerror.New(codecerror.InconsistentWriterInput, 0, "header", "no header")
	}
	if !h.Valid.Contains(header.HasVersion) || h.Version < 3 || h.Version >= 4 {
		return nil, codecerror.Newf(codecerror.InconsistentWriterInput, 0, header.LabelVersion,
			"version %.2f is not RINEX 3", h.Version)
	}
	if !h.Valid.Contains(header.HasObsTypes) || h.ObservationTypes.Empty() {
		return nil, codecerror.New(codecerror.InconsistentWriterInput, 0, header.LabelObsTypes,
			"the header has no observation types")
	}

	lines, err := h.Encode()
	if err != nil {
		return nil, err
	}

	for i, r := range records {
		recordLines, err := r.Encode(h.ObservationTypes)
		if err != nil {
			return nil, inRecord(err, i)
		}
		lines = append(lines, recordLines...)
	}
	return lines, nil
}

// inRecord adds the record number to the context of a writer error.
func inRecord(err error, index int) error {
	var codecErr *codecerror.Error
	if !errors.As(err, &codecErr) {
		return err
	}
	c := *codecErr
	c.Context = fmt.Sprintf("record %d: %s", index+1, c.Context)
	return &c
}

// WriteTo writes the file to w.  Nothing is written if the header and
// records are inconsistent.
func WriteTo(w io.Writer, h *header.Header, records []record.Record) error {
	lines, err := Write(h, records)
	if err != nil {
		return err
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteObservationFile writes the file to the given path.  The data goes to
// a temporary file in the same directory which is renamed once it's
// complete, so a failed write never leaves a partial file under the name.
func WriteObservationFile(path string, h *header.Header, records []record.Record) error {
	lines, err := Write(h, records)
	if err != nil {
		return err
	}
	return WriteLinesToFile(path, lines)
}

// outputFileMode is the permissions of a file written by WriteLinesToFile.
const outputFileMode = 0o644

// WriteLinesToFile writes lines to a file via a temporary file and a rename.
func WriteLinesToFile(path string, lines []string) error {
	dir, name := filepath.Split(path)
	if len(dir) == 0 {
		dir = "."
	}
	temp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tempName := temp.Name()

	// CreateTemp makes a file that only the owner can read.
	err = temp.Chmod(outputFileMode)
	if err == nil {
		err = writeLines(temp, lines)
	}
	if errClose := temp.Close(); err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(tempName, path)
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// ReadObservationFile reads and parses the file at the given path.  If
// strict is false the file is parsed leniently.
func ReadObservationFile(path string, strict bool) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseReader(file, PolicyFor(strict))
}

// Checksum returns the CRC-24Q of the lines as they would be written, each
// followed by a newline.
func Checksum(lines []string) uint32 {
	size := 0
	for _, line := range lines {
		size += len(line) + 1
	}
	buf := make([]byte, 0, size)
	for _, line := range lines {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return crc24q.Hash(buf)
}
