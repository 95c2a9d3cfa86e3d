// The rinex package reads and writes RINEX 3 observation files.
//
// A file is a header followed by a series of data records.  The parser
// turns the lines of a file into a Result holding a header.Header and a
// slice of record.Record:
//
//	result, err := rinex.ReadObservationFile("arlm200a.15o", true)
//
// and the writer turns them back into lines:
//
//	err := rinex.WriteObservationFile("out.15o", result.Header, result.Records)
//
// The parser has two policies.  Strict parsing returns an error at the
// first problem and no result.  Lenient parsing skips lines that it can't
// use, counts them and records each problem in the result.
package rinex

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goblimey/go-rinex/rinex/codecerror"
	"github.com/goblimey/go-rinex/rinex/gnsstime"
	"github.com/goblimey/go-rinex/rinex/header"
	"github.com/goblimey/go-rinex/rinex/obstype"
	"github.com/goblimey/go-rinex/rinex/record"
)

// Policy controls what the parser does when it finds a problem.
type Policy int

const (
	// Strict parsing stops at the first problem.
	Strict Policy = iota
	// Lenient parsing skips the offending line or record and carries on.
	Lenient
)

// String returns "strict" or "lenient".
func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// PolicyFor returns Strict if strict is true, otherwise Lenient.
func PolicyFor(strict bool) Policy {
	if strict {
		return Strict
	}
	return Lenient
}

// maxLineLength is the longest line that ParseReader accepts.  A satellite
// line has 16 columns per observation type.
const maxLineLength = 1024 * 1024

// Parser parses RINEX 3 observation files.
type Parser struct {
	// Policy says whether to stop at the first problem.
	Policy Policy

	// Logger, if not nil, receives a warning for each problem that lenient
	// parsing recovers from and a debug message summarising each parse.
	Logger *slog.Logger
}

// NewParser creates a Parser.  The logger may be nil.
func NewParser(policy Policy, logger *slog.Logger) *Parser {
	return &Parser{Policy: policy, Logger: logger}
}

// Parse parses the lines of a file with the given policy.
func Parse(lines []string, policy Policy) (*Result, error) {
	return NewParser(policy, nil).Parse(lines)
}

// ParseReader parses a file read from r with the given policy.
func ParseReader(r io.Reader, policy Policy) (*Result, error) {
	return NewParser(policy, nil).ParseReader(r)
}

// ParseReader reads lines from r until end of file and parses them.  Line
// terminators may be LF or CRLF.  An error from the reader (including the
// cancellation of a context-aware reader) is returned wrapped.
func (p *Parser) ParseReader(r io.Reader) (*Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(lines)
}

// ReadLines reads the lines from r, without their terminators.
func ReadLines(r io.Reader) ([]string, error) {
	lines := make([]string, 0, 1024)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading RINEX data: %w", err)
	}
	return lines, nil
}

// parse holds the state of one call of Parse.
type parse struct {
	*Parser
	lines  []string
	next   int // The index of the next line to read.
	result *Result
}

// Parse parses the lines of a file, which should not include line
// terminators.
func (p *Parser) Parse(lines []string) (*Result, error) {
	ps := &parse{
		Parser: p,
		lines:  lines,
		result: &Result{Records: make([]record.Record, 0)},
	}

	if err := ps.parseHeader(); err != nil {
		return nil, err
	}
	if err := ps.parseRecords(); err != nil {
		return nil, err
	}

	if p.Logger != nil {
		p.Logger.Debug("parsed RINEX data",
			"policy", p.Policy.String(),
			"lines", len(lines),
			"records", len(ps.result.Records),
			"skipped", ps.result.Skipped,
			"problems", len(ps.result.Problems))
	}
	return ps.result, nil
}

// problem handles a problem.  With the strict policy it returns the error.
// Otherwise it records the problem, adds skipped to the count of skipped
// lines and returns nil.
func (ps *parse) problem(err error, skipped int) error {
	if ps.Policy == Strict {
		return err
	}
	ps.result.Problems = append(ps.result.Problems, err)
	ps.result.Skipped += skipped
	if ps.Logger != nil {
		ps.Logger.Warn("RINEX problem", "error", err, "skipped", skipped)
	}
	return nil
}

// parseHeader decodes the header lines, up to and including END OF HEADER.
func (ps *parse) parseHeader() error {
	decoder := header.NewDecoder(ps.Policy == Strict)

	for ps.next < len(ps.lines) && !decoder.Done() {
		line := ps.lines[ps.next]
		lineNumber := ps.next + 1

		// The header has run into the data, so END OF HEADER is missing.  A
		// header line such as a COMMENT may also start with '>', but it has
		// a label.
		if record.IsEpochLine(line) {
			if _, label := header.SplitLine(line); !header.IsLabel(label) {
				break
			}
		}

		ps.next++
		if err := decoder.Decode(line, lineNumber); err != nil {
			if err := ps.problem(err, 1); err != nil {
				return err
			}
		}
	}

	required := header.Required
	if !decoder.Done() {
		err := codecerror.Newf(codecerror.MissingHeaderTerminator, ps.next+1, header.LabelEndOfHeader,
			"not found after %d header lines", ps.next)
		if err := ps.problem(err, 1); err != nil {
			return err
		}
		required &^= header.HasEndOfHeader
	}

	if err := decoder.Finish(required); err != nil {
		return err
	}
	for _, p := range decoder.Problems {
		if err := ps.problem(p, 0); err != nil {
			return err
		}
	}

	ps.result.Header = decoder.Header
	return nil
}

// parseRecords decodes the data records.
func (ps *parse) parseRecords() error {
	h := ps.result.Header
	table := h.ObservationTypes
	system := h.TimeSystem()

	var previous gnsstime.Epoch
	havePrevious := false

	for ps.next < len(ps.lines) {
		line := ps.lines[ps.next]
		lineNumber := ps.next + 1
		ps.next++

		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		if !record.IsEpochLine(line) {
			err := codecerror.New(codecerror.MalformedDataField, lineNumber, "epoch line",
				"expected a line starting with '>'")
			if err := ps.problem(err, 1); err != nil {
				return err
			}
			continue
		}

		el, err := record.DecodeEpochLine(line, system)
		if err != nil {
			if err := ps.problem(codecerror.WithLine(err, lineNumber, codecerror.MalformedDataField), 1); err != nil {
				return err
			}
			continue
		}

		r, used, complete, err := ps.parseBody(el, table)
		if err != nil {
			return err
		}
		if !complete {
			err := codecerror.Newf(codecerror.TruncatedRecord, lineNumber, "epoch line",
				"%d lines declared, %d found", el.Count, ps.next-lineNumber)
			if err := ps.problem(err, 1+used); err != nil {
				return err
			}
			continue
		}

		if r.HasEpoch {
			if havePrevious && r.Epoch.Before(previous) {
				err := codecerror.Newf(codecerror.EpochOutOfOrder, lineNumber, r.Epoch.String(),
					"earlier than the previous epoch %s", previous)
				if err := ps.problem(err, 0); err != nil {
					return err
				}
			}
			previous = r.Epoch
			havePrevious = true
		}

		ps.result.Records = append(ps.result.Records, r)
	}

	return nil
}

// parseBody reads the lines that follow an epoch line.  It returns the
// record, the number of lines used in it and whether all of the lines that
// the epoch line declares were found.  The record ends early at an epoch
// line or the end of the input.
func (ps *parse) parseBody(el record.EpochLine, table obstype.Table) (record.Record, int, bool, error) {
	r := el.Record()
	satellites := make([]record.SatelliteObservations, 0, el.Count)
	events := make([]string, 0)

	for n := 0; n < el.Count; n++ {
		if ps.next >= len(ps.lines) || record.IsEpochLine(ps.lines[ps.next]) {
			return r, len(satellites) + len(events), false, nil
		}
		line := ps.lines[ps.next]
		lineNumber := ps.next + 1
		ps.next++

		if !el.Flag.HasObservations() {
			events = append(events, line)
			continue
		}

		obs, err := record.DecodeSatelliteLine(line, table)
		if err != nil {
			err = codecerror.WithLine(err, lineNumber, codecerror.MalformedDataField)
			if err := ps.problem(err, 1); err != nil {
				return r, 0, false, err
			}
			continue
		}
		satellites = append(satellites, obs)
	}

	if el.Flag.HasObservations() {
		r.Content = record.Observations{Satellites: satellites}
	} else {
		r.Content = record.Event{Lines: events}
	}
	return r, len(satellites) + len(events), true, nil
}
