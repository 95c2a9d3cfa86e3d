package rinex

import (
	"fmt"
	"io"

	"github.com/goblimey/go-rinex/rinex/header"
	"github.com/goblimey/go-rinex/rinex/record"
)

// Result is the result of parsing a file.
type Result struct {
	Header  *header.Header
	Records []record.Record

	// Skipped is the number of lines that lenient parsing passed over,
	// including a missing END OF HEADER line.
	Skipped int

	// Problems holds the problems that lenient parsing recovered from, in
	// the order they were found.
	Problems []error
}

// Earliest returns the record with the earliest epoch.  ok is false if no
// record has an epoch.  If several records share the earliest epoch, the
// first is returned.
func (r *Result) Earliest() (rec record.Record, ok bool) {
	for _, candidate := range r.Records {
		if !candidate.HasEpoch {
			continue
		}
		if !ok || candidate.Epoch.Before(rec.Epoch) {
			rec, ok = candidate, true
		}
	}
	return rec, ok
}

// Latest returns the record with the latest epoch.  ok is false if no record
// has an epoch.  If several records share the latest epoch, the last is
// returned.
func (r *Result) Latest() (rec record.Record, ok bool) {
	for _, candidate := range r.Records {
		if !candidate.HasEpoch {
			continue
		}
		if !ok || !candidate.Epoch.Before(rec.Epoch) {
			rec, ok = candidate, true
		}
	}
	return rec, ok
}

// Observations returns the number of valid measurements in the records.
func (r *Result) Observations() int {
	n := 0
	for _, rec := range r.Records {
		obs, ok := rec.Observations()
		if !ok {
			continue
		}
		for _, s := range obs.Satellites {
			for _, v := range s.Values {
				if v.Valid {
					n++
				}
			}
		}
	}
	return n
}

// Summarise writes a short description of the result: the number of
// records, the time span and any problems.
func (r *Result) Summarise(w io.Writer) {
	events := 0
	for _, rec := range r.Records {
		if _, ok := rec.Observations(); !ok {
			events++
		}
	}
	fmt.Fprintf(w, "%d records (%d events), %d observations\n",
		len(r.Records), events, r.Observations())

	if first, ok := r.Earliest(); ok {
		last, _ := r.Latest()
		fmt.Fprintf(w, "earliest epoch %s\n", first.Epoch)
		fmt.Fprintf(w, "latest epoch %s\n", last.Epoch)
	}

	if r.Skipped > 0 || len(r.Problems) > 0 {
		fmt.Fprintf(w, "%d lines skipped, %d problems\n", r.Skipped, len(r.Problems))
		for _, p := range r.Problems {
			fmt.Fprintf(w, "    %v\n", p)
		}
	}
}
