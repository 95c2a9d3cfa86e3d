// The normaliser package turns RINEX 3 observation files dropped into an
// input directory into normalised files in an output directory.
//
// A normalised file holds the same header and data records as the input,
// written in the canonical layout.  With lenient parsing, lines that can't
// be used are left out.  Each input file is recorded in the index with the
// outcome and the CRC-24Q of the output, so it's only processed again if it
// changes.
package normaliser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/goblimey/go-tools/clock"
	"github.com/goblimey/go-tools/switchwriter"

	"github.com/goblimey/go-rinex/apps/rinexnormaliser/config"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/index"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/metrics"
	"github.com/goblimey/go-rinex/rinex"
)

// Patterns are the names of the input files that are processed:
// "arlm200a.15o" in the RINEX 2 short naming convention and
// "ARLM00DEU_R_20152000000_01H_30S_MO.rnx" in the long one.
var Patterns = []string{"*.[0-9][0-9][oO]", "*.rnx"}

// Normaliser processes the files in its input directory.
type Normaliser struct {
	InputDirectory  string
	OutputDirectory string
	Policy          rinex.Policy

	// Timeout is the time allowed to read one input file.  Zero means no
	// limit.
	Timeout time.Duration

	Index   *index.Index
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Clock   clock.Clock

	// runMutex stops scans from overlapping.
	runMutex sync.Mutex
}

// New creates a Normaliser from the config.  The logger may be nil.
func New(cfg *config.Config, ix *index.Index, m *metrics.Metrics, logger *slog.Logger, clk clock.Clock) *Normaliser {
	if logger == nil {
		// A switchwriter with nothing to switch to discards the output.
		logger = slog.New(slog.NewTextHandler(switchwriter.New(), nil))
	}
	return &Normaliser{
		InputDirectory:  cfg.InputDirectory,
		OutputDirectory: cfg.OutputDirectory,
		Policy:          rinex.PolicyFor(cfg.Strict),
		Timeout:         cfg.Timeout(),
		Index:           ix,
		Metrics:         m,
		Logger:          logger,
		Clock:           clk,
	}
}

// Candidates returns the names of the files in the input directory that
// match one of the Patterns, sorted.
func (n *Normaliser) Candidates() ([]string, error) {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, pattern := range Patterns {
		matches, err := filepath.Glob(filepath.Join(n.InputDirectory, pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			name := filepath.Base(path)
			if seen[name] || strings.HasPrefix(name, ".") {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run scans the input directory and normalises every candidate that the
// index hasn't seen.  It returns the number of files processed.  A failure
// to normalise one file is recorded in the index and doesn't stop the
// scan.  If a scan is already running, Run returns immediately.
func (n *Normaliser) Run(ctx context.Context) (int, error) {
	if !n.runMutex.TryLock() {
		n.Logger.Info("scan already running")
		return 0, nil
	}
	defer n.runMutex.Unlock()

	if n.Metrics != nil {
		n.Metrics.LastRun.Set(float64(n.Clock.Now().Unix()))
	}

	names, err := n.Candidates()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		info, err := os.Stat(filepath.Join(n.InputDirectory, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return processed, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		seen, err := n.Index.Seen(name, info.Size(), info.ModTime())
		if err != nil {
			return processed, err
		}
		if seen {
			continue
		}

		// The outcome is in the index.
		n.NormaliseFile(ctx, name, info)
		processed++
	}

	return processed, nil
}

// NormaliseFile normalises one input file, writes the output file and
// records the outcome in the index.
func (n *Normaliser) NormaliseFile(ctx context.Context, name string, info fs.FileInfo) (index.Entry, error) {
	entry := index.Entry{
		Name:      name,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Processed: n.Clock.Now(),
	}

	err := n.normalise(ctx, name, &entry)
	if err != nil {
		entry.Error = err.Error()
		n.Logger.Error("cannot normalise file", "file", name, "error", err)
		if n.Metrics != nil {
			n.Metrics.Failed(err)
		}
	}

	if errIndex := n.Index.Put(entry); errIndex != nil {
		n.Logger.Error("cannot update index", "file", name, "error", errIndex)
		if err == nil {
			err = errIndex
		}
	}

	return entry, err
}

func (n *Normaliser) normalise(ctx context.Context, name string, entry *index.Entry) error {
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	file, err := os.Open(filepath.Join(n.InputDirectory, name))
	if err != nil {
		return err
	}
	defer file.Close()

	// The reader fails once the context is done, which stops the parser.
	reader := contextio.NewReader(ctx, file)

	parser := rinex.NewParser(n.Policy, n.Logger.With("file", name))
	result, err := parser.ParseReader(reader)
	if err != nil {
		return err
	}

	lines, err := rinex.Write(result.Header, result.Records)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(n.OutputDirectory, name)
	if err := rinex.WriteLinesToFile(outputPath, lines); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	entry.Checksum = rinex.Checksum(lines)
	entry.Records = len(result.Records)
	entry.Skipped = result.Skipped
	entry.Problems = len(result.Problems)

	if n.Metrics != nil {
		n.Metrics.Normalised(len(result.Records), result.Skipped, result.Problems)
	}

	n.Logger.Info("normalised file",
		"file", name,
		"records", entry.Records,
		"skipped", entry.Skipped,
		"problems", entry.Problems,
		"crc", fmt.Sprintf("%06x", entry.Checksum))

	return nil
}
