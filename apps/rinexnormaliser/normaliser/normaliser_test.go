package normaliser

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goblimey/go-crc24q/crc24q"
	"github.com/goblimey/go-tools/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/goblimey/go-rinex/apps/rinexnormaliser/config"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/index"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/metrics"
)

const sampleFile = "../../../rinex/testdata/arlm200a.15o"

// testTimes are the times returned by the clock: the start of the run and
// then one for each file.
var testTimes = []time.Time{
	time.Date(2015, time.July, 20, 2, 0, 0, 0, time.UTC),
	time.Date(2015, time.July, 20, 2, 0, 1, 0, time.UTC),
	time.Date(2015, time.July, 20, 2, 0, 2, 0, time.UTC),
}

func readSample(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(sampleFile)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// withUndeclaredSatellite returns the sample with a Galileo satellite line,
// which the header doesn't declare.
func withUndeclaredSatellite(t *testing.T) []byte {
	t.Helper()
	text := string(readSample(t))
	i := strings.Index(text, "\nG02 ")
	if i < 0 {
		t.Fatal("sample file has no G02 line")
	}
	return []byte(text[:i+1] + "E" + text[i+2:])
}

// setUp creates input and output directories holding the given files and a
// normaliser that works on them.
func setUp(t *testing.T, strict bool, files map[string][]byte, logger *slog.Logger) *Normaliser {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		InputDirectory:  filepath.Join(base, "in"),
		OutputDirectory: filepath.Join(base, "out"),
		IndexFile:       filepath.Join(base, "index.db"),
		Strict:          strict,
		TimeoutSeconds:  10,
	}

	for _, dir := range []string{cfg.InputDirectory, cfg.OutputDirectory} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(cfg.InputDirectory, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ix, err := index.Open(cfg.IndexFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })

	times := append([]time.Time(nil), testTimes...)
	return New(cfg, ix, metrics.New(), logger, clock.NewSteppingClock(&times))
}

func TestCandidates(t *testing.T) {
	files := map[string][]byte{
		"a.15o":       nil,
		"B.15O":       nil,
		"c.rnx":       nil,
		"d.txt":       nil,
		"e.15n":       nil,
		".hidden.15o": nil,
		"f.o":         nil,
	}
	n := setUp(t, true, files, nil)

	got, err := n.Candidates()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"B.15O", "a.15o", "c.rnx"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

// TestRunStrict checks that a strict run normalises the good file, records
// the failure of the bad one and doesn't process either of them again.
func TestRunStrict(t *testing.T) {
	sample := readSample(t)
	files := map[string][]byte{
		"arlm200a.15o": sample,
		"bad.15o":      withUndeclaredSatellite(t),
		"notes.txt":    []byte("not RINEX"),
	}
	n := setUp(t, true, files, nil)

	processed, err := n.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed != 2 {
		t.Errorf("want 2 files processed got %d", processed)
	}

	// The sample is already normalised, so the output is the same text.
	output, err := os.ReadFile(filepath.Join(n.OutputDirectory, "arlm200a.15o"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sample, output) {
		t.Error("the normalised sample differs from the original")
	}

	good, ok, err := n.Index.Get("arlm200a.15o")
	if err != nil || !ok {
		t.Fatalf("want an index entry for the sample - %v", err)
	}
	assert.True(t, good.OK())
	assert.Equal(t, crc24q.Hash(sample), good.Checksum)
	assert.Equal(t, 121, good.Records)
	assert.Equal(t, 0, good.Skipped)
	assert.True(t, testTimes[1].Equal(good.Processed))

	bad, ok, err := n.Index.Get("bad.15o")
	if err != nil || !ok {
		t.Fatalf("want an index entry for the bad file - %v", err)
	}
	assert.False(t, bad.OK())
	assert.Contains(t, bad.Error, "undeclared satellite system")

	if _, err := os.Stat(filepath.Join(n.OutputDirectory, "bad.15o")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want no output for the bad file, got %v", err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(n.Metrics.FilesNormalised))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.Metrics.FilesFailed))
	assert.Equal(t, float64(testTimes[0].Unix()), testutil.ToFloat64(n.Metrics.LastRun))

	// Nothing has changed, so the next run does nothing.
	processed, err = n.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed != 0 {
		t.Errorf("want 0 files processed got %d", processed)
	}

	// Replace the bad file with a good one.  It's processed again.
	badPath := filepath.Join(n.InputDirectory, "bad.15o")
	if err := os.WriteFile(badPath, sample, 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(badPath, later, later); err != nil {
		t.Fatal(err)
	}

	processed, err = n.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Errorf("want 1 file processed got %d", processed)
	}

	fixed, _, err := n.Index.Get("bad.15o")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, fixed.OK())
	assert.Equal(t, good.Checksum, fixed.Checksum)
}

// TestRunLenient checks that a lenient run skips the bad line and logs
// what it did.
func TestRunLenient(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, nil))

	files := map[string][]byte{"bad.15o": withUndeclaredSatellite(t)}
	n := setUp(t, false, files, logger)

	processed, err := n.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Errorf("want 1 file processed got %d", processed)
	}

	entry, _, err := n.Index.Get("bad.15o")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, entry.OK())
	assert.Equal(t, 121, entry.Records)
	assert.Equal(t, 1, entry.Skipped)
	assert.Equal(t, 1, entry.Problems)

	assert.Equal(t, 1.0, testutil.ToFloat64(n.Metrics.LinesSkipped))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(n.Metrics.Problems.WithLabelValues("undeclared satellite system")))

	logText := logBuffer.String()
	assert.Contains(t, logText, "RINEX problem")
	assert.Contains(t, logText, "normalised file")
	assert.Contains(t, logText, "file=bad.15o")
}

// TestNormaliseFileCancelled checks that reading stops when the context is
// done and the failure is recorded.
func TestNormaliseFileCancelled(t *testing.T) {
	files := map[string][]byte{"arlm200a.15o": readSample(t)}
	n := setUp(t, true, files, nil)

	info, err := os.Stat(filepath.Join(n.InputDirectory, "arlm200a.15o"))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry, err := n.NormaliseFile(ctx, "arlm200a.15o", info)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want a cancellation error, got %v", err)
	}
	assert.False(t, entry.OK())

	stored, ok, err := n.Index.Get("arlm200a.15o")
	if err != nil || !ok {
		t.Fatalf("want an index entry - %v", err)
	}
	assert.Equal(t, entry.Error, stored.Error)

	// Run with a cancelled context processes nothing.
	processed, err := n.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want a cancellation error, got %v", err)
	}
	if processed != 0 {
		t.Errorf("want 0 files processed got %d", processed)
	}
}
