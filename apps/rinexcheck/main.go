// rinexcheck reads a RINEX 3 observation file from a file or stdin,
// checks it and writes a readable summary to the standard output channel.
//
// The summary shows the header, the number of data records, the earliest
// and latest epochs, any problems found and the CRC-24Q of the file as it
// would be written back out.  Two files that hold the same observations
// produce the same CRC, however they were laid out originally, so the CRC
// can be used to compare files from different sources.
//
// By default the file is parsed strictly and the tool stops at the first
// problem, for example a satellite line for a constellation that the header
// doesn't declare.  With -lenient it skips the lines that it can't use and
// lists the problems at the end of the summary.
//
// For example:
//
//	RINEX 3.02 observation file, system Mixed, time system GPS
//	program teqc  2013Mar15, run by BKG, date 20150720 01:03:27UTC
//	...
//	121 records (1 events), 8668 observations
//	earliest epoch 2015-07-19 00:00:00.0000000 GPS
//	latest epoch 2015-07-19 00:59:30.0000000 GPS
//	CRC-24Q 65dd6c
//
// Usage:
//
//	rinexcheck [-lenient] [-v] [-o outputfile] file
//
// Examples:
//
//	rinexcheck arlm200a.15o
//
//	rinexcheck -lenient -o clean.15o - <arlm200a.15o # take input from the standard input channel.
//
// The -o option writes the normalised file: the same header and data
// records, written in the canonical layout with any skipped lines removed.
// The -v option logs each problem on stderr as it's found.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/goblimey/go-rinex/rinex"
)

func main() {

	var lenient, verbose bool
	var outputFileName string
	flag.BoolVar(&lenient, "lenient", false, "skip bad lines rather than stopping")
	flag.BoolVar(&verbose, "v", false, "log problems on stderr")
	flag.StringVar(&outputFileName, "o", "", "write the normalised file")

	flag.Parse()

	appName := os.Args[0]
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [-lenient] [-v] [-o outputfile] file", appName)
	}

	fileName := flag.Arg(0)
	reader, openError := openFile(fileName)
	if openError != nil {
		log.Fatalf("%s: cannot open %s - %v", appName, fileName, openError)
	}

	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	checkError := Check(reader, os.Stdout, rinex.PolicyFor(!lenient), logger, outputFileName)
	if checkError != nil {
		log.Fatalf("%s: %s - %v", appName, fileName, checkError)
	}

	os.Exit(0)
}

// Check parses the RINEX data from the reader and writes a summary to the
// writer.  If outputFileName is not empty, the normalised file is written
// there.  The logger may be nil.
func Check(reader io.Reader, writer io.Writer, policy rinex.Policy, logger *slog.Logger, outputFileName string) error {

	parser := rinex.NewParser(policy, logger)
	result, parseError := parser.ParseReader(reader)
	if parseError != nil {
		return parseError
	}

	result.Header.Dump(writer)
	fmt.Fprintln(writer)
	result.Summarise(writer)

	// Produce the normalised text.  This fails only if the parser has
	// accepted something that can't be written, for example a version 2
	// header.
	lines, writeError := rinex.Write(result.Header, result.Records)
	if writeError != nil {
		return writeError
	}
	fmt.Fprintf(writer, "CRC-24Q %06x\n", rinex.Checksum(lines))

	if len(outputFileName) == 0 {
		return nil
	}

	return rinex.WriteLinesToFile(outputFileName, lines)
}

// openFile opens the given file and returns a Reader connected
// to it.  If the file name is "-" it returns os.Stdin
func openFile(fileName string) (io.Reader, error) {
	if fileName == "-" {
		return os.Stdin, nil
	}

	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}

	return file, nil
}
