// Package ingest reads raw job logs line by line and keeps on-disk copies of them.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"travis-metrics/src/patterns"
)

// Visitor is called once per line, in stream order. line is exactly the bytes read,
// including its trailing newline if it had one. matches holds every pattern that fired.
type Visitor func(lineNo int, line string, matches []patterns.Match) error

// Stats summarizes one Scan.
type Stats struct {
	Lines   int
	Matched int // lines with at least one match
	Matches int // total matches; a line matching both patterns counts twice
	Bytes   int64
}

// Scan consumes r sequentially until end of stream, classifying each line.
// Lines have no length limit. A final line without a newline is still delivered.
// A visitor error stops the scan and is returned as is.
func Scan(r io.Reader, visit Visitor) (Stats, error) {
	var stats Stats
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			stats.Lines++
			stats.Bytes += int64(len(line))

			matches := patterns.Classify(line)
			if len(matches) > 0 {
				stats.Matched++
				stats.Matches += len(matches)
			}

			if verr := visit(stats.Lines, line, matches); verr != nil {
				return stats, verr
			}
		}

		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read log stream: %w", err)
		}
	}
}
