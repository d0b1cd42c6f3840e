package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// EnsureDir creates dir and its parents with mode 0777. An existing directory is fine.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return fmt.Errorf("failed to create logs directory %s: %w", dir, err)
	}
	return nil
}

// LogFileNames returns the full and filtered log paths for a build.
func LogFileNames(dir string, buildID int64) (full, filtered string) {
	id := strconv.FormatInt(buildID, 10)
	return filepath.Join(dir, id+".txt"), filepath.Join(dir, id+"-filtered.txt")
}

// LogFiles owns the two per-build log copies: every line goes to the full file,
// matched lines go to the filtered file.
type LogFiles struct {
	FullPath     string
	FilteredPath string

	full     *os.File
	filtered *os.File
	fullW    *bufio.Writer
	filterW  *bufio.Writer

	written int64
	closed  bool
}

// CreateLogFiles creates (or truncates) both log files for buildID inside dir.
func CreateLogFiles(dir string, buildID int64) (*LogFiles, error) {
	fullPath, filteredPath := LogFileNames(dir, buildID)

	full, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	filtered, err := os.Create(filteredPath)
	if err != nil {
		full.Close()
		return nil, fmt.Errorf("failed to create filtered log file: %w", err)
	}

	return &LogFiles{
		FullPath:     fullPath,
		FilteredPath: filteredPath,
		full:         full,
		filtered:     filtered,
		fullW:        bufio.NewWriter(full),
		filterW:      bufio.NewWriter(filtered),
	}, nil
}

// WriteLine appends line verbatim to the full log and, once per match, to the filtered log.
func (f *LogFiles) WriteLine(line string, matches int) error {
	if f.closed {
		return os.ErrClosed
	}

	for i := 0; i < matches; i++ {
		if _, err := f.filterW.WriteString(line); err != nil {
			return fmt.Errorf("failed to write filtered log: %w", err)
		}
	}

	n, err := f.fullW.WriteString(line)
	f.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	return nil
}

// Written returns the number of bytes written to the full log.
func (f *LogFiles) Written() int64 {
	return f.written
}

// Close flushes and closes both files. Calling Close again is a no-op.
func (f *LogFiles) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	return errors.Join(
		f.fullW.Flush(),
		f.full.Close(),
		f.filterW.Flush(),
		f.filtered.Close(),
	)
}
