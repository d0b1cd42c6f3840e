// Package report writes extracted test metrics as CSV.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"travis-metrics/src/patterns"
)

// Header is the first record of every report.
var Header = []string{"buildId", "startedAt", "suite", "tests", "assertions", "year", "month", "day", "date"}

// Layouts of the calendar fields derived from a build's start time.
const (
	YearLayout  = "2006"
	MonthLayout = "01"
	DayLayout   = "02"
	DateLayout  = "2006-01-02 15:04:05"
)

// Row is one metric extracted from a build log.
type Row struct {
	BuildID    int64
	StartedAt  string
	Suite      string
	Tests      string
	Assertions string
	Year       string
	Month      string
	Day        string
	Date       string
}

// DateFields formats the year, month, day and full date of t in t's own offset.
func DateFields(t time.Time) (year, month, day, date string) {
	return t.Format(YearLayout), t.Format(MonthLayout), t.Format(DayLayout), t.Format(DateLayout)
}

// NewRow builds the row for match found in the log of build buildID.
// startedAt is kept exactly as the API returned it.
func NewRow(buildID int64, startedAt string, started time.Time, match patterns.Match) Row {
	year, month, day, date := DateFields(started)
	return Row{
		BuildID:    buildID,
		StartedAt:  startedAt,
		Suite:      match.Suite,
		Tests:      match.Tests,
		Assertions: match.Assertions,
		Year:       year,
		Month:      month,
		Day:        day,
		Date:       date,
	}
}

// Record returns the row's fields in Header order.
func (r Row) Record() []string {
	return []string{
		strconv.FormatInt(r.BuildID, 10),
		r.StartedAt,
		r.Suite,
		r.Tests,
		r.Assertions,
		r.Year,
		r.Month,
		r.Day,
		r.Date,
	}
}

// CSVFile is an open report. Each Write is flushed so a failed run keeps every row written so far.
type CSVFile struct {
	path   string
	file   *os.File
	w      *csv.Writer
	rows   int
	closed bool
}

// CreateCSV creates or truncates path and writes the header.
func CreateCSV(path string) (*CSVFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report %s: %w", path, err)
	}

	c := &CSVFile{path: path, file: f, w: csv.NewWriter(f)}
	if err := c.write(Header); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Path returns the report location.
func (c *CSVFile) Path() string {
	return c.path
}

// Write appends one row.
func (c *CSVFile) Write(row Row) error {
	if c.closed {
		return os.ErrClosed
	}
	if err := c.write(row.Record()); err != nil {
		return err
	}
	c.rows++
	return nil
}

func (c *CSVFile) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("failed to write report row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// Rows returns the number of data rows written, header excluded.
func (c *CSVFile) Rows() int {
	return c.rows
}

// Close flushes and closes the file. Calling Close again is a no-op.
func (c *CSVFile) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.w.Flush()
	return errors.Join(c.w.Error(), c.file.Close())
}
