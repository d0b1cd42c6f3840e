package ingest

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travis-metrics/src/patterns"
)

type visited struct {
	lineNo  int
	line    string
	matches []patterns.Match
}

func collect(t *testing.T, input string) ([]visited, Stats) {
	t.Helper()
	var got []visited
	stats, err := Scan(strings.NewReader(input), func(lineNo int, line string, matches []patterns.Match) error {
		got = append(got, visited{lineNo, line, matches})
		return nil
	})
	require.NoError(t, err)
	return got, stats
}

func TestScan_PreservesLinesExactly(t *testing.T) {
	input := "first\r\n\nMySuite OK (1 tests, 2 assertions)\nlast without newline"

	got, stats := collect(t, input)

	require.Len(t, got, 4)
	var rebuilt strings.Builder
	for i, v := range got {
		assert.Equal(t, i+1, v.lineNo)
		rebuilt.WriteString(v.line)
	}
	assert.Equal(t, input, rebuilt.String())
	assert.Equal(t, "first\r\n", got[0].line)
	assert.Equal(t, "\n", got[1].line)
	assert.Equal(t, "last without newline", got[3].line)

	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Matches)
	assert.Equal(t, int64(len(input)), stats.Bytes)
}

func TestScan_Matches(t *testing.T) {
	input := strings.Join([]string{
		"$ vendor/bin/phpunit",
		"12:00:00-UTC - MySuite ... OK (10 tests, 20 assertions)",
		"Foo Tests: 5\x1b[0m\x1b[30;43m, Assertions: 7",
		"Both OK (1 tests, 2 assertions) Tests: 3\x1b[0m\x1b[30;43m, Assertions: 4",
		"",
	}, "\n")

	got, stats := collect(t, input)

	require.Len(t, got, 4)
	assert.Empty(t, got[0].matches)
	assert.Equal(t, []patterns.Match{{Pattern: patterns.PatternOK, Suite: "MySuite", Tests: "10", Assertions: "20"}}, got[1].matches)
	assert.Equal(t, []patterns.Match{{Pattern: patterns.PatternTests, Suite: "Foo", Tests: "5", Assertions: "7"}}, got[2].matches)
	assert.Len(t, got[3].matches, 2)

	assert.Equal(t, 3, stats.Matched)
	assert.Equal(t, 4, stats.Matches)
}

func TestScan_LongLine(t *testing.T) {
	long := strings.Repeat("x", 1<<20) + " OK (1 tests, 1 assertions)\n"
	got, _ := collect(t, "Long"+long)

	require.Len(t, got, 1)
	require.Len(t, got[0].matches, 1)
	assert.Equal(t, "Long"+strings.Repeat("x", 1<<20), got[0].matches[0].Suite)
}

func TestScan_Empty(t *testing.T) {
	got, stats := collect(t, "")
	assert.Empty(t, got)
	assert.Equal(t, Stats{}, stats)
}

func TestScan_VisitorError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0

	_, err := Scan(strings.NewReader("a\nb\nc\n"), func(int, string, []patterns.Match) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestScan_ReadError(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := Scan(iotest.ErrReader(boom), func(int, string, []patterns.Match) error { return nil })
	assert.ErrorIs(t, err, boom)
}
