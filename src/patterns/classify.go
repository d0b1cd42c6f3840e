// Package patterns recognizes test-run summary lines in CI job logs.
//
// Two formats are recognized, tried in order on every line:
//   - PatternOK:     PHPUnit's plain "OK (N tests, M assertions)" footer
//   - PatternTests:  the colored "Tests: N, Assertions: M" footer, matched with its raw
//     ANSI escapes (reset, then black on yellow) exactly as they appear in the log
//
// Lines must be classified as read; do not strip ANSI sequences first.
package patterns

import "regexp"

// Pattern identifies which expression produced a Match.
type Pattern int

const (
	// PatternOK matches "... OK (10 tests, 20 assertions)".
	PatternOK Pattern = iota
	// PatternTests matches "... Tests: 5\x1b[0m\x1b[30;43m, Assertions: 7".
	PatternTests
)

func (p Pattern) String() string {
	switch p {
	case PatternOK:
		return "ok"
	case PatternTests:
		return "tests"
	}
	return "unknown"
}

// Both expressions accept an optional "HH:MM:SS-UTC - " style prefix, then capture the
// first non-whitespace token as the suite.
var (
	okPattern    = regexp.MustCompile(`^(?:[:\d]+-UTC - )?([\S]+).*OK \((\d+) tests, (\d+) assertions\)`)
	testsPattern = regexp.MustCompile(`^(?:[:\d]+-UTC - )?([\S]+).*Tests: (\d+)\x1b\[0m\x1b\[30;43m, Assertions: (\d+)`)
)

var expressions = []struct {
	pattern Pattern
	re      *regexp.Regexp
}{
	{PatternOK, okPattern},
	{PatternTests, testsPattern},
}

// Match is one summary extracted from a log line.
// Tests and Assertions are the digits exactly as captured, leading zeros included.
type Match struct {
	Pattern    Pattern
	Suite      string
	Tests      string
	Assertions string
}

// Classify applies every pattern to line, in order, and returns one Match per pattern that fired.
// A line can match both patterns; both matches are returned.
func Classify(line string) []Match {
	var matches []Match
	for _, expr := range expressions {
		if m, ok := apply(expr.pattern, expr.re, line); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// MatchPattern applies a single pattern to line.
func MatchPattern(p Pattern, line string) (Match, bool) {
	for _, expr := range expressions {
		if expr.pattern == p {
			return apply(expr.pattern, expr.re, line)
		}
	}
	return Match{}, false
}

func apply(p Pattern, re *regexp.Regexp, line string) (Match, bool) {
	groups := re.FindStringSubmatch(line)
	if groups == nil {
		return Match{}, false
	}
	return Match{
		Pattern:    p,
		Suite:      groups[1],
		Tests:      groups[2],
		Assertions: groups[3],
	}, true
}
