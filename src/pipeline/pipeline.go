// Package pipeline runs one collection: resolve the repository, walk its builds,
// scan the selected job log of each and write the matches to the report.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"travis-metrics/src/ingest"
	"travis-metrics/src/logger"
	"travis-metrics/src/patterns"
	"travis-metrics/src/report"
	"travis-metrics/src/sanitize"
	"travis-metrics/src/travis"
)

// Options selects what a run collects and where it writes.
type Options struct {
	RepoSlug    string
	Branch      string
	BuildState  string
	StageNumber int
	OutputCSV   string
	LogsDir     string
}

// DefaultOptions returns the historical collection settings.
func DefaultOptions() Options {
	return Options{
		RepoSlug:    "keboola/connection",
		Branch:      "master",
		BuildState:  travis.StatePassed,
		StageNumber: 2,
		OutputCSV:   "data.csv",
		LogsDir:     "/tmp/logs",
	}
}

// Summary counts what a run did.
type Summary struct {
	Pages           int
	Builds          int
	Processed       int
	SkippedState    int
	SkippedCanceled int
	Rows            int
	Lines           int
	Matched         int
}

// Pipeline is a single sequential collection run.
type Pipeline struct {
	client *travis.Client
	opts   Options
	log    logger.Logger
	out    io.Writer
}

// New creates a pipeline. Progress lines are written to out, diagnostics to log.
func New(client *travis.Client, opts Options, log logger.Logger, out io.Writer) *Pipeline {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{client: client, opts: opts, log: log, out: out}
}

// Run performs the collection. The first error aborts the run; rows and log files
// written before it are kept. The returned summary is never nil.
func (p *Pipeline) Run(ctx context.Context) (summary *Summary, err error) {
	summary = &Summary{}

	repo, err := p.client.FindRepository(ctx, p.opts.RepoSlug)
	if err != nil {
		return summary, &PhaseError{Phase: PhaseResolve, Err: err}
	}
	p.log.Info("Resolved repository %s (id %d)", repo.Slug, repo.ID)

	if err := ingest.EnsureDir(p.opts.LogsDir); err != nil {
		return summary, &PhaseError{Phase: PhaseWrite, Err: err}
	}

	csvFile, err := report.CreateCSV(p.opts.OutputCSV)
	if err != nil {
		return summary, &PhaseError{Phase: PhaseWrite, Err: err}
	}
	defer func() {
		if cerr := csvFile.Close(); cerr != nil && err == nil {
			err = &PhaseError{Phase: PhaseWrite, Err: cerr}
		}
	}()

	pager := travis.NewBuildPaginator(p.client, travis.BuildsHref(*repo, p.opts.Branch, p.opts.BuildState))
	for pager.HasNext() {
		builds, err := pager.Next(ctx)
		if err != nil {
			return summary, &PhaseError{Phase: PhaseList, Err: err}
		}
		summary.Pages++
		p.log.Debug("Fetched builds page %d with %d builds", summary.Pages, len(builds))

		for _, build := range builds {
			summary.Builds++
			if err := p.processBuild(ctx, build, csvFile, summary); err != nil {
				return summary, err
			}
		}
	}

	p.log.Info("Collected %d rows from %d of %d builds (%d pages) into %s",
		summary.Rows, summary.Processed, summary.Builds, summary.Pages, csvFile.Path())
	if summary.SkippedState > 0 || summary.SkippedCanceled > 0 {
		p.log.Info("Skipped %d builds not %s and %d builds with stage %d canceled",
			summary.SkippedState, travis.StatePassed, summary.SkippedCanceled, p.opts.StageNumber)
	}
	return summary, nil
}

func (p *Pipeline) processBuild(ctx context.Context, build travis.Build, csvFile *report.CSVFile, summary *Summary) error {
	if err := ctx.Err(); err != nil {
		return &PhaseError{Phase: PhaseList, BuildID: build.ID, Err: err}
	}

	started, err := build.StartTime()
	if err != nil {
		return &PhaseError{Phase: PhaseList, BuildID: build.ID, Err: fmt.Errorf("invalid started_at: %w", err)}
	}
	year, month, day, date := report.DateFields(started)
	fmt.Fprintf(p.out, "%s\t%d\t%s\t%s\t%s\t%s\n", build.StartedAt, build.ID, year, month, day, date)

	if !build.Passed() {
		summary.SkippedState++
		p.log.Debug("Skipping build %d in state %s", build.ID, build.State)
		return nil
	}

	stages, err := p.client.GetStages(ctx, build)
	if err != nil {
		return &PhaseError{Phase: PhaseStage, BuildID: build.ID, Err: err}
	}
	stage, err := travis.SelectStage(stages, p.opts.StageNumber)
	if err != nil {
		return &PhaseError{Phase: PhaseStage, BuildID: build.ID, Err: err}
	}
	if stage.Canceled() {
		summary.SkippedCanceled++
		p.log.Debug("Skipping build %d: stage %d (%s) was canceled", build.ID, stage.Number, stage.Name)
		return nil
	}

	job, err := stage.FirstJob()
	if err != nil {
		return &PhaseError{Phase: PhaseStage, BuildID: build.ID, Err: err}
	}
	jobLog, err := p.client.GetJobLog(ctx, *job)
	if err != nil {
		return &PhaseError{Phase: PhaseLog, BuildID: build.ID, Err: err}
	}
	stream, err := p.client.OpenRawLog(ctx, jobLog)
	if err != nil {
		return &PhaseError{Phase: PhaseLog, BuildID: build.ID, Err: err}
	}
	defer stream.Close()

	files, err := ingest.CreateLogFiles(p.opts.LogsDir, build.ID)
	if err != nil {
		return &PhaseError{Phase: PhaseWrite, BuildID: build.ID, Err: err}
	}
	defer files.Close()

	var writeErr error
	stats, err := ingest.Scan(stream, func(lineNo int, line string, matches []patterns.Match) error {
		for _, m := range matches {
			if err := csvFile.Write(report.NewRow(build.ID, build.StartedAt, started, m)); err != nil {
				writeErr = err
				return err
			}
			summary.Rows++
			p.log.Debug("Build %d line %d: %s %s tests=%s assertions=%s: %s",
				build.ID, lineNo, m.Pattern, m.Suite, m.Tests, m.Assertions, sanitize.ForLog(line))
		}
		if err := files.WriteLine(line, len(matches)); err != nil {
			writeErr = err
			return err
		}
		return nil
	})
	summary.Lines += stats.Lines
	summary.Matched += stats.Matched
	if err != nil {
		if writeErr != nil {
			return &PhaseError{Phase: PhaseWrite, BuildID: build.ID, Err: err}
		}
		return &PhaseError{Phase: PhaseLog, BuildID: build.ID, Err: err}
	}

	if err := files.Close(); err != nil {
		return &PhaseError{Phase: PhaseWrite, BuildID: build.ID, Err: err}
	}

	summary.Processed++
	p.log.Info("Build %d: %d lines, %d matched, %s written to %s",
		build.ID, stats.Lines, stats.Matched, humanize.Bytes(uint64(files.Written())), files.FullPath)
	return nil
}
