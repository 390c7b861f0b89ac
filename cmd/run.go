package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/catalogfill/cmd/populate"
	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/robfig/cron/v3"
)

var newCron = func(opts ...cron.Option) *cron.Cron {
	return cron.New(opts...)
}

// PopulateFlags select the catalog listing and how it is imported
type PopulateFlags struct {
	Page    int               `help:"Catalog page to start at"`
	Sort    string            `help:"Catalog sort order (e.g. popularity, date)" default:"popularity"`
	Genre   []string          `help:"Only products of these genres"`
	Param   map[string]string `help:"Extra catalog query parameter as key=value (repeatable)"`
	Pages   int               `help:"Number of consecutive catalog pages to import" default:"1"`
	Backend string            `help:"CMS backend: rest or sqlite (defaults to cms.backend)"`
	Delay   string            `help:"Pause between products (e.g. 2s), overrides populate.delay"`
	DryRun  bool              `help:"Write to a throwaway in-memory CMS"`
	NoCache bool              `help:"Always scrape detail pages instead of using the cache"`
	Render  bool              `help:"Render detail pages in headless Chrome before scraping"`
	Report  string            `help:"Write the run report to this .json or .yaml file"`
}

// CatalogParams returns the listing query parameters selected by the flags.
// Explicit --param values win over the dedicated flags.
func (f *PopulateFlags) CatalogParams() url.Values {
	params := url.Values{}
	if f.Sort != "" {
		params.Set("sort", f.Sort)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if len(f.Genre) > 0 {
		params.Set("genres", strings.Join(f.Genre, ","))
	}
	for key, value := range f.Param {
		params.Set(key, value)
	}
	return params
}

func (f *PopulateFlags) params() (populate.Params, error) {
	if f.Delay != "" {
		d, err := time.ParseDuration(f.Delay)
		if err != nil {
			return populate.Params{}, fmt.Errorf("invalid delay %q: %w", f.Delay, err)
		}
		config.SetDelay(d)
	}
	return populate.Params{
		Catalog:    f.CatalogParams(),
		Pages:      f.Pages,
		Backend:    f.Backend,
		DryRun:     f.DryRun,
		NoCache:    f.NoCache,
		Render:     f.Render,
		ReportPath: f.Report,
	}, nil
}

// PopulateCmd runs the pipeline once
type PopulateCmd struct {
	PopulateFlags `embed:""`
}

func (p *PopulateCmd) Run(ctx context.Context) error {
	params, err := p.params()
	if err != nil {
		return err
	}

	report, err := runPopulate(ctx, params)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, renderSummary(report))

	if report.Error != "" && !report.Cancelled {
		return fmt.Errorf("populate run failed: %s", report.Error)
	}
	return nil
}

// ScheduleCmd runs the pipeline on a cron schedule until interrupted
type ScheduleCmd struct {
	Cron   string `help:"Cron expression (5 fields, or descriptors like @hourly)" required:""`
	RunNow bool   `help:"Run once immediately before waiting for the schedule"`

	PopulateFlags `embed:""`
}

func (s *ScheduleCmd) Run(ctx context.Context) error {
	params, err := s.params()
	if err != nil {
		return err
	}

	logger := cronLogger{}
	c := newCron(cron.WithLogger(logger))

	// a run still in progress when the next one is due makes the next one a no-op
	job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		runScheduled(ctx, params)
	}))

	if _, err := c.AddJob(s.Cron, job); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.Cron, err)
	}

	if s.RunNow {
		job.Run()
	}

	c.Start()
	slog.Info("Scheduler started", "cron", s.Cron, "next", nextRun(c))

	<-ctx.Done()
	slog.Info("Stopping scheduler, waiting for the current run")
	<-c.Stop().Done()
	return nil
}

func runScheduled(ctx context.Context, params populate.Params) {
	if ctx.Err() != nil {
		return
	}
	report, err := runPopulate(ctx, params)
	if err != nil {
		slog.Error("Scheduled run could not start", "error", err)
		return
	}
	s := report.Summary()
	slog.Info("Scheduled run finished",
		"run_id", report.RunID,
		"created", s.Created,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"duration", report.Duration().Round(time.Millisecond),
	)
}

func nextRun(c *cron.Cron) time.Time {
	entries := c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Next.Before(entries[j].Next) })
	return entries[0].Next
}

// cronLogger sends cron's internal logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
