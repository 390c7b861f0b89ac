package populate

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/fileutil"
)

// Status is the outcome of one product.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ItemResult is what happened to one product.
type ItemResult struct {
	Title              string   `json:"title" yaml:"title"`
	Slug               string   `json:"slug" yaml:"slug"`
	Status             Status   `json:"status" yaml:"status"`
	GameID             cms.ID   `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	DescriptionScraped bool     `json:"description_scraped" yaml:"description_scraped"`
	CoverUploaded      bool     `json:"cover_uploaded" yaml:"cover_uploaded"`
	GalleryAttempted   int      `json:"gallery_attempted" yaml:"gallery_attempted"`
	GalleryUploaded    int      `json:"gallery_uploaded" yaml:"gallery_uploaded"`
	Warnings           []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error              string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *ItemResult) fail(err error) {
	r.Status = StatusFailed
	r.Error = err.Error()
}

func (r *ItemResult) warn(err error) {
	r.Warnings = append(r.Warnings, err.Error())
}

// KindStats counts entity resolution for one kind.
type KindStats struct {
	Distinct int      `json:"distinct" yaml:"distinct"`
	Created  int      `json:"created" yaml:"created"`
	Existing int      `json:"existing" yaml:"existing"`
	Failed   int      `json:"failed" yaml:"failed"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// EntityStats maps a kind name to its counters.
type EntityStats map[string]*KindStats

// NewEntityStats returns zeroed counters for every related kind.
func NewEntityStats() EntityStats {
	stats := make(EntityStats)
	for _, kind := range cms.RelatedKinds() {
		stats[kind.String()] = &KindStats{}
	}
	return stats
}

// Get returns the counters of kind.
func (s EntityStats) Get(kind cms.Kind) KindStats {
	if ks, ok := s[kind.String()]; ok {
		return *ks
	}
	return KindStats{}
}

func (s EntityStats) kind(kind cms.Kind) *KindStats {
	ks, ok := s[kind.String()]
	if !ok {
		ks = &KindStats{}
		s[kind.String()] = ks
	}
	return ks
}

func (s EntityStats) addDistinct(kind cms.Kind, n int) { s.kind(kind).Distinct += n }
func (s EntityStats) addCreated(kind cms.Kind)         { s.kind(kind).Created++ }
func (s EntityStats) addExisting(kind cms.Kind)        { s.kind(kind).Existing++ }

func (s EntityStats) addFailure(kind cms.Kind, err error) {
	ks := s.kind(kind)
	ks.Failed++
	ks.Errors = append(ks.Errors, err.Error())
}

// Report collects the outcome of a populate run.
type Report struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	Params     map[string][]string `json:"params" yaml:"params"`
	Pages      int                 `json:"pages" yaml:"pages"`
	Entities   EntityStats         `json:"entities" yaml:"entities"`
	Items      []ItemResult        `json:"items" yaml:"items"`
	Cancelled  bool                `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport starts a report for a run with the given catalog parameters.
func NewReport(params url.Values) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Params:    cloneValues(params),
		Entities:  NewEntityStats(),
	}
}

// AddEntities merges the counters of one page.
func (r *Report) AddEntities(stats EntityStats) {
	for name, ks := range stats {
		total, ok := r.Entities[name]
		if !ok {
			total = &KindStats{}
			r.Entities[name] = total
		}
		total.Distinct += ks.Distinct
		total.Created += ks.Created
		total.Existing += ks.Existing
		total.Failed += ks.Failed
		total.Errors = append(total.Errors, ks.Errors...)
	}
}

// AddItem appends the result of one product.
func (r *Report) AddItem(item ItemResult) {
	r.Items = append(r.Items, item)
}

// Fail records the error that ended the run.
func (r *Report) Fail(err error) {
	r.Error = err.Error()
}

// Cancel marks the run as stopped before all products were processed.
func (r *Report) Cancel(err error) {
	r.Cancelled = true
	r.Error = fmt.Sprintf("run cancelled: %v", err)
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary holds the headline counts of a report.
type Summary struct {
	Products        int
	Created         int
	Skipped         int
	Failed          int
	Descriptions    int
	Covers          int
	GalleryImages   int
	EntitiesCreated int
	EntitiesFailed  int
	Warnings        int
}

// Summary counts the report's outcomes.
func (r *Report) Summary() Summary {
	s := Summary{Products: len(r.Items)}
	for _, item := range r.Items {
		switch item.Status {
		case StatusCreated:
			s.Created++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		if item.DescriptionScraped {
			s.Descriptions++
		}
		if item.CoverUploaded {
			s.Covers++
		}
		s.GalleryImages += item.GalleryUploaded
		s.Warnings += len(item.Warnings)
	}
	for _, ks := range r.Entities {
		s.EntitiesCreated += ks.Created
		s.EntitiesFailed += ks.Failed
	}
	return s
}

// OK reports whether the run finished without a top-level error or failed product.
func (r *Report) OK() bool {
	return r.Error == "" && r.Summary().Failed == 0
}

// WriteFile writes the report as YAML (.yaml/.yml) or JSON.
func (r *Report) WriteFile(path string) error {
	if _, err := fileutil.WriteStructuredFile(r, path, true); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
