// Package pipeline orchestrates the single-pass batch load: extract raw
// rows, clean them, replace staging, validate, promote dimensions and the
// fact table, and validate the final state. Data-quality problems are
// reported in the RunReport; only source and storage failures abort.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"onetmart/internal/clean"
	"onetmart/internal/extract"
	"onetmart/internal/warehouse"
	"onetmart/internal/warehouse/check"
	"onetmart/pkg/domain"
)

// Config describes one pipeline run.
type Config struct {
	// RawDir holds the dump files and the major-group lookup CSV.
	RawDir string
	// LookupPath overrides the major-group CSV location; defaults to
	// RawDir/soc_major_groups.csv.
	LookupPath string
	// Warehouse configures the store to (re)initialize.
	Warehouse warehouse.OpenConfig
}

// RunReport is the typed outcome of a run: the counts and findings a caller
// or test asserts against, independent of log output.
type RunReport struct {
	Extracted          map[extract.Source]int
	OccupationsCleaned int
	ValidRatings       map[domain.RatingDomain]int
	InvalidRatings     map[domain.RatingDomain]int
	StagedRatings      map[domain.RatingDomain]int
	InvalidStaged      int
	ScalesPromoted     int
	MajorGroups        int
	Occupations        int
	Elements           int
	Anchors            int
	Facts              int
	StagingFindings    []string
	StagingSummary     []check.Summary
	PostLoadFindings   []string
}

// Runner executes pipeline runs with shared logging and metrics.
type Runner struct {
	log     logrus.FieldLogger
	metrics MetricsRecorder
}

// New constructs a Runner. A nil logger discards output; nil metrics are
// recorded nowhere.
func New(log logrus.FieldLogger, metrics MetricsRecorder) *Runner {
	if log == nil {
		l := logrus.New()
		l.SetOutput(nilWriter{})
		log = l
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Runner{log: log, metrics: metrics}
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// step times fn, forwards the outcome to metrics, and logs the row count.
func (r *Runner) step(ctx context.Context, name string, fn func() (int, error)) (int, error) {
	start := time.Now()
	n, err := fn()
	r.metrics.Observe(ctx, name, err == nil, time.Since(start))
	if err != nil {
		return 0, err
	}
	r.metrics.AddRows(ctx, name, n)
	r.log.WithFields(logrus.Fields{"step": name, "rows": n}).Info("step complete")
	return n, nil
}

// Run executes the full pipeline once and returns its report.
func (r *Runner) Run(ctx context.Context, cfg Config) (*RunReport, error) {
	report := &RunReport{
		Extracted:      map[extract.Source]int{},
		ValidRatings:   map[domain.RatingDomain]int{},
		InvalidRatings: map[domain.RatingDomain]int{},
		StagedRatings:  map[domain.RatingDomain]int{},
	}

	// Extract. Only the occupation source is required.
	occRows, err := extract.Rows(ctx, cfg.RawDir, extract.SourceOccupation)
	if err != nil {
		return nil, err
	}
	report.Extracted[extract.SourceOccupation] = len(occRows)
	ratingSources := map[domain.RatingDomain]extract.Source{
		domain.DomainSkill:     extract.SourceSkills,
		domain.DomainKnowledge: extract.SourceKnowledge,
		domain.DomainAbility:   extract.SourceAbilities,
	}
	ratingRows := map[domain.RatingDomain][]domain.Row{}
	for _, d := range domain.RatingDomains() {
		src := ratingSources[d]
		rows, err := extract.Rows(ctx, cfg.RawDir, src)
		if err != nil {
			return nil, err
		}
		ratingRows[d] = rows
		report.Extracted[src] = len(rows)
	}
	scalesRows, err := extract.Rows(ctx, cfg.RawDir, extract.SourceScalesReference)
	if err != nil {
		return nil, err
	}
	report.Extracted[extract.SourceScalesReference] = len(scalesRows)
	anchorRows, err := extract.Rows(ctx, cfg.RawDir, extract.SourceAnchors)
	if err != nil {
		return nil, err
	}
	report.Extracted[extract.SourceAnchors] = len(anchorRows)
	r.log.WithField("rows", report.Extracted).Info("extraction complete")

	// Clean. Pure, no storage involved.
	occs := clean.Occupations(occRows)
	report.OccupationsCleaned = len(occs)
	validRatings := map[domain.RatingDomain][]domain.Rating{}
	var invalid []domain.InvalidRating
	for _, d := range domain.RatingDomains() {
		valid, bad := clean.SplitRatings(ratingRows[d], d)
		validRatings[d] = valid
		invalid = append(invalid, bad...)
		report.ValidRatings[d] = len(valid)
		report.InvalidRatings[d] = len(bad)
		if len(bad) > 0 {
			r.log.WithFields(logrus.Fields{"domain": d, "rows": len(bad)}).Warn("invalid rating rows diverted to diagnostics")
		}
	}

	// Initialize the store and load staging.
	store, err := warehouse.Open(ctx, cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	if _, err := r.step(ctx, "stage_occupations", func() (int, error) {
		return store.ReplaceOccupations(ctx, occs)
	}); err != nil {
		return nil, err
	}
	for _, d := range domain.RatingDomains() {
		n, err := r.step(ctx, "stage_"+string(d), func() (int, error) {
			return store.ReplaceRatings(ctx, d, validRatings[d])
		})
		if err != nil {
			return nil, err
		}
		report.StagedRatings[d] = n
	}
	if report.InvalidStaged, err = r.step(ctx, "stage_invalid", func() (int, error) {
		return store.ReplaceInvalidRatings(ctx, invalid)
	}); err != nil {
		return nil, err
	}
	if _, err := r.step(ctx, "stage_anchors", func() (int, error) {
		return store.ReplaceAnchors(ctx, anchorRows)
	}); err != nil {
		return nil, err
	}
	if _, err := r.step(ctx, "stage_scales_reference", func() (int, error) {
		return store.ReplaceScalesReference(ctx, scalesRows)
	}); err != nil {
		return nil, err
	}

	// Post-stage checkpoint: findings are reported, never fatal.
	findings, summary, err := check.Staging(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("staging checkpoint: %w", err)
	}
	report.StagingFindings = findings
	report.StagingSummary = summary
	for _, f := range findings {
		r.log.WithField("finding", f).Warn("staging validation")
	}

	// Promote in dependency order.
	if report.ScalesPromoted, err = r.step(ctx, "promote_scales", func() (int, error) {
		return store.PromoteScales(ctx)
	}); err != nil {
		return nil, err
	}
	lookup := cfg.LookupPath
	if lookup == "" {
		lookup = filepath.Join(cfg.RawDir, "soc_major_groups.csv")
	}
	groups, err := extract.MajorGroups(lookup)
	if err != nil {
		return nil, err
	}
	if report.MajorGroups, err = r.step(ctx, "promote_major_groups", func() (int, error) {
		return store.UpsertMajorGroups(ctx, groups)
	}); err != nil {
		return nil, err
	}
	if report.Occupations, err = r.step(ctx, "promote_occupations", func() (int, error) {
		return store.UpsertOccupations(ctx, occs)
	}); err != nil {
		return nil, err
	}
	if report.Elements, err = r.step(ctx, "promote_elements", func() (int, error) {
		return store.PromoteElements(ctx)
	}); err != nil {
		return nil, err
	}
	if report.Anchors, err = r.step(ctx, "promote_anchors", func() (int, error) {
		return store.PromoteAnchors(ctx)
	}); err != nil {
		return nil, err
	}
	if report.Facts, err = r.step(ctx, "promote_facts", func() (int, error) {
		return store.PromoteFacts(ctx)
	}); err != nil {
		return nil, err
	}

	// Final checkpoint over the loaded state.
	postFindings, err := check.PostLoad(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("postload checkpoint: %w", err)
	}
	report.PostLoadFindings = postFindings
	for _, f := range postFindings {
		r.log.WithField("finding", f).Warn("postload validation")
	}
	r.log.WithFields(logrus.Fields{
		"facts":    report.Facts,
		"findings": len(findings) + len(postFindings),
	}).Info("pipeline complete")
	return report, nil
}
