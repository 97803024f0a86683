// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a paper through validation, fetching, author
// extraction, affiliation deduplication and resolution, and assembles the
// validated result.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/extract"
	"github.com/pdiddy/affiliation-engine/internal/resolve"
	"github.com/pdiddy/affiliation-engine/internal/telemetry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DocumentSource returns the text of a paper. *acquire.Source implements it.
type DocumentSource interface {
	FetchText(ctx context.Context, id types.PaperIdentifier) (types.Document, error)
}

// Orchestrator sequences the stages for one paper at a time. It holds no
// per-run state and may be shared by concurrent runs.
type Orchestrator struct {
	source    DocumentSource
	extractor extract.Extractor
	resolver  resolve.Resolver
	recorder  telemetry.Recorder
	logger    *zap.Logger
}

// New returns an Orchestrator. A nil recorder disables telemetry and a nil
// logger discards logs. source may be nil when only ProcessText is used.
func New(source DocumentSource, extractor extract.Extractor, resolver resolve.Resolver, recorder telemetry.Recorder, logger *zap.Logger) *Orchestrator {
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		source:    source,
		extractor: extractor,
		resolver:  resolver,
		recorder:  recorder,
		logger:    logger,
	}
}

// run is the state threaded through the stages of one paper.
type run struct {
	id     string
	raw    string
	logger *zap.Logger

	arxivID    types.PaperIdentifier
	doc        types.Document
	haveText   bool
	authors    types.AuthorSet
	unique     []types.Affiliation
	resolution types.ResolutionResult
	paper      *types.ValidatedPaper
}

type step struct {
	stage Stage
	fn    func(ctx context.Context, r *run) error
}

// Process runs the full pipeline for the raw identifier. On failure it
// returns a *StageError and no partial result.
func (o *Orchestrator) Process(ctx context.Context, raw string) (*types.ValidatedPaper, error) {
	return o.execute(ctx, o.newRun(raw))
}

// ProcessText runs the pipeline on text the caller already has, skipping
// the fetch. The identifier is still validated.
func (o *Orchestrator) ProcessText(ctx context.Context, raw, text string) (*types.ValidatedPaper, error) {
	r := o.newRun(raw)
	r.doc = types.Document{ID: raw, Text: text}
	r.haveText = true
	return o.execute(ctx, r)
}

func (o *Orchestrator) newRun(raw string) *run {
	id := uuid.NewString()
	return &run{
		id:     id,
		raw:    raw,
		logger: o.logger.With(zap.String("run_id", id), zap.String("arxiv_id", raw)),
	}
}

func (o *Orchestrator) steps() []step {
	return []step{
		{StageValidating, o.validate},
		{StageFetching, o.fetch},
		{StageExtracting, o.extract},
		{StageDeduplicating, o.dedupe},
		{StageResolving, o.resolve},
		{StageAssembling, o.assemble},
	}
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*types.ValidatedPaper, error) {
	for _, s := range o.steps() {
		end := telemetry.StartSpan(o.recorder, r.id, s.stage.String(), r.raw)
		err := s.fn(ctx, r)
		end(err)
		if err != nil {
			r.logger.Error("pipeline failed", zap.Stringer("stage", s.stage), zap.Error(err))
			return nil, &StageError{Stage: s.stage, ArxivID: r.raw, Err: err}
		}
		r.logger.Debug("stage complete", zap.Stringer("stage", s.stage))
	}
	r.logger.Info("paper processed",
		zap.Int("authors", len(r.paper.Authors)),
		zap.Int("affiliations", len(r.paper.NormalizedAffiliations)),
		zap.Int("issues", len(r.paper.ValidationIssues)))
	return r.paper, nil
}

func (o *Orchestrator) validate(_ context.Context, r *run) error {
	id, err := acquire.ParseArxivID(r.raw)
	if err != nil {
		return err
	}
	r.arxivID = id
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, r *run) error {
	if r.haveText {
		return nil
	}
	if o.source == nil {
		return fmt.Errorf("%w: no document source configured", types.ErrFetch)
	}
	doc, err := o.source.FetchText(ctx, r.arxivID)
	if err != nil {
		return ensure(err, types.ErrFetch)
	}
	r.doc = doc
	r.logger.Debug("document fetched", zap.Int("pages", doc.PageCount), zap.Int("text_length", doc.TextLength()))
	return nil
}

func (o *Orchestrator) extract(ctx context.Context, r *run) error {
	set, err := o.extractor.Extract(ctx, r.doc.Text)
	if err != nil {
		return ensure(err, types.ErrExtraction)
	}
	// The extraction backend is not authoritative for the identifier.
	set.ArxivID = r.arxivID.Raw
	if set.Authors == nil {
		set.Authors = []types.Author{}
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrExtraction, err)
	}
	r.authors = set
	return nil
}

func (o *Orchestrator) dedupe(_ context.Context, r *run) error {
	r.unique = Dedupe(r.authors.Authors)
	return nil
}

func (o *Orchestrator) resolve(ctx context.Context, r *run) error {
	res, err := o.resolver.Resolve(ctx, r.unique)
	if err != nil {
		return ensure(err, types.ErrResolution)
	}
	r.resolution = res
	return nil
}

func (o *Orchestrator) assemble(_ context.Context, r *run) error {
	normalized := r.resolution.NormalizedAffiliations
	if normalized == nil {
		normalized = []types.NormalizedAffiliation{}
	}
	issues := append([]string{}, r.resolution.Issues...)

	r.paper = &types.ValidatedPaper{
		ArxivID:                r.arxivID.Raw,
		Authors:                r.authors.Authors,
		NormalizedAffiliations: normalized,
		ValidationIssues:       issues,
	}
	return nil
}

// ensure makes err match sentinel under errors.Is.
func ensure(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
