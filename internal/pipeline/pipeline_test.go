// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/affiliation-engine/internal/inference"
	"github.com/pdiddy/affiliation-engine/internal/resolve"
	"github.com/pdiddy/affiliation-engine/internal/telemetry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// --- fakes ---

type fakeSource struct {
	text  string
	pages int
	err   error
	delay time.Duration

	calls    int32
	inFlight int32
	maxSeen  int32
}

func (f *fakeSource) FetchText(ctx context.Context, id types.PaperIdentifier) (types.Document, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return types.Document{}, f.err
	}
	return types.Document{ID: id.Raw, Text: f.text, PageCount: f.pages}, nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	set   types.AuthorSet
	err   error
	texts []string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (types.AuthorSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return types.AuthorSet{}, f.err
	}
	return f.set, nil
}

type fakeResolver struct {
	mu     sync.Mutex
	result func(affs []types.Affiliation) types.ResolutionResult
	err    error
	inputs [][]types.Affiliation
}

func (f *fakeResolver) Resolve(_ context.Context, affs []types.Affiliation) (types.ResolutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, affs)
	if f.err != nil {
		return types.ResolutionResult{}, f.err
	}
	return f.result(affs), nil
}

func (f *fakeResolver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

// identityResolution maps every input to itself as a valid institution.
func identityResolution(affs []types.Affiliation) types.ResolutionResult {
	out := make([]types.NormalizedAffiliation, len(affs))
	for i, a := range affs {
		out[i] = types.NormalizedAffiliation{OriginalName: a.Name, NormalizedName: a.Name, IsValid: true, Confidence: 0.95}
	}
	return types.ResolutionResult{NormalizedAffiliations: out, Issues: []string{}}
}

type spanRecorder struct {
	mu    sync.Mutex
	spans []telemetry.Span
}

func (s *spanRecorder) Record(sp telemetry.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, sp)
}

func (s *spanRecorder) Flush(context.Context) error { return nil }

func (s *spanRecorder) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spans))
	for i, sp := range s.spans {
		out[i] = sp.Stage
	}
	return out
}

func transformerAuthors() types.AuthorSet {
	return types.AuthorSet{
		ArxivID: "hallucinated-id",
		Authors: []types.Author{
			author("Ashish Vaswani", "Google Brain"),
			author("Noam Shazeer", "Google Brain"),
			author("Niki Parmar", "Google Research"),
			author("Aidan N. Gomez", "University of Toronto"),
		},
	}
}

type fixture struct {
	source    *fakeSource
	extractor *fakeExtractor
	resolver  *fakeResolver
	recorder  *spanRecorder
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		source:    &fakeSource{text: "Attention Is All You Need ...", pages: 15},
		extractor: &fakeExtractor{set: transformerAuthors()},
		resolver:  &fakeResolver{result: identityResolution},
		recorder:  &spanRecorder{},
	}
	f.orch = New(f.source, f.extractor, f.resolver, f.recorder, zaptest.NewLogger(t))
	return f
}

// --- tests ---

func TestStage_String(t *testing.T) {
	assert.Equal(t, "validating", StageValidating.String())
	assert.Equal(t, "done", StageDone.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}

func TestProcess_HappyPath(t *testing.T) {
	f := newFixture(t)

	paper, err := f.orch.Process(context.Background(), "1706.03762")
	require.NoError(t, err)
	require.NotNil(t, paper)

	assert.Equal(t, "1706.03762", paper.ArxivID, "validated identifier overwrites the extracted one")
	assert.Len(t, paper.Authors, 4)
	assert.Equal(t, transformerAuthors().Authors, paper.Authors, "authors keep their full lists")
	require.Len(t, paper.NormalizedAffiliations, 3)
	assert.NotNil(t, paper.ValidationIssues)
	assert.Empty(t, paper.ValidationIssues)
	assert.False(t, paper.NeedsReview())

	require.Equal(t, 1, f.resolver.calls())
	assert.Equal(t, []string{"Google Brain", "Google Research", "University of Toronto"}, names(f.resolver.inputs[0]))
	assert.Equal(t, []string{"Attention Is All You Need ..."}, f.extractor.texts)

	assert.Equal(t, []string{"validating", "fetching", "extracting", "deduplicating", "resolving", "assembling"}, f.recorder.stages())
}

func TestProcess_AmbiguityIsNotAFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.set = types.AuthorSet{Authors: []types.Author{author("A", "MIT", "Unknown Lab")}}
	f.resolver.result = func(affs []types.Affiliation) types.ResolutionResult {
		return types.ResolutionResult{
			NormalizedAffiliations: []types.NormalizedAffiliation{
				{OriginalName: "MIT", NormalizedName: "Massachusetts Institute of Technology", IsValid: true, Confidence: 0.99},
				{OriginalName: "Unknown Lab", NormalizedName: "Unknown Lab", IsValid: false, Confidence: 0.2},
			},
			NeedsClarification: true,
			Issues:             []string{"Could not identify 'Unknown Lab'"},
		}
	}

	paper, err := f.orch.Process(context.Background(), "2301.12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"Could not identify 'Unknown Lab'"}, paper.ValidationIssues)
	assert.True(t, paper.NeedsReview())
	assert.Equal(t, "Massachusetts Institute of Technology", paper.NormalizedAffiliations[0].NormalizedName)
}

func TestProcess_EmptyAuthors(t *testing.T) {
	f := newFixture(t)
	f.extractor.set = types.AuthorSet{}

	paper, err := f.orch.Process(context.Background(), "2301.12345")
	require.NoError(t, err)
	assert.NotNil(t, paper.Authors)
	assert.Empty(t, paper.Authors)
	assert.Empty(t, paper.NormalizedAffiliations)
	assert.Empty(t, paper.ValidationIssues)

	for _, in := range f.resolver.inputs {
		assert.Empty(t, in)
	}
}

// The real resolution service must not call the model for an empty list.
func TestProcess_EmptyAuthorsSkipsInference(t *testing.T) {
	client := &countingClient{}
	res := resolve.NewService(client, types.AIConfig{Attempts: 1}, zaptest.NewLogger(t))
	orch := New(&fakeSource{text: "x", pages: 1}, &fakeExtractor{set: types.AuthorSet{}}, res, nil, zaptest.NewLogger(t))

	paper, err := orch.Process(context.Background(), "2301.12345")
	require.NoError(t, err)
	assert.Empty(t, paper.NormalizedAffiliations)
	assert.NotNil(t, paper.NormalizedAffiliations)
	assert.Equal(t, int32(0), atomic.LoadInt32(&client.calls))
}

type countingClient struct{ calls int32 }

func (c *countingClient) Generate(context.Context, inference.Request) (json.RawMessage, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, errors.New("unexpected call")
}

func TestProcess_InvalidIdentifierStopsBeforeIO(t *testing.T) {
	for _, raw := range []string{"", "invalid-id", "2301.1234", " 2301.12345"} {
		t.Run(raw, func(t *testing.T) {
			f := newFixture(t)
			paper, err := f.orch.Process(context.Background(), raw)
			require.Error(t, err)
			assert.Nil(t, paper)
			assert.ErrorIs(t, err, types.ErrInvalidIdentifier)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, StageValidating, se.Stage)
			assert.Equal(t, int32(0), atomic.LoadInt32(&f.source.calls))
			assert.Empty(t, f.extractor.texts)
			assert.Equal(t, 0, f.resolver.calls())
		})
	}
}

func TestProcess_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		stage     Stage
		sentinel  error
		extracted bool
		resolved  bool
	}{
		{
			name:     "fetch",
			setup:    func(f *fixture) { f.source.err = fmt.Errorf("%w: HTTP 404", types.ErrFetch) },
			stage:    StageFetching,
			sentinel: types.ErrFetch,
		},
		{
			name:     "fetch error without sentinel",
			setup:    func(f *fixture) { f.source.err = errors.New("disk full") },
			stage:    StageFetching,
			sentinel: types.ErrFetch,
		},
		{
			name:      "extract",
			setup:     func(f *fixture) { f.extractor.err = fmt.Errorf("%w: budget spent", types.ErrExtraction) },
			stage:     StageExtracting,
			sentinel:  types.ErrExtraction,
			extracted: true,
		},
		{
			name: "extracted author invalid",
			setup: func(f *fixture) {
				f.extractor.set = types.AuthorSet{Authors: []types.Author{{Name: ""}}}
			},
			stage:     StageExtracting,
			sentinel:  types.ErrExtraction,
			extracted: true,
		},
		{
			name:      "resolve",
			setup:     func(f *fixture) { f.resolver.err = errors.New("model unavailable") },
			stage:     StageResolving,
			sentinel:  types.ErrResolution,
			extracted: true,
			resolved:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			paper, err := f.orch.Process(context.Background(), "1706.03762")
			require.Error(t, err)
			assert.Nil(t, paper, "no partial result")
			assert.ErrorIs(t, err, tt.sentinel)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, "1706.03762", se.ArxivID)
			assert.Contains(t, err.Error(), tt.stage.String())

			assert.Equal(t, tt.extracted, len(f.extractor.texts) > 0)
			assert.Equal(t, tt.resolved, f.resolver.calls() > 0)
		})
	}
}

func TestProcess_FailedSpanCarriesError(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = errors.New("boom")

	_, err := f.orch.Process(context.Background(), "1706.03762")
	require.Error(t, err)

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	last := f.recorder.spans[len(f.recorder.spans)-1]
	assert.Equal(t, "resolving", last.Stage)
	assert.Contains(t, last.Err, "boom")
	assert.NotEmpty(t, last.RunID)
}

func TestProcessText_SkipsFetch(t *testing.T) {
	f := newFixture(t)

	paper, err := f.orch.ProcessText(context.Background(), "2301.12345v2", "supplied text")
	require.NoError(t, err)
	assert.Equal(t, "2301.12345v2", paper.ArxivID)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.source.calls))
	assert.Equal(t, []string{"supplied text"}, f.extractor.texts)
}

func TestProcessText_StillValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.ProcessText(context.Background(), "nope", "text")
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)
	assert.Empty(t, f.extractor.texts)
}

func TestProcessText_NoSourceNeeded(t *testing.T) {
	orch := New(nil, &fakeExtractor{set: transformerAuthors()}, &fakeResolver{result: identityResolution}, nil, nil)
	paper, err := orch.ProcessText(context.Background(), "1706.03762", "text")
	require.NoError(t, err)
	assert.Len(t, paper.Authors, 4)

	_, err = orch.Process(context.Background(), "1706.03762")
	assert.ErrorIs(t, err, types.ErrFetch)
}

func TestProcess_NilIssuesBecomeEmpty(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = func(affs []types.Affiliation) types.ResolutionResult {
		r := identityResolution(affs)
		r.Issues = nil
		return r
	}
	paper, err := f.orch.Process(context.Background(), "1706.03762")
	require.NoError(t, err)
	assert.NotNil(t, paper.ValidationIssues)
}

func TestProcessBatch(t *testing.T) {
	f := newFixture(t)
	f.source.delay = 5 * time.Millisecond

	raws := []string{"1706.03762", "bad-id", "2301.12345", "2301.12345v3", "1810.04805"}
	items := f.orch.ProcessBatch(context.Background(), raws, 2)

	require.Len(t, items, len(raws))
	for i, item := range items {
		assert.Equal(t, raws[i], item.ArxivID, "input order")
	}
	assert.False(t, items[1].OK())
	assert.ErrorIs(t, items[1].Err, types.ErrInvalidIdentifier)
	assert.Nil(t, items[1].Paper)

	for _, i := range []int{0, 2, 3, 4} {
		require.True(t, items[i].OK(), "item %d: %v", i, items[i].Err)
		assert.Equal(t, raws[i], items[i].Paper.ArxivID)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&f.source.maxSeen), int32(2))
	assert.Equal(t, int32(4), atomic.LoadInt32(&f.source.calls))
}

func TestProcessBatch_Empty(t *testing.T) {
	f := newFixture(t)
	items := f.orch.ProcessBatch(context.Background(), nil, 0)
	assert.Empty(t, items)
}
