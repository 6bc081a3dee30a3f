package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AptScanner/internal/domain"
)

var runTime = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) Fetch(context.Context) ([]byte, error) { return f.data, f.err }

type fakeParser struct {
	entries []domain.Entry
	err     error
}

func (f *fakeParser) Parse([]byte) ([]domain.Entry, error) { return f.entries, f.err }

type fakeStore struct {
	seen    map[string]struct{}
	loadAt  []time.Time
	puts    []domain.SeenRecord
	loadErr error
	putErr  error
}

func (f *fakeStore) SeenIDs(_ context.Context, now time.Time) (map[string]struct{}, error) {
	f.loadAt = append(f.loadAt, now)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	// hand out a copy so writes during the run cannot leak into the snapshot
	out := make(map[string]struct{}, len(f.seen))
	for id := range f.seen {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) Put(_ context.Context, rec domain.SeenRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, rec)
	if f.seen == nil {
		f.seen = map[string]struct{}{}
	}
	f.seen[rec.PostID] = struct{}{}
	return nil
}

type fakeClassifier struct {
	results map[string]domain.ClassificationResult
	calls   []string
}

func (f *fakeClassifier) Classify(_ context.Context, e domain.Entry) domain.ClassificationResult {
	f.calls = append(f.calls, e.ID)
	if r, ok := f.results[e.ID]; ok {
		return r
	}
	return domain.ClassificationResult{Decision: domain.DecisionSkip, Reason: "not a match"}
}

type publishCall struct{ subject, message string }

type fakeNotifier struct {
	calls []publishCall
	err   error
}

func (f *fakeNotifier) Publish(_ context.Context, subject, message string) error {
	f.calls = append(f.calls, publishCall{subject, message})
	return f.err
}

type harness struct {
	fetcher    *fakeFetcher
	parser     *fakeParser
	store      *fakeStore
	classifier *fakeClassifier
	notifier   *fakeNotifier
}

func newHarness(entries ...domain.Entry) *harness {
	return &harness{
		fetcher:    &fakeFetcher{data: []byte("<feed/>")},
		parser:     &fakeParser{entries: entries},
		store:      &fakeStore{},
		classifier: &fakeClassifier{results: map[string]domain.ClassificationResult{}},
		notifier:   &fakeNotifier{},
	}
}

func (h *harness) pipeline(mode domain.RecordingMode) *Pipeline {
	return NewPipeline(PipelineDeps{
		Fetcher:    h.fetcher,
		Parser:     h.parser,
		Store:      h.store,
		Classifier: h.classifier,
		Notifier:   h.notifier,
		Recording:  mode,
		Clock:      func() time.Time { return runTime },
	})
}

func entry(id, date string) domain.Entry {
	return domain.Entry{
		ID:            id,
		Title:         "title " + id,
		Link:          "https://x/" + id,
		PublishedDate: date,
		BodyHTML:      "<p>body</p>",
	}
}

func TestRunSkipsSeenEntries(t *testing.T) {
	h := newHarness(entry("seen", "2026-10-19"), entry("new", "2026-10-19"))
	h.store.seen = map[string]struct{}{"seen": {}}

	result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.NoError(t, err)

	assert.Equal(t, []string{"new"}, h.classifier.calls)
	require.Len(t, h.store.puts, 1)
	assert.Equal(t, "new", h.store.puts[0].PostID)
	assert.Equal(t, 1, result.SkippedSeen)
	assert.Equal(t, 2, result.Fetched)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	h := newHarness(entry("a", "2026-10-19"), entry("b", "2026-10-18"))
	h.classifier.results["a"] = domain.ClassificationResult{Decision: domain.DecisionSend, Reason: "ok"}
	p := h.pipeline(domain.RecordingRich)

	_, err := p.Run(context.Background(), runTime)
	require.NoError(t, err)
	require.Len(t, h.store.puts, 2)
	require.Len(t, h.notifier.calls, 1)

	result, err := p.Run(context.Background(), runTime)
	require.NoError(t, err)
	assert.Len(t, h.classifier.calls, 1)
	assert.Len(t, h.store.puts, 2)
	assert.Len(t, h.notifier.calls, 1)
	assert.Equal(t, 2, result.SkippedSeen)
	assert.Equal(t, "No new matches.", result.Status)
}

func TestRunOldDateNeverClassified(t *testing.T) {
	h := newHarness(entry("old1", "2026-10-18"), entry("old2", "2025-01-01"))

	result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.NoError(t, err)

	assert.Empty(t, h.classifier.calls)
	require.Len(t, h.store.puts, 2)
	for _, rec := range h.store.puts {
		assert.Equal(t, domain.DecisionSkip, rec.Status)
		assert.Equal(t, "Old Date", rec.Reason)
	}
	assert.Equal(t, 2, result.SkippedOldDate)
	assert.Empty(t, h.notifier.calls)
}

func TestRunTodayIsUTC(t *testing.T) {
	// 22:30 in New York on the 18th is already the 19th in UTC
	ny := time.FixedZone("EDT", -4*60*60)
	now := time.Date(2026, 10, 18, 22, 30, 0, 0, ny)
	h := newHarness(entry("utc-today", "2026-10-19"), entry("local-today", "2026-10-18"))

	_, err := h.pipeline(domain.RecordingRich).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"utc-today"}, h.classifier.calls)
}

func TestRunFailOpenResultReachesDigest(t *testing.T) {
	h := newHarness(entry("a", "2026-10-19"))
	h.classifier.results["a"] = domain.ClassificationResult{Decision: domain.DecisionSend, Reason: "Error: model call: timeout"}

	result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.NoError(t, err)

	require.Len(t, h.store.puts, 1)
	assert.Equal(t, domain.DecisionSend, h.store.puts[0].Status)
	assert.Contains(t, h.store.puts[0].Reason, "Error:")
	require.Len(t, h.notifier.calls, 1)
	assert.Contains(t, h.notifier.calls[0].message, "Error: model call: timeout")
	assert.Equal(t, "Sent 1 alerts.", result.Status)
}

func TestRunPublishesAtMostOnce(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		var entries []domain.Entry
		for i := 0; i < n; i++ {
			entries = append(entries, entry(string(rune('a'+i)), "2026-10-19"))
		}
		h := newHarness(entries...)
		for _, e := range entries {
			h.classifier.results[e.ID] = domain.ClassificationResult{Decision: domain.DecisionSend, Reason: "r"}
		}

		result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
		require.NoError(t, err)

		if n == 0 {
			assert.Empty(t, h.notifier.calls)
			assert.False(t, result.Published)
			continue
		}
		require.Len(t, h.notifier.calls, 1, "n=%d", n)
		assert.True(t, result.Published)
		assert.Equal(t, n, result.Accepted)
	}
}

func TestRunNoMatches(t *testing.T) {
	h := newHarness(entry("a", "2026-10-19"), entry("b", "2026-10-19"), entry("c", "2026-10-01"))

	result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.NoError(t, err)

	assert.Empty(t, h.notifier.calls)
	assert.Equal(t, "No new matches.", result.Status)
	assert.Len(t, h.store.puts, 3)
	assert.Equal(t, 2, result.Classified)
}

func TestRunSeenSetIsSnapshot(t *testing.T) {
	// the same id twice in one feed is judged against the start-of-run snapshot both times
	h := newHarness(entry("dup", "2026-10-19"), entry("dup", "2026-10-19"))
	h.classifier.results["dup"] = domain.ClassificationResult{Decision: domain.DecisionSkip, Reason: "no"}

	result, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.NoError(t, err)

	assert.Equal(t, []string{"dup", "dup"}, h.classifier.calls)
	assert.Equal(t, 0, result.SkippedSeen)

	// both writes reach the store; collapsing them is the store's job
	require.Len(t, h.store.puts, 2)
	assert.Equal(t, "dup", h.store.puts[0].PostID)
	assert.Equal(t, "dup", h.store.puts[1].PostID)
}

func TestRunLoadsSeenSetAtTriggerTime(t *testing.T) {
	h := newHarness(entry("a", "2026-10-12"))
	replay := runTime.Add(-7 * 24 * time.Hour)

	_, err := h.pipeline(domain.RecordingRich).Run(context.Background(), replay)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{replay}, h.store.loadAt)
}

func TestRunRecordsExpiryAndSeenOnlyMode(t *testing.T) {
	h := newHarness(entry("a", "2026-10-19"), entry("b", "2026-10-17"))
	h.classifier.results["a"] = domain.ClassificationResult{Decision: domain.DecisionSend}

	_, err := h.pipeline(domain.RecordingSeenOnly).Run(context.Background(), runTime)
	require.NoError(t, err)

	require.Len(t, h.store.puts, 2)
	for _, rec := range h.store.puts {
		assert.Empty(t, rec.Status)
		assert.Empty(t, rec.Reason)
		assert.Equal(t, runTime, rec.FoundAt)
		assert.Equal(t, runTime.Add(14*24*time.Hour), rec.ExpiresAt)
	}
	require.Len(t, h.notifier.calls, 1)
	assert.NotContains(t, h.notifier.calls[0].message, "AI Note")
}

func TestRunFatalErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(h *harness)
		stage Stage
	}{
		{"fetch", func(h *harness) { h.fetcher.err = boom }, StageFetch},
		{"parse", func(h *harness) { h.parser.err = boom }, StageParse},
		{"load seen", func(h *harness) { h.store.loadErr = boom }, StageLoadSeen},
		{"record", func(h *harness) { h.store.putErr = boom }, StageRecord},
		{"publish", func(h *harness) {
			h.classifier.results["a"] = domain.ClassificationResult{Decision: domain.DecisionSend}
			h.notifier.err = boom
		}, StagePublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(entry("a", "2026-10-19"))
			tt.setup(h)

			_, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
			require.Error(t, err)

			var fatalErr *FatalError
			require.ErrorAs(t, err, &fatalErr)
			assert.Equal(t, tt.stage, fatalErr.Stage)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestRunFetchFailureHasNoSideEffects(t *testing.T) {
	h := newHarness(entry("a", "2026-10-19"))
	h.fetcher.err = errors.New("dial tcp: i/o timeout")

	_, err := h.pipeline(domain.RecordingRich).Run(context.Background(), runTime)
	require.Error(t, err)
	assert.Empty(t, h.store.puts)
	assert.Empty(t, h.classifier.calls)
	assert.Empty(t, h.notifier.calls)
}

func TestRunRequiresDependencies(t *testing.T) {
	_, err := NewPipeline(PipelineDeps{}).Run(context.Background(), runTime)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not fully configured"))
}
