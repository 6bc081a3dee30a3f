package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

const (
	// ReasonOldDate is stored for entries not published today.
	ReasonOldDate = "Old Date"

	statusNoMatches = "No new matches."
	dateLayout      = "2006-01-02"
	defaultTTL      = 14 * 24 * time.Hour
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Fetcher    ports.FeedFetcher
	Parser     ports.FeedParser
	Store      ports.SeenStore
	Classifier ports.Classifier
	Notifier   ports.Notifier
	Recording  domain.RecordingMode
	TTL        time.Duration
	Logger     *slog.Logger
	Clock      func() time.Time
}

// RunResult summarises one run.
type RunResult struct {
	Fetched        int
	SkippedSeen    int
	SkippedOldDate int
	Classified     int
	Accepted       int
	Published      bool
	Status         string
}

// Pipeline implements the listing-ingestion workflow.
type Pipeline struct {
	fetcher    ports.FeedFetcher
	parser     ports.FeedParser
	store      ports.SeenStore
	classifier ports.Classifier
	notifier   ports.Notifier
	recording  domain.RecordingMode
	ttl        time.Duration
	logger     *slog.Logger
	clock      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		fetcher:    deps.Fetcher,
		parser:     deps.Parser,
		store:      deps.Store,
		classifier: deps.Classifier,
		notifier:   deps.Notifier,
		recording:  deps.Recording,
		ttl:        deps.TTL,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
	if p.recording == "" {
		p.recording = domain.RecordingRich
	}
	if p.ttl <= 0 {
		p.ttl = defaultTTL
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// Run fetches, filters, classifies and records every unseen entry, then
// publishes at most one digest. now fixes "today" for the whole run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	if p.fetcher == nil || p.parser == nil || p.store == nil || p.classifier == nil {
		return result, fmt.Errorf("pipeline is not fully configured")
	}

	p.logger.Info("starting run")

	data, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.logger.Error("critical error fetching feed", "error", err)
		return result, fatal(StageFetch, err)
	}

	entries, err := p.parser.Parse(data)
	if err != nil {
		p.logger.Error("critical error parsing feed", "error", err)
		return result, fatal(StageParse, err)
	}
	result.Fetched = len(entries)

	seen, err := p.store.SeenIDs(ctx, now)
	if err != nil {
		p.logger.Error("cannot load seen posts", "error", err)
		return result, fatal(StageLoadSeen, err)
	}

	today := now.UTC().Format(dateLayout)
	var accepted []domain.DigestItem

	for _, entry := range entries {
		if _, ok := seen[entry.ID]; ok {
			result.SkippedSeen++
			continue
		}

		log := p.logger.With("post_id", entry.ID)
		log.Info("new post", "title", entry.Title)

		stale := entry.PublishedDate != today

		var outcome domain.ClassificationResult
		if stale {
			log.Info("skipped", "reason", ReasonOldDate, "published", entry.PublishedDate)
			outcome = domain.ClassificationResult{Decision: domain.DecisionSkip, Reason: ReasonOldDate}
			result.SkippedOldDate++
		} else {
			outcome = p.classifier.Classify(ctx, entry)
			result.Classified++
		}

		if err := p.store.Put(ctx, p.record(entry, outcome)); err != nil {
			log.Error("cannot record result", "error", err)
			return result, fatal(StageRecord, err)
		}

		switch {
		case stale:
		case outcome.Accepted():
			log.Info("match")
			accepted = append(accepted, domain.DigestItem{
				Title:  entry.Title,
				Link:   entry.Link,
				Reason: outcome.Reason,
			})
		default:
			log.Info("rejected", "reason", outcome.Reason)
		}
	}

	result.Accepted = len(accepted)
	if len(accepted) == 0 {
		result.Status = statusNoMatches
		p.logger.Info("run finished", "status", result.Status, "fetched", result.Fetched, "seen", result.SkippedSeen)
		return result, nil
	}

	if p.notifier == nil {
		return result, fatal(StagePublish, fmt.Errorf("no notifier configured"))
	}

	subject, message := BuildDigest(accepted)
	p.logger.Info("sending digest", "count", len(accepted))
	if err := p.notifier.Publish(ctx, subject, message); err != nil {
		p.logger.Error("cannot publish digest", "error", err)
		return result, fatal(StagePublish, err)
	}

	result.Published = true
	result.Status = fmt.Sprintf("Sent %d alerts.", len(accepted))
	p.logger.Info("run finished", "status", result.Status, "fetched", result.Fetched, "seen", result.SkippedSeen)
	return result, nil
}

func (p *Pipeline) record(entry domain.Entry, outcome domain.ClassificationResult) domain.SeenRecord {
	writtenAt := p.clock().UTC()
	rec := domain.SeenRecord{
		PostID:    entry.ID,
		Title:     entry.Title,
		FoundAt:   writtenAt,
		ExpiresAt: writtenAt.Add(p.ttl),
	}
	if p.recording == domain.RecordingRich {
		rec.Status = outcome.Decision
		rec.Reason = outcome.Reason
	}
	return rec
}
