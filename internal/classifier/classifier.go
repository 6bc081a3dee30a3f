package classifier

import (
	"context"
	"errors"
	"log/slog"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

// Options wires an LLMClassifier.
type Options struct {
	Model     ports.TextModel
	Strategy  Strategy
	Generate  ports.GenerateOptions
	StripHTML bool
	Logger    *slog.Logger
}

// LLMClassifier qualifies listings through a hosted text model.
type LLMClassifier struct {
	model     ports.TextModel
	strategy  Strategy
	generate  ports.GenerateOptions
	stripHTML bool
	logger    *slog.Logger
}

var _ ports.Classifier = (*LLMClassifier)(nil)

// New constructs the classifier.
func New(opts Options) *LLMClassifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		model:     opts.Model,
		strategy:  opts.Strategy,
		generate:  opts.Generate,
		stripHTML: opts.StripHTML,
		logger:    logger,
	}
}

// Classify never fails. Model and extraction errors fall back to the
// strategy's fail-open result so a human still sees the listing.
func (c *LLMClassifier) Classify(ctx context.Context, entry domain.Entry) domain.ClassificationResult {
	if c.model == nil {
		return c.fallback(entry, &RecoverableError{Op: "model call", Err: errors.New("no model configured")})
	}

	body := entry.BodyHTML
	if c.stripHTML {
		body = PlainText(body)
	}

	reply, err := c.model.Complete(ctx, c.strategy.Prompt(entry.Title, body), c.generate)
	if err != nil {
		return c.fallback(entry, &RecoverableError{Op: "model call", Err: err})
	}

	result, err := c.strategy.Extract(reply)
	if err != nil {
		return c.fallback(entry, &RecoverableError{Op: "extract reply", Err: err})
	}

	c.logger.Info("classified", "post_id", entry.ID, "decision", result.Decision, "reason", result.Reason)
	return result
}

func (c *LLMClassifier) fallback(entry domain.Entry, err *RecoverableError) domain.ClassificationResult {
	result := c.strategy.Fallback(err)
	c.logger.Warn("classifier error, failing open",
		"post_id", entry.ID,
		"strategy", c.strategy.Name(),
		"error", err,
		"decision", result.Decision)
	return result
}
