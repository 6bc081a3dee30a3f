package classifier

import (
	"fmt"
	"strings"

	"AptScanner/internal/domain"
)

// KeywordStrategy asks for a one-word reply and excludes listed areas.
type KeywordStrategy struct {
	areas Areas
}

// NewKeywordStrategy builds the free-text strategy.
func NewKeywordStrategy(areas Areas) *KeywordStrategy {
	return &KeywordStrategy{areas: areas}
}

// Name identifies the strategy inside the registry.
func (s *KeywordStrategy) Name() string {
	return "keyword"
}

// Prompt renders the qualification request.
func (s *KeywordStrategy) Prompt(title, body string) string {
	var b strings.Builder
	b.WriteString("You are filtering NYC apartment listings.\n\n")
	b.WriteString("Reply SEND only if ALL of these are true:\n")
	b.WriteString(sharedCriteria)
	if excluded := joinAreas(s.areas.Excluded, ", "); excluded != "" {
		fmt.Fprintf(&b, "4. Location is NOT in %s.\n", excluded)
	} else {
		b.WriteString("4. Location is in New York City.\n")
	}
	fmt.Fprintf(&b, "\nLISTING:\nTitle: %s\nBody: %s\n\n", title, body)
	b.WriteString("Answer with one word: SEND or SKIP.\n")
	return b.String()
}

// Extract accepts whenever SEND appears anywhere in the reply.
func (s *KeywordStrategy) Extract(reply string) (domain.ClassificationResult, error) {
	if strings.Contains(strings.ToUpper(reply), string(domain.DecisionSend)) {
		return domain.ClassificationResult{Decision: domain.DecisionSend}, nil
	}
	return domain.ClassificationResult{Decision: domain.DecisionSkip}, nil
}

// Fallback sends the listing without a reason.
func (s *KeywordStrategy) Fallback(error) domain.ClassificationResult {
	return domain.ClassificationResult{Decision: domain.DecisionSend}
}
