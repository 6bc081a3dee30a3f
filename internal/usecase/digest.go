package usecase

import (
	"fmt"
	"strings"

	"AptScanner/internal/domain"
)

const separatorWidth = 30

// BuildDigest renders the subject and multi-line body for accepted listings.
func BuildDigest(items []domain.DigestItem) (subject, message string) {
	if len(items) == 0 {
		return "", ""
	}

	lines := []string{
		fmt.Sprintf("✨ %d NEW APARTMENTS", len(items)),
		strings.Repeat("=", separatorWidth),
		"",
	}

	for _, item := range items {
		lines = append(lines, fmt.Sprintf("🏠 %s", item.Title))
		if item.Reason != "" {
			lines = append(lines, fmt.Sprintf("💡 AI Note: %s", item.Reason))
		}
		lines = append(lines,
			fmt.Sprintf("🔗 %s", item.Link),
			strings.Repeat("-", separatorWidth),
		)
	}

	// SNS only accepts ASCII subjects
	subject = fmt.Sprintf("%d New Apartments Found", len(items))
	return subject, strings.Join(lines, "\n")
}
