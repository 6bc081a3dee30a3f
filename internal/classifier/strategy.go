package classifier

import (
	"strings"

	"AptScanner/internal/domain"
)

// Strategy owns both ends of a model exchange: the prompt it sends and the
// way it reads the reply. The pipeline never sees which one is active.
type Strategy interface {
	Name() string
	Prompt(title, body string) string
	Extract(reply string) (domain.ClassificationResult, error)
	// Fallback is the fail-open result used when the call or extraction fails.
	Fallback(err error) domain.ClassificationResult
}

// Areas is the location policy encoded in the prompt.
type Areas struct {
	Allowed  []string
	Excluded []string
}

const sharedCriteria = `1. 2-Bedroom unit (2BR, 2 Bed).
2. ENTIRE UNIT ONLY.
   - REJECT if user is offering a single room/subletting one room.
   - ACCEPT if current tenants (even if called "roommates") are moving out and the WHOLE unit is available.
3. NOT asking for advice.
`

func joinAreas(areas []string, sep string) string {
	cleaned := make([]string, 0, len(areas))
	for _, a := range areas {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	return strings.Join(cleaned, sep)
}
