package domain

import "time"

// Entry is a single post parsed from the listings feed.
type Entry struct {
	ID            string
	Title         string
	Link          string
	PublishedDate string // YYYY-MM-DD portion of the feed's updated timestamp
	BodyHTML      string
}

// Decision is the qualification verdict for a listing.
type Decision string

const (
	DecisionSend Decision = "SEND"
	DecisionSkip Decision = "SKIP"
)

// ClassificationResult is what the classifier returns for one entry.
type ClassificationResult struct {
	Decision Decision
	Reason   string
}

// Accepted reports whether the entry should go into the digest.
func (r ClassificationResult) Accepted() bool {
	return r.Decision == DecisionSend
}

// SeenRecord persisted once per processed post for deduplication.
type SeenRecord struct {
	PostID    string
	Title     string
	FoundAt   time.Time
	Status    Decision // empty in seen-only recording
	Reason    string   // empty in seen-only recording
	ExpiresAt time.Time
}

// RecordingMode selects how much of the outcome is stored per post.
type RecordingMode string

const (
	// RecordingRich stores status and reason alongside the post id.
	RecordingRich RecordingMode = "rich"
	// RecordingSeenOnly stores the post id and title only.
	RecordingSeenOnly RecordingMode = "seen-only"
)

// DigestItem is one accepted listing inside the notification.
type DigestItem struct {
	Title  string
	Link   string
	Reason string
}
