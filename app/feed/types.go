package feed

import (
	"time"
)

// Entry is one candidate article from the RSS feed. Entries are rebuilt
// from scratch on every poll cycle and discarded after processing; the
// title acts as the natural key for deduplication.
type Entry struct {
	Title       string
	Link        string
	PublishedAt time.Time
	ImageURL    string // pre-resolved image URL from the feed itself, may be empty
}
