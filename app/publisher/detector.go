package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"bskyrss/app/config"
	"bskyrss/app/database"
)

// Detector answers whether a title has already been published, consulting
// the persisted store and the account's live feed according to the
// configured toggles.
type Detector struct {
	postRepo     database.PostRepository
	transport    Transport
	settings     config.DuplicateDetection
	postsToCheck int
}

func NewDetector(postRepo database.PostRepository, transport Transport,
	settings config.DuplicateDetection, postsToCheck int) *Detector {
	return &Detector{
		postRepo:     postRepo,
		transport:    transport,
		settings:     settings,
		postsToCheck: postsToCheck,
	}
}

// IsDuplicate checks the persisted store first (exact title match), then
// the live feed (case-folded substring match against the first line of each
// recent post). A store error is a hard failure; a live-feed error is
// treated as "assume duplicate" so an outage can never cause a double post.
func (d *Detector) IsDuplicate(ctx context.Context, title string) (bool, error) {
	if d.settings.CheckDatabase {
		posted, err := d.postRepo.IsPosted(title)
		if err != nil {
			return false, fmt.Errorf("failed to check posted titles: %w", err)
		}
		if posted {
			slog.Debug("Title found in posts database", "title", title)
			return true, nil
		}
	}

	if d.settings.CheckLiveFeed {
		found, err := d.checkLiveFeed(ctx, title)
		if err != nil {
			slog.Warn("Live feed check failed, assuming duplicate", "title", title, "error", err)
			return true, nil
		}
		if found {
			d.backfill(title)
			return true, nil
		}
	}

	return false, nil
}

func (d *Detector) checkLiveFeed(ctx context.Context, title string) (bool, error) {
	posts, err := d.transport.GetRecentPosts(ctx, d.postsToCheck)
	if err != nil {
		return false, err
	}

	needle := cases.Fold().String(title)
	for _, text := range posts {
		firstLine, _, _ := strings.Cut(text, "\n")
		if strings.Contains(cases.Fold().String(firstLine), needle) {
			slog.Debug("Title found in recent live posts", "title", title)
			return true, nil
		}
	}

	return false, nil
}

// backfill records a live-feed hit in the persisted store so the next check
// short-circuits on the database. The remote feed does not expose the
// article's original publish time, so the record carries the current time;
// published_date is informational and never used for ordering or filtering.
func (d *Detector) backfill(title string) {
	if !d.settings.AutoSyncToDatabase || !d.settings.CheckDatabase {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := d.postRepo.SavePost(title, now); err != nil {
		slog.Warn("Failed to backfill post record", "title", title, "error", err)
		return
	}

	slog.Info("Backfilled post record from live feed", "title", title)
}
