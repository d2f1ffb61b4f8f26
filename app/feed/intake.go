package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"bskyrss/app/database"
)

const fetchTimeout = 30 * time.Second

// Intake fetches the configured RSS feed and yields entries that are at or
// after the floor date and not yet recorded as posted.
type Intake struct {
	httpClient  *http.Client
	parser      *gofeed.Parser
	postRepo    database.PostRepository
	feedURL     string
	userAgent   string
	minPostDate time.Time
}

func NewIntake(httpClient *http.Client, postRepo database.PostRepository,
	feedURL string, userAgent string, minPostDate time.Time) *Intake {
	return &Intake{
		httpClient:  httpClient,
		parser:      gofeed.NewParser(),
		postRepo:    postRepo,
		feedURL:     feedURL,
		userAgent:   userAgent,
		minPostDate: minPostDate,
	}
}

// FetchNewEntries returns candidate entries in the order the feed lists
// them (newest first for the usual RSS conventions). Store errors
// propagate: without a reliable posted-set the whole cycle is unsafe.
func (i *Intake) FetchNewEntries(ctx context.Context) ([]Entry, error) {
	data, err := i.fetchFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	parsed, err := i.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var entries []Entry
	staleCount := 0
	knownCount := 0

	for _, item := range parsed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		publishedAt := publishedTime(item)
		if publishedAt.IsZero() {
			slog.Debug("Entry has no parseable publish date, skipping", "title", item.Title)
			continue
		}

		if publishedAt.Before(i.minPostDate) {
			staleCount++
			continue
		}

		posted, err := i.postRepo.IsPosted(item.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to check posted state: %w", err)
		}
		if posted {
			knownCount++
			continue
		}

		entries = append(entries, Entry{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: publishedAt,
			ImageURL:    imageURL(item),
		})
	}

	slog.Debug("Feed fetched",
		"total", len(parsed.Items),
		"stale", staleCount,
		"known", knownCount,
		"new", len(entries))

	return entries, nil
}

func (i *Intake) fetchFeed(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", i.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// imageURL extracts a pre-resolved image URL from the feed item when the
// feed carries one (feed-level image enclosures or media thumbnails). The
// image resolver falls back to scraping the article page when this is empty.
func imageURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["thumbnail"] {
			if url, ok := ext.Attrs["url"]; ok && url != "" {
				return url
			}
		}
	}

	return ""
}
