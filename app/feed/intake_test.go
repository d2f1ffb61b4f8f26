package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePostRepo struct {
	posted map[string]bool
	err    error
}

func newFakePostRepo(titles ...string) *fakePostRepo {
	posted := make(map[string]bool)
	for _, title := range titles {
		posted[title] = true
	}
	return &fakePostRepo{posted: posted}
}

func (r *fakePostRepo) IsPosted(title string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.posted[title], nil
}

func (r *fakePostRepo) SavePost(title string, publishedDate string) error {
	r.posted[title] = true
	return nil
}

func (r *fakePostRepo) GetPostCount() (int, error) {
	return len(r.posted), nil
}

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
%s
</channel>
</rss>`

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
		title, link, pubDate)
}

func serveRSS(t *testing.T, items ...string) *httptest.Server {
	t.Helper()
	body := ""
	for _, item := range items {
		body += item
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssTemplate, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchNewEntries_FiltersStaleAndKnown(t *testing.T) {
	server := serveRSS(t,
		rssItem("Fresh Article", "https://example.com/fresh.html", "Wed, 01 Jan 2025 10:00:00 GMT"),
		rssItem("Already Posted", "https://example.com/posted.html", "Thu, 02 Jan 2025 10:00:00 GMT"),
		rssItem("Old Article", "https://example.com/old.html", "Mon, 01 Jan 2024 10:00:00 GMT"),
	)

	repo := newFakePostRepo("Already Posted")
	minDate := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	intake := NewIntake(server.Client(), repo, server.URL, "test-agent", minDate)

	entries, err := intake.FetchNewEntries(context.Background())
	if err != nil {
		t.Fatalf("FetchNewEntries failed: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "Fresh Article" {
		t.Errorf("Expected 'Fresh Article', got %q", entries[0].Title)
	}
	if entries[0].Link != "https://example.com/fresh.html" {
		t.Errorf("Unexpected link %q", entries[0].Link)
	}

	expected := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !entries[0].PublishedAt.Equal(expected) {
		t.Errorf("Expected published date %v, got %v", expected, entries[0].PublishedAt)
	}
}

func TestFetchNewEntries_EnclosureImage(t *testing.T) {
	item := `<item>
<title>With Enclosure</title>
<link>https://example.com/a.html</link>
<pubDate>Wed, 01 Jan 2025 10:00:00 GMT</pubDate>
<enclosure url="https://example.com/header.jpg" length="1234" type="image/jpeg"/>
</item>`
	server := serveRSS(t, item)

	minDate := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	intake := NewIntake(server.Client(), newFakePostRepo(), server.URL, "test-agent", minDate)

	entries, err := intake.FetchNewEntries(context.Background())
	if err != nil {
		t.Fatalf("FetchNewEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].ImageURL != "https://example.com/header.jpg" {
		t.Errorf("Expected enclosure image URL, got %q", entries[0].ImageURL)
	}
}

func TestFetchNewEntries_StoreErrorPropagates(t *testing.T) {
	server := serveRSS(t,
		rssItem("Some Article", "https://example.com/a.html", "Wed, 01 Jan 2025 10:00:00 GMT"),
	)

	repo := newFakePostRepo()
	repo.err = fmt.Errorf("database is locked")
	minDate := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	intake := NewIntake(server.Client(), repo, server.URL, "test-agent", minDate)

	if _, err := intake.FetchNewEntries(context.Background()); err == nil {
		t.Error("Expected store error to propagate")
	}
}

func TestFetchNewEntries_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	minDate := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	intake := NewIntake(server.Client(), newFakePostRepo(), server.URL, "test-agent", minDate)

	if _, err := intake.FetchNewEntries(context.Background()); err == nil {
		t.Error("Expected error for HTTP 500 response")
	}
}

func TestFetchNewEntries_MalformedFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not XML")
	}))
	defer server.Close()

	minDate := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	intake := NewIntake(server.Client(), newFakePostRepo(), server.URL, "test-agent", minDate)

	if _, err := intake.FetchNewEntries(context.Background()); err == nil {
		t.Error("Expected error for malformed feed")
	}
}
