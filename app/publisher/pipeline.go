package publisher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bskyrss/app/config"
	"bskyrss/app/database"
	"bskyrss/app/feed"
)

// Pipeline publishes one feed entry at a time: floor-date check, duplicate
// check, image resolution, publish with image-to-text fallback, and finally
// the post record write. The transport session and the store are owned
// exclusively by the pipeline for the duration of a cycle.
type Pipeline struct {
	detector  *Detector
	resolver  ImageResolver
	transport Transport
	postRepo  database.PostRepository
	opts      *config.Options
	limiter   *rate.Limiter
}

func NewPipeline(detector *Detector, resolver ImageResolver, transport Transport,
	postRepo database.PostRepository, opts *config.Options) *Pipeline {
	// Burst of one paces successive sends without delaying the first.
	limiter := rate.NewLimiter(rate.Every(time.Duration(opts.PostDelay)*time.Second), 1)

	return &Pipeline{
		detector:  detector,
		resolver:  resolver,
		transport: transport,
		postRepo:  postRepo,
		opts:      opts,
		limiter:   limiter,
	}
}

// Publish processes a single entry and reports the outcome. It never
// returns an error: failures are logged, reflected in the outcome and left
// for the next poll cycle to retry (the record is only written after a
// confirmed publish).
func (p *Pipeline) Publish(ctx context.Context, entry feed.Entry) Outcome {
	if entry.PublishedAt.Before(p.opts.MinPostDateParsed) {
		slog.Info("Entry published before floor date, skipping",
			"title", entry.Title,
			"published_at", entry.PublishedAt.Format(time.RFC3339))
		return OutcomeSkippedStale
	}

	duplicate, err := p.detector.IsDuplicate(ctx, entry.Title)
	if err != nil {
		slog.Error("Duplicate check failed", "title", entry.Title, "error", err)
		return OutcomeFailed
	}
	if duplicate {
		slog.Info("Entry already published, skipping", "title", entry.Title)
		return OutcomeSkippedDuplicate
	}

	link := p.canonicalLink(entry.Link)
	text := p.composeText(entry.Title, link)

	if p.opts.IncludeImages {
		if payload := p.resolver.Resolve(ctx, entry.Link, entry.ImageURL); payload != nil {
			err := p.sendImage(ctx, text, link, payload.Data, entry.Title)
			if err == nil {
				p.record(entry)
				slog.Info("Published entry with image", "title", entry.Title, "size_bytes", len(payload.Data))
				return OutcomePostedWithImage
			}
			// One text-only fallback attempt; the image path is not retried.
			slog.Warn("Image post failed, falling back to text-only", "title", entry.Title, "error", err)
		}
	}

	if err := p.sendText(ctx, text, link); err != nil {
		slog.Error("Text post failed", "title", entry.Title, "error", err)
		return OutcomeFailed
	}

	p.record(entry)
	slog.Info("Published entry", "title", entry.Title)
	return OutcomePosted
}

func (p *Pipeline) sendImage(ctx context.Context, text, link string, image []byte, alt string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.transport.SendImagePost(ctx, text, link, image, alt)
}

func (p *Pipeline) sendText(ctx context.Context, text, link string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.transport.SendTextPost(ctx, text, link)
}

// record writes the post record after a confirmed publish. A write failure
// is logged but does not undo the publish; the entry may be re-sent next
// cycle, which is the at-least-once tradeoff this design accepts.
func (p *Pipeline) record(entry feed.Entry) {
	publishedDate := entry.PublishedAt.UTC().Format(time.RFC3339)
	if err := p.postRepo.SavePost(entry.Title, publishedDate); err != nil {
		slog.Error("Failed to record published post", "title", entry.Title, "error", err)
	}
}

func (p *Pipeline) canonicalLink(link string) string {
	if p.opts.StripHTMLSuffix {
		return strings.TrimSuffix(link, ".html")
	}
	return link
}

func (p *Pipeline) composeText(title string, link string) string {
	return strings.NewReplacer("{title}", title, "{link}", link).Replace(p.opts.PostFormat)
}
