package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"bskyrss/app/publisher"
)

// ProcessFeedTask runs one poll cycle: fetch candidate entries, then push
// each one through the publish pipeline sequentially. One entry's failure
// never stops the rest of the cycle.
type ProcessFeedTask struct {
	Task
	source    EntrySource
	publisher EntryPublisher
}

func NewProcessFeedTask(source EntrySource, entryPublisher EntryPublisher) *ProcessFeedTask {
	return &ProcessFeedTask{
		Task:      NewTask(TaskTypeProcessFeed),
		source:    source,
		publisher: entryPublisher,
	}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := t.source.FetchNewEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch new entries: %w", err)
	}

	postedCount := 0
	skippedCount := 0
	failedCount := 0

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outcome := t.publisher.Publish(ctx, entry)

		switch {
		case outcome.Posted():
			postedCount++
		case outcome == publisher.OutcomeFailed:
			failedCount++
		default:
			skippedCount++
		}

		slog.Debug("Entry processed", "title", entry.Title, "outcome", outcome.String())
	}

	slog.Info("Task completed",
		"type", "ProcessFeed",
		"duration", t.GetDuration(),
		"total", len(entries),
		"posted", postedCount,
		"skipped", skippedCount,
		"failed", failedCount)

	return nil
}
