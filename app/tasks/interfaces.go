package tasks

import (
	"context"
	"time"

	"bskyrss/app/feed"
	"bskyrss/app/publisher"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	Start()
	GetDuration() time.Duration
}

// EntrySource supplies candidate feed entries for one poll cycle.
type EntrySource interface {
	FetchNewEntries(ctx context.Context) ([]feed.Entry, error)
}

// EntryPublisher runs the publish pipeline for a single entry.
type EntryPublisher interface {
	Publish(ctx context.Context, entry feed.Entry) publisher.Outcome
}

// SchedulerInterface runs poll cycles at a fixed interval until stopped.
// Example usage:
//
//	scheduler := NewScheduler(intake, pipeline, 10*time.Minute)
//	scheduler.Start()
//	defer scheduler.Stop()
type SchedulerInterface interface {
	Start()
	Stop()
}
