package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

var _ SchedulerInterface = (*Scheduler)(nil)

// Scheduler runs one poll cycle at a time on a fixed interval. The single
// sequential worker is intentional: it bounds the rate of outbound publish
// calls and keeps the store and the transport session exclusively owned
// for the duration of each cycle.
type Scheduler struct {
	source    EntrySource
	publisher EntryPublisher
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewScheduler(source EntrySource, entryPublisher EntryPublisher, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		source:    source,
		publisher: entryPublisher,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runCycle()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle()
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight cycle to finish; a cycle
// is never interrupted mid-entry.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// runCycle executes one ProcessFeedTask. Cycle failures are logged and
// absorbed: the process keeps running and retries on the next tick,
// trading synchronous error surfacing for availability.
func (s *Scheduler) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Poll cycle panicked", "panic", r)
		}
	}()

	task := NewProcessFeedTask(s.source, s.publisher)
	task.Start()

	if err := task.Execute(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			slog.Debug("Poll cycle cancelled", "id", task.GetID())
			return
		}
		slog.Error("Poll cycle failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"duration", task.GetDuration(),
			"error", err)
	}
}
