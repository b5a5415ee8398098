package app

import (
	"sync"
	"time"

	"ebrr-results-service/internal/domain"
)

// ProgressFeed fans publication progress out to subscribers, one stream per
// exam session. The publisher pushes a snapshot after every student; slow
// consumers only ever miss intermediate snapshots, never the latest one.
type ProgressFeed struct {
	mu   sync.RWMutex
	runs map[string]*progressRun
}

type progressRun struct {
	mu          sync.Mutex
	last        domain.PublishProgress
	hasLast     bool
	subscribers map[chan domain.PublishProgress]struct{}
}

func NewProgressFeed() *ProgressFeed {
	return &ProgressFeed{runs: make(map[string]*progressRun)}
}

// Subscribe returns a channel of progress snapshots for the session. The
// caller must invoke the cancel function to avoid leaks. If a run already
// reported progress, the latest snapshot is delivered first.
func (f *ProgressFeed) Subscribe(sessionID string) (<-chan domain.PublishProgress, func()) {
	run := f.run(sessionID)

	ch := make(chan domain.PublishProgress, 8)

	run.mu.Lock()
	run.subscribers[ch] = struct{}{}
	if run.hasLast {
		ch <- run.last
	}
	run.mu.Unlock()

	cancel := func() {
		run.mu.Lock()
		if _, ok := run.subscribers[ch]; ok {
			delete(run.subscribers, ch)
			close(ch)
		}
		run.mu.Unlock()
	}
	return ch, cancel
}

// Publish broadcasts a snapshot to every subscriber of the session.
func (f *ProgressFeed) Publish(p domain.PublishProgress) {
	run := f.run(p.ExamSessionID)

	run.mu.Lock()
	defer run.mu.Unlock()
	run.last = p
	run.hasLast = true
	for ch := range run.subscribers {
		select {
		case ch <- p:
		default:
			// Drop the stale snapshot so a slow consumer never blocks the
			// aggregation loop.
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}

func (f *ProgressFeed) run(sessionID string) *progressRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[sessionID]
	if !ok {
		run = &progressRun{subscribers: make(map[chan domain.PublishProgress]struct{})}
		f.runs[sessionID] = run
	}
	return run
}

func progressAt(sessionID string, processed, total int, studentID, rollNumber string, done bool, now time.Time) domain.PublishProgress {
	return domain.PublishProgress{
		ExamSessionID: sessionID,
		Processed:     processed,
		Total:         total,
		StudentID:     studentID,
		RollNumber:    rollNumber,
		Done:          done,
		UpdatedAt:     now,
	}
}
