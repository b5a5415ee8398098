package app

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ebrr-results-service/internal/domain"
)

// AuditRecorder emits audit entries at-least-once without ever blocking or
// failing the mutation that produced them. Entries flow through a bounded
// queue into a background writer that retries transient store errors; when
// the queue is full the entry is dropped and counted, so audit loss is a
// bounded, observable quantity.
type AuditRecorder struct {
	repo     AuditRepository
	queue    chan domain.AuditEntry
	wg       sync.WaitGroup
	dropped  atomic.Int64
	attempts int
	backoff  time.Duration
	now      func() time.Time

	closeOnce sync.Once
}

// NewAuditRecorder starts the background writer. queueSize <= 0 falls back
// to 256.
func NewAuditRecorder(repo AuditRepository, queueSize int) *AuditRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &AuditRecorder{
		repo:     repo,
		queue:    make(chan domain.AuditEntry, queueSize),
		attempts: 3,
		backoff:  100 * time.Millisecond,
		now:      time.Now,
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Record enqueues an audit entry. It never blocks: a full queue drops the
// entry and bumps the drop counter.
func (r *AuditRecorder) Record(actor Identity, action, tableName, recordID, details string) {
	e := domain.AuditEntry{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		UserName:  actor.Name,
		Action:    action,
		TableName: tableName,
		RecordID:  recordID,
		Details:   details,
		CreatedAt: r.now().UTC(),
	}
	if e.UserName == "" {
		e.UserName = "System"
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		log.Printf("audit: queue full, dropped %s on %s", action, tableName)
	}
}

// Dropped reports how many entries were lost to a full queue.
func (r *AuditRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops intake and flushes everything already queued.
func (r *AuditRecorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

func (r *AuditRecorder) drain() {
	defer r.wg.Done()
	for e := range r.queue {
		r.write(e)
	}
}

func (r *AuditRecorder) write(e domain.AuditEntry) {
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(r.backoff * time.Duration(attempt))
		}
		if err = r.repo.AppendAudit(context.Background(), e); err == nil {
			return
		}
	}
	r.dropped.Add(1)
	log.Printf("audit: giving up on %s after %d attempts: %v", e.Action, r.attempts, err)
}
