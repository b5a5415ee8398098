package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

func TestTransitionSessionCAS(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	session, err := store.CreateSession(ctx, domain.ExamSession{
		ID: "es1", Name: "Annual 2025", Type: domain.ExamAnnual, Status: domain.SessionCompleted,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.TransitionSession(ctx, session.ID, domain.SessionCompleted, domain.SessionPublishing); err != nil {
		t.Fatalf("first cas: %v", err)
	}
	// A second caller expecting completed loses the race.
	err = store.TransitionSession(ctx, session.ID, domain.SessionCompleted, domain.SessionPublishing)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second cas err = %v, want ErrInvalidTransition", err)
	}

	err = store.TransitionSession(ctx, "missing", domain.SessionCompleted, domain.SessionPublishing)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session err = %v, want ErrSessionNotFound", err)
	}
}

func TestNextRollSequencePerSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for want := 1; want <= 3; want++ {
		got, err := store.NextRollSequence(ctx, "es1")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("sequence = %d, want %d", got, want)
		}
	}

	// Independent counter per session.
	got, err := store.NextRollSequence(ctx, "es2")
	if err != nil || got != 1 {
		t.Fatalf("es2 sequence = %d err=%v, want 1", got, err)
	}
}

func TestHasActiveMarkIgnoresRejected(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	mark, err := store.CreateMark(ctx, domain.ExamMark{
		ID: "m1", StudentID: "s1", ExamSessionID: "es1", SubjectID: "math",
		Status: domain.MarkSubmitted, SubmittedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err := store.HasActiveMark(ctx, "s1", "es1", "math")
	if err != nil || !active {
		t.Fatalf("active = %v err=%v, want true", active, err)
	}

	if err := store.SetMarkStatus(ctx, mark.ID, domain.MarkRejected, "", time.Time{}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	active, err = store.HasActiveMark(ctx, "s1", "es1", "math")
	if err != nil || active {
		t.Fatalf("active after reject = %v err=%v, want false", active, err)
	}
}

func TestListSessionsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, _ = store.CreateSession(ctx, domain.ExamSession{ID: "a", AcademicYearID: "y1", Status: domain.SessionScheduled})
	_, _ = store.CreateSession(ctx, domain.ExamSession{ID: "b", AcademicYearID: "y1", Status: domain.SessionOngoing})
	_, _ = store.CreateSession(ctx, domain.ExamSession{ID: "c", AcademicYearID: "y2", Status: domain.SessionOngoing})

	got, err := store.ListSessions(ctx, app.SessionFilter{AcademicYearID: "y1"})
	if err != nil || len(got) != 2 {
		t.Fatalf("year filter: len=%d err=%v, want 2", len(got), err)
	}
	got, err = store.ListSessions(ctx, app.SessionFilter{Status: domain.SessionOngoing})
	if err != nil || len(got) != 2 {
		t.Fatalf("status filter: len=%d err=%v, want 2", len(got), err)
	}
	got, err = store.ListSessions(ctx, app.SessionFilter{AcademicYearID: "y1", Status: domain.SessionOngoing})
	if err != nil || len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("combined filter: %+v err=%v, want only b", got, err)
	}
}

func TestPublishedCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	seed := []domain.ResultSummary{
		{ID: "r1", StudentID: "s1", ExamSessionID: "es1", PassStatus: domain.Pass, IsPublished: true},
		{ID: "r2", StudentID: "s2", ExamSessionID: "es1", PassStatus: domain.Fail, IsPublished: true},
		{ID: "r3", StudentID: "s3", ExamSessionID: "es1", PassStatus: domain.Pass, IsPublished: false},
	}
	for _, s := range seed {
		if _, err := store.CreateSummary(ctx, s); err != nil {
			t.Fatalf("create summary: %v", err)
		}
	}

	published, passed, err := store.PublishedCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if published != 2 || passed != 1 {
		t.Fatalf("published/passed = %d/%d, want 2/1", published, passed)
	}
}

func TestReferenceCacheCollapsesRepeatLoads(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.AddSubject(domain.Subject{ID: "math", Name: "Mathematics", FullMarks: 100, PassMarks: 40})

	inner := &countingRefs{ReferenceRepository: store}
	cache := NewReferenceCache(inner, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := cache.GetSubject(ctx, "math"); err != nil {
			t.Fatalf("get subject: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}

	// Misses are not cached.
	for i := 0; i < 2; i++ {
		if _, err := cache.GetSubject(ctx, "ghost"); !errors.Is(err, domain.ErrSubjectNotFound) {
			t.Fatalf("ghost err = %v, want ErrSubjectNotFound", err)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls)
	}
}

type countingRefs struct {
	app.ReferenceRepository
	calls int
}

func (c *countingRefs) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	c.calls++
	return c.ReferenceRepository.GetSubject(ctx, id)
}
