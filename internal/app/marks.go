package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebrr-results-service/internal/domain"
)

// MarkService owns the mark submission ledger: entry, review, listing.
type MarkService struct {
	gate     *RoleGate
	marks    MarkRepository
	sessions SessionRepository
	refs     ReferenceRepository
	audit    *AuditRecorder
	now      func() time.Time
}

func NewMarkService(gate *RoleGate, marks MarkRepository, sessions SessionRepository, refs ReferenceRepository, audit *AuditRecorder) *MarkService {
	return &MarkService{
		gate:     gate,
		marks:    marks,
		sessions: sessions,
		refs:     refs,
		audit:    audit,
		now:      time.Now,
	}
}

// SubmitMarkInput carries one graded entry.
type SubmitMarkInput struct {
	StudentID     string
	ExamSessionID string
	SubjectID     string
	MarksObtained int
	IsAbsent      bool
}

// Submit records a mark in submitted state. Marks above the subject's full
// marks are accepted; over-marking is a data-quality concern surfaced at
// aggregation time, not an entry error.
func (s *MarkService) Submit(ctx context.Context, in SubmitMarkInput) (domain.ExamMark, error) {
	actor, err := s.gate.Require(ctx, domain.OpSubmitMark)
	if err != nil {
		return domain.ExamMark{}, err
	}
	if in.MarksObtained < 0 {
		return domain.ExamMark{}, fmt.Errorf("marksObtained must be non-negative: %w", domain.ErrInvalidMarks)
	}

	session, err := s.sessions.GetSession(ctx, in.ExamSessionID)
	if err != nil {
		return domain.ExamMark{}, err
	}
	if !session.Status.AcceptsMarks() {
		return domain.ExamMark{}, domain.ErrSessionNotAcceptingMarks
	}
	if _, err := s.refs.GetStudent(ctx, in.StudentID); err != nil {
		return domain.ExamMark{}, err
	}
	if _, err := s.refs.GetSubject(ctx, in.SubjectID); err != nil {
		return domain.ExamMark{}, err
	}

	exists, err := s.marks.HasActiveMark(ctx, in.StudentID, in.ExamSessionID, in.SubjectID)
	if err != nil {
		return domain.ExamMark{}, err
	}
	if exists {
		return domain.ExamMark{}, domain.ErrDuplicateSubmission
	}

	mark, err := s.marks.CreateMark(ctx, domain.ExamMark{
		ID:            uuid.NewString(),
		StudentID:     in.StudentID,
		ExamSessionID: in.ExamSessionID,
		SubjectID:     in.SubjectID,
		MarksObtained: in.MarksObtained,
		IsAbsent:      in.IsAbsent,
		Status:        domain.MarkSubmitted,
		SubmittedBy:   actor.UserID,
		SubmittedAt:   s.now().UTC(),
	})
	if err != nil {
		return domain.ExamMark{}, err
	}
	s.audit.Record(actor, "submit_marks", "exam_marks", mark.ID, "")
	return mark, nil
}

// Approve moves each listed mark from submitted to approved. Marks in any
// other state are skipped silently so stale review selections in a
// multi-user UI do not fail the whole batch. It returns how many marks
// actually transitioned; approving the same set twice is a no-op.
func (s *MarkService) Approve(ctx context.Context, markIDs []string) (int, error) {
	actor, err := s.gate.Require(ctx, domain.OpReviewMarks)
	if err != nil {
		return 0, err
	}
	approved := 0
	at := s.now().UTC()
	for _, id := range markIDs {
		mark, err := s.marks.GetMark(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrMarkNotFound) {
				continue
			}
			return approved, err
		}
		if mark.Status != domain.MarkSubmitted {
			continue
		}
		if err := s.marks.SetMarkStatus(ctx, id, domain.MarkApproved, actor.UserID, at); err != nil {
			return approved, err
		}
		approved++
	}
	s.audit.Record(actor, "approve_marks", "exam_marks", "", fmt.Sprintf("%d approved", approved))
	return approved, nil
}

// Reject marks the listed entries rejected, freeing their triples for
// resubmission. Entries already terminal (published, rejected) are skipped;
// everything else transitions.
func (s *MarkService) Reject(ctx context.Context, markIDs []string) (int, error) {
	actor, err := s.gate.Require(ctx, domain.OpReviewMarks)
	if err != nil {
		return 0, err
	}
	rejected := 0
	for _, id := range markIDs {
		mark, err := s.marks.GetMark(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrMarkNotFound) {
				continue
			}
			return rejected, err
		}
		if !mark.Status.CanTransition(domain.MarkRejected) {
			continue
		}
		if err := s.marks.SetMarkStatus(ctx, id, domain.MarkRejected, "", time.Time{}); err != nil {
			return rejected, err
		}
		rejected++
	}
	s.audit.Record(actor, "reject_marks", "exam_marks", "", fmt.Sprintf("%d rejected", rejected))
	return rejected, nil
}

// ListBySession returns every mark recorded for the session.
func (s *MarkService) ListBySession(ctx context.Context, sessionID string) ([]domain.ExamMark, error) {
	if _, err := s.gate.Require(ctx, domain.OpListMarks); err != nil {
		return nil, err
	}
	return s.marks.ListMarksBySession(ctx, sessionID)
}
