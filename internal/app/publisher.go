package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebrr-results-service/internal/domain"
)

// Publisher is the aggregation engine: it folds a session's approved marks
// into per-student result summaries, assigns roll numbers from the session's
// persisted sequence, locks the source marks, and walks the session to
// results_published.
//
// The loop is not atomic across students. A crash mid-run leaves the session
// in publishing with some students summarized and others not; re-invoking
// with Resume recomputes every student from the source marks, so recovery is
// idempotent. Existing summaries keep their roll number and verification
// code on recompute, which keeps roll numbers stable across repeated runs.
type Publisher struct {
	gate      *RoleGate
	marks     MarkRepository
	summaries SummaryRepository
	sessions  SessionRepository
	refs      ReferenceRepository
	audit     *AuditRecorder
	feed      *ProgressFeed
	now       func() time.Time
}

func NewPublisher(gate *RoleGate, marks MarkRepository, summaries SummaryRepository, sessions SessionRepository, refs ReferenceRepository, audit *AuditRecorder, feed *ProgressFeed) *Publisher {
	return &Publisher{
		gate:      gate,
		marks:     marks,
		summaries: summaries,
		sessions:  sessions,
		refs:      refs,
		audit:     audit,
		feed:      feed,
		now:       time.Now,
	}
}

// PublishOptions tunes a publication run. Resume permits re-entering a
// session stranded in publishing by a crash, or recomputing an already
// published session.
type PublishOptions struct {
	Resume bool
}

// PublishReport summarizes a completed run.
type PublishReport struct {
	ExamSessionID     string `json:"examSessionId"`
	StudentsPublished int    `json:"studentsPublished"`
	MarksPublished    int    `json:"marksPublished"`
}

// Publish runs the aggregation loop for one exam session.
func (p *Publisher) Publish(ctx context.Context, sessionID string, opts PublishOptions) (PublishReport, error) {
	report := PublishReport{ExamSessionID: sessionID}

	actor, err := p.gate.Require(ctx, domain.OpPublishResults)
	if err != nil {
		return report, err
	}
	session, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return report, err
	}

	// Leading exclusivity guard: exactly one caller wins the CAS from
	// completed to publishing. Re-entry paths require an explicit Resume.
	finalize := true
	switch session.Status {
	case domain.SessionCompleted:
		if err := p.sessions.TransitionSession(ctx, sessionID, domain.SessionCompleted, domain.SessionPublishing); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return report, domain.ErrPublicationInProgress
			}
			return report, err
		}
	case domain.SessionPublishing:
		if !opts.Resume {
			return report, domain.ErrPublicationInProgress
		}
	case domain.SessionResultsPublished:
		if !opts.Resume {
			return report, fmt.Errorf("results already published: %w", domain.ErrInvalidTransition)
		}
		finalize = false
	default:
		return report, domain.ErrSessionNotCompleted
	}

	yearStr := "2025"
	if year, err := p.refs.GetAcademicYear(ctx, session.AcademicYearID); err == nil && year.Year != "" {
		yearStr = year.Year
	}

	allMarks, err := p.marks.ListMarksBySession(ctx, sessionID)
	if err != nil {
		return report, err
	}

	// Group approved marks by student in first-seen order. The repository
	// returns marks in stable submission order, so iteration order (and with
	// it roll-number assignment) is deterministic.
	var order []string
	groups := make(map[string][]domain.ExamMark)
	for _, mark := range allMarks {
		if mark.Status != domain.MarkApproved {
			continue
		}
		if _, seen := groups[mark.StudentID]; !seen {
			order = append(order, mark.StudentID)
		}
		groups[mark.StudentID] = append(groups[mark.StudentID], mark)
	}

	p.feed.Publish(progressAt(sessionID, 0, len(order), "", "", false, p.now().UTC()))

	for i, studentID := range order {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("publication interrupted after %d of %d students: %w", i, len(order), err)
		}
		rollNumber, published, err := p.publishStudent(ctx, session, studentID, groups[studentID], yearStr)
		if err != nil {
			return report, fmt.Errorf("publish student %s: %w", studentID, err)
		}
		report.StudentsPublished++
		report.MarksPublished += published
		p.feed.Publish(progressAt(sessionID, i+1, len(order), studentID, rollNumber, false, p.now().UTC()))
	}

	if finalize {
		if err := p.sessions.TransitionSession(ctx, sessionID, domain.SessionPublishing, domain.SessionResultsPublished); err != nil {
			return report, err
		}
	}

	p.audit.Record(actor, "publish_results", "exam_sessions", sessionID,
		fmt.Sprintf("%d students, %d marks", report.StudentsPublished, report.MarksPublished))
	p.feed.Publish(progressAt(sessionID, len(order), len(order), "", "", true, p.now().UTC()))
	return report, nil
}

// publishStudent aggregates one student's approved marks, upserts the
// summary, and locks the marks as published. It returns the roll number in
// effect and how many marks transitioned.
func (p *Publisher) publishStudent(ctx context.Context, session domain.ExamSession, studentID string, group []domain.ExamMark, yearStr string) (string, int, error) {
	var totalMarks, obtainedMarks int
	allPassed := true
	for _, mark := range group {
		subject, err := p.refs.GetSubject(ctx, mark.SubjectID)
		if err != nil {
			if errors.Is(err, domain.ErrSubjectNotFound) {
				// Orphaned subject reference: the mark cannot contribute to
				// the totals. Matches upstream behavior.
				continue
			}
			return "", 0, err
		}
		totalMarks += subject.FullMarks
		if !mark.IsAbsent {
			obtainedMarks += mark.MarksObtained
		}
		if mark.IsAbsent || mark.MarksObtained < subject.PassMarks {
			allPassed = false
		}
	}

	percentage := domain.Percentage(obtainedMarks, totalMarks)
	gpa, grade := domain.GradeFor(percentage)
	passStatus := domain.Pass
	if !allPassed {
		passStatus = domain.Fail
	}
	now := p.now().UTC()

	var rollNumber string
	existing, err := p.summaries.GetSummaryByStudentSession(ctx, studentID, session.ID)
	switch {
	case err == nil:
		existing.TotalMarks = totalMarks
		existing.ObtainedMarks = obtainedMarks
		existing.Percentage = percentage
		existing.GPA = gpa
		existing.Grade = grade
		existing.PassStatus = passStatus
		existing.IsPublished = true
		existing.PublishedAt = now
		if existing.RollNumber == "" {
			seq, err := p.sessions.NextRollSequence(ctx, session.ID)
			if err != nil {
				return "", 0, err
			}
			existing.RollNumber = domain.NewRollNumber(session.Type, yearStr, seq)
		}
		if err := p.summaries.UpdateSummary(ctx, existing); err != nil {
			return "", 0, err
		}
		rollNumber = existing.RollNumber
	case errors.Is(err, domain.ErrSummaryNotFound):
		seq, err := p.sessions.NextRollSequence(ctx, session.ID)
		if err != nil {
			return "", 0, err
		}
		rollNumber = domain.NewRollNumber(session.Type, yearStr, seq)
		if _, err := p.summaries.CreateSummary(ctx, domain.ResultSummary{
			ID:               uuid.NewString(),
			StudentID:        studentID,
			ExamSessionID:    session.ID,
			TotalMarks:       totalMarks,
			ObtainedMarks:    obtainedMarks,
			Percentage:       percentage,
			GPA:              gpa,
			Grade:            grade,
			PassStatus:       passStatus,
			RollNumber:       rollNumber,
			VerificationCode: domain.NewVerificationCode(),
			IsPublished:      true,
			PublishedAt:      now,
			CreatedAt:        now,
		}); err != nil {
			return "", 0, err
		}
	default:
		return "", 0, err
	}

	published := 0
	for _, mark := range group {
		if err := p.marks.SetMarkStatus(ctx, mark.ID, domain.MarkPublished, "", time.Time{}); err != nil {
			return rollNumber, published, err
		}
		published++
	}
	return rollNumber, published, nil
}
