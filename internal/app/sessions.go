package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebrr-results-service/internal/domain"
)

// SessionService manages the exam-session lifecycle up to publication.
// The publishing and results_published states belong to the Publisher and
// cannot be reached through Transition.
type SessionService struct {
	gate     *RoleGate
	sessions SessionRepository
	refs     ReferenceRepository
	audit    *AuditRecorder
	now      func() time.Time
}

func NewSessionService(gate *RoleGate, sessions SessionRepository, refs ReferenceRepository, audit *AuditRecorder) *SessionService {
	return &SessionService{
		gate:     gate,
		sessions: sessions,
		refs:     refs,
		audit:    audit,
		now:      time.Now,
	}
}

// CreateSessionInput describes a new exam session; it always starts
// scheduled.
type CreateSessionInput struct {
	Name           string
	Type           domain.ExamType
	AcademicYearID string
	StartDate      string
	EndDate        string
}

func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (domain.ExamSession, error) {
	actor, err := s.gate.Require(ctx, domain.OpManageSessions)
	if err != nil {
		return domain.ExamSession{}, err
	}
	switch in.Type {
	case domain.ExamAnnual, domain.ExamMidterm, domain.ExamSpecial:
	default:
		return domain.ExamSession{}, fmt.Errorf("unknown exam type %q: %w", in.Type, domain.ErrInvalidTransition)
	}
	if _, err := s.refs.GetAcademicYear(ctx, in.AcademicYearID); err != nil {
		return domain.ExamSession{}, err
	}

	now := s.now().UTC()
	session, err := s.sessions.CreateSession(ctx, domain.ExamSession{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Type:           in.Type,
		AcademicYearID: in.AcademicYearID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Status:         domain.SessionScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return domain.ExamSession{}, err
	}
	s.audit.Record(actor, "create_exam_session", "exam_sessions", session.ID, session.Name)
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (domain.ExamSession, error) {
	return s.sessions.GetSession(ctx, id)
}

func (s *SessionService) List(ctx context.Context, f SessionFilter) ([]domain.ExamSession, error) {
	return s.sessions.ListSessions(ctx, f)
}

// Transition advances a session strictly forward. Only scheduled -> ongoing
// and ongoing -> completed are reachable here; publication owns the rest.
func (s *SessionService) Transition(ctx context.Context, id string, to domain.SessionStatus) error {
	actor, err := s.gate.Require(ctx, domain.OpManageSessions)
	if err != nil {
		return err
	}
	if to != domain.SessionOngoing && to != domain.SessionCompleted {
		return fmt.Errorf("status %q is not operator-reachable: %w", to, domain.ErrInvalidTransition)
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !session.Status.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", session.Status, to, domain.ErrInvalidTransition)
	}
	if err := s.sessions.TransitionSession(ctx, id, session.Status, to); err != nil {
		return err
	}
	s.audit.Record(actor, "update_exam_session_status", "exam_sessions", id, string(to))
	return nil
}
