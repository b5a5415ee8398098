package app

import (
	"context"
	"time"

	"ebrr-results-service/internal/domain"
)

// MarkRepository stores the mark submission ledger.
type MarkRepository interface {
	CreateMark(ctx context.Context, m domain.ExamMark) (domain.ExamMark, error)
	GetMark(ctx context.Context, id string) (domain.ExamMark, error)
	// HasActiveMark reports whether a non-rejected mark exists for the
	// (student, session, subject) triple.
	HasActiveMark(ctx context.Context, studentID, sessionID, subjectID string) (bool, error)
	// ListMarksBySession returns the session's marks in stable submission
	// order; the aggregation loop relies on that order being deterministic.
	ListMarksBySession(ctx context.Context, sessionID string) ([]domain.ExamMark, error)
	ListMarksByStudentSession(ctx context.Context, studentID, sessionID string) ([]domain.ExamMark, error)
	// SetMarkStatus updates the review state. approvedBy/approvedAt are
	// recorded only when non-zero (approval); other transitions leave the
	// review metadata untouched.
	SetMarkStatus(ctx context.Context, id string, status domain.MarkStatus, approvedBy string, approvedAt time.Time) error
}

// SummaryRepository stores derived result summaries.
type SummaryRepository interface {
	CreateSummary(ctx context.Context, s domain.ResultSummary) (domain.ResultSummary, error)
	UpdateSummary(ctx context.Context, s domain.ResultSummary) error
	GetSummaryByStudentSession(ctx context.Context, studentID, sessionID string) (domain.ResultSummary, error)
	GetSummaryByRollNumber(ctx context.Context, rollNumber string) (domain.ResultSummary, error)
	GetSummaryByVerificationCode(ctx context.Context, code string) (domain.ResultSummary, error)
	ListSummariesByStudent(ctx context.Context, studentID string) ([]domain.ResultSummary, error)
	ListSummariesBySession(ctx context.Context, sessionID string) ([]domain.ResultSummary, error)
	ListSummaries(ctx context.Context) ([]domain.ResultSummary, error)
	// PublishedCounts returns how many summaries are published and how many
	// of those passed, for the public statistics endpoint.
	PublishedCounts(ctx context.Context) (published, passed int, err error)
}

// SessionRepository stores exam sessions and their roll-number sequences.
type SessionRepository interface {
	CreateSession(ctx context.Context, s domain.ExamSession) (domain.ExamSession, error)
	GetSession(ctx context.Context, id string) (domain.ExamSession, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]domain.ExamSession, error)
	CountSessions(ctx context.Context) (int, error)
	// TransitionSession is a compare-and-set on the session status: it moves
	// the session from "from" to "to" atomically and returns
	// domain.ErrInvalidTransition when the stored status is not "from".
	TransitionSession(ctx context.Context, id string, from, to domain.SessionStatus) error
	// NextRollSequence atomically increments and returns the session's
	// persisted roll-number counter, starting at 1.
	NextRollSequence(ctx context.Context, sessionID string) (int, error)
}

// SessionFilter narrows ListSessions; zero values mean no filtering.
type SessionFilter struct {
	AcademicYearID string
	Status         domain.SessionStatus
}

// CertificateRepository stores the certificate ledger.
type CertificateRepository interface {
	CreateCertificate(ctx context.Context, c domain.Certificate) (domain.Certificate, error)
	GetCertificate(ctx context.Context, id string) (domain.Certificate, error)
	GetCertificateByCertificateID(ctx context.Context, certificateID string) (domain.Certificate, error)
	// ListCertificates returns certificates newest first; studentID narrows
	// the listing when non-empty.
	ListCertificates(ctx context.Context, studentID string) ([]domain.Certificate, error)
	SetCertificateRevoked(ctx context.Context, id string) error
}

// ReferenceRepository reads enrollment reference data (students, schools,
// subjects, academic years). The pipeline never writes these.
type ReferenceRepository interface {
	GetStudent(ctx context.Context, id string) (domain.Student, error)
	GetStudentByBoardRegID(ctx context.Context, boardRegID string) (domain.Student, error)
	GetSchool(ctx context.Context, id string) (domain.School, error)
	GetSubject(ctx context.Context, id string) (domain.Subject, error)
	GetAcademicYear(ctx context.Context, id string) (domain.AcademicYear, error)
	CountActiveSchools(ctx context.Context) (int, error)
	// ActiveStudentCounts returns active student totals split by gender.
	ActiveStudentCounts(ctx context.Context) (male, female, total int, err error)
}

// AuditRepository appends and reads the audit log.
type AuditRepository interface {
	AppendAudit(ctx context.Context, e domain.AuditEntry) error
	// ListAudit returns entries newest first; tableName narrows the listing
	// when non-empty.
	ListAudit(ctx context.Context, tableName string, limit int) ([]domain.AuditEntry, error)
}
