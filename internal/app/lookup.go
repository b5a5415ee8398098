package app

import (
	"context"
	"errors"
	"fmt"

	"ebrr-results-service/internal/domain"
)

// PublicLookup is the unauthenticated read surface. The redis cache layer
// decorates this interface in front of the live service.
type PublicLookup interface {
	// SearchByRollNumber returns the one published result for a roll number,
	// or nil when the roll number is unknown or unpublished.
	SearchByRollNumber(ctx context.Context, rollNumber string) (*domain.ResultView, error)
	// SearchByBoardRegID returns every published result for a student.
	// A nil slice means the student is unknown; an empty non-nil slice means
	// the student exists with no published results yet. Callers must not
	// conflate the two.
	SearchByBoardRegID(ctx context.Context, boardRegID string) ([]domain.ResultView, error)
	// VerifyResult resolves a summary by its opaque verification code.
	VerifyResult(ctx context.Context, verificationCode string) (*domain.ResultVerification, error)
	// VerifyCertificate resolves a certificate by its public identifier,
	// returning nil when not found. Student, school and session fields are
	// resolved at read time.
	VerifyCertificate(ctx context.Context, certificateID string) (*domain.CertificateVerification, error)
	// Stats returns the public dashboard aggregate.
	Stats(ctx context.Context) (domain.PublicStats, error)
}

// LookupService assembles the public read projections plus the gated
// reviewer queries over summaries and the audit trail.
type LookupService struct {
	gate         *RoleGate
	marks        MarkRepository
	summaries    SummaryRepository
	sessions     SessionRepository
	certificates CertificateRepository
	refs         ReferenceRepository
	auditRepo    AuditRepository
}

func NewLookupService(gate *RoleGate, marks MarkRepository, summaries SummaryRepository, sessions SessionRepository, certificates CertificateRepository, refs ReferenceRepository, auditRepo AuditRepository) *LookupService {
	return &LookupService{
		gate:         gate,
		marks:        marks,
		summaries:    summaries,
		sessions:     sessions,
		certificates: certificates,
		refs:         refs,
		auditRepo:    auditRepo,
	}
}

var _ PublicLookup = (*LookupService)(nil)

func (s *LookupService) SearchByRollNumber(ctx context.Context, rollNumber string) (*domain.ResultView, error) {
	summary, err := s.summaries.GetSummaryByRollNumber(ctx, rollNumber)
	if err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !summary.IsPublished {
		return nil, nil
	}

	view, err := s.assembleView(ctx, summary)
	if err != nil {
		return nil, err
	}

	marks, err := s.marks.ListMarksByStudentSession(ctx, summary.StudentID, summary.ExamSessionID)
	if err != nil {
		return nil, err
	}
	for _, mark := range marks {
		if mark.Status != domain.MarkPublished {
			continue
		}
		sm := domain.SubjectMark{
			SubjectName:   "Unknown",
			MarksObtained: mark.MarksObtained,
			IsAbsent:      mark.IsAbsent,
		}
		if subject, err := s.refs.GetSubject(ctx, mark.SubjectID); err == nil {
			sm.SubjectName = subject.Name
			sm.SubjectCode = subject.Code
			sm.FullMarks = subject.FullMarks
			sm.PassMarks = subject.PassMarks
		}
		view.SubjectMarks = append(view.SubjectMarks, sm)
	}
	return &view, nil
}

// assembleView resolves the names around a summary, tolerating missing
// reference rows the way the public site does ("Unknown" student, blank
// school).
func (s *LookupService) assembleView(ctx context.Context, summary domain.ResultSummary) (domain.ResultView, error) {
	view := domain.ResultView{
		StudentName:      "Unknown",
		RollNumber:       summary.RollNumber,
		TotalMarks:       summary.TotalMarks,
		ObtainedMarks:    summary.ObtainedMarks,
		Percentage:       summary.Percentage,
		GPA:              summary.GPA,
		Grade:            summary.Grade,
		PassStatus:       summary.PassStatus,
		VerificationCode: summary.VerificationCode,
		PublishedAt:      summary.PublishedAt,
	}
	if student, err := s.refs.GetStudent(ctx, summary.StudentID); err == nil {
		view.StudentName = student.FullName()
		view.BoardRegID = student.BoardRegID
		if school, err := s.refs.GetSchool(ctx, student.SchoolID); err == nil {
			view.SchoolName = school.Name
		}
	}
	if session, err := s.sessions.GetSession(ctx, summary.ExamSessionID); err == nil {
		view.ExamSessionName = session.Name
		view.ExamType = string(session.Type)
	}
	return view, nil
}

func (s *LookupService) SearchByBoardRegID(ctx context.Context, boardRegID string) ([]domain.ResultView, error) {
	student, err := s.refs.GetStudentByBoardRegID(ctx, boardRegID)
	if err != nil {
		if errors.Is(err, domain.ErrStudentNotFound) {
			return nil, nil
		}
		return nil, err
	}

	summaries, err := s.summaries.ListSummariesByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	schoolName := ""
	if school, err := s.refs.GetSchool(ctx, student.SchoolID); err == nil {
		schoolName = school.Name
	}

	views := make([]domain.ResultView, 0, len(summaries))
	for _, summary := range summaries {
		if !summary.IsPublished {
			continue
		}
		views = append(views, domain.ResultView{
			StudentName:      student.FullName(),
			BoardRegID:       student.BoardRegID,
			SchoolName:       schoolName,
			RollNumber:       summary.RollNumber,
			TotalMarks:       summary.TotalMarks,
			ObtainedMarks:    summary.ObtainedMarks,
			Percentage:       summary.Percentage,
			GPA:              summary.GPA,
			Grade:            summary.Grade,
			PassStatus:       summary.PassStatus,
			VerificationCode: summary.VerificationCode,
			PublishedAt:      summary.PublishedAt,
		})
	}
	return views, nil
}

func (s *LookupService) VerifyResult(ctx context.Context, verificationCode string) (*domain.ResultVerification, error) {
	summary, err := s.summaries.GetSummaryByVerificationCode(ctx, verificationCode)
	if err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !summary.IsPublished {
		return nil, nil
	}

	v := domain.ResultVerification{
		Verified:    true,
		StudentName: "Unknown",
		GPA:         summary.GPA,
		Grade:       summary.Grade,
		PassStatus:  summary.PassStatus,
		PublishedAt: summary.PublishedAt,
	}
	if student, err := s.refs.GetStudent(ctx, summary.StudentID); err == nil {
		v.StudentName = student.FullName()
		v.BoardRegID = student.BoardRegID
		if school, err := s.refs.GetSchool(ctx, student.SchoolID); err == nil {
			v.SchoolName = school.Name
		}
	}
	if session, err := s.sessions.GetSession(ctx, summary.ExamSessionID); err == nil {
		v.ExamSession = session.Name
	}
	return &v, nil
}

func (s *LookupService) VerifyCertificate(ctx context.Context, certificateID string) (*domain.CertificateVerification, error) {
	cert, err := s.certificates.GetCertificateByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, domain.ErrCertificateNotFound) {
			return nil, nil
		}
		return nil, err
	}

	v := domain.CertificateVerification{
		Valid:         !cert.IsRevoked,
		IsRevoked:     cert.IsRevoked,
		CertificateID: cert.CertificateID,
		Type:          cert.Type,
		StudentName:   "Unknown",
		IssuedAt:      cert.IssuedAt,
	}
	if student, err := s.refs.GetStudent(ctx, cert.StudentID); err == nil {
		v.StudentName = student.FullName()
		v.BoardRegID = student.BoardRegID
		if school, err := s.refs.GetSchool(ctx, student.SchoolID); err == nil {
			v.SchoolName = school.Name
		}
	}
	if session, err := s.sessions.GetSession(ctx, cert.ExamSessionID); err == nil {
		v.ExamSession = session.Name
	}
	return &v, nil
}

func (s *LookupService) Stats(ctx context.Context) (domain.PublicStats, error) {
	stats := domain.PublicStats{GenderRatio: "N/A"}

	schools, err := s.refs.CountActiveSchools(ctx)
	if err != nil {
		return stats, err
	}
	male, female, total, err := s.refs.ActiveStudentCounts(ctx)
	if err != nil {
		return stats, err
	}
	exams, err := s.sessions.CountSessions(ctx)
	if err != nil {
		return stats, err
	}
	published, passed, err := s.summaries.PublishedCounts(ctx)
	if err != nil {
		return stats, err
	}

	stats.TotalSchools = schools
	stats.TotalStudents = total
	stats.TotalExams = exams
	stats.MaleStudents = male
	stats.FemaleStudents = female
	if published > 0 {
		stats.PassRate = int(float64(passed)/float64(published)*100 + 0.5)
	}
	if total > 0 {
		stats.GenderRatio = fmt.Sprintf("%d:%d", male, female)
	}
	return stats, nil
}

// ListSummaries is the reviewer dashboard query; sessionID narrows the
// listing when non-empty.
func (s *LookupService) ListSummaries(ctx context.Context, sessionID string) ([]domain.ResultSummary, error) {
	if _, err := s.gate.Require(ctx, domain.OpListSummaries); err != nil {
		return nil, err
	}
	if sessionID != "" {
		return s.summaries.ListSummariesBySession(ctx, sessionID)
	}
	return s.summaries.ListSummaries(ctx)
}

// ListAudit returns recent audit entries, newest first.
func (s *LookupService) ListAudit(ctx context.Context, tableName string, limit int) ([]domain.AuditEntry, error) {
	if _, err := s.gate.Require(ctx, domain.OpReadAudit); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.auditRepo.ListAudit(ctx, tableName, limit)
}
