package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// Store is an in-memory implementation of every repository the pipeline
// needs. It backs the unit tests and the demo mode of the server; insertion
// order is preserved so listings (and with them roll-number assignment) are
// deterministic.
type Store struct {
	mu sync.RWMutex

	marks     map[string]domain.ExamMark
	markOrder []string

	summaries    map[string]domain.ResultSummary
	summaryOrder []string

	sessions     map[string]domain.ExamSession
	sessionOrder []string
	rollSeq      map[string]int

	certificates map[string]domain.Certificate
	certOrder    []string

	students map[string]domain.Student
	schools  map[string]domain.School
	subjects map[string]domain.Subject
	years    map[string]domain.AcademicYear

	audit []domain.AuditEntry
}

var (
	_ app.MarkRepository        = (*Store)(nil)
	_ app.SummaryRepository     = (*Store)(nil)
	_ app.SessionRepository     = (*Store)(nil)
	_ app.CertificateRepository = (*Store)(nil)
	_ app.ReferenceRepository   = (*Store)(nil)
	_ app.AuditRepository       = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		marks:        make(map[string]domain.ExamMark),
		summaries:    make(map[string]domain.ResultSummary),
		sessions:     make(map[string]domain.ExamSession),
		rollSeq:      make(map[string]int),
		certificates: make(map[string]domain.Certificate),
		students:     make(map[string]domain.Student),
		schools:      make(map[string]domain.School),
		subjects:     make(map[string]domain.Subject),
		years:        make(map[string]domain.AcademicYear),
	}
}

// ─── marks ───

func (s *Store) CreateMark(_ context.Context, m domain.ExamMark) (domain.ExamMark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[m.ID] = m
	s.markOrder = append(s.markOrder, m.ID)
	return m, nil
}

func (s *Store) GetMark(_ context.Context, id string) (domain.ExamMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mark, ok := s.marks[id]
	if !ok {
		return domain.ExamMark{}, domain.ErrMarkNotFound
	}
	return mark, nil
}

func (s *Store) HasActiveMark(_ context.Context, studentID, sessionID, subjectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.markOrder {
		m := s.marks[id]
		if m.StudentID == studentID && m.ExamSessionID == sessionID && m.SubjectID == subjectID && m.Status.Counts() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListMarksBySession(_ context.Context, sessionID string) ([]domain.ExamMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ExamMark
	for _, id := range s.markOrder {
		if m := s.marks[id]; m.ExamSessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListMarksByStudentSession(_ context.Context, studentID, sessionID string) ([]domain.ExamMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ExamMark
	for _, id := range s.markOrder {
		m := s.marks[id]
		if m.StudentID == studentID && m.ExamSessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) SetMarkStatus(_ context.Context, id string, status domain.MarkStatus, approvedBy string, approvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.marks[id]
	if !ok {
		return domain.ErrMarkNotFound
	}
	mark.Status = status
	if approvedBy != "" {
		mark.ApprovedBy = approvedBy
	}
	if !approvedAt.IsZero() {
		mark.ApprovedAt = approvedAt
	}
	s.marks[id] = mark
	return nil
}

// ─── summaries ───

func (s *Store) CreateSummary(_ context.Context, sum domain.ResultSummary) (domain.ResultSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.ID] = sum
	s.summaryOrder = append(s.summaryOrder, sum.ID)
	return sum, nil
}

func (s *Store) UpdateSummary(_ context.Context, sum domain.ResultSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.summaries[sum.ID]; !ok {
		return domain.ErrSummaryNotFound
	}
	s.summaries[sum.ID] = sum
	return nil
}

func (s *Store) GetSummaryByStudentSession(_ context.Context, studentID, sessionID string) (domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.summaryOrder {
		sum := s.summaries[id]
		if sum.StudentID == studentID && sum.ExamSessionID == sessionID {
			return sum, nil
		}
	}
	return domain.ResultSummary{}, domain.ErrSummaryNotFound
}

func (s *Store) GetSummaryByRollNumber(_ context.Context, rollNumber string) (domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.summaryOrder {
		if sum := s.summaries[id]; sum.RollNumber == rollNumber {
			return sum, nil
		}
	}
	return domain.ResultSummary{}, domain.ErrSummaryNotFound
}

func (s *Store) GetSummaryByVerificationCode(_ context.Context, code string) (domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.summaryOrder {
		if sum := s.summaries[id]; sum.VerificationCode == code {
			return sum, nil
		}
	}
	return domain.ResultSummary{}, domain.ErrSummaryNotFound
}

func (s *Store) ListSummariesByStudent(_ context.Context, studentID string) ([]domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResultSummary
	for _, id := range s.summaryOrder {
		if sum := s.summaries[id]; sum.StudentID == studentID {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (s *Store) ListSummariesBySession(_ context.Context, sessionID string) ([]domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResultSummary
	for _, id := range s.summaryOrder {
		if sum := s.summaries[id]; sum.ExamSessionID == sessionID {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (s *Store) ListSummaries(_ context.Context) ([]domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ResultSummary, 0, len(s.summaryOrder))
	for _, id := range s.summaryOrder {
		out = append(out, s.summaries[id])
	}
	return out, nil
}

func (s *Store) PublishedCounts(_ context.Context) (published, passed int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sum := range s.summaries {
		if !sum.IsPublished {
			continue
		}
		published++
		if sum.PassStatus == domain.Pass {
			passed++
		}
	}
	return published, passed, nil
}

// ─── sessions ───

func (s *Store) CreateSession(_ context.Context, session domain.ExamSession) (domain.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.sessionOrder = append(s.sessionOrder, session.ID)
	return session, nil
}

func (s *Store) GetSession(_ context.Context, id string) (domain.ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ExamSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListSessions(_ context.Context, f app.SessionFilter) ([]domain.ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ExamSession
	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		if f.AcademicYearID != "" && session.AcademicYearID != f.AcademicYearID {
			continue
		}
		if f.Status != "" && session.Status != f.Status {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *Store) CountSessions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *Store) TransitionSession(_ context.Context, id string, from, to domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status != from {
		return domain.ErrInvalidTransition
	}
	session.Status = to
	session.UpdatedAt = time.Now().UTC()
	s.sessions[id] = session
	return nil
}

func (s *Store) NextRollSequence(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollSeq[sessionID]++
	return s.rollSeq[sessionID], nil
}

// ─── certificates ───

func (s *Store) CreateCertificate(_ context.Context, c domain.Certificate) (domain.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certificates[c.ID] = c
	s.certOrder = append(s.certOrder, c.ID)
	return c, nil
}

func (s *Store) GetCertificate(_ context.Context, id string) (domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certificates[id]
	if !ok {
		return domain.Certificate{}, domain.ErrCertificateNotFound
	}
	return cert, nil
}

func (s *Store) GetCertificateByCertificateID(_ context.Context, certificateID string) (domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.certOrder {
		if cert := s.certificates[id]; cert.CertificateID == certificateID {
			return cert, nil
		}
	}
	return domain.Certificate{}, domain.ErrCertificateNotFound
}

func (s *Store) ListCertificates(_ context.Context, studentID string) ([]domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Certificate
	for i := len(s.certOrder) - 1; i >= 0; i-- {
		cert := s.certificates[s.certOrder[i]]
		if studentID != "" && cert.StudentID != studentID {
			continue
		}
		out = append(out, cert)
	}
	return out, nil
}

func (s *Store) SetCertificateRevoked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certificates[id]
	if !ok {
		return domain.ErrCertificateNotFound
	}
	cert.IsRevoked = true
	s.certificates[id] = cert
	return nil
}

// ─── reference data ───

// AddStudent seeds a student fixture.
func (s *Store) AddStudent(st domain.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// AddSchool seeds a school fixture.
func (s *Store) AddSchool(sc domain.School) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schools[sc.ID] = sc
}

// AddSubject seeds a subject fixture.
func (s *Store) AddSubject(sub domain.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.ID] = sub
}

// AddAcademicYear seeds an academic-year fixture.
func (s *Store) AddAcademicYear(y domain.AcademicYear) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.years[y.ID] = y
}

func (s *Store) GetStudent(_ context.Context, id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return st, nil
}

func (s *Store) GetStudentByBoardRegID(_ context.Context, boardRegID string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.BoardRegID == boardRegID {
			return st, nil
		}
	}
	return domain.Student{}, domain.ErrStudentNotFound
}

func (s *Store) GetSchool(_ context.Context, id string) (domain.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schools[id]
	if !ok {
		return domain.School{}, domain.ErrSchoolNotFound
	}
	return sc, nil
}

func (s *Store) GetSubject(_ context.Context, id string) (domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	return sub, nil
}

func (s *Store) GetAcademicYear(_ context.Context, id string) (domain.AcademicYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	y, ok := s.years[id]
	if !ok {
		return domain.AcademicYear{}, domain.ErrAcademicYearNotFound
	}
	return y, nil
}

func (s *Store) CountActiveSchools(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sc := range s.schools {
		if sc.Status == "active" {
			n++
		}
	}
	return n, nil
}

func (s *Store) ActiveStudentCounts(_ context.Context) (male, female, total int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if !st.IsActive {
			continue
		}
		total++
		switch st.Gender {
		case "male":
			male++
		case "female":
			female++
		}
	}
	return male, female, total, nil
}

// ─── audit ───

func (s *Store) AppendAudit(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) ListAudit(_ context.Context, tableName string, limit int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditEntry
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if tableName != "" && s.audit[i].TableName != tableName {
			continue
		}
		out = append(out, s.audit[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
