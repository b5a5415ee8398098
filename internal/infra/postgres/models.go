package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"ebrr-results-service/internal/domain"
)

type examMarkRow struct {
	bun.BaseModel `bun:"table:exam_marks,alias:m"`

	ID            string    `bun:"id,pk"`
	StudentID     string    `bun:"student_id,notnull"`
	ExamSessionID string    `bun:"exam_session_id,notnull"`
	SubjectID     string    `bun:"subject_id,notnull"`
	MarksObtained int       `bun:"marks_obtained,notnull"`
	IsAbsent      bool      `bun:"is_absent,notnull"`
	Status        string    `bun:"status,notnull"`
	SubmittedBy   string    `bun:"submitted_by,nullzero"`
	SubmittedAt   time.Time `bun:"submitted_at,nullzero"`
	ApprovedBy    string    `bun:"approved_by,nullzero"`
	ApprovedAt    time.Time `bun:"approved_at,nullzero"`
}

func markToRow(m domain.ExamMark) examMarkRow {
	return examMarkRow{
		ID:            m.ID,
		StudentID:     m.StudentID,
		ExamSessionID: m.ExamSessionID,
		SubjectID:     m.SubjectID,
		MarksObtained: m.MarksObtained,
		IsAbsent:      m.IsAbsent,
		Status:        string(m.Status),
		SubmittedBy:   m.SubmittedBy,
		SubmittedAt:   m.SubmittedAt,
		ApprovedBy:    m.ApprovedBy,
		ApprovedAt:    m.ApprovedAt,
	}
}

func (r examMarkRow) toDomain() domain.ExamMark {
	return domain.ExamMark{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ExamSessionID: r.ExamSessionID,
		SubjectID:     r.SubjectID,
		MarksObtained: r.MarksObtained,
		IsAbsent:      r.IsAbsent,
		Status:        domain.MarkStatus(r.Status),
		SubmittedBy:   r.SubmittedBy,
		SubmittedAt:   r.SubmittedAt,
		ApprovedBy:    r.ApprovedBy,
		ApprovedAt:    r.ApprovedAt,
	}
}

type resultSummaryRow struct {
	bun.BaseModel `bun:"table:result_summaries,alias:rs"`

	ID               string    `bun:"id,pk"`
	StudentID        string    `bun:"student_id,notnull"`
	ExamSessionID    string    `bun:"exam_session_id,notnull"`
	TotalMarks       int       `bun:"total_marks,notnull"`
	ObtainedMarks    int       `bun:"obtained_marks,notnull"`
	Percentage       float64   `bun:"percentage,notnull"`
	GPA              float64   `bun:"gpa,notnull"`
	Grade            string    `bun:"grade,notnull"`
	PassStatus       string    `bun:"pass_status,notnull"`
	RollNumber       string    `bun:"roll_number,notnull"`
	VerificationCode string    `bun:"verification_code,notnull"`
	IsPublished      bool      `bun:"is_published,notnull"`
	PublishedAt      time.Time `bun:"published_at,nullzero"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

func summaryToRow(s domain.ResultSummary) resultSummaryRow {
	return resultSummaryRow{
		ID:               s.ID,
		StudentID:        s.StudentID,
		ExamSessionID:    s.ExamSessionID,
		TotalMarks:       s.TotalMarks,
		ObtainedMarks:    s.ObtainedMarks,
		Percentage:       s.Percentage,
		GPA:              s.GPA,
		Grade:            s.Grade,
		PassStatus:       string(s.PassStatus),
		RollNumber:       s.RollNumber,
		VerificationCode: s.VerificationCode,
		IsPublished:      s.IsPublished,
		PublishedAt:      s.PublishedAt,
		CreatedAt:        s.CreatedAt,
	}
}

func (r resultSummaryRow) toDomain() domain.ResultSummary {
	return domain.ResultSummary{
		ID:               r.ID,
		StudentID:        r.StudentID,
		ExamSessionID:    r.ExamSessionID,
		TotalMarks:       r.TotalMarks,
		ObtainedMarks:    r.ObtainedMarks,
		Percentage:       r.Percentage,
		GPA:              r.GPA,
		Grade:            r.Grade,
		PassStatus:       domain.PassStatus(r.PassStatus),
		RollNumber:       r.RollNumber,
		VerificationCode: r.VerificationCode,
		IsPublished:      r.IsPublished,
		PublishedAt:      r.PublishedAt,
		CreatedAt:        r.CreatedAt,
	}
}

type examSessionRow struct {
	bun.BaseModel `bun:"table:exam_sessions,alias:es"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name,notnull"`
	Type           string    `bun:"type,notnull"`
	AcademicYearID string    `bun:"academic_year_id,notnull"`
	StartDate      string    `bun:"start_date,nullzero"`
	EndDate        string    `bun:"end_date,nullzero"`
	Status         string    `bun:"status,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func sessionToRow(s domain.ExamSession) examSessionRow {
	return examSessionRow{
		ID:             s.ID,
		Name:           s.Name,
		Type:           string(s.Type),
		AcademicYearID: s.AcademicYearID,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r examSessionRow) toDomain() domain.ExamSession {
	return domain.ExamSession{
		ID:             r.ID,
		Name:           r.Name,
		Type:           domain.ExamType(r.Type),
		AcademicYearID: r.AcademicYearID,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Status:         domain.SessionStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type certificateRow struct {
	bun.BaseModel `bun:"table:certificates,alias:c"`

	ID            string    `bun:"id,pk"`
	StudentID     string    `bun:"student_id,notnull"`
	ExamSessionID string    `bun:"exam_session_id,notnull"`
	CertificateID string    `bun:"certificate_id,notnull"`
	QRCode        string    `bun:"qr_code,notnull"`
	Type          string    `bun:"type,notnull"`
	IssuedBy      string    `bun:"issued_by,nullzero"`
	IssuedAt      time.Time `bun:"issued_at,notnull"`
	IsRevoked     bool      `bun:"is_revoked,notnull"`
}

func certificateToRow(c domain.Certificate) certificateRow {
	return certificateRow{
		ID:            c.ID,
		StudentID:     c.StudentID,
		ExamSessionID: c.ExamSessionID,
		CertificateID: c.CertificateID,
		QRCode:        c.QRCode,
		Type:          string(c.Type),
		IssuedBy:      c.IssuedBy,
		IssuedAt:      c.IssuedAt,
		IsRevoked:     c.IsRevoked,
	}
}

func (r certificateRow) toDomain() domain.Certificate {
	return domain.Certificate{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ExamSessionID: r.ExamSessionID,
		CertificateID: r.CertificateID,
		QRCode:        r.QRCode,
		Type:          domain.CertificateType(r.Type),
		IssuedBy:      r.IssuedBy,
		IssuedAt:      r.IssuedAt,
		IsRevoked:     r.IsRevoked,
	}
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_logs,alias:a"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,nullzero"`
	UserName  string    `bun:"user_name,nullzero"`
	Action    string    `bun:"action,notnull"`
	TableName string    `bun:"table_name,notnull"`
	RecordID  string    `bun:"record_id,nullzero"`
	Details   string    `bun:"details,nullzero"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r auditRow) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Action:    r.Action,
		TableName: r.TableName,
		RecordID:  r.RecordID,
		Details:   r.Details,
		CreatedAt: r.CreatedAt,
	}
}
