package domain

import "time"

// ExamMark is one graded entry for a (student, exam session, subject) triple.
// At most one non-rejected mark may exist per triple; a rejected mark does
// not block resubmission.
type ExamMark struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"studentId"`
	ExamSessionID string     `json:"examSessionId"`
	SubjectID     string     `json:"subjectId"`
	MarksObtained int        `json:"marksObtained"`
	IsAbsent      bool       `json:"isAbsent"`
	Status        MarkStatus `json:"status"`
	SubmittedBy   string     `json:"submittedBy,omitempty"`
	SubmittedAt   time.Time  `json:"submittedAt,omitempty"`
	ApprovedBy    string     `json:"approvedBy,omitempty"`
	ApprovedAt    time.Time  `json:"approvedAt,omitempty"`
}

// ResultSummary is the per-(student, exam session) aggregate. It is derived
// from approved marks and idempotently recomputable; it is never created by
// direct user action.
type ResultSummary struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"studentId"`
	ExamSessionID    string     `json:"examSessionId"`
	TotalMarks       int        `json:"totalMarks"`
	ObtainedMarks    int        `json:"obtainedMarks"`
	Percentage       float64    `json:"percentage"`
	GPA              float64    `json:"gpa"`
	Grade            string     `json:"grade"`
	PassStatus       PassStatus `json:"passStatus"`
	RollNumber       string     `json:"rollNumber"`
	VerificationCode string     `json:"verificationCode"`
	IsPublished      bool       `json:"isPublished"`
	PublishedAt      time.Time  `json:"publishedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Certificate references a student + exam session. CertificateID is the
// externally visible identifier; revocation is monotonic false -> true.
type Certificate struct {
	ID            string          `json:"id"`
	StudentID     string          `json:"studentId"`
	ExamSessionID string          `json:"examSessionId"`
	CertificateID string          `json:"certificateId"`
	QRCode        string          `json:"qrCode"`
	Type          CertificateType `json:"type"`
	IssuedBy      string          `json:"issuedBy,omitempty"`
	IssuedAt      time.Time       `json:"issuedAt"`
	IsRevoked     bool            `json:"isRevoked"`
}

// ExamSession gates mark submission and publication. Only ongoing sessions
// accept marks; only completed sessions may begin publication.
type ExamSession struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Type           ExamType      `json:"type"`
	AcademicYearID string        `json:"academicYearId"`
	StartDate      string        `json:"startDate"`
	EndDate        string        `json:"endDate"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Student is reference data owned by the enrollment system.
type Student struct {
	ID             string `json:"id"`
	BoardRegID     string `json:"boardRegId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Gender         string `json:"gender"`
	SchoolID       string `json:"schoolId"`
	GradeLevel     string `json:"gradeLevel"`
	EnrollmentYear int    `json:"enrollmentYear"`
	IsActive       bool   `json:"isActive"`
}

// FullName joins the student's first and last names.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// School is reference data.
type School struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RegistrationNo string `json:"registrationNo"`
	Status         string `json:"status"`
}

// Subject carries the full/pass marks the aggregation engine needs.
type Subject struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	GradeLevel string `json:"gradeLevel"`
	FullMarks  int    `json:"fullMarks"`
	PassMarks  int    `json:"passMarks"`
}

// AcademicYear is reference data; Year is the display string used in roll
// numbers (e.g. "2025").
type AcademicYear struct {
	ID     string `json:"id"`
	Year   string `json:"year"`
	Status string `json:"status"`
}

// AuditEntry records a mutating action. Writing it is best-effort and never
// blocks the primary operation.
type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	Action    string    `json:"action"`
	TableName string    `json:"tableName"`
	RecordID  string    `json:"recordId,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubjectMark is the public per-subject breakdown attached to a result view.
type SubjectMark struct {
	SubjectName   string `json:"subjectName"`
	SubjectCode   string `json:"subjectCode"`
	FullMarks     int    `json:"fullMarks"`
	PassMarks     int    `json:"passMarks"`
	MarksObtained int    `json:"marksObtained"`
	IsAbsent      bool   `json:"isAbsent"`
}

// ResultView is the public result lookup payload. Names are resolved at
// read time, so later renames are reflected.
type ResultView struct {
	StudentName      string        `json:"studentName"`
	BoardRegID       string        `json:"boardRegId"`
	SchoolName       string        `json:"schoolName"`
	RollNumber       string        `json:"rollNumber"`
	ExamSessionName  string        `json:"examSessionName"`
	ExamType         string        `json:"examType"`
	TotalMarks       int           `json:"totalMarks"`
	ObtainedMarks    int           `json:"obtainedMarks"`
	Percentage       float64       `json:"percentage"`
	GPA              float64       `json:"gpa"`
	Grade            string        `json:"grade"`
	PassStatus       PassStatus    `json:"passStatus"`
	VerificationCode string        `json:"verificationCode"`
	PublishedAt      time.Time     `json:"publishedAt"`
	SubjectMarks     []SubjectMark `json:"subjectMarks,omitempty"`
}

// ResultVerification is the payload for verification-code lookups.
type ResultVerification struct {
	Verified    bool       `json:"verified"`
	StudentName string     `json:"studentName"`
	BoardRegID  string     `json:"boardRegId"`
	SchoolName  string     `json:"schoolName"`
	ExamSession string     `json:"examSession"`
	GPA         float64    `json:"gpa"`
	Grade       string     `json:"grade"`
	PassStatus  PassStatus `json:"passStatus"`
	PublishedAt time.Time  `json:"publishedAt"`
}

// CertificateVerification is the public certificate lookup payload.
// Valid is simply the inverse of IsRevoked; callers distinguish "not found"
// (nil) from "found but revoked".
type CertificateVerification struct {
	Valid         bool            `json:"valid"`
	IsRevoked     bool            `json:"isRevoked"`
	CertificateID string          `json:"certificateId"`
	Type          CertificateType `json:"type"`
	StudentName   string          `json:"studentName"`
	BoardRegID    string          `json:"boardRegId"`
	SchoolName    string          `json:"schoolName"`
	ExamSession   string          `json:"examSession"`
	IssuedAt      time.Time       `json:"issuedAt"`
}

// PublicStats is the unauthenticated dashboard aggregate.
type PublicStats struct {
	TotalSchools   int    `json:"totalSchools"`
	TotalStudents  int    `json:"totalStudents"`
	TotalExams     int    `json:"totalExams"`
	PassRate       int    `json:"passRate"`
	MaleStudents   int    `json:"maleStudents"`
	FemaleStudents int    `json:"femaleStudents"`
	GenderRatio    string `json:"genderRatio"`
}

// PublishProgress is one step of a publication run, streamed to progress
// subscribers while the aggregation loop walks the session's students.
type PublishProgress struct {
	ExamSessionID string    `json:"examSessionId"`
	Processed     int       `json:"processed"`
	Total         int       `json:"total"`
	StudentID     string    `json:"studentId,omitempty"`
	RollNumber    string    `json:"rollNumber,omitempty"`
	Done          bool      `json:"done"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
