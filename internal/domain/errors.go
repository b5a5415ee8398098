package domain

import "errors"

var (
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrProfileNotFound is returned when the identity has no staff profile.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrAccountInactive is returned for deactivated staff accounts.
	ErrAccountInactive = errors.New("account is deactivated")
	// ErrForbidden is returned when the caller's role is below the
	// operation's minimum.
	ErrForbidden = errors.New("access denied")

	// ErrInvalidMarks indicates a negative marksObtained value.
	ErrInvalidMarks = errors.New("invalid marks value")
	// ErrInvalidCertificateType indicates an unknown certificate type.
	ErrInvalidCertificateType = errors.New("invalid certificate type")

	// ErrDuplicateSubmission indicates a non-rejected mark already exists
	// for the (student, exam session, subject) triple.
	ErrDuplicateSubmission = errors.New("marks already submitted for this student-subject-exam")

	// ErrSessionNotFound indicates an unknown exam session.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrStudentNotFound indicates an unknown student.
	ErrStudentNotFound = errors.New("student not found")
	// ErrSchoolNotFound indicates an unknown school.
	ErrSchoolNotFound = errors.New("school not found")
	// ErrSubjectNotFound indicates an unknown subject.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrAcademicYearNotFound indicates an unknown academic year.
	ErrAcademicYearNotFound = errors.New("academic year not found")
	// ErrMarkNotFound indicates an unknown mark entry.
	ErrMarkNotFound = errors.New("mark entry not found")
	// ErrSummaryNotFound indicates an unknown result summary.
	ErrSummaryNotFound = errors.New("result summary not found")
	// ErrCertificateNotFound indicates an unknown certificate.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrSessionNotAcceptingMarks is returned when submitting marks to a
	// session that is not ongoing.
	ErrSessionNotAcceptingMarks = errors.New("exam session is not accepting mark submissions")
	// ErrSessionNotCompleted is returned when publication is requested for
	// a session that has not finished.
	ErrSessionNotCompleted = errors.New("exam session is not completed")
	// ErrPublicationInProgress is returned when a second publication is
	// attempted while one holds the session, or when a crashed run left the
	// session in publishing and the caller did not ask to resume.
	ErrPublicationInProgress = errors.New("publication already in progress for this session")
	// ErrInvalidTransition is returned for a session status change the
	// transition table forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidLookup is returned when a public search supplies both or
	// neither of rollNumber and boardRegId.
	ErrInvalidLookup = errors.New("exactly one of rollNumber or boardRegId is required")
)
