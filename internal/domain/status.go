package domain

// MarkStatus is the review state of a single mark entry.
type MarkStatus string

const (
	MarkDraft     MarkStatus = "draft"
	MarkSubmitted MarkStatus = "submitted"
	MarkApproved  MarkStatus = "approved"
	MarkRejected  MarkStatus = "rejected"
	MarkPublished MarkStatus = "published"
)

// markTransitions is the exhaustive transition table. Published and rejected
// are terminal; a rejected triple is re-entered as a fresh record.
var markTransitions = map[MarkStatus][]MarkStatus{
	MarkDraft:     {MarkSubmitted},
	MarkSubmitted: {MarkApproved, MarkRejected},
	MarkApproved:  {MarkPublished, MarkRejected},
	MarkRejected:  {},
	MarkPublished: {},
}

// CanTransition reports whether the mark may move to the target status.
func (s MarkStatus) CanTransition(to MarkStatus) bool {
	for _, next := range markTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Counts reports whether the mark participates in the duplicate-submission
// check (everything except rejected does).
func (s MarkStatus) Counts() bool {
	return s != MarkRejected
}

// SessionStatus is the exam session lifecycle state. Transitions are strictly
// forward; "publishing" is held while the aggregation loop runs so a crashed
// publication is observable rather than silent.
type SessionStatus string

const (
	SessionScheduled        SessionStatus = "scheduled"
	SessionOngoing          SessionStatus = "ongoing"
	SessionCompleted        SessionStatus = "completed"
	SessionPublishing       SessionStatus = "publishing"
	SessionResultsPublished SessionStatus = "results_published"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionScheduled:        {SessionOngoing},
	SessionOngoing:          {SessionCompleted},
	SessionCompleted:        {SessionPublishing},
	SessionPublishing:       {SessionResultsPublished},
	SessionResultsPublished: {},
}

// CanTransition reports whether the session may move to the target status.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	for _, next := range sessionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AcceptsMarks reports whether new mark submissions are allowed.
func (s SessionStatus) AcceptsMarks() bool {
	return s == SessionOngoing
}

// PassStatus is the overall pass/fail verdict of a summary.
type PassStatus string

const (
	Pass PassStatus = "pass"
	Fail PassStatus = "fail"
)

// ExamType drives the roll-number prefix.
type ExamType string

const (
	ExamAnnual  ExamType = "annual"
	ExamMidterm ExamType = "midterm"
	ExamSpecial ExamType = "special"
)

// CertificateType distinguishes the issued document kinds.
type CertificateType string

const (
	CertMarksheet  CertificateType = "marksheet"
	CertCompletion CertificateType = "completion"
	CertMerit      CertificateType = "merit"
)

// ValidCertificateType reports whether t is a known certificate type.
func ValidCertificateType(t CertificateType) bool {
	switch t {
	case CertMarksheet, CertCompletion, CertMerit:
		return true
	}
	return false
}
