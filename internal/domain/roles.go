package domain

// Role identifies a board staff role. Ranks are ordered so permission checks
// are a single comparison instead of per-call-site allow lists.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleExamController  Role = "exam_controller"
	RoleAcademicOfficer Role = "academic_officer"
	RoleSchoolPrincipal Role = "school_principal"
	RoleSchoolStaff     Role = "school_staff"
	RoleDataEntry       Role = "data_entry"
)

var roleRanks = map[Role]int{
	RoleSuperAdmin:      100,
	RoleExamController:  80,
	RoleAcademicOfficer: 70,
	RoleSchoolPrincipal: 60,
	RoleSchoolStaff:     40,
	RoleDataEntry:       30,
}

// Rank returns the role's privilege level; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether the role meets the required minimum.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

// Operation names a permission-gated use case.
type Operation string

const (
	OpSubmitMark        Operation = "marks.submit"
	OpListMarks         Operation = "marks.list"
	OpReviewMarks       Operation = "marks.review"
	OpPublishResults    Operation = "results.publish"
	OpListSummaries     Operation = "results.list_summaries"
	OpManageSessions    Operation = "sessions.manage"
	OpIssueCertificate  Operation = "certificates.issue"
	OpRevokeCertificate Operation = "certificates.revoke"
	OpListCertificates  Operation = "certificates.list"
	OpReadAudit         Operation = "audit.read"
)

// operationPolicy maps each operation to its minimum role. Public lookups
// carry no entry and bypass the gate entirely.
var operationPolicy = map[Operation]Role{
	OpSubmitMark:        RoleDataEntry,
	OpListMarks:         RoleDataEntry,
	OpReviewMarks:       RoleExamController,
	OpPublishResults:    RoleExamController,
	OpListSummaries:     RoleSchoolPrincipal,
	OpManageSessions:    RoleExamController,
	OpIssueCertificate:  RoleExamController,
	OpRevokeCertificate: RoleSuperAdmin,
	OpListCertificates:  RoleAcademicOfficer,
	OpReadAudit:         RoleExamController,
}

// MinimumRole returns the policy entry for an operation. The second return
// is false for unknown (ungated) operations.
func MinimumRole(op Operation) (Role, bool) {
	r, ok := operationPolicy[op]
	return r, ok
}
