package app_test

import (
	"context"
	"testing"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
	"ebrr-results-service/internal/infra/memory"
)

// env wires the full service stack over the in-memory store, the same shape
// the server assembles in production.
type env struct {
	store     *memory.Store
	ids       *memory.IdentityDirectory
	audit     *app.AuditRecorder
	feed      *app.ProgressFeed
	marks     *app.MarkService
	publisher *app.Publisher
	sessions  *app.SessionService
	certs     *app.CertificateService
	lookup    *app.LookupService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	ids := memory.NewIdentityDirectory()
	ids.Register("tok-admin", app.Identity{UserID: "u-admin", Name: "Admin", Role: domain.RoleSuperAdmin, Active: true})
	ids.Register("tok-controller", app.Identity{UserID: "u-controller", Name: "Controller", Role: domain.RoleExamController, Active: true})
	ids.Register("tok-officer", app.Identity{UserID: "u-officer", Name: "Officer", Role: domain.RoleAcademicOfficer, Active: true})
	ids.Register("tok-entry", app.Identity{UserID: "u-entry", Name: "Entry", Role: domain.RoleDataEntry, SchoolID: "school-1", Active: true})
	ids.Register("tok-inactive", app.Identity{UserID: "u-gone", Name: "Gone", Role: domain.RoleSuperAdmin, Active: false})

	store.AddAcademicYear(domain.AcademicYear{ID: "year-2025", Year: "2025", Status: "active"})
	store.AddSchool(domain.School{ID: "school-1", Name: "City Model High School", RegistrationNo: "REG100", Status: "active"})
	store.AddStudent(domain.Student{
		ID: "s1", BoardRegID: "EBRR-2025-REG100-AAAA", FirstName: "Rahim", LastName: "Uddin",
		Gender: "male", SchoolID: "school-1", GradeLevel: "10", IsActive: true,
	})
	store.AddStudent(domain.Student{
		ID: "s2", BoardRegID: "EBRR-2025-REG100-BBBB", FirstName: "Fatema", LastName: "Khatun",
		Gender: "female", SchoolID: "school-1", GradeLevel: "10", IsActive: true,
	})
	store.AddSubject(domain.Subject{ID: "math", Name: "Mathematics", Code: "MATH", GradeLevel: "10", FullMarks: 100, PassMarks: 40})
	store.AddSubject(domain.Subject{ID: "eng", Name: "English", Code: "ENG", GradeLevel: "10", FullMarks: 50, PassMarks: 25})

	gate := app.NewRoleGate(ids)
	audit := app.NewAuditRecorder(store, 64)
	t.Cleanup(audit.Close)
	feed := app.NewProgressFeed()

	return &env{
		store:     store,
		ids:       ids,
		audit:     audit,
		feed:      feed,
		marks:     app.NewMarkService(gate, store, store, store, audit),
		publisher: app.NewPublisher(gate, store, store, store, store, audit, feed),
		sessions:  app.NewSessionService(gate, store, store, audit),
		certs:     app.NewCertificateService(gate, store, store, store, audit, ""),
		lookup:    app.NewLookupService(gate, store, store, store, store, store, store),
	}
}

func (e *env) ctx(token string) context.Context {
	return app.WithToken(context.Background(), token)
}

// newOngoingSession creates an annual session and walks it to ongoing.
func (e *env) newOngoingSession(t *testing.T) domain.ExamSession {
	t.Helper()
	ctx := e.ctx("tok-controller")
	session, err := e.sessions.Create(ctx, app.CreateSessionInput{
		Name:           "Annual Examination 2025",
		Type:           domain.ExamAnnual,
		AcademicYearID: "year-2025",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := e.sessions.Transition(ctx, session.ID, domain.SessionOngoing); err != nil {
		t.Fatalf("to ongoing: %v", err)
	}
	session.Status = domain.SessionOngoing
	return session
}

// completeSession walks an ongoing session to completed.
func (e *env) completeSession(t *testing.T, id string) {
	t.Helper()
	if err := e.sessions.Transition(e.ctx("tok-controller"), id, domain.SessionCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}
}

// submitMark records a mark as the data-entry user.
func (e *env) submitMark(t *testing.T, sessionID, studentID, subjectID string, obtained int, absent bool) domain.ExamMark {
	t.Helper()
	mark, err := e.marks.Submit(e.ctx("tok-entry"), app.SubmitMarkInput{
		StudentID:     studentID,
		ExamSessionID: sessionID,
		SubjectID:     subjectID,
		MarksObtained: obtained,
		IsAbsent:      absent,
	})
	if err != nil {
		t.Fatalf("submit mark %s/%s: %v", studentID, subjectID, err)
	}
	return mark
}

// approveAll approves the given marks as the controller.
func (e *env) approveAll(t *testing.T, markIDs ...string) {
	t.Helper()
	n, err := e.marks.Approve(e.ctx("tok-controller"), markIDs)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if n != len(markIDs) {
		t.Fatalf("approved %d of %d marks", n, len(markIDs))
	}
}
