package app_test

import (
	"context"
	"errors"
	"testing"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// publishOne runs a full entry -> approval -> publication cycle for s1 and
// returns the published summary.
func publishOne(t *testing.T, e *env) (domain.ExamSession, domain.ResultSummary) {
	t.Helper()
	session := e.newOngoingSession(t)
	m1 := e.submitMark(t, session.ID, "s1", "math", 80, false)
	m2 := e.submitMark(t, session.ID, "s1", "eng", 40, false)
	e.approveAll(t, m1.ID, m2.ID)
	e.completeSession(t, session.ID)
	if _, err := e.publisher.Publish(e.ctx("tok-controller"), session.ID, app.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	summary, err := e.store.GetSummaryByStudentSession(context.Background(), "s1", session.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	return session, summary
}

func TestSearchByRollNumber(t *testing.T) {
	e := newEnv(t)
	session, summary := publishOne(t, e)

	view, err := e.lookup.SearchByRollNumber(context.Background(), summary.RollNumber)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if view == nil {
		t.Fatal("expected a result view")
	}
	if view.StudentName != "Rahim Uddin" || view.SchoolName != "City Model High School" {
		t.Fatalf("names = %q / %q", view.StudentName, view.SchoolName)
	}
	if view.ExamSessionName != session.Name {
		t.Fatalf("session name = %q, want %q", view.ExamSessionName, session.Name)
	}
	// 120/150 = 80.00 -> A.
	if view.Percentage != 80.00 || view.Grade != "A" {
		t.Fatalf("percentage/grade = %v/%s, want 80/A", view.Percentage, view.Grade)
	}
	if len(view.SubjectMarks) != 2 {
		t.Fatalf("subject marks = %d, want 2", len(view.SubjectMarks))
	}

	// Unknown roll numbers come back nil, not an error.
	view, err = e.lookup.SearchByRollNumber(context.Background(), "ANN-2025-99999")
	if err != nil || view != nil {
		t.Fatalf("unknown roll: view=%v err=%v", view, err)
	}
}

func TestSearchByBoardRegIDDistinguishesUnknownFromUnpublished(t *testing.T) {
	e := newEnv(t)
	publishOne(t, e)

	// s1 has a published result.
	views, err := e.lookup.SearchByBoardRegID(context.Background(), "EBRR-2025-REG100-AAAA")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len = %d, want 1", len(views))
	}

	// s2 exists with nothing published: empty but non-nil.
	views, err = e.lookup.SearchByBoardRegID(context.Background(), "EBRR-2025-REG100-BBBB")
	if err != nil {
		t.Fatalf("search s2: %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Fatalf("known student with no results: views=%v, want empty non-nil", views)
	}

	// Unknown student: nil.
	views, err = e.lookup.SearchByBoardRegID(context.Background(), "EBRR-2025-REG100-ZZZZ")
	if err != nil {
		t.Fatalf("search unknown: %v", err)
	}
	if views != nil {
		t.Fatalf("unknown student: views=%v, want nil", views)
	}
}

func TestVerifyResultByCode(t *testing.T) {
	e := newEnv(t)
	_, summary := publishOne(t, e)

	v, err := e.lookup.VerifyResult(context.Background(), summary.VerificationCode)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v == nil || !v.Verified {
		t.Fatalf("verification = %+v, want verified", v)
	}
	if v.StudentName != "Rahim Uddin" {
		t.Fatalf("studentName = %q", v.StudentName)
	}

	v, err = e.lookup.VerifyResult(context.Background(), "NOPE1234")
	if err != nil || v != nil {
		t.Fatalf("unknown code: v=%v err=%v", v, err)
	}
}

func TestVerifyCertificateReflectsRevocation(t *testing.T) {
	e := newEnv(t)
	session := e.newOngoingSession(t)
	cert, err := e.certs.Issue(e.ctx("tok-controller"), "s1", session.ID, domain.CertMarksheet)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	v, err := e.lookup.VerifyCertificate(context.Background(), cert.CertificateID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v == nil || !v.Valid || v.IsRevoked {
		t.Fatalf("verification = %+v, want valid", v)
	}

	if err := e.certs.Revoke(e.ctx("tok-admin"), cert.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	v, err = e.lookup.VerifyCertificate(context.Background(), cert.CertificateID)
	if err != nil {
		t.Fatalf("verify after revoke: %v", err)
	}
	if v == nil || v.Valid || !v.IsRevoked {
		t.Fatalf("verification after revoke = %+v, want invalid and revoked", v)
	}
}

func TestPublicStats(t *testing.T) {
	e := newEnv(t)
	publishOne(t, e)

	stats, err := e.lookup.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSchools != 1 || stats.TotalStudents != 2 || stats.TotalExams != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.MaleStudents != 1 || stats.FemaleStudents != 1 || stats.GenderRatio != "1:1" {
		t.Fatalf("gender split = %+v", stats)
	}
	// One published summary, 80% with both subjects passed.
	if stats.PassRate != 100 {
		t.Fatalf("passRate = %d, want 100", stats.PassRate)
	}
}

func TestListSummariesGated(t *testing.T) {
	e := newEnv(t)
	session, _ := publishOne(t, e)

	summaries, err := e.lookup.ListSummaries(e.ctx("tok-admin"), session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("len = %d, want 1", len(summaries))
	}

	if _, err := e.lookup.ListSummaries(e.ctx("tok-entry"), session.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListAuditGatedAndOrdered(t *testing.T) {
	e := newEnv(t)
	publishOne(t, e)
	e.audit.Close()

	entries, err := e.lookup.ListAudit(e.ctx("tok-controller"), "", 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected audit entries after a publication cycle")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Fatal("audit entries must be newest first")
		}
	}

	filtered, err := e.lookup.ListAudit(e.ctx("tok-controller"), "exam_sessions", 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	for _, entry := range filtered {
		if entry.TableName != "exam_sessions" {
			t.Fatalf("entry table = %s, want exam_sessions", entry.TableName)
		}
	}

	if _, err := e.lookup.ListAudit(e.ctx("tok-entry"), "", 10); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
