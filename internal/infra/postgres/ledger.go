package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// Ledger implements the mark, summary, session, certificate, and audit
// repositories over Postgres via bun. The non-rejected uniqueness of marks
// and the roll-number/verification-code uniqueness live in the schema, so
// concurrent writers cannot bypass them.
type Ledger struct {
	db *bun.DB
}

var (
	_ app.MarkRepository        = (*Ledger)(nil)
	_ app.SummaryRepository     = (*Ledger)(nil)
	_ app.SessionRepository     = (*Ledger)(nil)
	_ app.CertificateRepository = (*Ledger)(nil)
	_ app.AuditRepository       = (*Ledger)(nil)
)

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db}
}

// ─── marks ───

func (l *Ledger) CreateMark(ctx context.Context, m domain.ExamMark) (domain.ExamMark, error) {
	row := markToRow(m)
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.ExamMark{}, fmt.Errorf("insert mark: %w", err)
	}
	return m, nil
}

func (l *Ledger) GetMark(ctx context.Context, id string) (domain.ExamMark, error) {
	var row examMarkRow
	err := l.db.NewSelect().Model(&row).Where("m.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExamMark{}, domain.ErrMarkNotFound
		}
		return domain.ExamMark{}, fmt.Errorf("get mark: %w", err)
	}
	return row.toDomain(), nil
}

func (l *Ledger) HasActiveMark(ctx context.Context, studentID, sessionID, subjectID string) (bool, error) {
	exists, err := l.db.NewSelect().Model((*examMarkRow)(nil)).
		Where("m.student_id = ?", studentID).
		Where("m.exam_session_id = ?", sessionID).
		Where("m.subject_id = ?", subjectID).
		Where("m.status <> ?", string(domain.MarkRejected)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check active mark: %w", err)
	}
	return exists, nil
}

func (l *Ledger) ListMarksBySession(ctx context.Context, sessionID string) ([]domain.ExamMark, error) {
	var rows []examMarkRow
	err := l.db.NewSelect().Model(&rows).
		Where("m.exam_session_id = ?", sessionID).
		Order("m.submitted_at ASC", "m.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list marks by session: %w", err)
	}
	return marksToDomain(rows), nil
}

func (l *Ledger) ListMarksByStudentSession(ctx context.Context, studentID, sessionID string) ([]domain.ExamMark, error) {
	var rows []examMarkRow
	err := l.db.NewSelect().Model(&rows).
		Where("m.student_id = ?", studentID).
		Where("m.exam_session_id = ?", sessionID).
		Order("m.submitted_at ASC", "m.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list marks by student: %w", err)
	}
	return marksToDomain(rows), nil
}

func (l *Ledger) SetMarkStatus(ctx context.Context, id string, status domain.MarkStatus, approvedBy string, approvedAt time.Time) error {
	q := l.db.NewUpdate().Model((*examMarkRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", id)
	if approvedBy != "" {
		q = q.Set("approved_by = ?", approvedBy)
	}
	if !approvedAt.IsZero() {
		q = q.Set("approved_at = ?", approvedAt)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("set mark status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarkNotFound
	}
	return nil
}

func marksToDomain(rows []examMarkRow) []domain.ExamMark {
	out := make([]domain.ExamMark, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// ─── summaries ───

func (l *Ledger) CreateSummary(ctx context.Context, s domain.ResultSummary) (domain.ResultSummary, error) {
	row := summaryToRow(s)
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.ResultSummary{}, fmt.Errorf("insert summary: %w", err)
	}
	return s, nil
}

func (l *Ledger) UpdateSummary(ctx context.Context, s domain.ResultSummary) error {
	row := summaryToRow(s)
	res, err := l.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSummaryNotFound
	}
	return nil
}

func (l *Ledger) GetSummaryByStudentSession(ctx context.Context, studentID, sessionID string) (domain.ResultSummary, error) {
	return l.getSummary(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rs.student_id = ?", studentID).Where("rs.exam_session_id = ?", sessionID)
	})
}

func (l *Ledger) GetSummaryByRollNumber(ctx context.Context, rollNumber string) (domain.ResultSummary, error) {
	return l.getSummary(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rs.roll_number = ?", rollNumber)
	})
}

func (l *Ledger) GetSummaryByVerificationCode(ctx context.Context, code string) (domain.ResultSummary, error) {
	return l.getSummary(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rs.verification_code = ?", code)
	})
}

func (l *Ledger) getSummary(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) (domain.ResultSummary, error) {
	var row resultSummaryRow
	err := where(l.db.NewSelect().Model(&row)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ResultSummary{}, domain.ErrSummaryNotFound
		}
		return domain.ResultSummary{}, fmt.Errorf("get summary: %w", err)
	}
	return row.toDomain(), nil
}

func (l *Ledger) ListSummariesByStudent(ctx context.Context, studentID string) ([]domain.ResultSummary, error) {
	return l.listSummaries(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rs.student_id = ?", studentID)
	})
}

func (l *Ledger) ListSummariesBySession(ctx context.Context, sessionID string) ([]domain.ResultSummary, error) {
	return l.listSummaries(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rs.exam_session_id = ?", sessionID)
	})
}

func (l *Ledger) ListSummaries(ctx context.Context) ([]domain.ResultSummary, error) {
	return l.listSummaries(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (l *Ledger) listSummaries(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.ResultSummary, error) {
	var rows []resultSummaryRow
	err := where(l.db.NewSelect().Model(&rows)).Order("rs.created_at ASC", "rs.id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out := make([]domain.ResultSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (l *Ledger) PublishedCounts(ctx context.Context) (published, passed int, err error) {
	err = l.db.NewSelect().Model((*resultSummaryRow)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("count(*) FILTER (WHERE pass_status = ?)", string(domain.Pass)).
		Where("rs.is_published").
		Scan(ctx, &published, &passed)
	if err != nil {
		return 0, 0, fmt.Errorf("published counts: %w", err)
	}
	return published, passed, nil
}

// ─── sessions ───

func (l *Ledger) CreateSession(ctx context.Context, s domain.ExamSession) (domain.ExamSession, error) {
	row := sessionToRow(s)
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.ExamSession{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

func (l *Ledger) GetSession(ctx context.Context, id string) (domain.ExamSession, error) {
	var row examSessionRow
	err := l.db.NewSelect().Model(&row).Where("es.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExamSession{}, domain.ErrSessionNotFound
		}
		return domain.ExamSession{}, fmt.Errorf("get session: %w", err)
	}
	return row.toDomain(), nil
}

func (l *Ledger) ListSessions(ctx context.Context, f app.SessionFilter) ([]domain.ExamSession, error) {
	var rows []examSessionRow
	q := l.db.NewSelect().Model(&rows)
	if f.AcademicYearID != "" {
		q = q.Where("es.academic_year_id = ?", f.AcademicYearID)
	}
	if f.Status != "" {
		q = q.Where("es.status = ?", string(f.Status))
	}
	if err := q.Order("es.created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.ExamSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (l *Ledger) CountSessions(ctx context.Context) (int, error) {
	n, err := l.db.NewSelect().Model((*examSessionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// TransitionSession is the compare-and-set publication guard: the UPDATE
// only lands when the stored status still equals "from".
func (l *Ledger) TransitionSession(ctx context.Context, id string, from, to domain.SessionStatus) error {
	res, err := l.db.NewUpdate().Model((*examSessionRow)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("transition session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		exists, err := l.db.NewSelect().Model((*examSessionRow)(nil)).Where("es.id = ?", id).Exists(ctx)
		if err != nil {
			return fmt.Errorf("transition session: %w", err)
		}
		if !exists {
			return domain.ErrSessionNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (l *Ledger) NextRollSequence(ctx context.Context, sessionID string) (int, error) {
	var value int
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO roll_sequences (exam_session_id, value)
		VALUES (?, 1)
		ON CONFLICT (exam_session_id)
		DO UPDATE SET value = roll_sequences.value + 1
		RETURNING value
	`, sessionID).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next roll sequence: %w", err)
	}
	return value, nil
}

// ─── certificates ───

func (l *Ledger) CreateCertificate(ctx context.Context, c domain.Certificate) (domain.Certificate, error) {
	row := certificateToRow(c)
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Certificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return c, nil
}

func (l *Ledger) GetCertificate(ctx context.Context, id string) (domain.Certificate, error) {
	var row certificateRow
	err := l.db.NewSelect().Model(&row).Where("c.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Certificate{}, domain.ErrCertificateNotFound
		}
		return domain.Certificate{}, fmt.Errorf("get certificate: %w", err)
	}
	return row.toDomain(), nil
}

func (l *Ledger) GetCertificateByCertificateID(ctx context.Context, certificateID string) (domain.Certificate, error) {
	var row certificateRow
	err := l.db.NewSelect().Model(&row).Where("c.certificate_id = ?", certificateID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Certificate{}, domain.ErrCertificateNotFound
		}
		return domain.Certificate{}, fmt.Errorf("get certificate: %w", err)
	}
	return row.toDomain(), nil
}

func (l *Ledger) ListCertificates(ctx context.Context, studentID string) ([]domain.Certificate, error) {
	var rows []certificateRow
	q := l.db.NewSelect().Model(&rows)
	if studentID != "" {
		q = q.Where("c.student_id = ?", studentID)
	}
	if err := q.Order("c.issued_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	out := make([]domain.Certificate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (l *Ledger) SetCertificateRevoked(ctx context.Context, id string) error {
	res, err := l.db.NewUpdate().Model((*certificateRow)(nil)).
		Set("is_revoked = TRUE").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

// ─── audit ───

func (l *Ledger) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	row := auditRow{
		ID:        e.ID,
		UserID:    e.UserID,
		UserName:  e.UserName,
		Action:    e.Action,
		TableName: e.TableName,
		RecordID:  e.RecordID,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (l *Ledger) ListAudit(ctx context.Context, tableName string, limit int) ([]domain.AuditEntry, error) {
	var rows []auditRow
	q := l.db.NewSelect().Model(&rows)
	if tableName != "" {
		q = q.Where("a.table_name = ?", tableName)
	}
	if err := q.Order("a.created_at DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	out := make([]domain.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
