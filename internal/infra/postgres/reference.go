package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// ReferenceStore reads enrollment reference data straight from Postgres.
// It is read-only: schools, students, subjects and academic years are owned
// by the enrollment system, the pipeline just resolves them.
type ReferenceStore struct {
	pool *pgxpool.Pool
}

var _ app.ReferenceRepository = (*ReferenceStore)(nil)

func NewReferenceStore(pool *pgxpool.Pool) *ReferenceStore {
	return &ReferenceStore{pool: pool}
}

func (s *ReferenceStore) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	var st domain.Student
	err := s.pool.QueryRow(ctx, `
		SELECT id, board_reg_id, first_name, last_name, gender, school_id, grade_level, enrollment_year, is_active
		FROM students WHERE id = $1
	`, id).Scan(&st.ID, &st.BoardRegID, &st.FirstName, &st.LastName, &st.Gender, &st.SchoolID, &st.GradeLevel, &st.EnrollmentYear, &st.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Student{}, domain.ErrStudentNotFound
		}
		return domain.Student{}, fmt.Errorf("load student: %w", err)
	}
	return st, nil
}

func (s *ReferenceStore) GetStudentByBoardRegID(ctx context.Context, boardRegID string) (domain.Student, error) {
	var st domain.Student
	err := s.pool.QueryRow(ctx, `
		SELECT id, board_reg_id, first_name, last_name, gender, school_id, grade_level, enrollment_year, is_active
		FROM students WHERE board_reg_id = $1
	`, boardRegID).Scan(&st.ID, &st.BoardRegID, &st.FirstName, &st.LastName, &st.Gender, &st.SchoolID, &st.GradeLevel, &st.EnrollmentYear, &st.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Student{}, domain.ErrStudentNotFound
		}
		return domain.Student{}, fmt.Errorf("load student by board reg id: %w", err)
	}
	return st, nil
}

func (s *ReferenceStore) GetSchool(ctx context.Context, id string) (domain.School, error) {
	var sc domain.School
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, registration_no, status FROM schools WHERE id = $1
	`, id).Scan(&sc.ID, &sc.Name, &sc.RegistrationNo, &sc.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.School{}, domain.ErrSchoolNotFound
		}
		return domain.School{}, fmt.Errorf("load school: %w", err)
	}
	return sc, nil
}

func (s *ReferenceStore) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	var sub domain.Subject
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, code, grade_level, full_marks, pass_marks FROM subjects WHERE id = $1
	`, id).Scan(&sub.ID, &sub.Name, &sub.Code, &sub.GradeLevel, &sub.FullMarks, &sub.PassMarks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subject{}, domain.ErrSubjectNotFound
		}
		return domain.Subject{}, fmt.Errorf("load subject: %w", err)
	}
	return sub, nil
}

func (s *ReferenceStore) GetAcademicYear(ctx context.Context, id string) (domain.AcademicYear, error) {
	var y domain.AcademicYear
	err := s.pool.QueryRow(ctx, `
		SELECT id, year, status FROM academic_years WHERE id = $1
	`, id).Scan(&y.ID, &y.Year, &y.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AcademicYear{}, domain.ErrAcademicYearNotFound
		}
		return domain.AcademicYear{}, fmt.Errorf("load academic year: %w", err)
	}
	return y, nil
}

func (s *ReferenceStore) CountActiveSchools(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM schools WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count schools: %w", err)
	}
	return n, nil
}

func (s *ReferenceStore) ActiveStudentCounts(ctx context.Context) (male, female, total int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE gender = 'male'),
			count(*) FILTER (WHERE gender = 'female'),
			count(*)
		FROM students WHERE is_active
	`).Scan(&male, &female, &total)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count students: %w", err)
	}
	return male, female, total, nil
}
