package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
	"ebrr-results-service/internal/infra/memory"
	"ebrr-results-service/internal/infra/postgres"
	pgmigrations "ebrr-results-service/internal/infra/postgres/migrations"
	infraredis "ebrr-results-service/internal/infra/redis"
)

func TestPublicationEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()
	seedReferenceData(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	ledger := postgres.NewLedger(db)
	refs := memory.NewReferenceCache(postgres.NewReferenceStore(pool), time.Minute)

	ids := memory.NewIdentityDirectory()
	ids.Register("tok-controller", app.Identity{UserID: "u-controller", Name: "Controller", Role: domain.RoleExamController, Active: true})
	ids.Register("tok-entry", app.Identity{UserID: "u-entry", Name: "Entry", Role: domain.RoleDataEntry, Active: true})
	gate := app.NewRoleGate(ids)

	audit := app.NewAuditRecorder(ledger, 64)
	defer audit.Close()
	feed := app.NewProgressFeed()

	markSvc := app.NewMarkService(gate, ledger, ledger, refs, audit)
	publisher := app.NewPublisher(gate, ledger, ledger, ledger, refs, audit, feed)
	sessionSvc := app.NewSessionService(gate, ledger, refs, audit)
	lookupSvc := app.NewLookupService(gate, ledger, ledger, ledger, ledger, refs, ledger)
	cached := infraredis.NewLookupCache(redisClient, lookupSvc, time.Minute)

	controller := app.WithToken(ctx, "tok-controller")
	entry := app.WithToken(ctx, "tok-entry")

	session, err := sessionSvc.Create(controller, app.CreateSessionInput{
		Name: "Annual Examination 2025", Type: domain.ExamAnnual, AcademicYearID: "year-2025",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sessionSvc.Transition(controller, session.ID, domain.SessionOngoing); err != nil {
		t.Fatalf("to ongoing: %v", err)
	}

	mark, err := markSvc.Submit(entry, app.SubmitMarkInput{
		StudentID: "s1", ExamSessionID: session.ID, SubjectID: "math", MarksObtained: 75,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := markSvc.Submit(entry, app.SubmitMarkInput{
		StudentID: "s1", ExamSessionID: session.ID, SubjectID: "math", MarksObtained: 80,
	}); err != domain.ErrDuplicateSubmission {
		t.Fatalf("duplicate err = %v, want ErrDuplicateSubmission", err)
	}

	if n, err := markSvc.Approve(controller, []string{mark.ID}); err != nil || n != 1 {
		t.Fatalf("approve: n=%d err=%v", n, err)
	}
	if err := sessionSvc.Transition(controller, session.ID, domain.SessionCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	report, err := publisher.Publish(controller, session.ID, app.PublishOptions{})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.StudentsPublished != 1 || report.MarksPublished != 1 {
		t.Fatalf("report = %+v", report)
	}

	view, err := cached.SearchByRollNumber(ctx, "ANN-2025-00001")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if view == nil {
		t.Fatal("expected a published result")
	}
	if view.Percentage != 75.00 || view.Grade != "A-" || view.PassStatus != domain.Pass {
		t.Fatalf("view = %+v, want 75.00 / A- / pass", view)
	}
	if view.StudentName != "Rahim Uddin" || view.SchoolName != "City Model High School" {
		t.Fatalf("names = %q / %q", view.StudentName, view.SchoolName)
	}

	// Second lookup is served from redis; the answer must not change.
	again, err := cached.SearchByRollNumber(ctx, "ANN-2025-00001")
	if err != nil || again == nil || again.RollNumber != view.RollNumber {
		t.Fatalf("cached lookup: view=%+v err=%v", again, err)
	}

	// Republication keeps the roll number.
	if _, err := publisher.Publish(controller, session.ID, app.PublishOptions{Resume: true}); err != nil {
		t.Fatalf("republish: %v", err)
	}
	summary, err := ledger.GetSummaryByStudentSession(ctx, "s1", session.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.RollNumber != "ANN-2025-00001" {
		t.Fatalf("roll number after republish = %q, want ANN-2025-00001", summary.RollNumber)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedReferenceData(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO academic_years (id, year, status) VALUES ('year-2025', '2025', 'active')`,
		`INSERT INTO schools (id, name, registration_no, status) VALUES ('school-1', 'City Model High School', 'REG100', 'active')`,
		`INSERT INTO students (id, board_reg_id, first_name, last_name, gender, school_id, grade_level, enrollment_year, is_active)
		 VALUES ('s1', 'EBRR-2025-REG100-AAAA', 'Rahim', 'Uddin', 'male', 'school-1', '10', 2023, TRUE)`,
		`INSERT INTO subjects (id, name, code, grade_level, full_marks, pass_marks) VALUES ('math', 'Mathematics', 'MATH', '10', 100, 40)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "ebrr", "POSTGRES_PASSWORD": "ebrrpass", "POSTGRES_DB": "ebrrdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://ebrr:ebrrpass@%s:%s/ebrrdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
