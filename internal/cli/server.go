package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/config"
	"ebrr-results-service/internal/domain"
	"ebrr-results-service/internal/infra/memory"
	"ebrr-results-service/internal/infra/postgres"
	redisinfra "ebrr-results-service/internal/infra/redis"
	transport "ebrr-results-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the results server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Without postgres the whole pipeline runs on the in-memory store with a
	// demo dataset; that is the local-development and evaluation mode.
	store := memory.NewStore()

	var (
		marksRepo   app.MarkRepository        = store
		summaryRepo app.SummaryRepository     = store
		sessionRepo app.SessionRepository     = store
		certRepo    app.CertificateRepository = store
		refRepo     app.ReferenceRepository   = store
		auditRepo   app.AuditRepository       = store
	)

	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		ledger := postgres.NewLedger(db)
		marksRepo = ledger
		summaryRepo = ledger
		sessionRepo = ledger
		certRepo = ledger
		auditRepo = ledger

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		refTTL := config.TTLDuration(cfg.Reference.TTL, 10*time.Minute)
		refRepo = memory.NewReferenceCache(postgres.NewReferenceStore(pool), refTTL)
	}

	identities := memory.NewIdentityDirectory()
	if cfg.Postgres.URL == "" {
		seedDemo(store, identities)
	}

	queueSize := cfg.Audit.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	audit := app.NewAuditRecorder(auditRepo, queueSize)
	defer audit.Close()

	gate := app.NewRoleGate(identities)
	feed := app.NewProgressFeed()

	markSvc := app.NewMarkService(gate, marksRepo, sessionRepo, refRepo, audit)
	publisher := app.NewPublisher(gate, marksRepo, summaryRepo, sessionRepo, refRepo, audit, feed)
	sessionSvc := app.NewSessionService(gate, sessionRepo, refRepo, audit)
	certSvc := app.NewCertificateService(gate, certRepo, sessionRepo, refRepo, audit, cfg.Certificates.VerifyBaseURL)
	lookupSvc := app.NewLookupService(gate, marksRepo, summaryRepo, sessionRepo, certRepo, refRepo, auditRepo)

	var public app.PublicLookup = lookupSvc
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		lookupTTL := config.TTLDuration(cfg.Lookup.TTL, 5*time.Minute)
		public = redisinfra.NewLookupCache(client, lookupSvc, lookupTTL)
	}

	handler := transport.NewHandler(markSvc, publisher, sessionSvc, certSvc, lookupSvc, public)
	wsHandler := transport.NewWSHandler(feed)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/publications", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting results service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemo loads a small reference dataset and a handful of staff tokens so
// the in-memory mode is usable out of the box.
func seedDemo(store *memory.Store, identities *memory.IdentityDirectory) {
	store.AddAcademicYear(domain.AcademicYear{ID: "year-2025", Year: "2025", Status: "active"})
	store.AddSchool(domain.School{ID: "school-1", Name: "City Model High School", RegistrationNo: "REG100", Status: "active"})
	store.AddStudent(domain.Student{
		ID: "student-1", BoardRegID: "EBRR-2025-REG100-DEMO", FirstName: "Rahim", LastName: "Uddin",
		Gender: "male", SchoolID: "school-1", GradeLevel: "10", EnrollmentYear: 2023, IsActive: true,
	})
	store.AddSubject(domain.Subject{ID: "subject-math", Name: "Mathematics", Code: "MATH", GradeLevel: "10", FullMarks: 100, PassMarks: 40})
	store.AddSubject(domain.Subject{ID: "subject-eng", Name: "English", Code: "ENG", GradeLevel: "10", FullMarks: 100, PassMarks: 40})

	identities.Register("demo-admin", app.Identity{UserID: "user-admin", Name: "Demo Admin", Role: domain.RoleSuperAdmin, Active: true})
	identities.Register("demo-controller", app.Identity{UserID: "user-controller", Name: "Demo Controller", Role: domain.RoleExamController, Active: true})
	identities.Register("demo-entry", app.Identity{UserID: "user-entry", Name: "Demo Data Entry", Role: domain.RoleDataEntry, SchoolID: "school-1", Active: true})
}
