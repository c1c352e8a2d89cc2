package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	appfs "github.com/trezcool/assoc/fs"
	logsvc "github.com/trezcool/assoc/services/logger"
	"github.com/trezcool/assoc/storage/database"
)

// testWriter sends log output to t.Log so it only shows for failing (or -v) tests.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// NewLogger returns a logger writing to t.Log, never reporting to Rollbar.
func NewLogger(t *testing.T) core.Logger {
	var out io.Writer = testWriter{t: t}
	logger := logsvc.NewRollbarLogger(log.New(out, "TEST : ", log.Lshortfile), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	return validate
}

// LoadEmailTemplates parses the embedded email templates, failing on any missing key.
func LoadEmailTemplates(t *testing.T) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, "http://localhost:8080", true, NewLogger(t))
}

// PrepareDB opens the database at TEST_DATABASE_URL, migrates it and empties every table.
// Tests are skipped when no test database is configured.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Ping(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE exam_applications, exam_schedules, certifications CASCADE"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
	if _, err := db.Exec("ALTER SEQUENCE exam_numbers_seq RESTART"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateCertification(t *testing.T, repo certification.Repository, name, regNum string, fee int64) certification.Certification {
	t.Helper()
	now := core.Now()
	cert, err := repo.CreateCertification(context.Background(), certification.Certification{
		Name:               name,
		RegistrationNumber: regNum,
		ApplicationFee:     fee,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("CreateCertification() failed: %v", err)
	}
	return cert
}

// CreateSchedule stores a schedule as-is (no validation), defaulting blank fields.
func CreateSchedule(t *testing.T, repo exam.Repository, sched exam.Schedule) exam.Schedule {
	t.Helper()
	now := core.Now()
	if sched.ExamLocation == "" {
		sched.ExamLocation = "Jakarta"
	}
	if sched.Status == "" {
		sched.Status = exam.ScheduleRegistrationOpen
	}
	if sched.MaxApplicants == 0 {
		sched.MaxApplicants = exam.DefaultMaxApplicants
	}
	sched.CreatedAt, sched.UpdatedAt = now, now

	sched, err := repo.CreateSchedule(context.Background(), sched)
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return sched
}

// OpenSchedule is a schedule of cert open for registration around today.
func OpenSchedule(certID string, today core.Date, max int) exam.Schedule {
	return exam.Schedule{
		CertificationID:       certID,
		ExamDate:              today.AddDays(30),
		RegistrationStartDate: today.AddDays(-5),
		RegistrationEndDate:   today.AddDays(5),
		MaxApplicants:         max,
		Status:                exam.ScheduleRegistrationOpen,
	}
}
