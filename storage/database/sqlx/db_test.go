package sqlxrepos_test

import (
	"testing"

	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	sqlxrepos "github.com/trezcool/assoc/storage/database/sqlx"
	"github.com/trezcool/assoc/storage/database/storetest"
	testutil "github.com/trezcool/assoc/tests"
)

// Runs against TEST_DATABASE_URL; skipped when it is not set.
func TestStores(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (certification.Repository, exam.Store) {
		db := testutil.PrepareDB(t)
		return sqlxrepos.NewCertificationRepository(db), sqlxrepos.NewExamStore(db)
	})
}
