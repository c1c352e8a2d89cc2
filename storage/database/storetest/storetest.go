// Package storetest checks that a storage backend behaves like the exam and certification stores expect.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	testutil "github.com/trezcool/assoc/tests"
)

// Stores returns empty repositories sharing one backend.
type Stores func(t *testing.T) (certification.Repository, exam.Store)

var today = core.MustParseDate("2025-08-15")

const unknownID = "00000000-0000-0000-0000-000000000000"

// Run runs every store test against newStores.
func Run(t *testing.T, newStores Stores) {
	t.Run("Certifications", func(t *testing.T) { testCertifications(t, newStores) })
	t.Run("ClaimSeat", func(t *testing.T) { testClaimSeat(t, newStores) })
	t.Run("ClaimSeatConcurrent", func(t *testing.T) { testClaimSeatConcurrent(t, newStores) })
	t.Run("Atomic", func(t *testing.T) { testAtomic(t, newStores) })
	t.Run("UpdateSchedule", func(t *testing.T) { testUpdateSchedule(t, newStores) })
	t.Run("CreateScheduleUnknownCertification", func(t *testing.T) { testCreateScheduleUnknownCertification(t, newStores) })
	t.Run("Applications", func(t *testing.T) { testApplications(t, newStores) })
	t.Run("DeleteSchedule", func(t *testing.T) { testDeleteSchedule(t, newStores) })
}

func newApplication(schedID, name, examNumber string) exam.Application {
	now := core.Now()
	return exam.Application{
		ExamScheduleID:    schedID,
		ApplicantName:     name,
		ApplicantEmail:    name + "@test.id",
		ExamNumber:        examNumber,
		ApplicationStatus: exam.ApplicationPaymentPending,
		PaymentStatus:     exam.PaymentUnpaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func testCertifications(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, _ := newStores(t)
	welder := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 100)

	_, err := certs.CreateCertification(ctx, certification.Certification{Name: "Welder", RegistrationNumber: "X", CreatedAt: core.Now(), UpdatedAt: core.Now()})
	assert.Equal(t, certification.ErrNameExists, errors.Cause(err))
	assert.Equal(t, certification.ErrRegistrationNumberExists, certs.CheckUniqueness(ctx, "Painter", "bnsp-01", nil))
	assert.Equal(t, certification.ErrRegistrationNumberExists, certs.CheckUniqueness(ctx, "Painter", " bnsp -01", nil),
		"registration numbers are compared upper-cased without whitespace")
	assert.NoError(t, certs.CheckUniqueness(ctx, "Welder", "BNSP-01", []certification.Certification{welder}))

	_, err = certs.CreateCertification(ctx, certification.Certification{Name: "Painter", RegistrationNumber: "bnsp- 01", CreatedAt: core.Now(), UpdatedAt: core.Now()})
	assert.Equal(t, certification.ErrRegistrationNumberExists, errors.Cause(err))

	got, err := certs.GetCertification(ctx, welder.ID)
	require.NoError(t, err)
	assert.Equal(t, welder.Name, got.Name)

	_, err = certs.GetCertification(ctx, "lol")
	assert.Equal(t, certification.ErrNotFound, err)
}

func testClaimSeat(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 2))
	now := core.Now()

	first, err := store.ClaimSeat(ctx, sched.ID, today, now)
	require.NoError(t, err)
	seq, err := store.ClaimSeat(ctx, sched.ID, today, now)
	require.NoError(t, err)
	assert.Equal(t, first+1, seq)
	_, err = store.ClaimSeat(ctx, sched.ID, today, now)
	assert.Equal(t, exam.ErrNoSeat, errors.Cause(err), "full")

	require.NoError(t, store.ReleaseSeat(ctx, sched.ID, now))
	seq, err = store.ClaimSeat(ctx, sched.ID, today, now)
	require.NoError(t, err)
	assert.Equal(t, first+2, seq, "sequence numbers are never reused")

	// the sequence is shared by every schedule
	sameDay := testutil.OpenSchedule(cert.ID, today, 2)
	sameDay.ExamLocation = "Bandung"
	sameDay = testutil.CreateSchedule(t, store, sameDay)
	seq, err = store.ClaimSeat(ctx, sameDay.ID, today, now)
	require.NoError(t, err)
	assert.Equal(t, first+3, seq)

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentApplicants)

	// outside of the registration window
	_, err = store.ClaimSeat(ctx, sched.ID, sched.RegistrationEndDate.AddDays(1), now)
	assert.Equal(t, exam.ErrNoSeat, errors.Cause(err))
	_, err = store.ClaimSeat(ctx, sched.ID, sched.RegistrationStartDate.AddDays(-1), now)
	assert.Equal(t, exam.ErrNoSeat, errors.Cause(err))

	closed := testutil.OpenSchedule(cert.ID, today, 2)
	closed.Status = exam.ScheduleRegistrationClosed
	closed = testutil.CreateSchedule(t, store, closed)
	_, err = store.ClaimSeat(ctx, closed.ID, today, now)
	assert.Equal(t, exam.ErrNoSeat, errors.Cause(err), "status does not accept registrations")

	_, err = store.ClaimSeat(ctx, "00000000-0000-0000-0000-000000000000", today, now)
	assert.Equal(t, exam.ErrNoSeat, errors.Cause(err), "unknown schedule")

	// releasing never goes below zero
	empty := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 2))
	require.NoError(t, store.ReleaseSeat(ctx, empty.ID, now))
	got, err = store.GetSchedule(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentApplicants)
}

func testClaimSeatConcurrent(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 5))

	const claims = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		claimed  []int
		rejected int
	)
	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := store.ClaimSeat(ctx, sched.ID, today, core.Now())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.Equal(t, exam.ErrNoSeat, errors.Cause(err))
				rejected++
				return
			}
			claimed = append(claimed, seq)
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, 5)
	seen := make(map[int]bool, len(claimed))
	for _, seq := range claimed {
		assert.False(t, seen[seq], "sequence %d handed out twice", seq)
		seen[seq] = true
	}
	assert.Equal(t, claims-5, rejected)

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentApplicants)
}

func testAtomic(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 5))

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(repo exam.Repository) error {
		seq, err := repo.ClaimSeat(ctx, sched.ID, today, core.Now())
		if err != nil {
			return err
		}
		if _, err = repo.CreateApplication(ctx, newApplication(sched.ID, "budi", "W-1")); err != nil {
			return err
		}
		assert.Positive(t, seq)
		return boom
	})
	assert.Equal(t, boom, errors.Cause(err))

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentApplicants, "rolled back")
	_, err = store.GetApplicationByExamNumber(ctx, "W-1")
	assert.Equal(t, exam.ErrApplicationNotFound, err, "rolled back")

	err = store.Atomic(ctx, func(repo exam.Repository) error {
		if _, err := repo.ClaimSeat(ctx, sched.ID, today, core.Now()); err != nil {
			return err
		}
		_, err := repo.CreateApplication(ctx, newApplication(sched.ID, "budi", "W-1"))
		return err
	})
	require.NoError(t, err)
	got, err = store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentApplicants)
}

func testUpdateSchedule(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 5))
	for i := 0; i < 3; i++ {
		_, err := store.ClaimSeat(ctx, sched.ID, today, core.Now())
		require.NoError(t, err)
	}

	upd := sched
	upd.MaxApplicants = 2
	_, err := store.UpdateSchedule(ctx, upd)
	assert.Equal(t, exam.ErrMaxBelowCurrent, errors.Cause(err))

	upd.MaxApplicants = 3
	upd.ExamLocation = "Bandung"
	upd.CurrentApplicants = 0 // ignored
	got, err := store.UpdateSchedule(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, "Bandung", got.ExamLocation)
	assert.Equal(t, 3, got.CurrentApplicants)

	upd.CertificationID = unknownID
	_, err = store.UpdateSchedule(ctx, upd)
	assert.Equal(t, certification.ErrNotFound, errors.Cause(err))

	upd.ID = unknownID
	upd.CertificationID = cert.ID
	_, err = store.UpdateSchedule(ctx, upd)
	assert.Equal(t, exam.ErrScheduleNotFound, err)
}

func testCreateScheduleUnknownCertification(t *testing.T, newStores Stores) {
	_, store := newStores(t)
	now := core.Now()
	sched := testutil.OpenSchedule(unknownID, today, 5)
	sched.ExamLocation = "Jakarta"
	sched.CreatedAt, sched.UpdatedAt = now, now

	_, err := store.CreateSchedule(context.Background(), sched)
	assert.Equal(t, certification.ErrNotFound, errors.Cause(err))
}

func testApplications(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 5))

	budi, err := store.CreateApplication(ctx, newApplication(sched.ID, "budi", "W-0001"))
	require.NoError(t, err)
	sari, err := store.CreateApplication(ctx, newApplication(sched.ID, "sari", "W-0002"))
	require.NoError(t, err)

	_, err = store.CreateApplication(ctx, newApplication(sched.ID, "andi", "W-0001"))
	assert.Equal(t, exam.ErrExamNumberExists, errors.Cause(err))

	got, err := store.GetApplicationByExamNumber(ctx, "W-0002")
	require.NoError(t, err)
	assert.Equal(t, sari.ID, got.ID)

	paidAt := time.Date(2025, 8, 16, 10, 0, 0, 0, time.UTC)
	sari.ApplicationStatus = exam.ApplicationConfirmed
	sari.PaymentStatus = exam.PaymentPaid
	sari.PaidAt = &paidAt
	_, err = store.UpdateApplication(ctx, sari)
	require.NoError(t, err)

	got, err = store.LockApplication(ctx, sari.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ApplicationConfirmed, got.ApplicationStatus)
	assert.True(t, paidAt.Equal(*got.PaidAt))

	ids := func(apps []exam.Application) []string {
		res := make([]string, 0, len(apps))
		for _, a := range apps {
			res = append(res, a.ID)
		}
		return res
	}
	apps, err := store.QueryApplications(ctx, &exam.ApplicationFilter{ApplicationStatus: exam.ApplicationConfirmed}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{sari.ID}, ids(apps))

	apps, err = store.QueryApplications(ctx, &exam.ApplicationFilter{Search: "BUDI"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{budi.ID}, ids(apps))

	apps, err = store.QueryApplications(ctx, &exam.ApplicationFilter{ExamScheduleID: sched.ID},
		[]core.DBOrdering{{Field: "exam_number", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{budi.ID, sari.ID}, ids(apps))

	cnt, err := store.CountActiveApplications(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)

	_, err = store.GetApplication(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, exam.ErrApplicationNotFound, err)
}

func testDeleteSchedule(t *testing.T, newStores Stores) {
	ctx := context.Background()
	certs, store := newStores(t)
	cert := testutil.CreateCertification(t, certs, "Welder", "BNSP-01", 0)
	sched := testutil.CreateSchedule(t, store, testutil.OpenSchedule(cert.ID, today, 5))

	cancelled := newApplication(sched.ID, "budi", "W-0001")
	cancelled.ApplicationStatus = exam.ApplicationCancelled
	_, err := store.CreateApplication(ctx, cancelled)
	require.NoError(t, err)

	cnt, err := store.CountActiveApplications(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)

	blocking, err := certs.DeleteCertification(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, blocking)

	err = store.Atomic(ctx, func(repo exam.Repository) error {
		purged, err := repo.DeleteCancelledApplications(ctx, sched.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, purged)
		return repo.DeleteSchedule(ctx, sched.ID)
	})
	require.NoError(t, err)

	_, err = store.GetSchedule(ctx, sched.ID)
	assert.Equal(t, exam.ErrScheduleNotFound, err)
	assert.Equal(t, exam.ErrScheduleNotFound, store.DeleteSchedule(ctx, sched.ID))

	blocking, err = certs.DeleteCertification(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, blocking)
}
