package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/assoc/core/exam"
	testutil "github.com/trezcool/assoc/tests"
)

func submit(t *testing.T, app *testApp, schedID, name string) exam.Application {
	t.Helper()
	rec := app.do(t, http.MethodPost, "/v1/exam-applications", exam.NewApplication{
		ExamScheduleID: schedID,
		ApplicantName:  name,
		ApplicantEmail: name + "@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var a exam.Application
	decode(t, rec, &a)
	return a
}

func TestApplicationApi(t *testing.T) {
	app := setup(t)
	cert := testutil.CreateCertification(t, app.certRepo, "Welder", "BNSP01", 150)
	sched := testutil.CreateSchedule(t, app.store, testutil.OpenSchedule(cert.ID, app.today, 2))

	first := submit(t, app, sched.ID, "alice")
	assert.Equal(t, exam.ExamNumber(cert.RegistrationNumber, sched.ExamDate, 1), first.ExamNumber)
	assert.Equal(t, exam.ApplicationPaymentPending, first.ApplicationStatus)
	assert.Equal(t, exam.PaymentUnpaid, first.PaymentStatus)
	assert.Equal(t, int64(150), first.PaymentAmount)
	assert.Len(t, app.mail.SentMessages(), 1)

	second := submit(t, app, sched.ID, "bob")

	app.run(t, []httpTest{
		{
			name: "submit to full schedule", method: http.MethodPost, path: "/v1/exam-applications",
			body:     exam.NewApplication{ExamScheduleID: sched.ID, ApplicantName: "carol", ApplicantEmail: "carol@example.com"},
			wantCode: http.StatusConflict,
			wantData: httpErr{Error: "exam schedule is full (max 2 applicants)"},
		},
		{
			name: "submit invalid", method: http.MethodPost, path: "/v1/exam-applications",
			body:     exam.NewApplication{ExamScheduleID: sched.ID, ApplicantName: "carol", ApplicantEmail: "lol"},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"applicant_email": "applicant_email must be a valid email address"},
		},
		{name: "get unknown", path: "/v1/exam-applications/lol", wantCode: http.StatusNotFound, wantData: httpErr{Error: exam.ErrApplicationNotFound.Error()}},
		{
			name: "confirm unknown", method: http.MethodPost, path: "/v1/exam-applications/lol/confirm-payment",
			wantCode: http.StatusNotFound, wantData: httpErr{Error: exam.ErrApplicationNotFound.Error()},
		},
		{name: "query by search", path: "/v1/exam-applications?search=ALICE", wantData: []exam.Application{first}},
		{name: "query ordered", path: "/v1/exam-applications?ordering=-applicant_name", wantData: []exam.Application{second, first}},
	})

	t.Run("detail", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/exam-applications/"+first.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var detail exam.ApplicationDetail
		decode(t, rec, &detail)
		assert.Equal(t, first.ID, detail.ID)
		assert.Equal(t, sched.ID, detail.Schedule.ID)
		assert.Equal(t, 2, detail.Schedule.CurrentApplicants)
		assert.Equal(t, cert.Name, detail.Certification.Name)
	})

	t.Run("confirm payment", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/exam-applications/"+first.ID+"/confirm-payment", map[string]string{"payment_method": " Bank_Transfer "})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var a exam.Application
		decode(t, rec, &a)
		assert.Equal(t, exam.ApplicationConfirmed, a.ApplicationStatus)
		assert.Equal(t, exam.PaymentPaid, a.PaymentStatus)
		assert.NotNil(t, a.PaidAt)
	})

	t.Run("cancel releases a seat", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/exam-applications/"+second.ID+"/cancel", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var a exam.Application
		decode(t, rec, &a)
		assert.Equal(t, exam.ApplicationCancelled, a.ApplicationStatus)
		assert.NotNil(t, a.CancelledAt)

		carol := submit(t, app, sched.ID, "carol")
		assert.Equal(t, exam.ExamNumber(cert.RegistrationNumber, sched.ExamDate, 3), carol.ExamNumber)
	})

	t.Run("result", func(t *testing.T) {
		path := "/v1/exam-results?examNumber=" + first.ExamNumber
		rec := app.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res exam.ExamResult
		decode(t, rec, &res)
		assert.Equal(t, first.ExamNumber, res.ExamNumber)
		assert.Equal(t, cert.Name, res.CertificationName)
		assert.Nil(t, res.PassStatus)
		assert.Nil(t, res.TotalScore)

		written, practical, pass := 80.0, 70.0, true
		rec = app.do(t, http.MethodPost, "/v1/exam-applications/"+first.ID+"/result", exam.RecordResult{
			WrittenScore: &written, PracticalScore: &practical, PassStatus: &pass,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &res)
		if assert.NotNil(t, res.PassStatus) {
			assert.True(t, *res.PassStatus)
		}
		if assert.NotNil(t, res.TotalScore) {
			assert.Equal(t, 150.0, *res.TotalScore)
		}

		// graded applications stay put
		rec = app.do(t, http.MethodPost, "/v1/exam-applications/"+first.ID+"/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	app.run(t, []httpTest{
		{name: "result without exam number", path: "/v1/exam-results", wantCode: http.StatusNotFound},
		{name: "result unknown exam number", path: "/v1/exam-results?examNumber=LOL-000000-0001", wantCode: http.StatusNotFound},
		{
			name: "result missing pass status", method: http.MethodPost, path: "/v1/exam-applications/" + first.ID + "/result",
			body:     map[string]float64{"written_score": 10},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"pass_status": "this field is required"},
		},
	})
}
