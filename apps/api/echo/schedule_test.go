package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	testutil "github.com/trezcool/assoc/tests"
)

func TestScheduleApi(t *testing.T) {
	app := setup(t)
	cert := testutil.CreateCertification(t, app.certRepo, "Welder", "BNSP-01", 100)

	open := testutil.CreateSchedule(t, app.store, testutil.OpenSchedule(cert.ID, app.today, 10))
	upcoming := testutil.OpenSchedule(cert.ID, app.today, 10)
	upcoming.ExamDate = app.today.AddDays(60)
	upcoming.RegistrationStartDate = app.today.AddDays(10)
	upcoming.RegistrationEndDate = app.today.AddDays(20)
	upcoming.Status = exam.ScheduleScheduled
	upcoming = testutil.CreateSchedule(t, app.store, upcoming)

	t.Run("create", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/exam-schedules", map[string]interface{}{
			"certification_id":        cert.ID,
			"exam_date":               app.today.AddDays(40).String(),
			"registration_start_date": app.today.AddDays(1).String(),
			"registration_end_date":   app.today.AddDays(30).String(),
			"exam_location":           "  Surabaya ",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sched exam.Schedule
		decode(t, rec, &sched)
		assert.Equal(t, "Surabaya", sched.ExamLocation)
		assert.Equal(t, exam.DefaultMaxApplicants, sched.MaxApplicants)
		assert.Equal(t, 0, sched.CurrentApplicants)
		assert.Equal(t, exam.ScheduleScheduled, sched.Status)
		assert.Equal(t, exam.DisplayUpcoming, sched.DisplayStatus)

		rec = app.do(t, http.MethodDelete, "/v1/exam-schedules/"+sched.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})

	app.run(t, []httpTest{
		{
			name: "create for unknown certification", method: http.MethodPost, path: "/v1/exam-schedules",
			body: map[string]interface{}{
				"certification_id":        uuid.New().String(),
				"exam_date":               app.today.AddDays(40).String(),
				"registration_start_date": app.today.AddDays(1).String(),
				"registration_end_date":   app.today.AddDays(30).String(),
				"exam_location":           "Surabaya",
			},
			wantCode: http.StatusNotFound,
			wantData: httpErr{Error: certification.ErrNotFound.Error()},
		},
		{
			name: "create missing fields", method: http.MethodPost, path: "/v1/exam-schedules",
			body:     map[string]interface{}{"certification_id": cert.ID, "exam_location": " "},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{
				"exam_date":               "this field is required",
				"registration_start_date": "this field is required",
				"registration_end_date":   "this field is required",
				"exam_location":           "this field is required",
			},
		},
		{name: "get", path: "/v1/exam-schedules/" + open.ID, wantData: open.WithDisplayStatus(app.today)},
		{name: "get unknown", path: "/v1/exam-schedules/lol", wantCode: http.StatusNotFound, wantData: httpErr{Error: exam.ErrScheduleNotFound.Error()}},
		{
			name: "list by display status", path: "/v1/exam-schedules?display_status=upcoming",
			wantData: []exam.Schedule{upcoming.WithDisplayStatus(app.today)},
		},
		{
			name: "list newest exam first", path: "/v1/exam-schedules?ordering=-exam_date",
			wantData: []exam.Schedule{upcoming.WithDisplayStatus(app.today), open.WithDisplayStatus(app.today)},
		},
		{
			name: "list by status", path: "/v1/exam-schedules?status=registration_open&certification_id=" + cert.ID,
			wantData: []exam.Schedule{open.WithDisplayStatus(app.today)},
		},
		{
			name: "change status backwards", method: http.MethodPatch, path: "/v1/exam-schedules/" + open.ID + "/status",
			body:     exam.ChangeScheduleStatus{Status: exam.ScheduleScheduled},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"status": "cannot change status from registration_open to scheduled"},
		},
		{
			name: "change status unknown", method: http.MethodPatch, path: "/v1/exam-schedules/" + open.ID + "/status",
			body:     map[string]string{"status": "lol"},
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("change status", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/v1/exam-schedules/"+upcoming.ID+"/status", map[string]string{"status": "registration_open"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sched exam.Schedule
		decode(t, rec, &sched)
		assert.Equal(t, exam.ScheduleRegistrationOpen, sched.Status)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/v1/exam-schedules/"+open.ID, exam.UpdateSchedule{
			CertificationID:       cert.ID,
			ExamDate:              open.ExamDate,
			RegistrationStartDate: open.RegistrationStartDate,
			RegistrationEndDate:   open.RegistrationEndDate,
			ExamLocation:          "Bandung",
			MaxApplicants:         20,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sched exam.Schedule
		decode(t, rec, &sched)
		assert.Equal(t, "Bandung", sched.ExamLocation)
		assert.Equal(t, 20, sched.MaxApplicants)
		assert.Equal(t, exam.ScheduleRegistrationOpen, sched.Status)
		assert.Equal(t, exam.DisplayOpen, sched.DisplayStatus)
	})

	t.Run("list by legacy status name", func(t *testing.T) {
		sitting := testutil.OpenSchedule(cert.ID, app.today.AddDays(-40), 10)
		sitting.Status = exam.ScheduleInProgress
		sitting = testutil.CreateSchedule(t, app.store, sitting)

		rec := app.do(t, http.MethodGet, "/v1/exam-schedules?status=exam_completed", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, marshal(t, []exam.Schedule{sitting.WithDisplayStatus(app.today)}), rec.Body.String())
	})

	t.Run("update reversed window", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/v1/exam-schedules/"+open.ID, exam.UpdateSchedule{
			CertificationID:       cert.ID,
			ExamDate:              open.ExamDate,
			RegistrationStartDate: open.RegistrationEndDate,
			RegistrationEndDate:   open.RegistrationStartDate,
			ExamLocation:          "Bandung",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}
