package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/trezcool/assoc/core/certification"
	testutil "github.com/trezcool/assoc/tests"
)

func TestCertificationApi(t *testing.T) {
	app := setup(t)
	welder := testutil.CreateCertification(t, app.certRepo, "Welder", "BNSP-01", 100)
	painter := testutil.CreateCertification(t, app.certRepo, "Painter", "BNSP-02", 50)
	testutil.CreateSchedule(t, app.store, testutil.OpenSchedule(welder.ID, app.today, 10))

	app.run(t, []httpTest{
		{name: "list", path: "/v1/certifications", wantData: []certification.Certification{painter, welder}},
		{name: "search", path: "/v1/certifications?search=paint", wantData: []certification.Certification{painter}},
		{name: "ordering", path: "/v1/certifications?ordering=-application_fee,lol", wantData: []certification.Certification{welder, painter}},
		{name: "get", path: "/v1/certifications/" + welder.ID, wantData: welder},
		{name: "get unknown", path: "/v1/certifications/lol", wantCode: http.StatusNotFound, wantData: httpErr{Error: certification.ErrNotFound.Error()}},
		{
			name: "create invalid", method: http.MethodPost, path: "/v1/certifications",
			body:     map[string]interface{}{"name": " ", "application_fee": -1},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{
				"name":                "this field is required",
				"registration_number": "this field is required",
				"application_fee":     "application_fee must be 0 or greater",
			},
		},
		{
			name: "create duplicate", method: http.MethodPost, path: "/v1/certifications",
			body:     certification.NewCertification{Name: "welder", RegistrationNumber: "BNSP-09"},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"name": certification.ErrNameExists.Error()},
		},
		{
			name: "update duplicate", method: http.MethodPut, path: "/v1/certifications/" + painter.ID,
			body:     certification.UpdateCertification{RegistrationNumber: "bnsp-01"},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"registration_number": certification.ErrRegistrationNumberExists.Error()},
		},
		{
			name: "delete referenced", method: http.MethodDelete, path: "/v1/certifications/" + welder.ID,
			wantCode: http.StatusBadRequest,
			wantData: map[string]interface{}{"error": "cannot delete certification: 1 exam schedule(s) still reference it", "count": 1},
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/certifications/" + painter.ID, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/certifications/" + painter.ID, wantCode: http.StatusNotFound},
	})

	t.Run("create & update", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/certifications", certification.NewCertification{
			Name: " Electrician ", RegistrationNumber: "BNSP-03", ApplicationFee: 200,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("create: code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var created certification.Certification
		decode(t, rec, &created)
		if created.Name != "Electrician" || created.ApplicationFee != 200 {
			t.Errorf("create: got %+v", created)
		}

		fee := int64(300)
		rec = app.do(t, http.MethodPut, "/v1/certifications/"+created.ID, certification.UpdateCertification{ApplicationFee: &fee})
		var updated certification.Certification
		decode(t, rec, &updated)
		if updated.Name != "Electrician" || updated.ApplicationFee != 300 {
			t.Errorf("update: got %+v", updated)
		}
	})
}
