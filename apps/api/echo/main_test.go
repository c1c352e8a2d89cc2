package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/assoc/apps/api/echo"
	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	emailsvc "github.com/trezcool/assoc/services/email"
	inmemdb "github.com/trezcool/assoc/storage/database/inmem"
	testutil "github.com/trezcool/assoc/tests"
)

type testApp struct {
	server   *Server
	conf     *core.Config
	today    core.Date
	certRepo certification.Repository
	store    exam.Store
	mail     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	t.Helper()
	testutil.LoadEmailTemplates(t)

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	db := inmemdb.Open()
	app := &testApp{
		conf:     conf,
		today:    core.DateOf(conf.Today()),
		certRepo: inmemdb.NewCertificationRepository(db),
		store:    inmemdb.NewExamStore(db),
		mail:     emailsvc.NewConsoleServiceMock(conf, logger),
	}
	certSvc := certification.NewService(app.certRepo, logger)
	app.server = NewServer(ServerDeps{
		Conf:             conf,
		Logger:           logger,
		DB:               db,
		CertificationSvc: certSvc,
		ScheduleSvc:      exam.NewScheduleService(app.store, certSvc, validate, conf, logger),
		ApplicationSvc:   exam.NewApplicationService(app.store, certSvc, validate, app.mail, conf, logger),
		Validate:         validate,
		Translator:       translator,
		DisableReqLogs:   true,
	})
	t.Cleanup(func() { _ = app.server.Close() })
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	wantCode int
	wantData interface{} // compared as JSON when set
}

func (app *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			wantCode := tt.wantCode
			if wantCode == 0 {
				wantCode = http.StatusOK
			}
			rec := app.do(t, method, tt.path, tt.body)
			assert.Equal(t, wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				assert.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())
			}
		})
	}
}

// decode reads the response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestServer_health(t *testing.T) {
	app := setup(t)
	app.run(t, []httpTest{
		{name: "health", path: "/v1/health", wantData: map[string]string{"status": "ok", "build": "test"}},
		{name: "trailing slash", path: "/v1/health/", wantData: map[string]string{"status": "ok", "build": "test"}},
		{name: "unknown route", path: "/v1/lol", wantCode: http.StatusNotFound, wantData: httpErr{Error: "Not Found"}},
	})

	rec := app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Assoc API!", rec.Body.String())
}
