package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	inmemdb "github.com/trezcool/assoc/storage/database/inmem"
	testutil "github.com/trezcool/assoc/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	db := inmemdb.Open()
	certSvc := certification.NewService(inmemdb.NewCertificationRepository(db), logger)

	out := new(bytes.Buffer)
	return &commandLine{
		conf:       conf,
		validate:   validate,
		translator: translator,
		certSvc:    certSvc,
		schedSvc:   exam.NewScheduleService(inmemdb.NewExamStore(db), certSvc, validate, conf, logger),
		out:        out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(_ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addCertification(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addcertification"}, wantErr: errHelp},
		{name: "no regnum", args: []string{"addcertification", "--name", "Welder"}, wantErr: errHelp},
		{name: "negative fee", args: []string{"addcertification", "--name", "Welder", "--regnum", "W-1", "--fee=-1"}, wantErrStr: "application_fee: application_fee must be 0 or greater"},
		{name: "create", args: []string{"addcertification", "--name", "Welder", "--regnum", "W-1", "--fee", "150000"}},
		{name: "duplicate name", args: []string{"addcertification", "--name", "welder", "--regnum", "W-2"}, wantErrStr: certification.ErrNameExists.Error()},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	certs, err := cli.certSvc.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, int64(150000), certs[0].ApplicationFee)
	assert.Contains(t, out.String(), `Created certification "Welder"`)
}

func Test_commandLine_schedules(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	today := core.DateOf(cli.conf.Today())

	cert, err := cli.certSvc.Create(ctx, certification.NewCertification{Name: "Welder", RegistrationNumber: "W-1"})
	require.NoError(t, err)
	sched, err := cli.schedSvc.CreateSchedule(ctx, exam.NewSchedule{
		CertificationID:       cert.ID,
		ExamDate:              today.AddDays(30),
		RegistrationStartDate: today.AddDays(-1),
		RegistrationEndDate:   today.AddDays(10),
		ExamLocation:          "Jakarta",
		MaxApplicants:         5,
	})
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "schedules"}))
		assert.Contains(t, out.String(), sched.ID)
		assert.Contains(t, out.String(), "0/5")
		assert.Contains(t, out.String(), "open")
	})

	tests := []cliTest{
		{name: "no args", args: []string{"setstatus"}, wantErr: errHelp},
		{name: "not found", args: []string{"setstatus", "--id", "lol", "--status", "registration_open"}, wantErr: exam.ErrScheduleNotFound},
		{name: "open", args: []string{"setstatus", "--id", sched.ID, "--status", "registration_open"}},
		{name: "backwards", args: []string{"setstatus", "--id", sched.ID, "--status", "scheduled"}, wantErrStr: "cannot change status from registration_open to scheduled"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	got, err := cli.schedSvc.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ScheduleRegistrationOpen, got.Status)
}
