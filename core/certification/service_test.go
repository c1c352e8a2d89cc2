package certification_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	inmemdb "github.com/trezcool/assoc/storage/database/inmem"
	testutil "github.com/trezcool/assoc/tests"
)

func setup(t *testing.T) (certification.Service, certification.Repository, exam.Store) {
	db := inmemdb.Open()
	repo := inmemdb.NewCertificationRepository(db)
	return certification.NewService(repo, testutil.NewLogger(t)), repo, inmemdb.NewExamStore(db)
}

func fieldOf(err error) string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
		return vErr.Fields[0].Field
	}
	return ""
}

func TestNewCertification_Validate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	validate := testutil.NewValidator()
	testutil.CreateCertification(t, repo, "Welder", "BNSP-01", 0)

	tests := []struct {
		name      string
		nc        certification.NewCertification
		wantField string
		wantErr   bool
	}{
		{name: "valid", nc: certification.NewCertification{Name: " Electrician ", RegistrationNumber: "BNSP-02", ApplicationFee: 10}},
		{name: "missing", nc: certification.NewCertification{Name: "  "}, wantErr: true},
		{name: "negative fee", nc: certification.NewCertification{Name: "Painter", RegistrationNumber: "X", ApplicationFee: -1}, wantErr: true},
		{name: "name taken", nc: certification.NewCertification{Name: "WELDER", RegistrationNumber: "BNSP-03"}, wantField: "name"},
		{name: "reg number taken", nc: certification.NewCertification{Name: "Painter", RegistrationNumber: "bnsp-01"}, wantField: "registration_number"},
		{name: "reg number taken once spaces are dropped", nc: certification.NewCertification{Name: "Painter", RegistrationNumber: "BNSP - 01"}, wantField: "registration_number"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(ctx, validate, svc)
			switch {
			case tt.wantField != "":
				assert.Equal(t, tt.wantField, fieldOf(err))
			case tt.wantErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
				assert.Equal(t, "Electrician", tt.nc.Name)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	validate := testutil.NewValidator()
	welder := testutil.CreateCertification(t, repo, "Welder", "BNSP-01", 100)
	testutil.CreateCertification(t, repo, "Painter", "BNSP-02", 100)

	fee := int64(250)
	uc := certification.UpdateCertification{ApplicationFee: &fee}
	require.NoError(t, uc.Validate(ctx, welder, validate, svc))
	got, err := svc.Update(ctx, welder.ID, uc)
	require.NoError(t, err)
	assert.Equal(t, "Welder", got.Name, "blank fields are kept")
	assert.Equal(t, int64(250), got.ApplicationFee)

	uc = certification.UpdateCertification{Name: "welder"}
	assert.NoError(t, uc.Validate(ctx, welder, validate, svc), "a certification does not clash with itself")

	uc = certification.UpdateCertification{Name: "painter"}
	assert.Equal(t, "name", fieldOf(uc.Validate(ctx, welder, validate, svc)))

	// a clash slipping past Validate is still a field error
	_, err = svc.Update(ctx, welder.ID, certification.UpdateCertification{Name: "Welder", RegistrationNumber: "BNSP-02"})
	assert.Equal(t, "registration_number", fieldOf(err))

	_, err = svc.Update(ctx, "lol", certification.UpdateCertification{Name: "X", RegistrationNumber: "Y"})
	assert.Equal(t, certification.ErrNotFound, err)
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	welder := testutil.CreateCertification(t, repo, "Welder", "BNSP-01", 300)
	painter := testutil.CreateCertification(t, repo, "Painter", "LSP-02", 100)

	got, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []certification.Certification{painter, welder}, got)

	got, err = svc.Query(ctx, &certification.QueryFilter{Search: "bnsp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []certification.Certification{welder}, got)

	got, err = svc.Query(ctx, nil, []core.DBOrdering{{Field: "application_fee"}})
	require.NoError(t, err)
	assert.Equal(t, []certification.Certification{welder, painter}, got)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := setup(t)
	welder := testutil.CreateCertification(t, repo, "Welder", "BNSP-01", 0)
	painter := testutil.CreateCertification(t, repo, "Painter", "BNSP-02", 0)
	today := core.MustParseDate("2025-08-15")
	testutil.CreateSchedule(t, store, testutil.OpenSchedule(welder.ID, today, 10))
	testutil.CreateSchedule(t, store, testutil.OpenSchedule(welder.ID, today.AddDays(1), 10))

	err := svc.Delete(ctx, welder.ID)
	cErr, ok := errors.Cause(err).(*core.ConflictError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 2, cErr.Count)

	require.NoError(t, svc.Delete(ctx, painter.ID))
	_, err = svc.GetByID(ctx, painter.ID)
	assert.Equal(t, certification.ErrNotFound, err)
	assert.Equal(t, certification.ErrNotFound, svc.Delete(ctx, painter.ID))
}

func TestNormalizeRegistrationNumber(t *testing.T) {
	for in, want := range map[string]string{
		"BNSP-01":   "BNSP-01",
		" bnsp 01 ": "BNSP01",
		"kh\t001":   "KH001",
		"KH 001":    "KH001",
		"":          "",
	} {
		assert.Equal(t, want, certification.NormalizeRegistrationNumber(in), in)
	}
}
