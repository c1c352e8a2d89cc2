package certification

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
)

var (
	// errors
	ErrNotFound                 = core.NewNotFoundError("certification not found")
	ErrNameExists               = errors.New("a certification with this name already exists")
	ErrRegistrationNumberExists = errors.New("a certification with this registration number already exists")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrNameExists or ErrRegistrationNumberExists on a clash with any
		// certification other than the excluded ones.
		CheckUniqueness(ctx context.Context, name, registrationNumber string, excluded []Certification) error
		CreateCertification(ctx context.Context, cert Certification) (Certification, error)
		// QueryCertifications does a case-insensitive match of QueryFilter.Search on name or registration number.
		QueryCertifications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Certification, error)
		GetCertification(ctx context.Context, id string) (Certification, error)
		UpdateCertification(ctx context.Context, cert Certification) (Certification, error)
		// DeleteCertification deletes the certification unless exam schedules still reference it,
		// in which case nothing is deleted and the number of referencing schedules is returned.
		DeleteCertification(ctx context.Context, id string) (blocking int, err error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, name, registrationNumber string, excluded ...Certification) error
		Create(ctx context.Context, nc NewCertification) (Certification, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Certification, error)
		GetByID(ctx context.Context, id string) (Certification, error)
		Update(ctx context.Context, id string, uc UpdateCertification) (Certification, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) CheckUniqueness(ctx context.Context, name, regNum string, excluded ...Certification) error {
	if err := svc.repo.CheckUniqueness(ctx, name, regNum, excluded); err != nil {
		return uniquenessError(err, "checking certification uniqueness")
	}
	return nil
}

// uniquenessError turns a uniqueness clash into a field-level ValidationError.
func uniquenessError(err error, msg string) error {
	var field string
	switch errors.Cause(err) {
	case ErrNameExists:
		field = "name"
	case ErrRegistrationNumberExists:
		field = "registration_number"
	default:
		return errors.Wrap(err, msg)
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
}

func (svc *service) Create(ctx context.Context, nc NewCertification) (Certification, error) {
	now := core.Now()
	cert, err := svc.repo.CreateCertification(ctx, Certification{
		Name:               nc.Name,
		RegistrationNumber: nc.RegistrationNumber,
		ApplicationFee:     nc.ApplicationFee,
		CertificateFee:     nc.CertificateFee,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return Certification{}, uniquenessError(err, "creating certification")
	}
	svc.logger.Info(fmt.Sprintf("certification %s (%s) created", cert.ID, cert.RegistrationNumber))
	return cert, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Certification, error) {
	return svc.repo.QueryCertifications(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Certification, error) {
	return svc.repo.GetCertification(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCertification) (Certification, error) {
	orig, err := svc.repo.GetCertification(ctx, id)
	if err != nil {
		return Certification{}, err
	}
	cert := orig
	cert.Name = uc.Name
	cert.RegistrationNumber = uc.RegistrationNumber
	if uc.ApplicationFee != nil {
		cert.ApplicationFee = *uc.ApplicationFee
	}
	if uc.CertificateFee != nil {
		cert.CertificateFee = *uc.CertificateFee
	}
	cert.UpdatedAt = core.Now()
	if cert, err = svc.repo.UpdateCertification(ctx, cert); err != nil {
		if core.IsNotFound(err) {
			return Certification{}, err
		}
		return Certification{}, uniquenessError(err, "updating certification")
	}
	return cert, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	blocking, err := svc.repo.DeleteCertification(ctx, id)
	if err != nil {
		return err
	}
	if blocking > 0 {
		return core.NewConflictError(blocking,
			"cannot delete certification: %d exam schedule(s) still reference it", blocking)
	}
	svc.logger.Info(fmt.Sprintf("certification %s deleted", id))
	return nil
}

// Orderings are the fields certifications can be ordered by.
var Orderings = []string{"name", "registration_number", "application_fee", "created_at"}
