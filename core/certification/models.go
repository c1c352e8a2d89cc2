package certification

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/assoc/core"
)

// Certification is a credential an applicant can sit an exam for.
type Certification struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	RegistrationNumber string    `json:"registration_number" db:"registration_number"`
	ApplicationFee     int64     `json:"application_fee" db:"application_fee"`
	CertificateFee     int64     `json:"certificate_fee" db:"certificate_fee"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NormalizeRegistrationNumber is the form registration numbers are compared and printed in:
// upper-cased with all whitespace removed.
func NormalizeRegistrationNumber(regNum string) string {
	return strings.ToUpper(strings.Join(strings.Fields(regNum), ""))
}

// NewCertification contains information needed to create a new Certification.
type NewCertification struct {
	Name               string `json:"name" validate:"required,notblank,max=200"`
	RegistrationNumber string `json:"registration_number" validate:"required,notblank,max=100"`
	ApplicationFee     int64  `json:"application_fee" validate:"gte=0"`
	CertificateFee     int64  `json:"certificate_fee" validate:"gte=0"`
}

func (nc *NewCertification) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.RegistrationNumber = core.CleanString(nc.RegistrationNumber)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.Name, nc.RegistrationNumber)
}

// UpdateCertification defines what information may be provided to modify an existing Certification.
// Blank fields keep their current value.
type UpdateCertification struct {
	Name               string `json:"name" validate:"omitempty,max=200"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,max=100"`
	ApplicationFee     *int64 `json:"application_fee" validate:"omitempty,gte=0"`
	CertificateFee     *int64 `json:"certificate_fee" validate:"omitempty,gte=0"`
}

func (uc *UpdateCertification) Validate(ctx context.Context, orig Certification, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if regNum := core.CleanString(uc.RegistrationNumber); regNum != "" {
		uc.RegistrationNumber = regNum
	} else {
		uc.RegistrationNumber = orig.RegistrationNumber
	}
	if uc.ApplicationFee == nil {
		uc.ApplicationFee = &orig.ApplicationFee
	}
	if uc.CertificateFee == nil {
		uc.CertificateFee = &orig.CertificateFee
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uc.Name, uc.RegistrationNumber, orig)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
