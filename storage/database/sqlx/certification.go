package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
)

const (
	certificationColumns = "id, name, registration_number, application_fee, certificate_fee, created_at, updated_at"

	// normRegistrationNumber matches the certifications_registration_number_norm_key index.
	normRegistrationNumber = "upper(regexp_replace(registration_number, '[[:space:]]', '', 'g'))"
)

type certificationRepository struct {
	exec core.DBExecutor
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(exec core.DBExecutor) certification.Repository {
	return &certificationRepository{exec: exec}
}

// trapUniqueErr maps unique constraint violations to the certification uniqueness errors.
func (repo certificationRepository) trapUniqueErr(err error, msg string) error {
	code, constraint := pqErrorCode(err)
	if code == pqUniqueViolation {
		switch constraint {
		case "certifications_name_key":
			return certification.ErrNameExists
		case "certifications_registration_number_key", "certifications_registration_number_norm_key":
			return certification.ErrRegistrationNumberExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo certificationRepository) CheckUniqueness(ctx context.Context, name, regNum string, excluded []certification.Certification) error {
	var w where
	w.add("(lower(name) = lower(?) OR "+normRegistrationNumber+" = ?)", name, certification.NormalizeRegistrationNumber(regNum))
	for _, cert := range excluded {
		w.add("id <> ?", cert.ID)
	}

	var clashes []certification.Certification
	q := repo.exec.Rebind("SELECT " + certificationColumns + " FROM certifications" + w.String())
	if err := repo.exec.SelectContext(ctx, &clashes, q, w.args...); err != nil {
		return errors.Wrap(err, "checking certification uniqueness")
	}
	for _, cert := range clashes {
		if core.CleanString(cert.Name, true /* lower */) == core.CleanString(name, true /* lower */) {
			return certification.ErrNameExists
		}
	}
	if len(clashes) > 0 {
		return certification.ErrRegistrationNumberExists
	}
	return nil
}

func (repo certificationRepository) CreateCertification(ctx context.Context, cert certification.Certification) (certification.Certification, error) {
	cert.ID = uuid.New().String()
	q := repo.exec.Rebind(`INSERT INTO certifications (` + certificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q,
		cert.ID, cert.Name, cert.RegistrationNumber, cert.ApplicationFee, cert.CertificateFee, cert.CreatedAt, cert.UpdatedAt)
	if err != nil {
		return certification.Certification{}, repo.trapUniqueErr(err, "inserting certification")
	}
	return cert, nil
}

func (repo certificationRepository) QueryCertifications(ctx context.Context, filter *certification.QueryFilter, ordering []core.DBOrdering) ([]certification.Certification, error) {
	var w where
	if filter != nil && filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(name ILIKE ? OR registration_number ILIKE ?)", val, val)
	}

	certs := make([]certification.Certification, 0)
	q := repo.exec.Rebind("SELECT " + certificationColumns + " FROM certifications" + w.String() +
		orderBy(ordering, certification.Orderings, core.DBOrdering{Field: "name", Ascending: true}))
	if err := repo.exec.SelectContext(ctx, &certs, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying certifications")
	}
	return certs, nil
}

func (repo certificationRepository) GetCertification(ctx context.Context, id string) (certification.Certification, error) {
	if !isUUID(id) {
		return certification.Certification{}, certification.ErrNotFound
	}
	var cert certification.Certification
	q := repo.exec.Rebind("SELECT " + certificationColumns + " FROM certifications WHERE id = ?")
	if err := repo.exec.GetContext(ctx, &cert, q, id); err != nil {
		return certification.Certification{}, trapNoRowsErr(err, certification.ErrNotFound, "finding certification")
	}
	return cert, nil
}

func (repo certificationRepository) UpdateCertification(ctx context.Context, cert certification.Certification) (certification.Certification, error) {
	q := repo.exec.Rebind(`UPDATE certifications
		SET name = ?, registration_number = ?, application_fee = ?, certificate_fee = ?, updated_at = ?
		WHERE id = ?`)
	res, err := repo.exec.ExecContext(ctx, q,
		cert.Name, cert.RegistrationNumber, cert.ApplicationFee, cert.CertificateFee, cert.UpdatedAt, cert.ID)
	if err != nil {
		return certification.Certification{}, repo.trapUniqueErr(err, "updating certification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return certification.Certification{}, certification.ErrNotFound
	}
	return cert, nil
}

func (repo certificationRepository) DeleteCertification(ctx context.Context, id string) (int, error) {
	if !isUUID(id) {
		return 0, certification.ErrNotFound
	}

	var blocking int
	q := repo.exec.Rebind("SELECT COUNT(*) FROM exam_schedules WHERE certification_id = ?")
	if err := repo.exec.GetContext(ctx, &blocking, q, id); err != nil {
		return 0, errors.Wrap(err, "counting certification exam schedules")
	}
	if blocking > 0 {
		return blocking, nil
	}

	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM certifications WHERE id = ?"), id)
	if err != nil {
		if code, _ := pqErrorCode(err); code == pqForeignKeyViolation {
			// a schedule was created in between
			return 1, nil
		}
		return 0, errors.Wrap(err, "deleting certification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, certification.ErrNotFound
	}
	return 0, nil
}
