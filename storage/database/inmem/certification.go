package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
)

type certificationRepository struct {
	db *DB
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(db *DB) certification.Repository {
	return &certificationRepository{db: db}
}

func (repo *certificationRepository) CheckUniqueness(_ context.Context, name, regNum string, excluded []certification.Certification) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return checkUniqueness(repo.db.state, name, regNum, excluded)
}

func checkUniqueness(st *state, name, regNum string, excluded []certification.Certification) error {
	for _, cert := range st.certifications {
		if isExcluded(cert, excluded) {
			continue
		}
		if strings.EqualFold(cert.Name, name) {
			return certification.ErrNameExists
		}
		if certification.NormalizeRegistrationNumber(cert.RegistrationNumber) == certification.NormalizeRegistrationNumber(regNum) {
			return certification.ErrRegistrationNumberExists
		}
	}
	return nil
}

func (repo *certificationRepository) CreateCertification(_ context.Context, cert certification.Certification) (certification.Certification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := checkUniqueness(repo.db.state, cert.Name, cert.RegistrationNumber, nil); err != nil {
		return certification.Certification{}, err
	}

	cert.ID = uuid.New().String()
	repo.db.state.certifications[cert.ID] = cert
	return cert, nil
}

func (repo *certificationRepository) QueryCertifications(_ context.Context, filter *certification.QueryFilter, ordering []core.DBOrdering) ([]certification.Certification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	certs := make([]certification.Certification, 0, len(repo.db.state.certifications))
	for _, cert := range repo.db.state.certifications {
		if filter != nil && filter.Search != "" &&
			!containsFold(cert.Name, filter.Search) && !containsFold(cert.RegistrationNumber, filter.Search) {
			continue
		}
		certs = append(certs, cert)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sortBy(certs, ordering, func(a, b certification.Certification, field string) int {
		switch field {
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "registration_number":
			return strings.Compare(a.RegistrationNumber, b.RegistrationNumber)
		case "application_fee":
			return compareInt(int(a.ApplicationFee), int(b.ApplicationFee))
		case "created_at":
			return compareTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return certs, nil
}

func (repo *certificationRepository) GetCertification(_ context.Context, id string) (certification.Certification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cert, ok := repo.db.state.certifications[id]; ok {
		return cert, nil
	}
	return certification.Certification{}, certification.ErrNotFound
}

func (repo *certificationRepository) UpdateCertification(_ context.Context, cert certification.Certification) (certification.Certification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.state.certifications[cert.ID]; !ok {
		return certification.Certification{}, certification.ErrNotFound
	}
	if err := checkUniqueness(repo.db.state, cert.Name, cert.RegistrationNumber, []certification.Certification{cert}); err != nil {
		return certification.Certification{}, err
	}
	repo.db.state.certifications[cert.ID] = cert
	return cert, nil
}

func (repo *certificationRepository) DeleteCertification(_ context.Context, id string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.state.certifications[id]; !ok {
		return 0, certification.ErrNotFound
	}
	var blocking int
	for _, sched := range repo.db.state.schedules {
		if sched.CertificationID == id {
			blocking++
		}
	}
	if blocking == 0 {
		delete(repo.db.state.certifications, id)
	}
	return blocking, nil
}

func isExcluded(cert certification.Certification, excluded []certification.Certification) bool {
	for _, ex := range excluded {
		if ex.ID == cert.ID {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortBy sorts records on each ordering in turn; cmp returns -1, 0 or 1 for one field.
func sortBy[T any](records []T, ordering []core.DBOrdering, cmp func(a, b T, field string) int) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(records[i], records[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
