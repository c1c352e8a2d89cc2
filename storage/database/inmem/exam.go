package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
)

// examStore locks the DB on every call, except inside Atomic where the whole
// transaction already holds the write lock.
type examStore struct {
	db   *DB
	inTx bool
}

var _ exam.Store = (*examStore)(nil) // interface compliance check

func NewExamStore(db *DB) exam.Store {
	return &examStore{db: db}
}

// Atomic runs fn under the DB write lock and restores the previous tables if fn fails.
func (s *examStore) Atomic(_ context.Context, fn func(repo exam.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.state.clone()
	if err := fn(&examStore{db: s.db, inTx: true}); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

func (s *examStore) read(fn func(st *state) error) error {
	if !s.inTx {
		s.db.mu.RLock()
		defer s.db.mu.RUnlock()
	}
	return fn(s.db.state)
}

func (s *examStore) write(fn func(st *state) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn(s.db.state)
}

// Schedules

func (s *examStore) CreateSchedule(_ context.Context, sched exam.Schedule) (exam.Schedule, error) {
	err := s.write(func(st *state) error {
		if _, ok := st.certifications[sched.CertificationID]; !ok {
			return certification.ErrNotFound
		}
		sched.ID = uuid.New().String()
		sched.CurrentApplicants = 0
		st.schedules[sched.ID] = sched
		return nil
	})
	if err != nil {
		return exam.Schedule{}, err
	}
	return sched, nil
}

func (s *examStore) GetSchedule(_ context.Context, id string) (exam.Schedule, error) {
	var sched exam.Schedule
	err := s.read(func(st *state) error {
		var ok bool
		if sched, ok = st.schedules[id]; !ok {
			return exam.ErrScheduleNotFound
		}
		return nil
	})
	return sched, err
}

func (s *examStore) LockSchedule(ctx context.Context, id string) (exam.Schedule, error) {
	return s.GetSchedule(ctx, id)
}

func (s *examStore) QuerySchedules(_ context.Context, filter *exam.ScheduleFilter, ordering []core.DBOrdering) ([]exam.Schedule, error) {
	var scheds []exam.Schedule
	_ = s.read(func(st *state) error {
		scheds = make([]exam.Schedule, 0, len(st.schedules))
		for _, sched := range st.schedules {
			if filter != nil {
				if filter.CertificationID != "" && sched.CertificationID != filter.CertificationID {
					continue
				}
				if filter.Status != "" && sched.Status != filter.Status {
					continue
				}
				if !filter.ExamDateFrom.IsZero() && sched.ExamDate.Before(filter.ExamDateFrom) {
					continue
				}
				if !filter.ExamDateTo.IsZero() && sched.ExamDate.After(filter.ExamDateTo) {
					continue
				}
			}
			scheds = append(scheds, sched)
		}
		return nil
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "exam_date", Ascending: true}}
	}
	sortBy(scheds, ordering, func(a, b exam.Schedule, field string) int {
		switch field {
		case "exam_date":
			return compareTime(a.ExamDate.Time, b.ExamDate.Time)
		case "registration_start_date":
			return compareTime(a.RegistrationStartDate.Time, b.RegistrationStartDate.Time)
		case "registration_end_date":
			return compareTime(a.RegistrationEndDate.Time, b.RegistrationEndDate.Time)
		case "max_applicants":
			return compareInt(a.MaxApplicants, b.MaxApplicants)
		case "current_applicants":
			return compareInt(a.CurrentApplicants, b.CurrentApplicants)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "created_at":
			return compareTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return scheds, nil
}

func (s *examStore) UpdateSchedule(_ context.Context, sched exam.Schedule) (exam.Schedule, error) {
	err := s.write(func(st *state) error {
		orig, ok := st.schedules[sched.ID]
		if !ok {
			return exam.ErrScheduleNotFound
		}
		if _, ok := st.certifications[sched.CertificationID]; !ok {
			return certification.ErrNotFound
		}
		if orig.CurrentApplicants > sched.MaxApplicants {
			return exam.ErrMaxBelowCurrent
		}
		// counters are owned by ClaimSeat / ReleaseSeat
		sched.CurrentApplicants = orig.CurrentApplicants
		sched.CreatedAt = orig.CreatedAt
		sched.DisplayStatus = ""
		st.schedules[sched.ID] = sched
		return nil
	})
	if err != nil {
		return exam.Schedule{}, err
	}
	return sched, nil
}

func (s *examStore) DeleteSchedule(_ context.Context, id string) error {
	return s.write(func(st *state) error {
		if _, ok := st.schedules[id]; !ok {
			return exam.ErrScheduleNotFound
		}
		for _, app := range st.applications {
			if app.ExamScheduleID == id {
				return errForeignKey("exam_applications.exam_schedule_id")
			}
		}
		delete(st.schedules, id)
		return nil
	})
}

func (s *examStore) ClaimSeat(_ context.Context, scheduleID string, today core.Date, now time.Time) (int, error) {
	var seq int
	err := s.write(func(st *state) error {
		sched, ok := st.schedules[scheduleID]
		if !ok || !sched.AcceptsRegistrations(today) || sched.CurrentApplicants >= sched.MaxApplicants {
			return exam.ErrNoSeat
		}
		sched.CurrentApplicants++
		sched.UpdatedAt = now
		st.schedules[scheduleID] = sched
		st.examNumberSeq++
		seq = st.examNumberSeq
		return nil
	})
	return seq, err
}

func (s *examStore) ReleaseSeat(_ context.Context, scheduleID string, now time.Time) error {
	return s.write(func(st *state) error {
		sched, ok := st.schedules[scheduleID]
		if !ok {
			return exam.ErrScheduleNotFound
		}
		if sched.CurrentApplicants > 0 {
			sched.CurrentApplicants--
		}
		sched.UpdatedAt = now
		st.schedules[scheduleID] = sched
		return nil
	})
}

// Applications

func (s *examStore) CreateApplication(_ context.Context, app exam.Application) (exam.Application, error) {
	err := s.write(func(st *state) error {
		if _, ok := st.schedules[app.ExamScheduleID]; !ok {
			return errForeignKey("exam_applications.exam_schedule_id")
		}
		for _, other := range st.applications {
			if other.ExamNumber == app.ExamNumber {
				return exam.ErrExamNumberExists
			}
		}
		app.ID = uuid.New().String()
		st.applications[app.ID] = app
		return nil
	})
	if err != nil {
		return exam.Application{}, err
	}
	return app, nil
}

func (s *examStore) GetApplication(_ context.Context, id string) (exam.Application, error) {
	var app exam.Application
	err := s.read(func(st *state) error {
		var ok bool
		if app, ok = st.applications[id]; !ok {
			return exam.ErrApplicationNotFound
		}
		return nil
	})
	return app, err
}

func (s *examStore) LockApplication(ctx context.Context, id string) (exam.Application, error) {
	return s.GetApplication(ctx, id)
}

func (s *examStore) GetApplicationByExamNumber(_ context.Context, examNumber string) (exam.Application, error) {
	var app exam.Application
	err := s.read(func(st *state) error {
		for _, a := range st.applications {
			if a.ExamNumber == examNumber {
				app = a
				return nil
			}
		}
		return exam.ErrApplicationNotFound
	})
	return app, err
}

func (s *examStore) QueryApplications(_ context.Context, filter *exam.ApplicationFilter, ordering []core.DBOrdering) ([]exam.Application, error) {
	var apps []exam.Application
	_ = s.read(func(st *state) error {
		apps = make([]exam.Application, 0, len(st.applications))
		for _, app := range st.applications {
			if filter != nil {
				if filter.ExamScheduleID != "" && app.ExamScheduleID != filter.ExamScheduleID {
					continue
				}
				if filter.ApplicationStatus != "" && app.ApplicationStatus != filter.ApplicationStatus {
					continue
				}
				if filter.PaymentStatus != "" && app.PaymentStatus != filter.PaymentStatus {
					continue
				}
				if filter.Search != "" && !containsFold(app.ApplicantName, filter.Search) &&
					!containsFold(app.ApplicantEmail, filter.Search) && !containsFold(app.ExamNumber, filter.Search) {
					continue
				}
			}
			apps = append(apps, app)
		}
		return nil
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sortBy(apps, ordering, func(a, b exam.Application, field string) int {
		switch field {
		case "applicant_name":
			return strings.Compare(a.ApplicantName, b.ApplicantName)
		case "exam_number":
			return strings.Compare(a.ExamNumber, b.ExamNumber)
		case "application_status":
			return strings.Compare(string(a.ApplicationStatus), string(b.ApplicationStatus))
		case "payment_status":
			return strings.Compare(string(a.PaymentStatus), string(b.PaymentStatus))
		case "paid_at":
			return compareTimePtr(a.PaidAt, b.PaidAt)
		case "created_at":
			return compareTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return apps, nil
}

func (s *examStore) UpdateApplication(_ context.Context, app exam.Application) (exam.Application, error) {
	err := s.write(func(st *state) error {
		orig, ok := st.applications[app.ID]
		if !ok {
			return exam.ErrApplicationNotFound
		}
		app.ExamScheduleID = orig.ExamScheduleID
		app.ExamNumber = orig.ExamNumber
		app.CreatedAt = orig.CreatedAt
		st.applications[app.ID] = app
		return nil
	})
	if err != nil {
		return exam.Application{}, err
	}
	return app, nil
}

func (s *examStore) CountActiveApplications(_ context.Context, scheduleID string) (int, error) {
	var cnt int
	err := s.read(func(st *state) error {
		for _, app := range st.applications {
			if app.ExamScheduleID == scheduleID && app.ApplicationStatus.IsActive() {
				cnt++
			}
		}
		return nil
	})
	return cnt, err
}

func (s *examStore) DeleteCancelledApplications(_ context.Context, scheduleID string) (int, error) {
	var cnt int
	err := s.write(func(st *state) error {
		for id, app := range st.applications {
			if app.ExamScheduleID == scheduleID && app.ApplicationStatus == exam.ApplicationCancelled {
				delete(st.applications, id)
				cnt++
			}
		}
		return nil
	})
	return cnt, err
}
