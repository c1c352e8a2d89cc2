package exam

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
)

type (
	ScheduleService interface {
		CreateSchedule(ctx context.Context, ns NewSchedule) (Schedule, error)
		UpdateSchedule(ctx context.Context, id string, us UpdateSchedule) (Schedule, error)
		ChangeScheduleStatus(ctx context.Context, id string, cs ChangeScheduleStatus) (Schedule, error)
		DeleteSchedule(ctx context.Context, id string) error
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering) ([]Schedule, error)
	}

	scheduleService struct {
		store    Store
		certs    CertificationFinder
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}
)

var _ ScheduleService = (*scheduleService)(nil)

func NewScheduleService(store Store, certs CertificationFinder, validate *validator.Validate, conf *core.Config, logger core.Logger) ScheduleService {
	return &scheduleService{
		store:    store,
		certs:    certs,
		validate: validate,
		conf:     conf,
		logger:   logger,
	}
}

func (svc *scheduleService) today() core.Date {
	return core.DateOf(svc.conf.Today())
}

func (svc *scheduleService) defaultMaxApplicants() int {
	if svc.conf.DefaultMaxApplicants > 0 {
		return svc.conf.DefaultMaxApplicants
	}
	return DefaultMaxApplicants
}

func (svc *scheduleService) CreateSchedule(ctx context.Context, ns NewSchedule) (Schedule, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	if _, err := svc.certs.GetByID(ctx, ns.CertificationID); err != nil {
		return Schedule{}, err
	}

	maxApplicants := ns.MaxApplicants
	if maxApplicants == 0 {
		maxApplicants = svc.defaultMaxApplicants()
	}

	now := core.Now()
	sched, err := svc.store.CreateSchedule(ctx, Schedule{
		CertificationID:        ns.CertificationID,
		ExamDate:               ns.ExamDate,
		RegistrationStartDate:  ns.RegistrationStartDate,
		RegistrationEndDate:    ns.RegistrationEndDate,
		ResultAnnouncementDate: ns.ResultAnnouncementDate,
		ExamLocation:           ns.ExamLocation,
		ExamAddress:            ns.ExamAddress,
		MaxApplicants:          maxApplicants,
		Status:                 ns.Status,
		ExamInstructions:       ns.ExamInstructions,
		RequiredItems:          ns.RequiredItems,
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	if err != nil {
		return Schedule{}, errors.Wrap(err, "creating exam schedule")
	}
	svc.logger.Info(fmt.Sprintf("exam schedule %s created for certification %s on %s", sched.ID, sched.CertificationID, sched.ExamDate))
	return sched.WithDisplayStatus(svc.today()), nil
}

func (svc *scheduleService) UpdateSchedule(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	if _, err := svc.certs.GetByID(ctx, us.CertificationID); err != nil {
		return Schedule{}, err
	}

	var sched Schedule
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		orig, err := repo.LockSchedule(ctx, id)
		if err != nil {
			return err
		}

		sched = orig
		sched.CertificationID = us.CertificationID
		sched.ExamDate = us.ExamDate
		sched.RegistrationStartDate = us.RegistrationStartDate
		sched.RegistrationEndDate = us.RegistrationEndDate
		sched.ResultAnnouncementDate = us.ResultAnnouncementDate
		sched.ExamLocation = us.ExamLocation
		sched.ExamAddress = us.ExamAddress
		sched.ExamInstructions = us.ExamInstructions
		sched.RequiredItems = us.RequiredItems
		if us.MaxApplicants > 0 {
			sched.MaxApplicants = us.MaxApplicants
		}
		if us.Status != "" {
			status, _ := ParseScheduleStatus(string(us.Status))
			if err := ValidateScheduleTransition(orig.Status, status); err != nil {
				return err
			}
			sched.Status = status
		}
		if sched.MaxApplicants < orig.CurrentApplicants {
			return maxBelowCurrentError(orig.CurrentApplicants)
		}
		sched.UpdatedAt = core.Now()

		sched, err = repo.UpdateSchedule(ctx, sched)
		if errors.Cause(err) == ErrMaxBelowCurrent {
			return maxBelowCurrentError(orig.CurrentApplicants)
		}
		return err
	})
	if err != nil {
		return Schedule{}, err
	}
	return sched.WithDisplayStatus(svc.today()), nil
}

func (svc *scheduleService) ChangeScheduleStatus(ctx context.Context, id string, cs ChangeScheduleStatus) (Schedule, error) {
	if err := cs.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	status, _ := ParseScheduleStatus(string(cs.Status))

	var sched Schedule
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		orig, err := repo.LockSchedule(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateScheduleTransition(orig.Status, status); err != nil {
			return err
		}
		sched = orig
		sched.Status = status
		sched.UpdatedAt = core.Now()
		sched, err = repo.UpdateSchedule(ctx, sched)
		return err
	})
	if err != nil {
		return Schedule{}, err
	}
	svc.logger.Info(fmt.Sprintf("exam schedule %s is now %s", sched.ID, sched.Status))
	return sched.WithDisplayStatus(svc.today()), nil
}

func (svc *scheduleService) DeleteSchedule(ctx context.Context, id string) error {
	var purged int
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		if _, err := repo.LockSchedule(ctx, id); err != nil {
			return err
		}
		active, err := repo.CountActiveApplications(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return core.NewConflictError(active,
				"cannot delete exam schedule: %d application(s) are not cancelled", active)
		}
		if purged, err = repo.DeleteCancelledApplications(ctx, id); err != nil {
			return err
		}
		return repo.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return err
	}
	svc.logger.Info(fmt.Sprintf("exam schedule %s deleted (%d cancelled application(s) purged)", id, purged))
	return nil
}

func (svc *scheduleService) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	sched, err := svc.store.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	return sched.WithDisplayStatus(svc.today()), nil
}

func (svc *scheduleService) QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	if filter != nil && filter.DisplayStatus != "" && !filter.DisplayStatus.IsValid() {
		return nil, core.NewFieldError("display_status", "display status must be one of upcoming, open, closed")
	}
	scheds, err := svc.store.QuerySchedules(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}

	today := svc.today()
	res := make([]Schedule, 0, len(scheds))
	for _, sched := range scheds {
		sched = sched.WithDisplayStatus(today)
		if filter != nil && filter.DisplayStatus != "" && sched.DisplayStatus != filter.DisplayStatus {
			continue
		}
		res = append(res, sched)
	}
	return res, nil
}

func maxBelowCurrentError(current int) error {
	return core.NewFieldError("max_applicants",
		fmt.Sprintf("max applicants cannot be lower than the current number of applicants (%d)", current))
}
