package exam

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
)

var (
	// errors
	ErrScheduleNotFound    = core.NewNotFoundError("exam schedule not found")
	ErrApplicationNotFound = core.NewNotFoundError("exam application not found")
	ErrExamNumberExists    = errors.New("an exam application with this exam number already exists")

	// ErrMaxBelowCurrent is returned by Repository.UpdateSchedule when max_applicants would drop
	// below the schedule's current_applicants.
	ErrMaxBelowCurrent = errors.New("max applicants cannot be lower than the current number of applicants")

	// ErrNoSeat is returned by Repository.ClaimSeat when the conditional update matched no row.
	ErrNoSeat = errors.New("no seat could be claimed on the exam schedule")
)

type Repository interface {
	CreateSchedule(ctx context.Context, sched Schedule) (Schedule, error)
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	// LockSchedule is GetSchedule holding a row lock until the surrounding Atomic call returns.
	LockSchedule(ctx context.Context, id string) (Schedule, error)
	// QuerySchedules filters on everything but ScheduleFilter.DisplayStatus, which is derived.
	QuerySchedules(ctx context.Context, filter *ScheduleFilter, ordering []core.DBOrdering) ([]Schedule, error)
	// UpdateSchedule only matches while current_applicants <= sched.MaxApplicants, see ErrMaxBelowCurrent.
	UpdateSchedule(ctx context.Context, sched Schedule) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	// ClaimSeat increments current_applicants in a single conditional update that only matches
	// a schedule accepting registrations on `today` with a seat left.
	// It returns the next value of the store-wide exam number sequence, or ErrNoSeat if the
	// update matched nothing. Sequence values are never handed out twice.
	ClaimSeat(ctx context.Context, scheduleID string, today core.Date, now time.Time) (seq int, err error)
	// ReleaseSeat decrements current_applicants, never below zero.
	ReleaseSeat(ctx context.Context, scheduleID string, now time.Time) error

	CreateApplication(ctx context.Context, app Application) (Application, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	// LockApplication is GetApplication holding a row lock until the surrounding Atomic call returns.
	LockApplication(ctx context.Context, id string) (Application, error)
	GetApplicationByExamNumber(ctx context.Context, examNumber string) (Application, error)
	QueryApplications(ctx context.Context, filter *ApplicationFilter, ordering []core.DBOrdering) ([]Application, error)
	UpdateApplication(ctx context.Context, app Application) (Application, error)
	// CountActiveApplications counts the schedule's applications that are not cancelled.
	CountActiveApplications(ctx context.Context, scheduleID string) (int, error)
	DeleteCancelledApplications(ctx context.Context, scheduleID string) (int, error)
}

// Store is a Repository able to run a group of calls as one all-or-nothing unit.
type Store interface {
	Repository
	// Atomic runs fn against a Repository bound to a single transaction. The transaction is
	// committed if fn returns nil and rolled back otherwise.
	Atomic(ctx context.Context, fn func(repo Repository) error) error
}

var (
	// ScheduleOrderings are the fields schedules can be ordered by.
	ScheduleOrderings = []string{
		"exam_date", "registration_start_date", "registration_end_date",
		"max_applicants", "current_applicants", "status", "created_at",
	}
	// ApplicationOrderings are the fields applications can be ordered by.
	ApplicationOrderings = []string{
		"applicant_name", "exam_number", "application_status", "payment_status", "paid_at", "created_at",
	}
)
