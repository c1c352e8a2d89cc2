package exam

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
)

type (
	ApplicationService interface {
		SubmitApplication(ctx context.Context, na NewApplication) (Application, error)
		ConfirmPayment(ctx context.Context, id string, cp ConfirmPayment) (Application, error)
		CancelApplication(ctx context.Context, id string) (Application, error)
		RecordResult(ctx context.Context, id string, rr RecordResult) (Application, error)
		LookupByExamNumber(ctx context.Context, examNumber string) (ApplicationDetail, error)
		GetApplication(ctx context.Context, id string) (ApplicationDetail, error)
		QueryApplications(ctx context.Context, filter *ApplicationFilter, ordering []core.DBOrdering) ([]Application, error)
	}

	applicationService struct {
		store    Store
		certs    CertificationFinder
		validate *validator.Validate
		mailSvc  core.EmailService
		conf     *core.Config
		logger   core.Logger
	}
)

var _ ApplicationService = (*applicationService)(nil)

func NewApplicationService(
	store Store,
	certs CertificationFinder,
	validate *validator.Validate,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) ApplicationService {
	return &applicationService{
		store:    store,
		certs:    certs,
		validate: validate,
		mailSvc:  mailSvc,
		conf:     conf,
		logger:   logger,
	}
}

// ExamNumber formats an exam number. seq comes from the store-wide exam number sequence,
// which makes the number unique across schedules and certifications.
func ExamNumber(registrationNumber string, examDate core.Date, seq int) string {
	prefix := certification.NormalizeRegistrationNumber(registrationNumber)
	return fmt.Sprintf("%s-%s-%04d", prefix, examDate.Format("060102"), seq)
}

// applicant is the person behind an application, for error reports.
func applicant(app Application) core.Actor {
	actor := core.Actor{ID: app.ApplicantEmail, Name: app.ApplicantName, Email: app.ApplicantEmail}
	if app.UserID != nil {
		actor.ID = *app.UserID
	}
	return actor
}

func (svc *applicationService) SubmitApplication(ctx context.Context, na NewApplication) (Application, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Application{}, err
	}
	sched, err := svc.store.GetSchedule(ctx, na.ExamScheduleID)
	if err != nil {
		return Application{}, err
	}
	cert, err := svc.certs.GetByID(ctx, sched.CertificationID)
	if err != nil {
		return Application{}, errors.Wrap(err, "getting exam schedule certification")
	}

	today := core.DateOf(svc.conf.Today())
	now := core.Now()
	app := Application{
		ExamScheduleID:    sched.ID,
		UserID:            na.UserID,
		ApplicantName:     na.ApplicantName,
		ApplicantEmail:    na.ApplicantEmail,
		ApplicantPhone:    na.ApplicantPhone,
		ApplicationStatus: ApplicationPaymentPending,
		PaymentStatus:     PaymentUnpaid,
		PaymentAmount:     cert.ApplicationFee,
		PaymentMethod:     na.PaymentMethod,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if na.PaymentAmount != nil {
		app.PaymentAmount = *na.PaymentAmount
	}

	err = svc.store.Atomic(ctx, func(repo Repository) error {
		seq, err := repo.ClaimSeat(ctx, sched.ID, today, now)
		if errors.Cause(err) == ErrNoSeat {
			return svc.noSeatError(ctx, repo, sched.ID, today)
		}
		if err != nil {
			return err
		}
		app.ExamNumber = ExamNumber(cert.RegistrationNumber, sched.ExamDate, seq)
		app, err = repo.CreateApplication(ctx, app)
		return err
	})
	if err != nil {
		return Application{}, err
	}

	svc.logger.Info(fmt.Sprintf("exam application %s (%s) submitted on schedule %s", app.ID, app.ExamNumber, sched.ID), applicant(app))
	svc.notify(applicationReceivedMessage(ApplicationDetail{Application: app, Schedule: sched, Certification: cert}))
	return app, nil
}

// noSeatError explains why ClaimSeat matched nothing.
func (svc *applicationService) noSeatError(ctx context.Context, repo Repository, scheduleID string, today core.Date) error {
	sched, err := repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !sched.Status.AcceptsRegistrations() {
		return core.NewFieldError("exam_schedule_id",
			fmt.Sprintf("exam schedule is not accepting registrations (status: %s)", sched.Status))
	}
	switch DisplayStatusAt(today, sched.RegistrationStartDate, sched.RegistrationEndDate) {
	case DisplayUpcoming:
		return core.NewFieldError("exam_schedule_id",
			fmt.Sprintf("registration opens on %s", sched.RegistrationStartDate))
	case DisplayClosed:
		return core.NewFieldError("exam_schedule_id",
			fmt.Sprintf("registration closed on %s", sched.RegistrationEndDate))
	}
	return core.NewCapacityError(sched.MaxApplicants)
}

func (svc *applicationService) ConfirmPayment(ctx context.Context, id string, cp ConfirmPayment) (Application, error) {
	if err := cp.Validate(svc.validate); err != nil {
		return Application{}, err
	}

	var app Application
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		var err error
		if app, err = repo.LockApplication(ctx, id); err != nil {
			return err
		}
		switch app.ApplicationStatus {
		case ApplicationCancelled:
			return ErrApplicationNotFound
		case ApplicationConfirmed:
			return core.NewFieldError("application_status", "payment is already confirmed")
		}

		now := core.Now()
		paidAt := now
		if cp.PaidAt != nil {
			paidAt = cp.PaidAt.UTC()
		}
		app.ApplicationStatus = ApplicationConfirmed
		app.PaymentStatus = PaymentPaid
		app.PaidAt = &paidAt
		if cp.PaymentMethod != nil {
			app.PaymentMethod = cp.PaymentMethod
		}
		if cp.PaymentAmount != nil {
			app.PaymentAmount = *cp.PaymentAmount
		}
		app.UpdatedAt = now
		app, err = repo.UpdateApplication(ctx, app)
		return err
	})
	if err != nil {
		return Application{}, err
	}

	svc.logger.Info(fmt.Sprintf("exam application %s payment confirmed", app.ID))
	svc.notifyDetail(ctx, app, paymentConfirmedMessage)
	return app, nil
}

func (svc *applicationService) CancelApplication(ctx context.Context, id string) (Application, error) {
	var app Application
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		var err error
		if app, err = repo.LockApplication(ctx, id); err != nil {
			return err
		}
		if !app.ApplicationStatus.CanTransitionTo(ApplicationCancelled) {
			return core.NewFieldError("application_status",
				fmt.Sprintf("cannot cancel a %s application", app.ApplicationStatus))
		}
		if app.IsGraded() {
			return core.NewFieldError("application_status", "cannot cancel a graded application")
		}

		now := core.Now()
		app.ApplicationStatus = ApplicationCancelled
		app.CancelledAt = &now
		if app.PaymentStatus == PaymentPaid {
			app.PaymentStatus = PaymentRefundPending
		}
		app.UpdatedAt = now
		if app, err = repo.UpdateApplication(ctx, app); err != nil {
			return err
		}
		return repo.ReleaseSeat(ctx, app.ExamScheduleID, now)
	})
	if err != nil {
		return Application{}, err
	}

	svc.logger.Info(fmt.Sprintf("exam application %s cancelled", app.ID), applicant(app))
	svc.notifyDetail(ctx, app, applicationCancelledMessage)
	return app, nil
}

func (svc *applicationService) RecordResult(ctx context.Context, id string, rr RecordResult) (Application, error) {
	if err := rr.Validate(svc.validate); err != nil {
		return Application{}, err
	}

	var app Application
	err := svc.store.Atomic(ctx, func(repo Repository) error {
		var err error
		if app, err = repo.LockApplication(ctx, id); err != nil {
			return err
		}
		if app.ApplicationStatus != ApplicationConfirmed {
			return core.NewFieldError("application_status",
				fmt.Sprintf("cannot record the result of a %s application", app.ApplicationStatus))
		}

		now := core.Now()
		takenAt := now
		if rr.ExamTakenAt != nil {
			takenAt = rr.ExamTakenAt.UTC()
		}
		app.WrittenScore = rr.WrittenScore
		app.PracticalScore = rr.PracticalScore
		app.TotalScore = rr.Total()
		app.PassStatus = rr.PassStatus
		app.ExamTakenAt = &takenAt
		app.UpdatedAt = now
		app, err = repo.UpdateApplication(ctx, app)
		return err
	})
	if err != nil {
		return Application{}, err
	}

	svc.logger.Info(fmt.Sprintf("exam application %s graded (passed: %t)", app.ID, *app.PassStatus))
	svc.notifyDetail(ctx, app, resultRecordedMessage)
	return app, nil
}

func (svc *applicationService) LookupByExamNumber(ctx context.Context, examNumber string) (ApplicationDetail, error) {
	examNumber = strings.ToUpper(core.CleanString(examNumber))
	if examNumber == "" {
		return ApplicationDetail{}, ErrApplicationNotFound
	}
	app, err := svc.store.GetApplicationByExamNumber(ctx, examNumber)
	if err != nil {
		return ApplicationDetail{}, err
	}
	return svc.detail(ctx, app)
}

func (svc *applicationService) GetApplication(ctx context.Context, id string) (ApplicationDetail, error) {
	app, err := svc.store.GetApplication(ctx, id)
	if err != nil {
		return ApplicationDetail{}, err
	}
	return svc.detail(ctx, app)
}

func (svc *applicationService) QueryApplications(ctx context.Context, filter *ApplicationFilter, ordering []core.DBOrdering) ([]Application, error) {
	return svc.store.QueryApplications(ctx, filter, ordering)
}

func (svc *applicationService) detail(ctx context.Context, app Application) (ApplicationDetail, error) {
	sched, err := svc.store.GetSchedule(ctx, app.ExamScheduleID)
	if err != nil {
		return ApplicationDetail{}, errors.Wrap(err, "getting application exam schedule")
	}
	cert, err := svc.certs.GetByID(ctx, sched.CertificationID)
	if err != nil {
		return ApplicationDetail{}, errors.Wrap(err, "getting application certification")
	}
	return ApplicationDetail{
		Application:   app,
		Schedule:      sched.WithDisplayStatus(core.DateOf(svc.conf.Today())),
		Certification: cert,
	}, nil
}

func (svc *applicationService) notify(msg *core.EmailMessage) {
	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msg)
	}
}

// notifyDetail mails the applicant once the state change is committed; a failed lookup only gets logged.
func (svc *applicationService) notifyDetail(ctx context.Context, app Application, build func(ApplicationDetail) *core.EmailMessage) {
	if svc.mailSvc == nil {
		return
	}
	d, err := svc.detail(ctx, app)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("exam application %s notification: %v", app.ID, err), err)
		return
	}
	svc.notify(build(d))
}
