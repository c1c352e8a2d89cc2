package exam

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
)

const DefaultMaxApplicants = 100

// Schedule is one sitting of a certification exam.
type Schedule struct {
	ID                     string         `json:"id"`
	CertificationID        string         `json:"certification_id"`
	ExamDate               core.Date      `json:"exam_date"`
	RegistrationStartDate  core.Date      `json:"registration_start_date"`
	RegistrationEndDate    core.Date      `json:"registration_end_date"`
	ResultAnnouncementDate *core.Date     `json:"result_announcement_date"`
	ExamLocation           string         `json:"exam_location"`
	ExamAddress            *string        `json:"exam_address"`
	MaxApplicants          int            `json:"max_applicants"`
	CurrentApplicants      int            `json:"current_applicants"`
	Status                 ScheduleStatus `json:"status"`
	ExamInstructions       *string        `json:"exam_instructions"`
	RequiredItems          *string        `json:"required_items"`
	CreatedAt              time.Time      `json:"created_at"` // UTC
	UpdatedAt              time.Time      `json:"updated_at"` // UTC

	// DisplayStatus is derived from the registration window on every read; never stored.
	DisplayStatus DisplayStatus `json:"display_status,omitempty"`
}

// RemainingSeats is the number of applications the schedule can still accept.
func (s Schedule) RemainingSeats() int {
	if rem := s.MaxApplicants - s.CurrentApplicants; rem > 0 {
		return rem
	}
	return 0
}

// AcceptsRegistrations reports whether an application submitted on `today` may claim a seat.
func (s Schedule) AcceptsRegistrations(today core.Date) bool {
	return s.Status.AcceptsRegistrations() && DisplayStatusAt(today, s.RegistrationStartDate, s.RegistrationEndDate) == DisplayOpen
}

// Application is one applicant's registration against a Schedule.
type Application struct {
	ID                string            `json:"id"`
	ExamScheduleID    string            `json:"exam_schedule_id"`
	UserID            *string           `json:"user_id"`
	ApplicantName     string            `json:"applicant_name"`
	ApplicantEmail    string            `json:"applicant_email"`
	ApplicantPhone    *string           `json:"applicant_phone"`
	ExamNumber        string            `json:"exam_number"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	PaymentAmount     int64             `json:"payment_amount"`
	PaymentMethod     *string           `json:"payment_method"`
	PaidAt            *time.Time        `json:"paid_at"`
	PassStatus        *bool             `json:"pass_status"`
	WrittenScore      *float64          `json:"written_score"`
	PracticalScore    *float64          `json:"practical_score"`
	TotalScore        *float64          `json:"total_score"`
	ExamTakenAt       *time.Time        `json:"exam_taken_at"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	CreatedAt         time.Time         `json:"created_at"` // UTC
	UpdatedAt         time.Time         `json:"updated_at"` // UTC
}

// IsGraded reports whether a result has been recorded.
func (a Application) IsGraded() bool {
	return a.ExamTakenAt != nil
}

// ApplicationDetail is an Application joined with its schedule and certification.
type ApplicationDetail struct {
	Application
	Schedule      Schedule                    `json:"exam_schedule"`
	Certification certification.Certification `json:"certification"`
}

// ExamResult is the public view of an application, looked up by exam number.
type ExamResult struct {
	ExamNumber             string     `json:"exam_number"`
	ApplicantName          string     `json:"applicant_name"`
	CertificationName      string     `json:"certification_name"`
	ExamDate               core.Date  `json:"exam_date"`
	ExamLocation           string     `json:"exam_location"`
	ResultAnnouncementDate *core.Date `json:"result_announcement_date"`
	ApplicationStatus      string     `json:"application_status"`
	PassStatus             *bool      `json:"pass_status"`
	WrittenScore           *float64   `json:"written_score"`
	PracticalScore         *float64   `json:"practical_score"`
	TotalScore             *float64   `json:"total_score"`
	ExamTakenAt            *time.Time `json:"exam_taken_at"`
}

func (d ApplicationDetail) Result() ExamResult {
	res := ExamResult{
		ExamNumber:             d.ExamNumber,
		ApplicantName:          d.ApplicantName,
		CertificationName:      d.Certification.Name,
		ExamDate:               d.Schedule.ExamDate,
		ExamLocation:           d.Schedule.ExamLocation,
		ResultAnnouncementDate: d.Schedule.ResultAnnouncementDate,
		ApplicationStatus:      string(d.ApplicationStatus),
	}
	if d.IsGraded() {
		res.PassStatus = d.PassStatus
		res.WrittenScore = d.WrittenScore
		res.PracticalScore = d.PracticalScore
		res.TotalScore = d.TotalScore
		res.ExamTakenAt = d.ExamTakenAt
	}
	return res
}

// NewSchedule contains information needed to create a new Schedule.
type NewSchedule struct {
	CertificationID        string         `json:"certification_id" validate:"required,uuid"`
	ExamDate               core.Date      `json:"exam_date" validate:"required"`
	RegistrationStartDate  core.Date      `json:"registration_start_date" validate:"required"`
	RegistrationEndDate    core.Date      `json:"registration_end_date" validate:"required"`
	ResultAnnouncementDate *core.Date     `json:"result_announcement_date"`
	ExamLocation           string         `json:"exam_location" validate:"required,notblank,max=200"`
	ExamAddress            *string        `json:"exam_address" validate:"omitempty,max=500"`
	MaxApplicants          int            `json:"max_applicants" validate:"gte=0"` // 0: default
	Status                 ScheduleStatus `json:"status" validate:"omitempty,oneof=scheduled registration_open"`
	ExamInstructions       *string        `json:"exam_instructions"`
	RequiredItems          *string        `json:"required_items"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.CertificationID = core.CleanString(ns.CertificationID, true /* lower */)
	ns.ExamLocation = core.CleanString(ns.ExamLocation)
	ns.ExamAddress = core.CleanStringPtr(ns.ExamAddress)
	ns.ExamInstructions = core.CleanStringPtr(ns.ExamInstructions)
	ns.RequiredItems = core.CleanStringPtr(ns.RequiredItems)
	ns.ResultAnnouncementDate = cleanDatePtr(ns.ResultAnnouncementDate)
	if ns.Status == "" {
		ns.Status = ScheduleScheduled
	}
	return validate.Struct(ns)
}

// UpdateSchedule replaces the editable fields of a Schedule; every ordering rule is checked
// against the proposed values. A zero MaxApplicants or empty Status keeps the current value.
type UpdateSchedule struct {
	CertificationID        string         `json:"certification_id" validate:"required,uuid"`
	ExamDate               core.Date      `json:"exam_date" validate:"required"`
	RegistrationStartDate  core.Date      `json:"registration_start_date" validate:"required"`
	RegistrationEndDate    core.Date      `json:"registration_end_date" validate:"required"`
	ResultAnnouncementDate *core.Date     `json:"result_announcement_date"`
	ExamLocation           string         `json:"exam_location" validate:"required,notblank,max=200"`
	ExamAddress            *string        `json:"exam_address" validate:"omitempty,max=500"`
	MaxApplicants          int            `json:"max_applicants" validate:"gte=0"`
	Status                 ScheduleStatus `json:"status" validate:"omitempty,schedulestatus"`
	ExamInstructions       *string        `json:"exam_instructions"`
	RequiredItems          *string        `json:"required_items"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	us.CertificationID = core.CleanString(us.CertificationID, true /* lower */)
	us.ExamLocation = core.CleanString(us.ExamLocation)
	us.ExamAddress = core.CleanStringPtr(us.ExamAddress)
	us.ExamInstructions = core.CleanStringPtr(us.ExamInstructions)
	us.RequiredItems = core.CleanStringPtr(us.RequiredItems)
	us.ResultAnnouncementDate = cleanDatePtr(us.ResultAnnouncementDate)
	return validate.Struct(us)
}

type ChangeScheduleStatus struct {
	Status ScheduleStatus `json:"status" validate:"required,schedulestatus"`
}

func (cs ChangeScheduleStatus) Validate(validate *validator.Validate) error { return validate.Struct(cs) }

type ScheduleFilter struct {
	CertificationID string         `query:"certification_id"`
	Status          ScheduleStatus `query:"status"`
	DisplayStatus   DisplayStatus  `query:"display_status"`
	ExamDateFrom    core.Date      `query:"exam_date_from"`
	ExamDateTo      core.Date      `query:"exam_date_to"`
}

func (qf *ScheduleFilter) Clean() {
	qf.CertificationID = core.CleanString(qf.CertificationID, true /* lower */)
	if status, err := ParseScheduleStatus(string(qf.Status)); err == nil {
		qf.Status = status
	} else {
		qf.Status = ScheduleStatus(core.CleanString(string(qf.Status), true /* lower */))
	}
	qf.DisplayStatus = DisplayStatus(core.CleanString(string(qf.DisplayStatus), true /* lower */))
}

// NewApplication contains an applicant's submission against an exam schedule.
type NewApplication struct {
	ExamScheduleID string  `json:"exam_schedule_id" validate:"required,uuid"`
	UserID         *string `json:"user_id" validate:"omitempty,max=100"`
	ApplicantName  string  `json:"applicant_name" validate:"required,notblank,max=100"`
	ApplicantEmail string  `json:"applicant_email" validate:"required,email"`
	ApplicantPhone *string `json:"applicant_phone" validate:"omitempty,max=30"`
	PaymentAmount  *int64  `json:"payment_amount" validate:"omitempty,gte=0"`
	PaymentMethod  *string `json:"payment_method" validate:"omitempty,paymentmethod"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.ExamScheduleID = core.CleanString(na.ExamScheduleID, true /* lower */)
	na.UserID = core.CleanStringPtr(na.UserID)
	na.ApplicantName = core.CleanString(na.ApplicantName)
	na.ApplicantEmail = core.CleanString(na.ApplicantEmail, true /* lower */)
	na.ApplicantPhone = core.CleanStringPtr(na.ApplicantPhone)
	na.PaymentMethod = cleanLowerPtr(na.PaymentMethod)
	return validate.Struct(na)
}

type ConfirmPayment struct {
	PaymentMethod *string    `json:"payment_method" validate:"omitempty,paymentmethod"`
	PaymentAmount *int64     `json:"payment_amount" validate:"omitempty,gte=0"`
	PaidAt        *time.Time `json:"paid_at"`
}

func (cp *ConfirmPayment) Validate(validate *validator.Validate) error {
	cp.PaymentMethod = cleanLowerPtr(cp.PaymentMethod)
	return validate.Struct(cp)
}

type RecordResult struct {
	WrittenScore   *float64   `json:"written_score" validate:"omitempty,gte=0,lte=100"`
	PracticalScore *float64   `json:"practical_score" validate:"omitempty,gte=0,lte=100"`
	TotalScore     *float64   `json:"total_score" validate:"omitempty,gte=0,lte=200"`
	PassStatus     *bool      `json:"pass_status" validate:"required"`
	ExamTakenAt    *time.Time `json:"exam_taken_at"`
}

func (rr *RecordResult) Validate(validate *validator.Validate) error { return validate.Struct(rr) }

// Total is the explicit total score, or the sum of both partial scores when both are known.
func (rr RecordResult) Total() *float64 {
	if rr.TotalScore != nil {
		return rr.TotalScore
	}
	if rr.WrittenScore != nil && rr.PracticalScore != nil {
		total := *rr.WrittenScore + *rr.PracticalScore
		return &total
	}
	return nil
}

type ApplicationFilter struct {
	ExamScheduleID    string            `query:"exam_schedule_id"`
	ApplicationStatus ApplicationStatus `query:"application_status"`
	PaymentStatus     PaymentStatus     `query:"payment_status"`
	// Search does a case-insensitive match on applicant name, email or exam number.
	Search string `query:"search"`
}

func (qf *ApplicationFilter) Clean() {
	qf.ExamScheduleID = core.CleanString(qf.ExamScheduleID, true /* lower */)
	qf.ApplicationStatus = ApplicationStatus(core.CleanString(string(qf.ApplicationStatus), true /* lower */))
	qf.PaymentStatus = PaymentStatus(core.CleanString(string(qf.PaymentStatus), true /* lower */))
	qf.Search = core.CleanString(qf.Search)
}

// CertificationFinder resolves the certification a schedule refers to.
type CertificationFinder interface {
	GetByID(ctx context.Context, id string) (certification.Certification, error)
}

func cleanDatePtr(d *core.Date) *core.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func cleanLowerPtr(s *string) *string {
	if s = core.CleanStringPtr(s); s != nil {
		lower := core.CleanString(*s, true /* lower */)
		return &lower
	}
	return nil
}
