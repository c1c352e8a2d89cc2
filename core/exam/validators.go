package exam

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/assoc/core"
)

var (
	scheduleStatusTag  = "schedulestatus"
	scheduleStatusText = "invalid exam schedule status"

	paymentMethodTag  = "paymentmethod"
	paymentMethodText = "payment method must be one of bank_transfer, card, cash"

	regWindowTag  = "regwindow"
	regWindowText = "registration end date must be after the registration start date"

	examAfterRegTag  = "examafterreg"
	examAfterRegText = "exam date must be after the registration end date"

	resultAfterExamTag  = "resultafterexam"
	resultAfterExamText = "result announcement date must be after the exam date"
)

// InitValidators registers the exam validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(scheduleStatusTag, scheduleStatusValidation)
	core.RegisterCustomTranslation(validate, translator, scheduleStatusTag, scheduleStatusText)

	_ = validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(validate, translator, paymentMethodTag, paymentMethodText)

	validate.RegisterStructValidation(scheduleStructValidation, NewSchedule{}, UpdateSchedule{})
	core.RegisterCustomTranslation(validate, translator, regWindowTag, regWindowText)
	core.RegisterCustomTranslation(validate, translator, examAfterRegTag, examAfterRegText)
	core.RegisterCustomTranslation(validate, translator, resultAfterExamTag, resultAfterExamText)
}

// Custom Validators

func scheduleStatusValidation(fl validator.FieldLevel) bool {
	if st, ok := fl.Field().Interface().(ScheduleStatus); ok {
		return st.IsValid()
	}
	return false
}

func paymentMethodValidation(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case string:
		return isPaymentMethod(v)
	case *string:
		return v != nil && isPaymentMethod(*v)
	}
	return false
}

// scheduleStructValidation checks the date ordering of NewSchedule and UpdateSchedule:
// registration start < registration end < exam date < result announcement.
func scheduleStructValidation(sl validator.StructLevel) {
	var regStart, regEnd, examDate core.Date
	var resultDate *core.Date

	switch s := sl.Current().Interface().(type) {
	case NewSchedule:
		regStart, regEnd, examDate, resultDate = s.RegistrationStartDate, s.RegistrationEndDate, s.ExamDate, s.ResultAnnouncementDate
	case UpdateSchedule:
		regStart, regEnd, examDate, resultDate = s.RegistrationStartDate, s.RegistrationEndDate, s.ExamDate, s.ResultAnnouncementDate
	default:
		return
	}

	// missing dates are reported by `required`
	if !regStart.IsZero() && !regEnd.IsZero() && !regStart.Before(regEnd) {
		sl.ReportError(regEnd, "registration_end_date", "RegistrationEndDate", regWindowTag, "")
	}
	if !regEnd.IsZero() && !examDate.IsZero() && !regEnd.Before(examDate) {
		sl.ReportError(examDate, "exam_date", "ExamDate", examAfterRegTag, "")
	}
	if resultDate != nil && !examDate.IsZero() && !resultDate.After(examDate) {
		sl.ReportError(*resultDate, "result_announcement_date", "ResultAnnouncementDate", resultAfterExamTag, "")
	}
}
