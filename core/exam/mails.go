package exam

import (
	"fmt"
	"net/mail"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
)

const (
	tmplApplicationReceived  = "application_received"
	tmplPaymentConfirmed     = "payment_confirmed"
	tmplApplicationCancelled = "application_cancelled"
	tmplResultRecorded       = "result_recorded"
)

type mailData struct {
	ApplicantName     string
	CertificationName string
	ExamDate          string
	ExamLocation      string
	ExamNumber        string
	PaymentAmount     string
	Passed            bool
}

func newMailData(app Application, sched Schedule, cert certification.Certification) mailData {
	data := mailData{
		ApplicantName:     app.ApplicantName,
		CertificationName: cert.Name,
		ExamDate:          sched.ExamDate.String(),
		ExamLocation:      sched.ExamLocation,
		ExamNumber:        app.ExamNumber,
		PaymentAmount:     fmt.Sprintf("%d", app.PaymentAmount),
	}
	if app.PassStatus != nil {
		data.Passed = *app.PassStatus
	}
	return data
}

func newApplicantMessage(tmpl, subject string, data mailData, email string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: data.ApplicantName, Address: email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	}
}

func applicationReceivedMessage(d ApplicationDetail) *core.EmailMessage {
	data := newMailData(d.Application, d.Schedule, d.Certification)
	return newApplicantMessage(tmplApplicationReceived, "Exam Application Received", data, d.ApplicantEmail)
}

func paymentConfirmedMessage(d ApplicationDetail) *core.EmailMessage {
	data := newMailData(d.Application, d.Schedule, d.Certification)
	return newApplicantMessage(tmplPaymentConfirmed, "Payment Confirmed", data, d.ApplicantEmail)
}

func applicationCancelledMessage(d ApplicationDetail) *core.EmailMessage {
	data := newMailData(d.Application, d.Schedule, d.Certification)
	return newApplicantMessage(tmplApplicationCancelled, "Exam Application Cancelled", data, d.ApplicantEmail)
}

func resultRecordedMessage(d ApplicationDetail) *core.EmailMessage {
	data := newMailData(d.Application, d.Schedule, d.Certification)
	return newApplicantMessage(tmplResultRecorded, "Exam Result Available", data, d.ApplicantEmail)
}
