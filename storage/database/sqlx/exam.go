package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
)

const (
	scheduleColumns = `id, certification_id, exam_date, registration_start_date, registration_end_date,
		result_announcement_date, exam_location, exam_address, max_applicants, current_applicants,
		status, exam_instructions, required_items, created_at, updated_at`

	applicationColumns = `id, exam_schedule_id, user_id, applicant_name, applicant_email, applicant_phone,
		exam_number, application_status, payment_status, payment_amount, payment_method, paid_at,
		pass_status, written_score, practical_score, total_score, exam_taken_at, cancelled_at,
		created_at, updated_at`
)

type (
	scheduleRow struct {
		ID                     string      `db:"id"`
		CertificationID        string      `db:"certification_id"`
		ExamDate               core.Date   `db:"exam_date"`
		RegistrationStartDate  core.Date   `db:"registration_start_date"`
		RegistrationEndDate    core.Date   `db:"registration_end_date"`
		ResultAnnouncementDate null.Time   `db:"result_announcement_date"`
		ExamLocation           string      `db:"exam_location"`
		ExamAddress            null.String `db:"exam_address"`
		MaxApplicants          int         `db:"max_applicants"`
		CurrentApplicants      int         `db:"current_applicants"`
		Status                 string      `db:"status"`
		ExamInstructions       null.String `db:"exam_instructions"`
		RequiredItems          null.String `db:"required_items"`
		CreatedAt              time.Time   `db:"created_at"`
		UpdatedAt              time.Time   `db:"updated_at"`
	}

	applicationRow struct {
		ID                string       `db:"id"`
		ExamScheduleID    string       `db:"exam_schedule_id"`
		UserID            null.String  `db:"user_id"`
		ApplicantName     string       `db:"applicant_name"`
		ApplicantEmail    string       `db:"applicant_email"`
		ApplicantPhone    null.String  `db:"applicant_phone"`
		ExamNumber        string       `db:"exam_number"`
		ApplicationStatus string       `db:"application_status"`
		PaymentStatus     string       `db:"payment_status"`
		PaymentAmount     int64        `db:"payment_amount"`
		PaymentMethod     null.String  `db:"payment_method"`
		PaidAt            null.Time    `db:"paid_at"`
		PassStatus        null.Bool    `db:"pass_status"`
		WrittenScore      null.Float64 `db:"written_score"`
		PracticalScore    null.Float64 `db:"practical_score"`
		TotalScore        null.Float64 `db:"total_score"`
		ExamTakenAt       null.Time    `db:"exam_taken_at"`
		CancelledAt       null.Time    `db:"cancelled_at"`
		CreatedAt         time.Time    `db:"created_at"`
		UpdatedAt         time.Time    `db:"updated_at"`
	}
)

func boilSchedule(s exam.Schedule) scheduleRow {
	row := scheduleRow{
		ID:                    s.ID,
		CertificationID:       s.CertificationID,
		ExamDate:              s.ExamDate,
		RegistrationStartDate: s.RegistrationStartDate,
		RegistrationEndDate:   s.RegistrationEndDate,
		ExamLocation:          s.ExamLocation,
		ExamAddress:           null.StringFromPtr(s.ExamAddress),
		MaxApplicants:         s.MaxApplicants,
		CurrentApplicants:     s.CurrentApplicants,
		Status:                string(s.Status),
		ExamInstructions:      null.StringFromPtr(s.ExamInstructions),
		RequiredItems:         null.StringFromPtr(s.RequiredItems),
		CreatedAt:             s.CreatedAt.UTC(),
		UpdatedAt:             s.UpdatedAt.UTC(),
	}
	if s.ResultAnnouncementDate != nil {
		row.ResultAnnouncementDate = null.TimeFrom(s.ResultAnnouncementDate.Time)
	}
	return row
}

func unboilSchedule(row scheduleRow) exam.Schedule {
	sched := exam.Schedule{
		ID:                    row.ID,
		CertificationID:       row.CertificationID,
		ExamDate:              row.ExamDate,
		RegistrationStartDate: row.RegistrationStartDate,
		RegistrationEndDate:   row.RegistrationEndDate,
		ExamLocation:          row.ExamLocation,
		ExamAddress:           row.ExamAddress.Ptr(),
		MaxApplicants:         row.MaxApplicants,
		CurrentApplicants:     row.CurrentApplicants,
		ExamInstructions:      row.ExamInstructions.Ptr(),
		RequiredItems:         row.RequiredItems.Ptr(),
		CreatedAt:             row.CreatedAt.UTC(),
		UpdatedAt:             row.UpdatedAt.UTC(),
	}
	if status, err := exam.ParseScheduleStatus(row.Status); err == nil {
		sched.Status = status
	} else {
		sched.Status = exam.ScheduleStatus(row.Status)
	}
	if row.ResultAnnouncementDate.Valid {
		d := core.DateOf(row.ResultAnnouncementDate.Time)
		sched.ResultAnnouncementDate = &d
	}
	return sched
}

func boilApplication(a exam.Application) applicationRow {
	return applicationRow{
		ID:                a.ID,
		ExamScheduleID:    a.ExamScheduleID,
		UserID:            null.StringFromPtr(a.UserID),
		ApplicantName:     a.ApplicantName,
		ApplicantEmail:    a.ApplicantEmail,
		ApplicantPhone:    null.StringFromPtr(a.ApplicantPhone),
		ExamNumber:        a.ExamNumber,
		ApplicationStatus: string(a.ApplicationStatus),
		PaymentStatus:     string(a.PaymentStatus),
		PaymentAmount:     a.PaymentAmount,
		PaymentMethod:     null.StringFromPtr(a.PaymentMethod),
		PaidAt:            utcTime(a.PaidAt),
		PassStatus:        null.BoolFromPtr(a.PassStatus),
		WrittenScore:      null.Float64FromPtr(a.WrittenScore),
		PracticalScore:    null.Float64FromPtr(a.PracticalScore),
		TotalScore:        null.Float64FromPtr(a.TotalScore),
		ExamTakenAt:       utcTime(a.ExamTakenAt),
		CancelledAt:       utcTime(a.CancelledAt),
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
	}
}

func unboilApplication(row applicationRow) exam.Application {
	return exam.Application{
		ID:                row.ID,
		ExamScheduleID:    row.ExamScheduleID,
		UserID:            row.UserID.Ptr(),
		ApplicantName:     row.ApplicantName,
		ApplicantEmail:    row.ApplicantEmail,
		ApplicantPhone:    row.ApplicantPhone.Ptr(),
		ExamNumber:        row.ExamNumber,
		ApplicationStatus: exam.ApplicationStatus(row.ApplicationStatus),
		PaymentStatus:     exam.PaymentStatus(row.PaymentStatus),
		PaymentAmount:     row.PaymentAmount,
		PaymentMethod:     row.PaymentMethod.Ptr(),
		PaidAt:            row.PaidAt.Ptr(),
		PassStatus:        row.PassStatus.Ptr(),
		WrittenScore:      row.WrittenScore.Ptr(),
		PracticalScore:    row.PracticalScore.Ptr(),
		TotalScore:        row.TotalScore.Ptr(),
		ExamTakenAt:       row.ExamTakenAt.Ptr(),
		CancelledAt:       row.CancelledAt.Ptr(),
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

func utcTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type examStore struct {
	db   core.DB
	exec core.DBExecutor
}

var _ exam.Store = (*examStore)(nil) // interface compliance check

func NewExamStore(db core.DB) exam.Store {
	return &examStore{db: db, exec: db}
}

// Atomic runs fn in a transaction; nested calls join the current one.
func (s *examStore) Atomic(ctx context.Context, fn func(repo exam.Repository) error) error {
	if _, inTx := s.exec.(core.DBTransactor); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&examStore{db: s.db, exec: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapConstraintErr maps FK / unique violations to domain errors.
func trapConstraintErr(err error, msg string) error {
	code, constraint := pqErrorCode(err)
	switch {
	case code == pqForeignKeyViolation && constraint == "exam_schedules_certification_id_fkey":
		return certification.ErrNotFound
	case code == pqForeignKeyViolation && constraint == "exam_applications_exam_schedule_id_fkey":
		return exam.ErrScheduleNotFound
	case code == pqUniqueViolation && constraint == "exam_applications_exam_number_key":
		return exam.ErrExamNumberExists
	}
	return errors.Wrap(err, msg)
}

// Schedules

func (s *examStore) CreateSchedule(ctx context.Context, sched exam.Schedule) (exam.Schedule, error) {
	sched.ID = uuid.New().String()
	sched.CurrentApplicants = 0
	row := boilSchedule(sched)

	q := s.exec.Rebind(`INSERT INTO exam_schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.exec.ExecContext(ctx, q,
		row.ID, row.CertificationID, row.ExamDate, row.RegistrationStartDate, row.RegistrationEndDate,
		row.ResultAnnouncementDate, row.ExamLocation, row.ExamAddress, row.MaxApplicants, row.CurrentApplicants,
		row.Status, row.ExamInstructions, row.RequiredItems, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return exam.Schedule{}, trapConstraintErr(err, "inserting exam schedule")
	}
	return sched, nil
}

func (s *examStore) getSchedule(ctx context.Context, id string, forUpdate bool) (exam.Schedule, error) {
	if !isUUID(id) {
		return exam.Schedule{}, exam.ErrScheduleNotFound
	}
	q := "SELECT " + scheduleColumns + " FROM exam_schedules WHERE id = ?"
	if forUpdate {
		q += " FOR UPDATE"
	}

	var row scheduleRow
	if err := s.exec.GetContext(ctx, &row, s.exec.Rebind(q), id); err != nil {
		return exam.Schedule{}, trapNoRowsErr(err, exam.ErrScheduleNotFound, "finding exam schedule")
	}
	return unboilSchedule(row), nil
}

func (s *examStore) GetSchedule(ctx context.Context, id string) (exam.Schedule, error) {
	return s.getSchedule(ctx, id, false)
}

func (s *examStore) LockSchedule(ctx context.Context, id string) (exam.Schedule, error) {
	return s.getSchedule(ctx, id, true)
}

func (s *examStore) QuerySchedules(ctx context.Context, filter *exam.ScheduleFilter, ordering []core.DBOrdering) ([]exam.Schedule, error) {
	var w where
	if filter != nil {
		if filter.CertificationID != "" {
			if !isUUID(filter.CertificationID) {
				return []exam.Schedule{}, nil
			}
			w.add("certification_id = ?", filter.CertificationID)
		}
		if filter.Status != "" {
			w.add("status = ?", string(filter.Status))
		}
		if !filter.ExamDateFrom.IsZero() {
			w.add("exam_date >= ?", filter.ExamDateFrom)
		}
		if !filter.ExamDateTo.IsZero() {
			w.add("exam_date <= ?", filter.ExamDateTo)
		}
	}

	var rows []scheduleRow
	q := s.exec.Rebind("SELECT " + scheduleColumns + " FROM exam_schedules" + w.String() +
		orderBy(ordering, exam.ScheduleOrderings, core.DBOrdering{Field: "exam_date", Ascending: true}))
	if err := s.exec.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying exam schedules")
	}

	scheds := make([]exam.Schedule, 0, len(rows))
	for _, row := range rows {
		scheds = append(scheds, unboilSchedule(row))
	}
	return scheds, nil
}

func (s *examStore) UpdateSchedule(ctx context.Context, sched exam.Schedule) (exam.Schedule, error) {
	if !isUUID(sched.ID) {
		return exam.Schedule{}, exam.ErrScheduleNotFound
	}
	in := boilSchedule(sched)

	var row scheduleRow
	q := s.exec.Rebind(`UPDATE exam_schedules SET
			certification_id = ?, exam_date = ?, registration_start_date = ?, registration_end_date = ?,
			result_announcement_date = ?, exam_location = ?, exam_address = ?, max_applicants = ?,
			status = ?, exam_instructions = ?, required_items = ?, updated_at = ?
		WHERE id = ? AND current_applicants <= ?
		RETURNING ` + scheduleColumns)
	err := s.exec.GetContext(ctx, &row, q,
		in.CertificationID, in.ExamDate, in.RegistrationStartDate, in.RegistrationEndDate,
		in.ResultAnnouncementDate, in.ExamLocation, in.ExamAddress, in.MaxApplicants,
		in.Status, in.ExamInstructions, in.RequiredItems, in.UpdatedAt,
		in.ID, in.MaxApplicants)
	if err == nil {
		return unboilSchedule(row), nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return exam.Schedule{}, trapConstraintErr(err, "updating exam schedule")
	}

	// nothing matched: either the schedule is gone or the capacity guard failed
	if _, err = s.GetSchedule(ctx, sched.ID); err != nil {
		return exam.Schedule{}, err
	}
	return exam.Schedule{}, exam.ErrMaxBelowCurrent
}

func (s *examStore) DeleteSchedule(ctx context.Context, id string) error {
	if !isUUID(id) {
		return exam.ErrScheduleNotFound
	}
	res, err := s.exec.ExecContext(ctx, s.exec.Rebind("DELETE FROM exam_schedules WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting exam schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.ErrScheduleNotFound
	}
	return nil
}

// ClaimSeat is the capacity check and the counter increment in one statement, so concurrent
// submissions cannot both take the last seat. The exam number sequence is global and is not
// rolled back with the transaction: gaps are expected, reuse is impossible.
func (s *examStore) ClaimSeat(ctx context.Context, scheduleID string, today core.Date, now time.Time) (int, error) {
	if !isUUID(scheduleID) {
		return 0, exam.ErrNoSeat
	}

	var seq int
	q := s.exec.Rebind(`UPDATE exam_schedules
		SET current_applicants = current_applicants + 1, updated_at = ?
		WHERE id = ?
			AND current_applicants < max_applicants
			AND status IN (?, ?)
			AND registration_start_date <= ? AND registration_end_date >= ?
		RETURNING nextval('exam_numbers_seq')`)
	err := s.exec.GetContext(ctx, &seq, q,
		now.UTC(), scheduleID,
		string(exam.ScheduleScheduled), string(exam.ScheduleRegistrationOpen),
		today, today)
	if err != nil {
		return 0, trapNoRowsErr(err, exam.ErrNoSeat, "claiming exam schedule seat")
	}
	return seq, nil
}

func (s *examStore) ReleaseSeat(ctx context.Context, scheduleID string, now time.Time) error {
	q := s.exec.Rebind(`UPDATE exam_schedules
		SET current_applicants = GREATEST(current_applicants - 1, 0), updated_at = ?
		WHERE id = ?`)
	res, err := s.exec.ExecContext(ctx, q, now.UTC(), scheduleID)
	if err != nil {
		return errors.Wrap(err, "releasing exam schedule seat")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.ErrScheduleNotFound
	}
	return nil
}

// Applications

func (s *examStore) CreateApplication(ctx context.Context, app exam.Application) (exam.Application, error) {
	app.ID = uuid.New().String()
	row := boilApplication(app)

	q := s.exec.Rebind(`INSERT INTO exam_applications (` + applicationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.exec.ExecContext(ctx, q,
		row.ID, row.ExamScheduleID, row.UserID, row.ApplicantName, row.ApplicantEmail, row.ApplicantPhone,
		row.ExamNumber, row.ApplicationStatus, row.PaymentStatus, row.PaymentAmount, row.PaymentMethod, row.PaidAt,
		row.PassStatus, row.WrittenScore, row.PracticalScore, row.TotalScore, row.ExamTakenAt, row.CancelledAt,
		row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return exam.Application{}, trapConstraintErr(err, "inserting exam application")
	}
	return app, nil
}

func (s *examStore) getApplication(ctx context.Context, cond string, arg interface{}, forUpdate bool) (exam.Application, error) {
	q := "SELECT " + applicationColumns + " FROM exam_applications WHERE " + cond
	if forUpdate {
		q += " FOR UPDATE"
	}

	var row applicationRow
	if err := s.exec.GetContext(ctx, &row, s.exec.Rebind(q), arg); err != nil {
		return exam.Application{}, trapNoRowsErr(err, exam.ErrApplicationNotFound, "finding exam application")
	}
	return unboilApplication(row), nil
}

func (s *examStore) GetApplication(ctx context.Context, id string) (exam.Application, error) {
	if !isUUID(id) {
		return exam.Application{}, exam.ErrApplicationNotFound
	}
	return s.getApplication(ctx, "id = ?", id, false)
}

func (s *examStore) LockApplication(ctx context.Context, id string) (exam.Application, error) {
	if !isUUID(id) {
		return exam.Application{}, exam.ErrApplicationNotFound
	}
	return s.getApplication(ctx, "id = ?", id, true)
}

func (s *examStore) GetApplicationByExamNumber(ctx context.Context, examNumber string) (exam.Application, error) {
	return s.getApplication(ctx, "exam_number = ?", examNumber, false)
}

func (s *examStore) QueryApplications(ctx context.Context, filter *exam.ApplicationFilter, ordering []core.DBOrdering) ([]exam.Application, error) {
	var w where
	if filter != nil {
		if filter.ExamScheduleID != "" {
			if !isUUID(filter.ExamScheduleID) {
				return []exam.Application{}, nil
			}
			w.add("exam_schedule_id = ?", filter.ExamScheduleID)
		}
		if filter.ApplicationStatus != "" {
			w.add("application_status = ?", string(filter.ApplicationStatus))
		}
		if filter.PaymentStatus != "" {
			w.add("payment_status = ?", string(filter.PaymentStatus))
		}
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(applicant_name ILIKE ? OR applicant_email ILIKE ? OR exam_number ILIKE ?)", val, val, val)
		}
	}

	var rows []applicationRow
	q := s.exec.Rebind("SELECT " + applicationColumns + " FROM exam_applications" + w.String() +
		orderBy(ordering, exam.ApplicationOrderings, core.DBOrdering{Field: "created_at", Ascending: false}))
	if err := s.exec.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying exam applications")
	}

	apps := make([]exam.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, unboilApplication(row))
	}
	return apps, nil
}

func (s *examStore) UpdateApplication(ctx context.Context, app exam.Application) (exam.Application, error) {
	if !isUUID(app.ID) {
		return exam.Application{}, exam.ErrApplicationNotFound
	}
	in := boilApplication(app)

	var row applicationRow
	q := s.exec.Rebind(`UPDATE exam_applications SET
			user_id = ?, applicant_name = ?, applicant_email = ?, applicant_phone = ?,
			application_status = ?, payment_status = ?, payment_amount = ?, payment_method = ?, paid_at = ?,
			pass_status = ?, written_score = ?, practical_score = ?, total_score = ?, exam_taken_at = ?,
			cancelled_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + applicationColumns)
	err := s.exec.GetContext(ctx, &row, q,
		in.UserID, in.ApplicantName, in.ApplicantEmail, in.ApplicantPhone,
		in.ApplicationStatus, in.PaymentStatus, in.PaymentAmount, in.PaymentMethod, in.PaidAt,
		in.PassStatus, in.WrittenScore, in.PracticalScore, in.TotalScore, in.ExamTakenAt,
		in.CancelledAt, in.UpdatedAt,
		in.ID)
	if err != nil {
		return exam.Application{}, trapNoRowsErr(err, exam.ErrApplicationNotFound, "updating exam application")
	}
	return unboilApplication(row), nil
}

func (s *examStore) CountActiveApplications(ctx context.Context, scheduleID string) (int, error) {
	var cnt int
	q := s.exec.Rebind("SELECT COUNT(*) FROM exam_applications WHERE exam_schedule_id = ? AND application_status <> ?")
	if err := s.exec.GetContext(ctx, &cnt, q, scheduleID, string(exam.ApplicationCancelled)); err != nil {
		return 0, errors.Wrap(err, "counting active exam applications")
	}
	return cnt, nil
}

func (s *examStore) DeleteCancelledApplications(ctx context.Context, scheduleID string) (int, error) {
	q := s.exec.Rebind("DELETE FROM exam_applications WHERE exam_schedule_id = ? AND application_status = ?")
	res, err := s.exec.ExecContext(ctx, q, scheduleID, string(exam.ApplicationCancelled))
	if err != nil {
		return 0, errors.Wrap(err, "deleting cancelled exam applications")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting cancelled exam applications")
	}
	return int(n), nil
}
