package exam

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
)

type (
	ScheduleStatus    string
	ApplicationStatus string
	PaymentStatus     string
)

const (
	ScheduleScheduled          ScheduleStatus = "scheduled"
	ScheduleRegistrationOpen   ScheduleStatus = "registration_open"
	ScheduleRegistrationClosed ScheduleStatus = "registration_closed"
	ScheduleInProgress         ScheduleStatus = "in_progress"
	ScheduleCompleted          ScheduleStatus = "completed"
	ScheduleCancelled          ScheduleStatus = "cancelled"

	ApplicationPaymentPending ApplicationStatus = "payment_pending"
	ApplicationConfirmed      ApplicationStatus = "confirmed"
	ApplicationCancelled      ApplicationStatus = "cancelled"

	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefundPending PaymentStatus = "refund_pending"
)

var (
	ScheduleStatuses = []ScheduleStatus{
		ScheduleScheduled,
		ScheduleRegistrationOpen,
		ScheduleRegistrationClosed,
		ScheduleInProgress,
		ScheduleCompleted,
		ScheduleCancelled,
	}

	// legacy values still found in older rows
	scheduleStatusAliases = map[string]ScheduleStatus{
		"exam_completed":    ScheduleInProgress,
		"results_announced": ScheduleCompleted,
	}

	scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
		ScheduleScheduled:          {ScheduleRegistrationOpen, ScheduleCancelled},
		ScheduleRegistrationOpen:   {ScheduleRegistrationClosed, ScheduleCancelled},
		ScheduleRegistrationClosed: {ScheduleInProgress, ScheduleCancelled},
		ScheduleInProgress:         {ScheduleCompleted, ScheduleCancelled},
	}

	applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
		ApplicationPaymentPending: {ApplicationConfirmed, ApplicationCancelled},
		ApplicationConfirmed:      {ApplicationCancelled},
	}

	PaymentMethods = []string{"bank_transfer", "card", "cash"}
)

// ParseScheduleStatus maps s (including legacy names) onto a known status.
func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	s = core.CleanString(s, true /* lower */)
	if alias, ok := scheduleStatusAliases[s]; ok {
		return alias, nil
	}
	for _, st := range ScheduleStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Errorf("unknown exam schedule status %q", s)
}

func (s ScheduleStatus) IsValid() bool {
	_, err := ParseScheduleStatus(string(s))
	return err == nil
}

func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleCompleted || s == ScheduleCancelled
}

// AcceptsRegistrations reports whether new applications may be submitted in this status.
// The registration window is checked separately.
func (s ScheduleStatus) AcceptsRegistrations() bool {
	return s == ScheduleScheduled || s == ScheduleRegistrationOpen
}

func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	for _, st := range scheduleTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// ValidateScheduleTransition rejects moves not allowed by the schedule lifecycle.
// Setting the current status again is a no-op and always allowed.
func ValidateScheduleTransition(from, to ScheduleStatus) error {
	if from == to || from.CanTransitionTo(to) {
		return nil
	}
	return core.NewFieldError("status", fmt.Sprintf("cannot change status from %s to %s", from, to))
}

func (s ApplicationStatus) IsActive() bool { return s != ApplicationCancelled }

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, st := range applicationTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func isPaymentMethod(s string) bool {
	for _, m := range PaymentMethods {
		if m == s {
			return true
		}
	}
	return false
}
