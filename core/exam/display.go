package exam

import (
	"github.com/trezcool/assoc/core"
)

// DisplayStatus is the registration badge shown for a schedule. It only depends on the
// registration window and the current date, never on the stored status.
type DisplayStatus string

const (
	DisplayUpcoming DisplayStatus = "upcoming"
	DisplayOpen     DisplayStatus = "open"
	DisplayClosed   DisplayStatus = "closed"
)

func (s DisplayStatus) IsValid() bool {
	return s == DisplayUpcoming || s == DisplayOpen || s == DisplayClosed
}

// DisplayStatusAt derives the badge for `today`. Both window bounds are inclusive.
func DisplayStatusAt(today, regStart, regEnd core.Date) DisplayStatus {
	switch {
	case today.Before(regStart):
		return DisplayUpcoming
	case today.After(regEnd):
		return DisplayClosed
	default:
		return DisplayOpen
	}
}

// WithDisplayStatus returns s with its DisplayStatus computed for `today`.
func (s Schedule) WithDisplayStatus(today core.Date) Schedule {
	s.DisplayStatus = DisplayStatusAt(today, s.RegistrationStartDate, s.RegistrationEndDate)
	return s
}
