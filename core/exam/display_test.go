package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/assoc/core"
)

func TestDisplayStatusAt(t *testing.T) {
	start := core.MustParseDate("2025-08-01")
	end := core.MustParseDate("2025-09-08")

	tests := []struct {
		today string
		want  DisplayStatus
	}{
		{today: "2025-07-31", want: DisplayUpcoming},
		{today: "2025-08-01", want: DisplayOpen},
		{today: "2025-08-20", want: DisplayOpen},
		{today: "2025-09-08", want: DisplayOpen},
		{today: "2025-09-09", want: DisplayClosed},
	}
	for _, tt := range tests {
		t.Run(tt.today, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayStatusAt(core.MustParseDate(tt.today), start, end))
		})
	}
}

func TestSchedule_WithDisplayStatus(t *testing.T) {
	sched := Schedule{
		RegistrationStartDate: core.MustParseDate("2025-08-01"),
		RegistrationEndDate:   core.MustParseDate("2025-09-08"),
		Status:                ScheduleCancelled, // ignored
	}
	assert.Equal(t, DisplayOpen, sched.WithDisplayStatus(core.MustParseDate("2025-08-02")).DisplayStatus)
	assert.Empty(t, sched.DisplayStatus)
}

func TestApplicationDetail_Result(t *testing.T) {
	passed := true
	score := 88.5
	detail := ApplicationDetail{
		Application: Application{
			ExamNumber:        "W1-250915-0001",
			ApplicantName:     "Budi",
			ApplicationStatus: ApplicationConfirmed,
			PassStatus:        &passed,
			TotalScore:        &score,
		},
	}

	res := detail.Result()
	assert.Nil(t, res.PassStatus, "ungraded results are hidden")
	assert.Nil(t, res.TotalScore)

	now := core.Now()
	detail.ExamTakenAt = &now
	res = detail.Result()
	if assert.NotNil(t, res.PassStatus) {
		assert.True(t, *res.PassStatus)
	}
	assert.Equal(t, &score, res.TotalScore)
	assert.Equal(t, "confirmed", res.ApplicationStatus)
}
