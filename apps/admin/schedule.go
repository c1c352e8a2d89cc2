package main

import (
	"context"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/trezcool/assoc/core/exam"
)

func (cli *commandLine) listSchedules(filter exam.ScheduleFilter) error {
	filter.Clean()
	scheds, err := cli.schedSvc.QuerySchedules(context.Background(), &filter, nil)
	if err != nil {
		return cli.describe(err)
	}

	_, _ = color.New(color.FgYellow).Fprintf(cli.out, "\nExam Schedules (%d)\n", len(scheds))
	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"ID", "Exam Date", "Registration", "Location", "Seats", "Status", "Display"})
	for _, sched := range scheds {
		table.Append([]string{
			sched.ID,
			sched.ExamDate.String(),
			sched.RegistrationStartDate.String() + " - " + sched.RegistrationEndDate.String(),
			sched.ExamLocation,
			strconv.Itoa(sched.CurrentApplicants) + "/" + strconv.Itoa(sched.MaxApplicants),
			string(sched.Status),
			string(sched.DisplayStatus),
		})
	}
	table.Render()
	return nil
}

func (cli *commandLine) setScheduleStatus(id, status string) error {
	sched, err := cli.schedSvc.ChangeScheduleStatus(context.Background(), id, exam.ChangeScheduleStatus{
		Status: exam.ScheduleStatus(status),
	})
	if err != nil {
		return cli.describe(err)
	}
	_, _ = color.New(color.FgGreen).Fprintf(cli.out, "Exam schedule %s is now %s\n", sched.ID, sched.Status)
	return nil
}
