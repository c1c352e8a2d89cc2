package main

import (
	"errors"
	"fmt"
	"io"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sqlx.DB
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
	certSvc    certification.Service
	schedSvc   exam.ScheduleService
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                                    - run a goose command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  addcertification --name NAME --regnum NUMBER [--fee N] [--certificate-fee N] - create a certification")
	_, _ = fmt.Fprintln(cli.out, "  schedules [--certification ID] [--status STATUS] [--display-status STATUS]    - list exam schedules")
	_, _ = fmt.Fprintln(cli.out, "  setstatus --id ID --status STATUS                            - move an exam schedule to another status")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCertCmd := flag.NewFlagSet("addcertification", flag.ContinueOnError)
	addCertCmd.SetOutput(cli.out)
	addCertName := addCertCmd.String("name", "", "The certification's name.")
	addCertRegNum := addCertCmd.String("regnum", "", "The certification's registration number.")
	addCertFee := addCertCmd.Int64("fee", 0, "The application fee.")
	addCertCertFee := addCertCmd.Int64("certificate-fee", 0, "The certificate fee.")

	schedulesCmd := flag.NewFlagSet("schedules", flag.ContinueOnError)
	schedulesCmd.SetOutput(cli.out)
	schedulesCert := schedulesCmd.String("certification", "", "Only list the schedules of this certification.")
	schedulesStatus := schedulesCmd.String("status", "", "Only list the schedules with this status.")
	schedulesDisplay := schedulesCmd.String("display-status", "", "Only list the schedules with this display status (upcoming, open, closed).")

	setStatusCmd := flag.NewFlagSet("setstatus", flag.ContinueOnError)
	setStatusCmd.SetOutput(cli.out)
	setStatusID := setStatusCmd.String("id", "", "The exam schedule ID.")
	setStatusStatus := setStatusCmd.String("status", "", "The new status.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addcertification":
		if err := addCertCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCertName == "" || *addCertRegNum == "" {
			addCertCmd.Usage()
			return errHelp
		}
		return cli.addCertification(*addCertName, *addCertRegNum, *addCertFee, *addCertCertFee)

	case "schedules":
		if err := schedulesCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listSchedules(exam.ScheduleFilter{
			CertificationID: *schedulesCert,
			Status:          exam.ScheduleStatus(*schedulesStatus),
			DisplayStatus:   exam.DisplayStatus(*schedulesDisplay),
		})

	case "setstatus":
		if err := setStatusCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setStatusID == "" || *setStatusStatus == "" {
			setStatusCmd.Usage()
			return errHelp
		}
		return cli.setScheduleStatus(*setStatusID, *setStatusStatus)

	default:
		cli.printUsage()
		return errHelp
	}
}
