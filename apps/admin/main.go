package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	logsvc "github.com/trezcool/assoc/services/logger"
	"github.com/trezcool/assoc/storage/database"
	sqlxrepos "github.com/trezcool/assoc/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*6)
	defer cancel()
	if err = database.Ping(ctx, db); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	certSvc := certification.NewService(sqlxrepos.NewCertificationRepository(db), logger)
	examStore := sqlxrepos.NewExamStore(db)

	// start CLI
	cli := commandLine{
		db:         db,
		conf:       conf,
		validate:   validate,
		translator: translator,
		certSvc:    certSvc,
		schedSvc:   exam.NewScheduleService(examStore, certSvc, validate, conf, logger),
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
