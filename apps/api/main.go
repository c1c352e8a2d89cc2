package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"

	echoapi "github.com/trezcool/assoc/apps/api/echo"
	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
	appfs "github.com/trezcool/assoc/fs"
	emailsvc "github.com/trezcool/assoc/services/email"
	logsvc "github.com/trezcool/assoc/services/logger"
	"github.com/trezcool/assoc/storage/database"
	inmemdb "github.com/trezcool/assoc/storage/database/inmem"
	sqlxrepos "github.com/trezcool/assoc/storage/database/sqlx"
)

func main() {
	inMem := flag.Bool("inmem", false, "keep all data in memory (no database)")
	flag.Parse()

	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	var (
		pinger    echoapi.Pinger
		certRepo  certification.Repository
		examStore exam.Store
	)
	if *inMem {
		db := inmemdb.Open()
		pinger = db
		certRepo = inmemdb.NewCertificationRepository(db)
		examStore = inmemdb.NewExamStore(db)
		logger.Warn("running with the in-memory store: data is lost on exit")
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		pinger = db
		certRepo = sqlxrepos.NewCertificationRepository(db)
		examStore = sqlxrepos.NewExamStore(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	certSvc := certification.NewService(certRepo, logger)
	schedSvc := exam.NewScheduleService(examStore, certSvc, validate, conf, logger)
	appSvc := exam.NewApplicationService(examStore, certSvc, validate, mailSvc, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.FrontendBaseURL, false, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(storageName(*inMem))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:             conf,
			Logger:           logger,
			DB:               pinger,
			CertificationSvc: certSvc,
			ScheduleSvc:      schedSvc,
			ApplicationSvc:   appSvc,
			Validate:         validate,
			Translator:       translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*6)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func storageName(inMem bool) string {
	if inMem {
		return "inmem"
	}
	return "postgres"
}
