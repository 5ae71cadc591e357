package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/klasshero/backend/apps/api/echo"
	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
	emailsvc "github.com/klasshero/backend/services/email"
	logsvc "github.com/klasshero/backend/services/logger"
	"github.com/klasshero/backend/storage/database"
	sqlxrepos "github.com/klasshero/backend/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	if err := run(logger); err != nil {
		logger.Fatal("starting API", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	sqlDB, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, core.Conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	familySvc := family.NewService(sqlxrepos.NewFamilyRepository(db))
	programSvc := program.NewService(sqlxrepos.NewProgramRepository(db))
	partSvc := participation.NewService(sqlxrepos.NewParticipationRepository(db))
	enrollmentSvc := enrollment.NewService(
		sqlxrepos.NewEnrollmentRepository(db), usrSvc, familySvc, programSvc, partSvc, mailSvc)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:        core.Conf.Server.Address(),
			Logger:         logger,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },

			UserSvc:          usrSvc,
			FamilySvc:        familySvc,
			ProgramSvc:       programSvc,
			EnrollmentSvc:    enrollmentSvc,
			ParticipationSvc: partSvc,
		},
	)
	go app.Start()

	// block until shutdown signal
	sig := <-shutdown
	logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()
	return app.Stop(ctx)
}
