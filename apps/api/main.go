package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/tsfaye/sims/apps/api/echo"
	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/report"
	"github.com/tsfaye/sims/core/settings"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
	emailsvc "github.com/tsfaye/sims/services/email"
	logsvc "github.com/tsfaye/sims/services/logger"
	"github.com/tsfaye/sims/storage/database"
	sqlxrepos "github.com/tsfaye/sims/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(
			log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
			conf,
		)
		logger.Enable(!conf.Debug)
	} else {
		logger = logsvc.NewLogrusLogger(conf)
	}

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	subRepo := sqlxrepos.NewSubjectRepository(db)
	notifRepo := sqlxrepos.NewNotificationRepository(db)
	gradeRepo := sqlxrepos.NewGradeRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)

	// services
	settingsStore := settings.NewFileStore(conf.SettingsPath)
	mailSvc := emailsvc.FromSettings(settingsStore, logger)

	usrSvc := user.NewService(usrRepo, logger)
	subSvc := subject.NewService(subRepo, logger)
	notifSvc := notification.NewService(notifRepo, usrRepo, mailSvc, logger)
	reports := report.NewBuilder(usrRepo, gradeRepo, payRepo)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("%s initializing", conf))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Addr:          conf.Server.Addr,
		Logger:        logger,
		UserSvc:       usrSvc,
		SubjectSvc:    subSvc,
		NotifSvc:      notifSvc,
		SettingsStore: settingsStore,
		GradeRepo:     gradeRepo,
		PaymentRepo:   payRepo,
		Reports:       reports,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-server.ShutdownSignal()
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Ping(db); err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
