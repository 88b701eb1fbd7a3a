// Command admin is the maintenance CLI: migrations, user management and
// subject catalog upkeep.
package main

import (
	"log"
	"os"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
	logsvc "github.com/tsfaye/sims/services/logger"
	"github.com/tsfaye/sims/storage/database"
	sqlxrepos "github.com/tsfaye/sims/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Ping(db))

	svcLog := logsvc.NewLogrusLogger(core.Conf)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		subSvc:  subject.NewService(sqlxrepos.NewSubjectRepository(db), svcLog),
	}
	cli.usrSvc = user.NewService(cli.usrRepo, svcLog)

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
