package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/services/email"
	"github.com/trezcool/feeportal/storage/cache"
	"github.com/trezcool/feeportal/storage/database"
	"github.com/trezcool/feeportal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	errAndDie(err)

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), cache.NewMemoryRevoker(), validate, translator, conf),
		studentSvc: student.NewService(
			sqlxrepos.NewStudentRepository(db), emailsvc.NewConsoleService(logger, conf), validate, translator, conf,
		),
		migrate: func(ctx context.Context, command string, args ...string) error {
			return database.Migrate(ctx, db.DB, command, args...)
		},
		out: os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	_ = db.Close()
	if err != nil {
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
