package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
	emailsvc "github.com/trezcool/feeportal/services/email"
	logsvc "github.com/trezcool/feeportal/services/logger"
	"github.com/trezcool/feeportal/storage/cache"
	"github.com/trezcool/feeportal/storage/database"
	inmemdb "github.com/trezcool/feeportal/storage/database/inmem"
	sqlxrepos "github.com/trezcool/feeportal/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Store groups the repositories and the handle used to probe (and close) their backing store.
type Store struct {
	dig.Out
	Pinger      core.Pinger
	Closer      func() error `name:"dbCloser"`
	UserRepo    user.Repository
	StudentRepo student.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) Store {
	if conf.Database.InMemory {
		loggerParam.Logger.Warn("using the in-memory store: data is lost on exit")
		db := inmemdb.Open()
		return Store{
			Pinger:      db,
			Closer:      func() error { return nil },
			UserRepo:    inmemdb.NewUserRepository(db),
			StudentRepo: inmemdb.NewStudentRepository(db),
		}
	}

	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if err = database.Migrate(ctx, db.DB, "up"); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Store{
		Pinger:      db,
		Closer:      db.Close,
		UserRepo:    sqlxrepos.NewUserRepository(db),
		StudentRepo: sqlxrepos.NewStudentRepository(db),
	}
}

func newRevoker(conf *core.Config, logger core.Logger) user.Revoker {
	if conf.Redis.Address == "" {
		return cache.NewMemoryRevoker()
	}
	client, err := cache.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	return cache.NewRedisRevoker(client)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "EMAIL : ", log.LstdFlags), conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newRevoker))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
