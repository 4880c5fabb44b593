package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/feeportal/client/api"
	"github.com/trezcool/feeportal/client/payment"
	"github.com/trezcool/feeportal/client/roster"
	"github.com/trezcool/feeportal/client/session"
	"github.com/trezcool/feeportal/client/storage"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/services/logger"
)

var stdLogger *log.Logger

func main() {
	stdLogger = log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	ctx := context.Background()
	store, err := storage.Open(ctx, conf.Client.StatePath)
	errAndDie(err)

	client := api.NewFromConfig(conf)
	sess := session.New(client, store, logger)
	sess.Init(ctx)
	r := roster.New(ctx, client, sess, logger)

	cli := commandLine{
		sess:        sess,
		roster:      r,
		paymentOpts: payment.OptionsFromConfig(conf),
		logger:      logger,
		in:          os.Stdin,
		out:         os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	r.Close()
	_ = store.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
