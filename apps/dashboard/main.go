package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echodash "github.com/darasahq/darasa/apps/dashboard/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	logsvc "github.com/darasahq/darasa/services/logger"
	notifysvc "github.com/darasahq/darasa/services/notify"
	"github.com/darasahq/darasa/services/trainapi"
	inmemstore "github.com/darasahq/darasa/storage/sessionstore/inmem"
	redisstore "github.com/darasahq/darasa/storage/sessionstore/redis"
	sqlxstore "github.com/darasahq/darasa/storage/sessionstore/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DASH : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	storage, closeStorage, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session storage: %v", err), err)
	}
	defer closeStorage()

	var notifier core.Notifier
	if conf.Debug {
		notifier = notifysvc.NewConsoleNotifier(logger)
	} else {
		notifier = notifysvc.NewFlashNotifier(storage, logger)
	}

	api := trainapi.NewClient(conf, notifier, logger)
	api.OnUnauthenticated(func(ctx context.Context) {
		if store, ok := session.StoreFromContext(ctx); ok {
			store.ForceClear(ctx)
		}
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Dashboard Service

	server := echodash.NewServer(
		echodash.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Storage:    storage,
			API:        api,
			Notifier:   notifier,
			Validate:   validate,
			Translator: translator,
		},
	)

	go server.Start()

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

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage picks the session storage backend: Redis when configured,
// then Postgres, falling back to in-memory for local development.
func setUpStorage(conf *core.Config) (session.Storage, func(), error) {
	switch {
	case conf.Redis.Addr != "":
		store, err := redisstore.Open(context.Background(), conf)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case conf.Database.URL != "":
		store, err := sqlxstore.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return inmemstore.Open(), func() {}, nil
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
