package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/alrightylabs/lutranscript/apps/api/echo"
	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/dashboard"
	"github.com/alrightylabs/lutranscript/services/learnupon"
	logsvc "github.com/alrightylabs/lutranscript/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// the gateway cannot work without upstream credentials
	if err := conf.Validate(validate); err != nil {
		logger.Fatal(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	// set up services
	upstream := learnupon.NewClient(directOptions(conf))
	dash := dashboard.New(dashboard.Options{
		Settings:   dashboard.SettingsFromConfig(conf),
		NewSource:  sourceFactory(conf),
		PageSize:   conf.Dashboard.PageSize,
		MaxMembers: conf.Dashboard.MaxGroupMembers,
		Logger:     logger,
		Validate:   validate,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("learnupon").Set(conf.LearnUpon.BaseURL)
	expvar.Publish("mode", expvar.Func(func() interface{} { return dash.Settings().Mode }))
	expvar.Publish("busy", expvar.Func(func() interface{} { return dash.Busy() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Dashboard:  dash,
			Upstream:   upstream,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()
	logger.Info(fmt.Sprintf("LearnUpon gateway listening on %s, forwarding %s/* to %s",
		conf.Server.Address, "/api/learupon", conf.LearnUpon.BaseURL))

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

// directOptions reaches LearnUpon with the configured credentials, whatever the dashboard mode.
func directOptions(conf *core.Config) learnupon.Options {
	opts := learnupon.OptionsFromConfig(conf)
	opts.Mode = core.ModeDirect
	return opts
}

func sourceFactory(conf *core.Config) dashboard.SourceFactory {
	return func(s dashboard.Settings) dashboard.Source {
		opts := learnupon.OptionsFromConfig(conf)
		opts.Mode = s.Mode
		opts.ProxyURL = s.ProxyURL
		return learnupon.NewClient(opts)
	}
}
