package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/dashboard"
	"github.com/moatasem-alhilali/wadash/internal/lock"
	"github.com/moatasem-alhilali/wadash/internal/profile"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/store"
	intsync "github.com/moatasem-alhilali/wadash/internal/sync"
	"github.com/moatasem-alhilali/wadash/internal/tui"
	"github.com/moatasem-alhilali/wadash/internal/tui/model"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	apiFlag := flag.String("api", "", "backend API URL (overrides config and env)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Resolve(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIURL = *apiFlag
	}

	var (
		client *api.Client
		sync   *realtime.Synchronizer
		db     *store.DB
		events *bus.Bus
		engine *intsync.Engine
		logger *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		dashboard.Module(dashboard.Params{
			Profile:     name,
			Config:      cfg,
			FileOnlyLog: true,
		}),
		fx.Populate(&client, &sync, &db, &events, &engine, &logger),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		var held *lock.LockHeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "error: %v\nanother wadash is running for profile %q\n", held, name)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	vm := model.NewViewModel(client, sync, sync.Mirror(), db)
	ui := tui.NewApp(vm, tui.Options{
		Profile: name,
		APIURL:  cfg.APIURL,
		Poll:    cfg.Poll,
		Bus:     events,
		Logger:  logger,

		LastConnected: engine.Reconciler().LastConnected,
	})
	runErr := ui.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
