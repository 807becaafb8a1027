package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/vypdev/vaultstadio-sub005/internal/config"
	"github.com/vypdev/vaultstadio-sub005/internal/conflict"
	"github.com/vypdev/vaultstadio-sub005/internal/database"
	"github.com/vypdev/vaultstadio-sub005/internal/delta"
	"github.com/vypdev/vaultstadio-sub005/internal/device"
	"github.com/vypdev/vaultstadio-sub005/internal/events"
	"github.com/vypdev/vaultstadio-sub005/internal/http"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/internal/notification"
	"github.com/vypdev/vaultstadio-sub005/internal/retention"
	"github.com/vypdev/vaultstadio-sub005/internal/scheduler"
	"github.com/vypdev/vaultstadio-sub005/internal/server"
	"github.com/vypdev/vaultstadio-sub005/internal/storage"
	syncsvc "github.com/vypdev/vaultstadio-sub005/internal/sync"
	"github.com/vypdev/vaultstadio-sub005/internal/valkey"

	"github.com/asaskevich/EventBus"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to configuration file")
	pflag.Parse()

	// read config
	cfg := config.New(configPath, version)

	// init new logger
	log := logger.New(cfg.Config)

	// init dynamic config
	cfg.DynamicReload(log)

	// setup server-sent-events
	serverEvents := sse.New()
	serverEvents.CreateStreamWithOpts("logs", sse.StreamOpts{MaxEntries: 1000, AutoReplay: true})

	// register SSE writer
	log.RegisterSSEWriter(serverEvents)

	// setup internal eventbus
	bus := EventBus.New()

	// open database connection
	db, err := database.NewDB(cfg.Config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create new db")
	}

	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("could not open db connection")
	}

	log.Info().Msgf("Starting VaultStadio sync")
	log.Info().Msgf("Version: %s", version)
	log.Info().Msgf("Commit: %s", commit)
	log.Info().Msgf("Build date: %s", date)
	log.Info().Msgf("Log-level: %s", cfg.Config.Logging.Level)
	log.Info().Msgf("Using database: %s", db.Driver)

	// setup repos
	var (
		notificationRepo = database.NewNotificationRepo(log, db)
		deviceRepo       = database.NewDeviceRepo(log, db)
		changeRepo       = database.NewChangeRepo(log, db, cfg.Config.Sync.CursorRetries)
		conflictRepo     = database.NewConflictRepo(log, db)
	)

	// init Valkey service
	valkeyService, err := valkey.NewService(cfg.Config.Valkey)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create new valkey service")
	}
	defer valkeyService.Close()
	log.Info().Msg("Valkey service initialized")

	versionStore := storage.NewVersionStore(log, cfg.Config.ConfigPath)

	// setup services
	var (
		notificationService = notification.NewService(log, notificationRepo)
		deviceService       = device.NewService(log, deviceRepo, bus)
		syncService         = syncsvc.NewService(log, cfg.Config.Sync, changeRepo, conflictRepo, deviceRepo, bus)
		conflictService     = conflict.NewService(log, conflictRepo, bus)
		deltaService        = delta.NewService(log, versionStore, cfg.Config.Sync.SignatureBlockSize)
		retentionService    = retention.NewService(log, changeRepo, conflictRepo, bus)
		schedulingService   = scheduler.NewService(log, cfg.Config, retentionService)
	)

	// register event subscribers
	events.NewSubscribers(log, bus, notificationService)

	errorChannel := make(chan error)

	go func() {
		httpServer := http.NewServer(
			log,
			cfg,
			serverEvents,
			db,
			version,
			commit,
			date,
			deviceService,
			syncService,
			conflictService,
			deltaService,
			retentionService,
			notificationService,
			valkeyService,
		)
		errorChannel <- httpServer.Open()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	srv := server.NewServer(log, cfg.Config, schedulingService)
	if err := srv.Start(); err != nil {
		log.Fatal().Stack().Err(err).Msg("could not start server")
		return
	}

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			log.Log().Msg("shutting down server sighup")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			valkeyService.Close()
			log.Info().Msg("Valkey service shut down")
			os.Exit(1)
		case syscall.SIGINT, syscall.SIGQUIT:
			log.Info().Msg("Shutting down server due to SIGINT/SIGQUIT...")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			valkeyService.Close()
			log.Info().Msg("Valkey service shut down")
			os.Exit(0)
		case syscall.SIGKILL, syscall.SIGTERM:
			log.Info().Msg("Shutting down server due to SIGKILL/SIGTERM...")
			srv.Shutdown()
			if err := db.Close(); err != nil {
				log.Error().Stack().Err(err).Msg("could not close db connection")
			}
			valkeyService.Close()
			log.Info().Msg("Valkey service shut down")
			os.Exit(0)
		}
	}
}
