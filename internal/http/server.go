package http

import (
	"fmt"
	"net"
	"net/http"

	"github.com/vypdev/vaultstadio-sub005/internal/config"
	"github.com/vypdev/vaultstadio-sub005/internal/database"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	valkeygo "github.com/valkey-io/valkey-go"
)

type valkeyService interface {
	GetClient() valkeygo.Client
	Close()
}

type Server struct {
	log zerolog.Logger
	sse *sse.Server
	db  *database.DB

	config *config.AppConfig

	version string
	commit  string
	date    string

	deviceService       deviceService
	syncService         syncService
	conflictService     conflictService
	deltaService        deltaService
	retentionService    retentionService
	notificationService notificationService
	valkeyService       valkeyService
}

func NewServer(
	log logger.Logger,
	config *config.AppConfig,
	sse *sse.Server,
	db *database.DB,
	version string,
	commit string,
	date string,
	deviceSvc deviceService,
	syncSvc syncService,
	conflictSvc conflictService,
	deltaSvc deltaService,
	retentionSvc retentionService,
	notificationSvc notificationService,
	valkeySvc valkeyService,
) Server {
	return Server{
		log:     log.With().Str("module", "http").Logger(),
		config:  config,
		sse:     sse,
		db:      db,
		version: version,
		commit:  commit,
		date:    date,

		deviceService:       deviceSvc,
		syncService:         syncSvc,
		conflictService:     conflictSvc,
		deltaService:        deltaSvc,
		retentionService:    retentionSvc,
		notificationService: notificationSvc,
		valkeyService:       valkeySvc,
	}
}

func (s Server) Open() error {
	addr := fmt.Sprintf("%v:%v", s.config.Config.Server.Host, s.config.Config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := http.Server{
		Handler: s.Handler(),
	}

	s.log.Info().Msgf("Starting server. Listening on %s", listener.Addr().String())

	return server.Serve(listener)
}

func (s Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(&s.log))

	c := cors.New(cors.Options{
		AllowCredentials:   true,
		AllowedMethods:     []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowOriginFunc:    func(origin string) bool { return true },
		OptionsPassthrough: true,
		Debug:              false,
	})

	r.Use(c.Handler)

	encoder := encoder{}

	r.Route("/api", func(r chi.Router) {
		r.Route("/healthz", newHealthHandler(encoder, s.db).Routes)

		// Device id generation does not need an account yet; rate-limit it by IP.
		uuidRouter := r.Group(nil)
		uuidRouter.Use(s.RateLimiter)
		uuidRouter.Post("/v1/utils/uuid", s.handleGetUUID)

		// Everything below requires a resolved account.
		accountRouter := r.Group(nil)
		accountRouter.Use(s.ExtractAccount)

		accountRouter.Route("/notification", newNotificationHandler(encoder, s.notificationService).Routes)
		accountRouter.Route("/retention", newRetentionHandler(encoder, s.retentionService, s.config.Config.Retention.HorizonDays).Routes)

		// Sync traffic can be chatty; keep the limiter on the whole group.
		syncRouter := accountRouter.Group(nil)
		syncRouter.Use(s.RateLimiter)
		syncRouter.Route("/sync", func(r chi.Router) {
			r.Route("/devices", newDeviceHandler(encoder, s.deviceService).Routes)
			r.Route("/conflicts", newConflictHandler(encoder, s.conflictService).Routes)
			r.Route("/items", newSignatureHandler(encoder, s.deltaService).Routes)
			newSyncHandler(encoder, s.syncService).Routes(r)
		})

		accountRouter.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			// inject CORS headers to bypass checks
			s.sse.Headers = map[string]string{
				"Content-Type":      "text/event-stream",
				"Cache-Control":     "no-cache",
				"Connection":        "keep-alive",
				"X-Accel-Buffering": "no",
			}
			s.sse.ServeHTTP(w, r)
		})
	})

	return r
}
