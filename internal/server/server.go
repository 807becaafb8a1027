package server

import (
	"sync"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/internal/scheduler"

	"github.com/rs/zerolog"
)

type Server struct {
	log    zerolog.Logger
	config *domain.Config

	scheduler scheduler.Service

	stopWG sync.WaitGroup
	lock   sync.Mutex
}

func NewServer(log logger.Logger, config *domain.Config, scheduler scheduler.Service) *Server {
	return &Server{
		log:       log.With().Str("module", "server").Logger(),
		config:    config,
		scheduler: scheduler,
	}
}

func (s *Server) Start() error {
	// start cron scheduler
	s.scheduler.Start()

	return nil
}

func (s *Server) Shutdown() {
	s.log.Info().Msg("Shutting down server")

	// stop cron scheduler
	s.scheduler.Stop()
}
