package events

import (
	"github.com/vypdev/vaultstadio-sub005/internal/conflict"
	"github.com/vypdev/vaultstadio-sub005/internal/device"
	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/internal/notification"
	"github.com/vypdev/vaultstadio-sub005/internal/retention"
	syncsvc "github.com/vypdev/vaultstadio-sub005/internal/sync"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
)

// Subscriber bridges domain events on the bus to the notification service.
type Subscriber struct {
	log             zerolog.Logger
	eventBus        EventBus.Bus
	notificationSvc notification.Service
}

func NewSubscribers(log logger.Logger, eventBus EventBus.Bus, notificationSvc notification.Service) Subscriber {
	s := Subscriber{
		log:             log.With().Str("module", "events").Logger(),
		eventBus:        eventBus,
		notificationSvc: notificationSvc,
	}

	s.Register()

	return s
}

func (s Subscriber) Register() {
	topics := []string{
		syncsvc.TopicConflictDetected,
		conflict.TopicConflictResolved,
		device.TopicDeviceRegistered,
		retention.TopicRetentionSwept,
	}

	for _, topic := range topics {
		if err := s.eventBus.Subscribe(topic, s.sendNotification); err != nil {
			s.log.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to topic")
		}
	}
}

func (s Subscriber) sendNotification(payload domain.NotificationPayload) {
	s.log.Trace().Str("event", string(payload.Event)).Msg("Dispatching notification for event")
	s.notificationSvc.Send(payload.Event, payload)
}
