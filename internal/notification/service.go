package notification

import (
	"context"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
)

type Service interface {
	List(ctx context.Context, accountID string) ([]domain.Notification, error)
	FindByID(ctx context.Context, id int) (*domain.Notification, error)
	Store(ctx context.Context, notification domain.Notification) (*domain.Notification, error)
	Update(ctx context.Context, notification domain.Notification) (*domain.Notification, error)
	Delete(ctx context.Context, id int) error
	// Send fans the payload out to every enabled channel subscribed to the
	// event. Failures are logged per channel, never returned: a broken webhook
	// must not fail the sync operation that triggered it.
	Send(event domain.NotificationEvent, payload domain.NotificationPayload)
	Test(ctx context.Context, notification domain.Notification) error
}

func NewService(log logger.Logger, repo domain.NotificationRepo) Service {
	s := &service{
		log:     log.With().Str("module", "notification").Logger(),
		repo:    repo,
		senders: []domain.NotificationSender{},
	}

	s.registerSenders(context.Background())

	return s
}

type service struct {
	log     zerolog.Logger
	repo    domain.NotificationRepo
	senders []domain.NotificationSender
}

// registerSenders rebuilds the sender list from all stored channels. Called at
// startup and after every channel mutation.
func (s *service) registerSenders(ctx context.Context) {
	notifications, err := s.repo.List(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load notification channels")
		return
	}

	senders := make([]domain.NotificationSender, 0, len(notifications))
	for _, n := range notifications {
		if !n.Enabled {
			continue
		}
		if sender := s.senderFor(n); sender != nil {
			senders = append(senders, sender)
		}
	}

	s.senders = senders
	s.log.Debug().Int("senders", len(s.senders)).Msg("Notification senders registered")
}

func (s *service) senderFor(n domain.Notification) domain.NotificationSender {
	switch n.Type {
	case domain.NotificationTypeWebhook:
		return NewWebhookSender(s.log, n)
	case domain.NotificationTypeDiscord:
		return NewDiscordSender(s.log, n)
	case domain.NotificationTypeTelegram:
		return NewTelegramSender(s.log, n)
	default:
		s.log.Warn().Str("type", string(n.Type)).Msg("Unknown notification type")
		return nil
	}
}

func (s *service) List(ctx context.Context, accountID string) ([]domain.Notification, error) {
	return s.repo.List(ctx, accountID)
}

func (s *service) FindByID(ctx context.Context, id int) (*domain.Notification, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Store(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	stored, err := s.repo.Store(ctx, notification)
	if err != nil {
		return nil, err
	}

	s.registerSenders(ctx)
	return stored, nil
}

func (s *service) Update(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	updated, err := s.repo.Update(ctx, notification)
	if err != nil {
		return nil, err
	}

	s.registerSenders(ctx)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.registerSenders(context.Background())
	return nil
}

func (s *service) Send(event domain.NotificationEvent, payload domain.NotificationPayload) {
	for _, sender := range s.senders {
		if !sender.CanSend(event) {
			continue
		}
		if err := sender.Send(event, payload); err != nil {
			s.log.Error().Err(err).Str("event", string(event)).Msg("Failed to send notification")
		}
	}
}

func (s *service) Test(ctx context.Context, notification domain.Notification) error {
	sender := s.senderFor(notification)
	if sender == nil {
		return errors.Wrapf(domain.ErrInvalidOperation, "unknown notification type %q", notification.Type)
	}

	return sender.Send(domain.NotificationEventTest, domain.NotificationPayload{
		Subject: "Test notification",
		Message: "This is a test notification from VaultStadio.",
		Event:   domain.NotificationEventTest,
	})
}
