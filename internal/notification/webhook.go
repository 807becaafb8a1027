package notification

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
)

type webhookSender struct {
	log      zerolog.Logger
	settings domain.Notification
	client   *http.Client
}

// NewWebhookSender posts the payload as JSON to a caller-supplied URL.
func NewWebhookSender(log zerolog.Logger, settings domain.Notification) domain.NotificationSender {
	return &webhookSender{
		log:      log.With().Str("sender", "webhook").Logger(),
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type webhookBody struct {
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Event     string `json:"event"`
	AccountID string `json:"account_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *webhookSender) Send(event domain.NotificationEvent, payload domain.NotificationPayload) error {
	body, err := json.Marshal(webhookBody{
		Subject:   payload.Subject,
		Message:   payload.Message,
		Event:     string(event),
		AccountID: payload.AccountID,
		Timestamp: payload.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "could not marshal webhook payload")
	}

	req, err := http.NewRequest(http.MethodPost, s.settings.Webhook, bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrap(err, "could not create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not post webhook")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		return errors.New("webhook returned unexpected status %d: %s", res.StatusCode, string(raw))
	}

	s.log.Debug().Str("event", string(event)).Msg("Webhook notification sent")
	return nil
}

func (s *webhookSender) CanSend(event domain.NotificationEvent) bool {
	return s.settings.Enabled && s.settings.Webhook != "" && eventEnabled(s.settings.Events, event)
}

// eventEnabled reports whether the channel subscribes to the event. An empty
// subscription list means every event.
func eventEnabled(events []string, event domain.NotificationEvent) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == string(event) {
			return true
		}
	}
	return false
}
