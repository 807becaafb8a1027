package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
)

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSender struct {
	log      zerolog.Logger
	settings domain.Notification
	client   *http.Client
}

func NewTelegramSender(log zerolog.Logger, settings domain.Notification) domain.NotificationSender {
	return &telegramSender{
		log:      log.With().Str("sender", "telegram").Logger(),
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *telegramSender) Send(event domain.NotificationEvent, payload domain.NotificationPayload) error {
	m := telegramMessage{
		ChatID:    s.settings.Channel,
		Text:      fmt.Sprintf("<b>%s</b>\n%s", payload.Subject, payload.Message),
		ParseMode: "HTML",
	}

	body, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "could not marshal telegram message")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.settings.Token)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrap(err, "could not create telegram request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not post telegram message")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(res.Body)
		return errors.New("telegram returned unexpected status %d: %s", res.StatusCode, string(raw))
	}

	s.log.Debug().Str("event", string(event)).Msg("Telegram notification sent")
	return nil
}

func (s *telegramSender) CanSend(event domain.NotificationEvent) bool {
	return s.settings.Enabled && s.settings.Token != "" && s.settings.Channel != "" && eventEnabled(s.settings.Events, event)
}
