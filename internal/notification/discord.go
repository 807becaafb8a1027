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

type discordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []discordEmbedsField `json:"fields,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type discordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

const (
	colorGreen  = 0x5ac37e
	colorOrange = 0xe8a33d
	colorRed    = 0xc53030
	colorGray   = 0x80808a
)

type discordSender struct {
	log      zerolog.Logger
	settings domain.Notification
	client   *http.Client
}

func NewDiscordSender(log zerolog.Logger, settings domain.Notification) domain.NotificationSender {
	return &discordSender{
		log:      log.With().Str("sender", "discord").Logger(),
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *discordSender) Send(event domain.NotificationEvent, payload domain.NotificationPayload) error {
	m := discordMessage{
		Content: nil,
		Embeds: []discordEmbed{
			{
				Title:       payload.Subject,
				Description: payload.Message,
				Color:       embedColor(event),
				Timestamp:   time.Now().UTC(),
			},
		},
	}

	body, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "could not marshal discord message")
	}

	req, err := http.NewRequest(http.MethodPost, s.settings.Webhook, bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrap(err, "could not create discord request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not post discord webhook")
	}
	defer res.Body.Close()

	// discord responds 204 on success
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(res.Body)
		return errors.New("discord returned unexpected status %d: %s", res.StatusCode, string(raw))
	}

	s.log.Debug().Str("event", string(event)).Msg("Discord notification sent")
	return nil
}

func (s *discordSender) CanSend(event domain.NotificationEvent) bool {
	return s.settings.Enabled && s.settings.Webhook != "" && eventEnabled(s.settings.Events, event)
}

func embedColor(event domain.NotificationEvent) int {
	switch event {
	case domain.NotificationEventConflictDetected:
		return colorRed
	case domain.NotificationEventConflictResolved:
		return colorGreen
	case domain.NotificationEventDeviceRegistered:
		return colorGreen
	case domain.NotificationEventRetentionSwept:
		return colorOrange
	default:
		return colorGray
	}
}
