package domain

import (
	"context"
	"time"
)

type NotificationRepo interface {
	List(ctx context.Context, accountID string) ([]Notification, error)
	FindByID(ctx context.Context, id int) (*Notification, error)
	Store(ctx context.Context, notification Notification) (*Notification, error)
	Update(ctx context.Context, notification Notification) (*Notification, error)
	Delete(ctx context.Context, notificationID int) error
}

type NotificationSender interface {
	Send(event NotificationEvent, payload NotificationPayload) error
	CanSend(event NotificationEvent) bool
}

// Notification is a configured notification channel for an account.
type Notification struct {
	ID        int              `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	AccountID string           `json:"account_id" gorm:"column:account_id;index"`
	Name      string           `json:"name" gorm:"column:name"`
	Type      NotificationType `json:"type" gorm:"column:type"`
	Enabled   bool             `json:"enabled" gorm:"column:enabled"`
	Events    []string         `json:"events" gorm:"column:events;type:text;serializer:json"`
	Webhook   string           `json:"webhook" gorm:"column:webhook"`
	Token     string           `json:"token" gorm:"column:token"`
	Channel   string           `json:"channel" gorm:"column:channel"`
	CreatedAt time.Time        `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

type NotificationPayload struct {
	Subject   string
	Message   string
	Event     NotificationEvent
	AccountID string
	Timestamp time.Time
}

type NotificationType string

const (
	NotificationTypeWebhook  NotificationType = "WEBHOOK"
	NotificationTypeDiscord  NotificationType = "DISCORD"
	NotificationTypeTelegram NotificationType = "TELEGRAM"
)

type NotificationEvent string

const (
	NotificationEventConflictDetected NotificationEvent = "SYNC_CONFLICT_DETECTED"
	NotificationEventConflictResolved NotificationEvent = "SYNC_CONFLICT_RESOLVED"
	NotificationEventDeviceRegistered NotificationEvent = "SYNC_DEVICE_REGISTERED"
	NotificationEventRetentionSwept   NotificationEvent = "SYNC_RETENTION_SWEPT"
	NotificationEventTest             NotificationEvent = "TEST"
)
