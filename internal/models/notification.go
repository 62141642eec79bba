package models

import "time"

// DeliveryStatus is the outcome of a single delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// NotificationRecord is one record per (alert, channel, recipient) delivery
// attempt. Append-only.
type NotificationRecord struct {
	ID        string         `json:"id"`
	AlertID   string         `json:"alert_id"`
	Channel   string         `json:"channel"`
	Recipient string         `json:"recipient"`
	Status    DeliveryStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	Response  string         `json:"response,omitempty"` // provider response metadata
	Retries   int            `json:"retries"`
	SentAt    time.Time      `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
}
