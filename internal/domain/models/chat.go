package models

import (
	"fmt"
	"time"
)

type NotificationMode string

const (
	NotificationModeInstant NotificationMode = "instant"
	NotificationModeDelayed NotificationMode = "delayed"
)

type Chat struct {
	ID               int64
	NotificationMode NotificationMode
	// DeliveryTime is the HH:mm bucket used when NotificationMode is delayed.
	DeliveryTime string
	CreatedAt    time.Time
}

const DeliveryTimeLayout = "15:04"

// BucketKey formats t as the HH:mm key of a delayed delivery bucket.
func BucketKey(t time.Time) string {
	return t.Format(DeliveryTimeLayout)
}

// ParseDeliveryTime validates and normalizes an HH:mm value.
func ParseDeliveryTime(value string) (string, error) {
	t, err := time.Parse(DeliveryTimeLayout, value)
	if err != nil {
		return "", fmt.Errorf("некорректное время доставки %q: %w", value, err)
	}

	return BucketKey(t), nil
}
