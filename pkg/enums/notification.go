package enums

import "fmt"

// NotificationType labels the messages fanned out after an event commits.
type NotificationType string

const (
	NotificationTypeGroupCreated         NotificationType = "group_created"
	NotificationTypeGroupUpdated         NotificationType = "group_updated"
	NotificationTypeGroupUpdateRequested NotificationType = "group_update_requested"
	NotificationTypeGroupUpdateReady     NotificationType = "group_update_ready"
	NotificationTypePaymentCompleted     NotificationType = "payment_completed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeGroupCreated,
	NotificationTypeGroupUpdated,
	NotificationTypeGroupUpdateRequested,
	NotificationTypeGroupUpdateReady,
	NotificationTypePaymentCompleted,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
