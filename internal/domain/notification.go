package domain

import "time"

type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationAlert     NotificationType = "alert"
	NotificationPromotion NotificationType = "promotion"
	NotificationSystem    NotificationType = "system"
)

// Notification is addressed to a single seller. The unique index keeps a
// retried fan-out from creating a second record for the same order.
type Notification struct {
	ID          string           `json:"id" gorm:"primaryKey;type:char(36)"`
	RecipientID string           `json:"recipientId" gorm:"size:64;not null;uniqueIndex:uniq_notification_target,priority:1"`
	Type        NotificationType `json:"type" gorm:"size:16;not null;uniqueIndex:uniq_notification_target,priority:2"`
	Title       string           `json:"title" gorm:"size:255;not null"`
	Message     string           `json:"message" gorm:"type:text"`
	IsRead      bool             `json:"isRead" gorm:"not null;default:false"`
	RelatedID   *string          `json:"relatedId,omitempty" gorm:"size:64;uniqueIndex:uniq_notification_target,priority:3"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"autoCreateTime"`
}
