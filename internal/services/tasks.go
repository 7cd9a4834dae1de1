package services

import (
	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/sideeffects"
)

// RegisterTaskHandlers binds every outbox task kind to the service that
// executes it.
func RegisterTaskHandlers(r *sideeffects.Runner, orders *OrderService, notifications *NotificationService, confirmations *ConfirmationService) {
	r.Register(domain.TaskInvalidateCache, orders.HandleCacheInvalidation)
	r.Register(domain.TaskPublishEvent, orders.HandlePublishEvent)
	r.Register(domain.TaskNotifySellers, notifications.HandleTask)
	r.Register(domain.TaskSendConfirmation, confirmations.HandleTask)
}
