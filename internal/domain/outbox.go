package domain

import (
	"encoding/json"
	"time"
)

type TaskKind string

const (
	TaskInvalidateCache  TaskKind = "cache.invalidate"
	TaskNotifySellers    TaskKind = "notify.sellers"
	TaskSendConfirmation TaskKind = "message.confirmation"
	TaskPublishEvent     TaskKind = "event.publish"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
	TaskDead    TaskStatus = "dead"
)

// OutboxTask is a side effect persisted next to the order write and
// consumed by the side-effect runner until it succeeds or runs out of
// attempts.
type OutboxTask struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind          TaskKind        `json:"kind" gorm:"size:32;not null"`
	OrderID       string          `json:"orderId" gorm:"type:char(36);not null;index"`
	Payload       json.RawMessage `json:"payload,omitempty" gorm:"type:json"`
	Status        TaskStatus      `json:"status" gorm:"size:16;not null;default:'pending';index:idx_outbox_due,priority:1"`
	Attempts      int             `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time       `json:"nextAttemptAt" gorm:"not null;index:idx_outbox_due,priority:2"`
	LastError     string          `json:"lastError,omitempty" gorm:"type:text"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CacheInvalidation is the payload of a cache.invalidate task.
type CacheInvalidation struct {
	CustomerID string       `json:"customerId"`
	SellerIDs  []string     `json:"sellerIds"`
	Products   []ProductRef `json:"products,omitempty"`
}

type ProductRef struct {
	ProductID string `json:"productId"`
	SellerID  string `json:"sellerId"`
}

// InvalidationFor describes every cache entry an order's creation touches.
func InvalidationFor(o *Order) CacheInvalidation {
	req := CacheInvalidation{CustomerID: o.CustomerID, SellerIDs: o.SellerIDs()}
	seen := make(map[ProductRef]struct{}, len(o.Items))
	for _, it := range o.Items {
		ref := ProductRef{ProductID: it.ProductID, SellerID: it.SellerID}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		req.Products = append(req.Products, ref)
	}
	return req
}
