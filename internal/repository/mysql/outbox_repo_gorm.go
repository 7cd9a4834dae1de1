package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

type outboxRepo struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) repository.OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, tasks []domain.OutboxTask) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&tasks).Error; err != nil {
		return fmt.Errorf("%w: enqueue outbox tasks: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *outboxRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.OutboxTask, error) {
	var out []domain.OutboxTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.TaskPending, now).
		Order("id").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

func (r *outboxRepo) Claim(ctx context.Context, task *domain.OutboxTask, until time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.OutboxTask{}).
		Where("id = ? AND status = ? AND next_attempt_at = ?", task.ID, domain.TaskPending, task.NextAttemptAt).
		Update("next_attempt_at", until)
	if res.Error != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 1 {
		task.NextAttemptAt = until
		return true, nil
	}
	return false, nil
}

func (r *outboxRepo) MarkDone(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Model(&domain.OutboxTask{}).Where("id = ?", id).
		Updates(map[string]any{"status": domain.TaskDone, "last_error": ""}).Error
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, task *domain.OutboxTask) error {
	err := r.db.WithContext(ctx).Model(&domain.OutboxTask{}).Where("id = ?", task.ID).
		Updates(map[string]any{
			"status":          task.Status,
			"attempts":        task.Attempts,
			"next_attempt_at": task.NextAttemptAt,
			"last_error":      task.LastError,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
