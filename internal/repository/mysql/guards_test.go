package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

const (
	itemGuardSQL  = "UPDATE `order_items` SET `item_status`=\\? WHERE .*id = \\? AND order_id = \\? AND item_status = \\?"
	orderGuardSQL = "UPDATE `orders` SET .*`version`=version \\+ 1.* WHERE .*id = \\? AND version = \\?"
)

func shippedTransition() (*domain.Order, []domain.ItemChange) {
	o := &domain.Order{ID: "o-1", Status: domain.StatusShipped, Version: 4}
	changes := []domain.ItemChange{
		{ItemID: "i-a", From: domain.StatusProcessing, To: domain.StatusShipped},
		{ItemID: "i-b", From: domain.StatusProcessing, To: domain.StatusShipped},
	}
	return o, changes
}

func TestOrderRepo_SaveTransition(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(sqlmock.Sqlmock)
		expectedErr error
		wantVersion uint64
	}{
		{
			name: "every guard holds",
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(itemGuardSQL).WithArgs("Shipped", "i-a", "o-1", "Processing").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(itemGuardSQL).WithArgs("Shipped", "i-b", "o-1", "Processing").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(orderGuardSQL).WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit()
			},
			wantVersion: 5,
		},
		{
			name: "item moved by someone else",
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(itemGuardSQL).WithArgs("Shipped", "i-a", "o-1", "Processing").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(itemGuardSQL).WithArgs("Shipped", "i-b", "o-1", "Processing").WillReturnResult(sqlmock.NewResult(0, 0))
				m.ExpectRollback()
			},
			expectedErr: domain.ErrConflict,
			wantVersion: 4,
		},
		{
			name: "aggregate version moved on",
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(itemGuardSQL).WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(itemGuardSQL).WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(orderGuardSQL).WillReturnResult(sqlmock.NewResult(0, 0))
				m.ExpectRollback()
			},
			expectedErr: domain.ErrConflict,
			wantVersion: 4,
		},
		{
			name: "database failure",
			setupMocks: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(itemGuardSQL).WillReturnError(assert.AnError)
				m.ExpectRollback()
			},
			expectedErr: domain.ErrPersistence,
			wantVersion: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMocks(mock)
			order, changes := shippedTransition()

			err := NewOrderRepository(db).SaveTransition(context.Background(), order, changes, 4)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, order.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOutboxRepo_Claim(t *testing.T) {
	due := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	until := due.Add(time.Minute)
	claimSQL := "UPDATE `outbox_tasks` SET .* WHERE id = \\? AND status = \\? AND next_attempt_at = \\?"

	tests := []struct {
		name     string
		affected int64
		want     bool
		wantNext time.Time
	}{
		{name: "won the claim", affected: 1, want: true, wantNext: until},
		{name: "another worker claimed it", affected: 0, want: false, wantNext: due},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec(claimSQL).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(7), "pending", due).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			task := &domain.OutboxTask{ID: 7, Status: domain.TaskPending, NextAttemptAt: due}

			ok, err := NewOutboxRepository(db).Claim(context.Background(), task, until)

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantNext, task.NextAttemptAt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
