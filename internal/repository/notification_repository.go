package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

const notificationBatchSize = 500

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// CreateBatch inserts every notification in one transaction.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&notifications, notificationBatchSize).Error
	})
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var notification model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if filter.UnreadOnly {
		query = query.Where("is_read = FALSE")
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var notifications []model.Notification
	if err := paginate(query.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkAsRead flags a notification of userID as read. Already read
// notifications keep their original read_at.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", at),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = FALSE", userID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *NotificationRepository) Stats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	var rows []struct {
		Type   model.NotificationType
		Total  int64
		Unread int64
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_read = FALSE) AS unread
		FROM notifications
		WHERE user_id = ?
		GROUP BY type
	`, userID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &model.NotificationStats{ByType: make(map[model.NotificationType]int64, len(rows))}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Unread += row.Unread
		stats.ByType[row.Type] = row.Total
	}
	return stats, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).Where("is_read = FALSE").Count(&count).Error
	return count, err
}

func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = TRUE AND created_at < ?", before).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
