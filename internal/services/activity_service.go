package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"orderportal/server/internal/models"
)

// ActivityService stores the portal's audit trail of submit/send attempts.
// A nil service (no database configured) silently records nothing.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	if db == nil {
		return nil
	}
	return &ActivityService{db: db}
}

func (s *ActivityService) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *ActivityService) Record(ctx context.Context, activity *models.OrderActivity) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to record %s activity: %w", activity.Action, err)
	}
	return nil
}

// Recent returns the newest entries, optionally limited to one user
func (s *ActivityService) Recent(ctx context.Context, username string, limit int) ([]models.OrderActivity, error) {
	if !s.Enabled() {
		return []models.OrderActivity{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.OrderActivity{}).
		Order("created_at DESC").
		Limit(limit)
	if username != "" {
		query = query.Where("username = ?", username)
	}

	var activities []models.OrderActivity
	if err := query.Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	return activities, nil
}

// ForOrder returns the history of a single backend order
func (s *ActivityService) ForOrder(ctx context.Context, orderID int64) ([]models.OrderActivity, error) {
	if !s.Enabled() {
		return []models.OrderActivity{}, nil
	}
	var activities []models.OrderActivity
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activity for order %d: %w", orderID, err)
	}
	return activities, nil
}
