package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ActivityAction is the outcome recorded for a submit or send attempt
type ActivityAction string

const (
	ActivitySubmitted    ActivityAction = "submitted"
	ActivitySubmitFailed ActivityAction = "submit_failed"
	ActivitySent         ActivityAction = "sent"
	ActivitySendFailed   ActivityAction = "send_failed"
)

// OrderActivity is the portal-side audit trail of order mutations.
// The backend stays the source of truth for orders; this table only records
// who tried what from which session.
type OrderActivity struct {
	ID         string              `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID  string              `json:"session_id" gorm:"type:varchar(64);index"`
	Username   string              `json:"username" gorm:"type:varchar(255);index"`
	Action     ActivityAction      `json:"action" gorm:"type:varchar(32);not null;index"`
	OrderID    *int64              `json:"order_id" gorm:"index"`
	SupplierID int64               `json:"supplier_id"`
	LineCount  int                 `json:"line_count"`
	Total      decimal.NullDecimal `json:"total" gorm:"type:decimal(15,2)"`
	Message    string              `json:"message" gorm:"type:text"`
	CreatedAt  time.Time           `json:"created_at" gorm:"autoCreateTime;index"`
}

func (OrderActivity) TableName() string {
	return "order_activities"
}

func (a *OrderActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
