package model

import (
	"time"
)

// RefundRecordModel 退款流水
type RefundRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId        string `json:"event_id" gorm:"uniqueIndex;not null"`
	ProjectAddress string `json:"project_address" gorm:"index;not null"`
	Address        string `json:"address" gorm:"not null"`
	// 退款金额，十进制字符串
	Amount       string `json:"amount" gorm:"type:varchar(78);not null"`
	Status       string `json:"status" gorm:"default:'pending'"` // pending, success, failed
	RefundReason string `json:"refund_reason" gorm:"type:text"`
}

// TableName 自定义表名
func (RefundRecordModel) TableName() string {
	return "refund_record"
}

// RefundStatus 退款状态
type RefundStatus string

const (
	RefundStatusPending RefundStatus = "pending" // 待处理
	RefundStatusSuccess RefundStatus = "success" // 成功
	RefundStatusFailed  RefundStatus = "failed"  // 失败
)
