package model

import (
	"time"
)

// EventModel 审计事件
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventId        string `json:"event_id" gorm:"uniqueIndex;not null"`
	ProjectAddress string `json:"project_address" gorm:"index"`
	EventType      string `json:"event_type" gorm:"not null"`
	Detail         string `json:"detail" gorm:"type:text"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}

// 审计事件类型
const (
	EventTypeProjectCreated  = "project_created"
	EventTypeContribution    = "contribution"
	EventTypeStatusChanged   = "status_changed"
	EventTypeRefund          = "refund"
	EventTypeSettlement      = "settlement"
	EventTypeMetadataUpdated = "metadata_updated"
	EventTypeProjectDeleted  = "project_deleted"
)
