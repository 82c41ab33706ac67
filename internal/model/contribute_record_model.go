package model

import (
	"time"
)

// ContributeRecordModel 出资流水
type ContributeRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventId        string `json:"event_id" gorm:"uniqueIndex;not null"`
	ProjectAddress string `json:"project_address" gorm:"index;not null"`
	Address        string `json:"address" gorm:"not null"`

	// 原生出资金额与单位代币出资金额二选一，十进制字符串
	NativeAmount string `json:"native_amount" gorm:"type:varchar(78);default:'0'"`
	UnitAmount   string `json:"unit_amount" gorm:"type:varchar(78);default:'0'"`
	// 实际入账的单位金额
	CreditedAmount string `json:"credited_amount" gorm:"type:varchar(78);not null"`
}

// TableName 自定义表名
func (ContributeRecordModel) TableName() string {
	return "contribute_record"
}
