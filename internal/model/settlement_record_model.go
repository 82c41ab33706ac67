package model

import (
	"time"
)

// SettlementRecordModel 结算流水
type SettlementRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventId        string `json:"event_id" gorm:"uniqueIndex;not null"`
	ProjectAddress string `json:"project_address" gorm:"index;not null"`

	// 金额为十进制字符串
	TotalAmount   string `json:"total_amount" gorm:"type:varchar(78);not null"`
	PlatformFee   string `json:"platform_fee" gorm:"type:varchar(78);default:'0'"`
	CreatorAmount string `json:"creator_amount" gorm:"type:varchar(78);default:'0'"`

	PlatformAddress    string `json:"platform_address"`
	BeneficiaryAddress string `json:"beneficiary_address"`

	Status         string     `json:"status" gorm:"default:'pending'"` // pending, success, failed
	SettlementTime *time.Time `json:"settlement_time"`
}

// TableName 自定义表名
func (SettlementRecordModel) TableName() string {
	return "settlement_record"
}
