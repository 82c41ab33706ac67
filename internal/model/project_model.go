package model

import (
	"time"
)

// ProjectModel 众筹项目快照
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Address     string `json:"address" gorm:"uniqueIndex;not null"`
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`

	// 托管信息，金额为十进制字符串（uint256）
	Goal       string `json:"goal" gorm:"type:varchar(78);not null"`
	Raised     string `json:"raised" gorm:"type:varchar(78);default:'0'"`
	TaxRateBps uint32 `json:"tax_rate_bps"`

	// 时间信息
	Deadline time.Time `json:"deadline" gorm:"not null"`

	// 状态
	Status string `json:"status" gorm:"default:'open'"`

	// 参与方
	CreatorAddress     string `json:"creator_address" gorm:"not null"`
	BeneficiaryAddress string `json:"beneficiary_address" gorm:"not null"`
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
