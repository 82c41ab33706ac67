package model

import (
	"time"
)

// BackerModel 出资人台账记录
type BackerModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectAddress string `json:"project_address" gorm:"uniqueIndex:idx_backer_project_address;not null"`
	Address        string `json:"address" gorm:"uniqueIndex:idx_backer_project_address;not null"`
	// 累计出资金额，十进制字符串
	Contribution     string    `json:"contribution" gorm:"type:varchar(78);default:'0'"`
	LastActivityTime time.Time `json:"last_activity_time"`
	Refunded         bool      `json:"refunded" gorm:"default:false"`
}

// TableName 自定义表名
func (BackerModel) TableName() string {
	return "backer"
}
