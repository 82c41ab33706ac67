package logic

import (
	"fmt"

	"github.com/blues/ces/internal/model"
	"gorm.io/gorm"
)

// ContributeRecordLogic 出资流水业务逻辑
type ContributeRecordLogic struct {
	db *gorm.DB
}

// NewContributeRecordLogic 创建出资流水业务逻辑
func NewContributeRecordLogic(db *gorm.DB) *ContributeRecordLogic {
	return &ContributeRecordLogic{db: db}
}

// GetProjectContributions 分页获取项目出资流水
func (l *ContributeRecordLogic) GetProjectContributions(projectAddress string, page, pageSize int) ([]model.ContributeRecordModel, int64, error) {
	query := l.db.Model(&model.ContributeRecordModel{}).
		Where("project_address = ?", projectAddress)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取出资流水失败: %w", err)
	}

	var records []model.ContributeRecordModel
	if err := query.Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取出资流水失败: %w", err)
	}

	return records, total, nil
}

// GetContributorCount 项目去重出资人数
func (l *ContributeRecordLogic) GetContributorCount(projectAddress string) (int64, error) {
	var count int64
	err := l.db.Model(&model.ContributeRecordModel{}).
		Where("project_address = ?", projectAddress).
		Distinct("address").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("获取出资人数失败: %w", err)
	}
	return count, nil
}
