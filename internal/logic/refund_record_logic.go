package logic

import (
	"fmt"

	"github.com/blues/ces/internal/model"
	"gorm.io/gorm"
)

// RefundRecordLogic 退款流水业务逻辑
type RefundRecordLogic struct {
	db *gorm.DB
}

// NewRefundRecordLogic 创建退款流水业务逻辑
func NewRefundRecordLogic(db *gorm.DB) *RefundRecordLogic {
	return &RefundRecordLogic{db: db}
}

// GetProjectRefunds 分页获取项目退款流水
func (l *RefundRecordLogic) GetProjectRefunds(projectAddress string, page, pageSize int) ([]model.RefundRecordModel, int64, error) {
	query := l.db.Model(&model.RefundRecordModel{}).
		Where("project_address = ?", projectAddress)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取退款流水失败: %w", err)
	}

	var records []model.RefundRecordModel
	if err := query.Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取退款流水失败: %w", err)
	}

	return records, total, nil
}

// GetFailedRefunds 获取划转失败待补偿的退款流水
func (l *RefundRecordLogic) GetFailedRefunds() ([]model.RefundRecordModel, error) {
	var records []model.RefundRecordModel
	err := l.db.Where("status = ?", model.RefundStatusFailed).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("获取失败退款流水失败: %w", err)
	}
	return records, nil
}

// MarkRefundSuccess 标记退款成功
func (l *RefundRecordLogic) MarkRefundSuccess(id int64) error {
	return l.db.Model(&model.RefundRecordModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.RefundStatusSuccess,
			"refund_reason": "",
		}).Error
}

// MarkRefundFailed 标记退款失败并记录原因
func (l *RefundRecordLogic) MarkRefundFailed(id int64, reason string) error {
	return l.db.Model(&model.RefundRecordModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.RefundStatusFailed,
			"refund_reason": reason,
		}).Error
}
