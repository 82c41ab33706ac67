package logic

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logger"
	"github.com/blues/ces/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectLogic 项目业务逻辑。注册表是状态的唯一权威，
// 这里在每次成功操作后落库快照与流水。
type ProjectLogic struct {
	db       *gorm.DB
	registry *escrow.Registry
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB, registry *escrow.Registry) *ProjectLogic {
	return &ProjectLogic{db: db, registry: registry}
}

// Registry 暴露底层注册表
func (p *ProjectLogic) Registry() *escrow.Registry {
	return p.registry
}

// CreateProject 创建项目
func (p *ProjectLogic) CreateProject(params escrow.ProjectParams) (*escrow.Project, error) {
	project, err := p.registry.CreateProject(params)
	if err != nil {
		return nil, err
	}

	record := &model.ProjectModel{
		Address:            project.Address().Hex(),
		Title:              project.Title(),
		Description:        project.Description(),
		ImageURL:           project.ImageURL(),
		Goal:               project.Goal().String(),
		Raised:             "0",
		TaxRateBps:         project.TaxRateBps(),
		Deadline:           project.Deadline(),
		Status:             string(project.Status()),
		CreatorAddress:     project.Creator().Hex(),
		BeneficiaryAddress: project.Beneficiary().Hex(),
	}
	if err := p.db.Create(record).Error; err != nil {
		logger.Error("Failed to persist project %s: %v", project.Address().Hex(), err)
	}
	p.recordEvent(project.Address(), model.EventTypeProjectCreated,
		fmt.Sprintf("goal=%s deadline=%s", project.Goal(), project.Deadline()))

	return project, nil
}

// Contribute 出资并落库流水
func (p *ProjectLogic) Contribute(address, contributor common.Address, nativeAmount, unitAmount *big.Int) (*escrow.ContributionResult, error) {
	result, err := p.registry.Contribute(address, contributor, nativeAmount, unitAmount)
	if result == nil || result.Credited == nil {
		return result, err
	}

	record := &model.ContributeRecordModel{
		EventId:        uuid.NewString(),
		ProjectAddress: address.Hex(),
		Address:        contributor.Hex(),
		NativeAmount:   bigToStr(nativeAmount),
		UnitAmount:     bigToStr(unitAmount),
		CreditedAmount: result.Credited.String(),
	}
	if dbErr := p.db.Create(record).Error; dbErr != nil {
		logger.Error("Failed to persist contribute record for %s: %v", address.Hex(), dbErr)
	}
	p.recordEvent(address, model.EventTypeContribution,
		fmt.Sprintf("contributor=%s credited=%s status=%s", contributor.Hex(), result.Credited, result.Status))

	p.recordRefunds(address, result.Refunds, "deadline reverted")
	p.syncProject(address)
	return result, err
}

// RequestRefund 发起退款并落库流水
func (p *ProjectLogic) RequestRefund(address common.Address) ([]escrow.RefundResult, error) {
	results, err := p.registry.RequestRefund(address)
	p.recordRefunds(address, results, "refund requested")
	if len(results) > 0 {
		p.syncProject(address)
	}
	return results, err
}

// Delete 删除项目并落库流水
func (p *ProjectLogic) Delete(address, caller common.Address) ([]escrow.RefundResult, error) {
	results, err := p.registry.Delete(address, caller)
	if err != nil && len(results) == 0 {
		return results, err
	}
	p.recordEvent(address, model.EventTypeProjectDeleted, fmt.Sprintf("caller=%s", caller.Hex()))
	p.recordRefunds(address, results, "project deleted")
	p.syncProject(address)
	return results, err
}

// PayOut 结算并落库结算流水
func (p *ProjectLogic) PayOut(address, caller common.Address) (*escrow.PayoutResult, error) {
	project, err := p.registry.Get(address)
	if err != nil {
		return nil, err
	}
	total := project.Raised()

	result, err := p.registry.PayOut(address, caller)
	if err != nil {
		return nil, err
	}

	now := p.registry.Now()
	record := &model.SettlementRecordModel{
		EventId:            uuid.NewString(),
		ProjectAddress:     address.Hex(),
		TotalAmount:        total.String(),
		PlatformFee:        result.Tax.String(),
		CreatorAmount:      result.Net.String(),
		PlatformAddress:    caller.Hex(),
		BeneficiaryAddress: project.Beneficiary().Hex(),
		Status:             "success",
		SettlementTime:     &now,
	}
	if dbErr := p.db.Create(record).Error; dbErr != nil {
		logger.Error("Failed to persist settlement record for %s: %v", address.Hex(), dbErr)
	}
	p.recordEvent(address, model.EventTypeSettlement,
		fmt.Sprintf("tax=%s net=%s", result.Tax, result.Net))
	p.syncProject(address)
	return result, nil
}

// MetadataUpdate 元数据更新字段集合，nil 表示不更新
type MetadataUpdate struct {
	Title       *string
	Description *string
	ImageURL    *string
	Deadline    *int64 // Unix秒
	TaxRateBps  *uint32
}

// UpdateMetadata 更新项目元数据，逐字段校验
func (p *ProjectLogic) UpdateMetadata(address, caller common.Address, update MetadataUpdate) error {
	project, err := p.registry.Get(address)
	if err != nil {
		return err
	}

	if update.Title != nil {
		if err := project.UpdateTitle(caller, *update.Title); err != nil {
			return err
		}
	}
	if update.Description != nil {
		if err := project.UpdateDescription(caller, *update.Description); err != nil {
			return err
		}
	}
	if update.ImageURL != nil {
		if err := project.UpdateImageURL(caller, *update.ImageURL); err != nil {
			return err
		}
	}
	if update.Deadline != nil {
		deadline := time.Unix(*update.Deadline, 0)
		if err := project.UpdateDeadline(caller, deadline, p.registry.Now()); err != nil {
			return err
		}
	}
	if update.TaxRateBps != nil {
		if err := project.UpdateTaxRate(caller, *update.TaxRateBps); err != nil {
			return err
		}
	}

	p.recordEvent(address, model.EventTypeMetadataUpdated, fmt.Sprintf("caller=%s", caller.Hex()))
	p.syncProject(address)
	return nil
}

// SweepDeadline 截止巡检：到期的open项目转为reverted并触发整体退款。
// 返回值表示本次是否发生了状态转换。
func (p *ProjectLogic) SweepDeadline(address common.Address) ([]escrow.RefundResult, bool, error) {
	project, err := p.registry.Get(address)
	if err != nil {
		return nil, false, err
	}
	results, fired, err := project.CheckDeadline(p.registry.Now())
	if fired {
		p.recordEvent(address, model.EventTypeStatusChanged, "deadline reverted")
		p.recordRefunds(address, results, "deadline reverted")
		p.syncProject(address)
	}
	return results, fired, err
}

// GetProject 获取项目
func (p *ProjectLogic) GetProject(address common.Address) (*escrow.Project, error) {
	return p.registry.Get(address)
}

// GetProjects 获取项目快照列表
func (p *ProjectLogic) GetProjects(status string, page, pageSize int) ([]model.ProjectModel, int64, error) {
	query := p.db.Model(&model.ProjectModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	var projects []model.ProjectModel
	if err := query.Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// GetProjectStats 获取项目统计信息
func (p *ProjectLogic) GetProjectStats(address common.Address) (escrow.StatsResult, error) {
	return p.registry.Stats(address)
}

// GetAllBackers 获取项目出资人地址列表
func (p *ProjectLogic) GetAllBackers(address common.Address) ([]common.Address, error) {
	return p.registry.AllBackers(address)
}

// GetBackers 获取项目出资人台账快照
func (p *ProjectLogic) GetBackers(address common.Address) ([]escrow.Backer, error) {
	project, err := p.registry.Get(address)
	if err != nil {
		return nil, err
	}
	return project.Backers(), nil
}

// GetPlatformStats 获取平台汇总统计
func (p *ProjectLogic) GetPlatformStats() map[string]interface{} {
	stats := p.registry.PlatformStats()

	// 各状态项目数量来自快照表
	var openProjects, approvedProjects, revertedProjects, paidoutProjects int64
	p.db.Model(&model.ProjectModel{}).Where("status = ?", escrow.StatusOpen).Count(&openProjects)
	p.db.Model(&model.ProjectModel{}).Where("status = ?", escrow.StatusApproved).Count(&approvedProjects)
	p.db.Model(&model.ProjectModel{}).Where("status = ?", escrow.StatusReverted).Count(&revertedProjects)
	p.db.Model(&model.ProjectModel{}).Where("status = ?", escrow.StatusPaidOut).Count(&paidoutProjects)

	return map[string]interface{}{
		"totalProjects":      stats.TotalProjects,
		"totalContributions": stats.TotalContributions,
		"totalContributors":  stats.TotalContributors,
		"totalRaised":        stats.TotalRaised.String(),
		"openProjects":       openProjects,
		"approvedProjects":   approvedProjects,
		"revertedProjects":   revertedProjects,
		"paidoutProjects":    paidoutProjects,
	}
}

// syncProject 把注册表中的项目状态同步回快照表
func (p *ProjectLogic) syncProject(address common.Address) {
	project, err := p.registry.Get(address)
	if err != nil {
		return
	}

	updates := map[string]interface{}{
		"title":        project.Title(),
		"description":  project.Description(),
		"image_url":    project.ImageURL(),
		"raised":       project.Raised().String(),
		"status":       string(project.Status()),
		"deadline":     project.Deadline(),
		"tax_rate_bps": project.TaxRateBps(),
	}
	if err := p.db.Model(&model.ProjectModel{}).
		Where("address = ?", address.Hex()).
		Updates(updates).Error; err != nil {
		logger.Error("Failed to sync project %s: %v", address.Hex(), err)
	}

	for _, b := range project.Backers() {
		var record model.BackerModel
		err := p.db.Where("project_address = ? AND address = ?", address.Hex(), b.Address.Hex()).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = model.BackerModel{
				ProjectAddress: address.Hex(),
				Address:        b.Address.Hex(),
			}
		} else if err != nil {
			logger.Error("Failed to load backer %s/%s: %v", address.Hex(), b.Address.Hex(), err)
			continue
		}
		record.Contribution = b.Contribution.String()
		record.LastActivityTime = b.LastActivityTime
		record.Refunded = b.Refunded
		if err := p.db.Save(&record).Error; err != nil {
			logger.Error("Failed to sync backer %s/%s: %v", address.Hex(), b.Address.Hex(), err)
		}
	}
}

// recordRefunds 落库一轮退款的逐笔结果
func (p *ProjectLogic) recordRefunds(address common.Address, results []escrow.RefundResult, reason string) {
	for _, r := range results {
		record := &model.RefundRecordModel{
			EventId:        uuid.NewString(),
			ProjectAddress: address.Hex(),
			Address:        r.Backer.Hex(),
			Amount:         r.Amount.String(),
			Status:         string(model.RefundStatusSuccess),
			RefundReason:   reason,
		}
		if r.Err != nil {
			record.Status = string(model.RefundStatusFailed)
			record.RefundReason = r.Err.Error()
		}
		if err := p.db.Create(record).Error; err != nil {
			logger.Error("Failed to persist refund record for %s: %v", address.Hex(), err)
		}
	}
	if len(results) > 0 {
		p.recordEvent(address, model.EventTypeRefund, fmt.Sprintf("count=%d", len(results)))
	}
}

// recordEvent 落库审计事件
func (p *ProjectLogic) recordEvent(address common.Address, eventType, detail string) {
	event := &model.EventModel{
		EventId:        uuid.NewString(),
		ProjectAddress: address.Hex(),
		EventType:      eventType,
		Detail:         detail,
	}
	if err := p.db.Create(event).Error; err != nil {
		logger.Error("Failed to persist event %s for %s: %v", eventType, address.Hex(), err)
	}
}

// bigToStr 空值按0处理
func bigToStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
