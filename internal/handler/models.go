package handler

import (
	"fmt"
	"math/big"
	"time"

	"github.com/blues/ces/internal/escrow"
	"github.com/ethereum/go-ethereum/common"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Creator     string `json:"creator" binding:"required"`
	Beneficiary string `json:"beneficiary" binding:"required"`
	Goal        string `json:"goal" binding:"required"`
	Deadline    int64  `json:"deadline" binding:"required"` // Unix秒
	TaxRateBps  uint32 `json:"tax_rate_bps"`
}

// ContributeRequest 出资请求，原生金额与单位金额二选一
type ContributeRequest struct {
	Contributor  string `json:"contributor" binding:"required"`
	NativeAmount string `json:"native_amount"`
	UnitAmount   string `json:"unit_amount"`
}

// PayoutRequest 结算请求
type PayoutRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// UpdateProjectRequest 更新项目请求，nil 字段不更新
type UpdateProjectRequest struct {
	Caller      string  `json:"caller" binding:"required"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Deadline    *int64  `json:"deadline"` // Unix秒
	TaxRateBps  *uint32 `json:"tax_rate_bps"`
}

// ProjectDetail 项目详情响应
type ProjectDetail struct {
	Address     string    `json:"address"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Creator     string    `json:"creator"`
	Beneficiary string    `json:"beneficiary"`
	Goal        string    `json:"goal"`
	Raised      string    `json:"raised"`
	TaxRateBps  uint32    `json:"tax_rate_bps"`
	Deadline    time.Time `json:"deadline"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
	BackerCount int       `json:"backer_count"`
}

// newProjectDetail 从注册表项目构造详情
func newProjectDetail(p *escrow.Project) ProjectDetail {
	stats := p.Stats()
	return ProjectDetail{
		Address:     p.Address().Hex(),
		Title:       p.Title(),
		Description: p.Description(),
		ImageURL:    p.ImageURL(),
		Creator:     p.Creator().Hex(),
		Beneficiary: p.Beneficiary().Hex(),
		Goal:        stats.Cost.String(),
		Raised:      stats.Raised.String(),
		TaxRateBps:  p.TaxRateBps(),
		Deadline:    stats.ExpiresAt,
		CreatedAt:   stats.CreatedAt,
		Status:      string(stats.Status),
		BackerCount: stats.BackerCount,
	}
}

// parseAddress 解析并校验十六进制地址
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("无效的地址: %s", s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount 解析十进制金额字符串，空串返回 nil
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("无效的金额: %s", s)
	}
	return v, nil
}
