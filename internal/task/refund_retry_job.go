package task

import (
	"math/big"
	"time"

	"github.com/blues/ces/internal/config"
	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logger"
	"github.com/blues/ces/internal/logic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// RefundRetryJob 退款补偿任务。
// 退款批次中划转失败的记录处于已标记未到账状态，这里只重试支付这一步，
// 台账里的退款标记绝不重写，保证同一出资人不会被退款两次。
type RefundRetryJob struct {
	config      *config.Config
	registry    *escrow.Registry
	token       escrow.AssetTransfer
	refundLogic *logic.RefundRecordLogic
}

// NewRefundRetryJob 创建退款补偿任务
func NewRefundRetryJob(db *gorm.DB, cfg *config.Config, registry *escrow.Registry, token escrow.AssetTransfer) *RefundRetryJob {
	return &RefundRetryJob{
		config:      cfg,
		registry:    registry,
		token:       token,
		refundLogic: logic.NewRefundRecordLogic(db),
	}
}

// GetName 获取任务名称
func (j *RefundRetryJob) GetName() string {
	return "refund_retry_updater"
}

// GetSchedule 获取调度配置
func (j *RefundRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *RefundRetryJob) Execute() {
	logger.Info("Starting refund retry task")

	records, err := j.refundLogic.GetFailedRefunds()
	if err != nil {
		logger.Error("Failed to fetch failed refund records: %v", err)
		return
	}

	retriedCount := 0

	for _, record := range records {
		amount, ok := new(big.Int).SetString(record.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			logger.Error("Invalid refund amount in record %d: %s", record.Id, record.Amount)
			continue
		}
		projectAddr := common.HexToAddress(record.ProjectAddress)
		backerAddr := common.HexToAddress(record.Address)

		// 只重试支付，单条失败继续处理下一条
		if err := j.token.Send(projectAddr, backerAddr, amount); err != nil {
			logger.Error("Refund retry failed for record %d: %v", record.Id, err)
			if err := j.refundLogic.MarkRefundFailed(record.Id, err.Error()); err != nil {
				logger.Error("Failed to update refund record %d: %v", record.Id, err)
			}
			continue
		}

		if err := j.refundLogic.MarkRefundSuccess(record.Id); err != nil {
			logger.Error("Failed to update refund record %d: %v", record.Id, err)
			continue
		}

		logger.Info("Successfully retried refund record %d, amount: %s to address: %s",
			record.Id, record.Amount, record.Address)
		retriedCount++
	}

	logger.Info("Refund retry task completed. Retried %d records", retriedCount)
}
