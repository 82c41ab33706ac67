package task

import (
	"sync"
	"time"

	"github.com/blues/ces/internal/config"
	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logger"
	"github.com/blues/ces/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// 截止巡检协程池大小
const deadlinePoolSize = 8

// ProjectDeadlineJob 项目截止巡检任务。
// 出资路径之外的兜底：没有新出资的到期项目也会被及时转为失败并退款。
type ProjectDeadlineJob struct {
	config       *config.Config
	registry     *escrow.Registry
	projectLogic *logic.ProjectLogic
}

// NewProjectDeadlineJob 创建项目截止巡检任务
func NewProjectDeadlineJob(db *gorm.DB, cfg *config.Config, registry *escrow.Registry) *ProjectDeadlineJob {
	return &ProjectDeadlineJob{
		config:       cfg,
		registry:     registry,
		projectLogic: logic.NewProjectLogic(db, registry),
	}
}

// GetName 获取任务名称
func (j *ProjectDeadlineJob) GetName() string {
	return "project_deadline_sweeper"
}

// GetSchedule 获取调度配置
func (j *ProjectDeadlineJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务。跨项目互不影响，用协程池并发巡检。
func (j *ProjectDeadlineJob) Execute() {
	logger.Info("Starting project deadline sweep")

	projects := j.registry.Projects()

	pool, err := ants.NewPool(deadlinePoolSize)
	if err != nil {
		logger.Error("Failed to create deadline sweep pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	reverted := 0

	for _, project := range projects {
		if project.Status() != escrow.StatusOpen {
			continue
		}
		addr := project.Address()
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			refunds, fired, err := j.projectLogic.SweepDeadline(addr)
			if err != nil {
				logger.Error("Deadline sweep failed for project %s: %v", addr.Hex(), err)
			}
			if fired {
				logger.Info("Project %s reverted on deadline, refunded %d backers", addr.Hex(), len(refunds))
				mu.Lock()
				reverted++
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit deadline sweep for project %s: %v", addr.Hex(), submitErr)
		}
	}

	wg.Wait()
	logger.Info("Project deadline sweep completed. Reverted %d projects", reverted)
}
