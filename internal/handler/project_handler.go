package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectHandler(db *gorm.DB, registry *escrow.Registry) *ProjectHandler {
	return &ProjectHandler{
		projectLogic: logic.NewProjectLogic(db, registry),
	}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	creator, err := parseAddress(req.Creator)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	beneficiary, err := parseAddress(req.Beneficiary)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := parseAmount(req.Goal)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// 调用logic层创建项目
	project, err := h.projectLogic.CreateProject(escrow.ProjectParams{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Creator:     creator,
		Beneficiary: beneficiary,
		Goal:        goal,
		Deadline:    time.Unix(req.Deadline, 0),
		TaxRateBps:  req.TaxRateBps,
	})
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", newProjectDetail(project))
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(status, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectLogic.GetProject(address)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", newProjectDetail(project))
}

// UpdateProject 更新项目元数据
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title == nil && req.Description == nil && req.ImageURL == nil &&
		req.Deadline == nil && req.TaxRateBps == nil {
		ErrorResponse(c, http.StatusBadRequest, "没有要更新的字段")
		return
	}

	err = h.projectLogic.UpdateMetadata(address, caller, logic.MetadataUpdate{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Deadline:    req.Deadline,
		TaxRateBps:  req.TaxRateBps,
	})
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "项目更新成功", nil)
}

// DeleteProject 删除项目并退款
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(c.Query("caller"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	refunds, err := h.projectLogic.Delete(address, caller)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "项目已删除", gin.H{
		"refund_count": len(refunds),
	})
}

// GetProjectStats 获取项目统计信息
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.projectLogic.GetProjectStats(address)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"cost":         stats.Cost.String(),
		"raised":       stats.Raised.String(),
		"backer_count": stats.BackerCount,
		"created_at":   stats.CreatedAt,
		"expires_at":   stats.ExpiresAt,
		"status":       stats.Status,
	})
}

// GetProjectBackers 获取项目出资人列表
func (h *ProjectHandler) GetProjectBackers(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	backers, err := h.projectLogic.GetBackers(address)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"backers": backers,
		"total":   len(backers),
	})
}

// GetPlatformStats 获取平台汇总统计
func (h *ProjectHandler) GetPlatformStats(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "", h.projectLogic.GetPlatformStats())
}
