package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContributeRecordHandler struct {
	recordLogic *logic.ContributeRecordLogic
}

func NewContributeRecordHandler(db *gorm.DB) *ContributeRecordHandler {
	return &ContributeRecordHandler{
		recordLogic: logic.NewContributeRecordLogic(db),
	}
}

// GetProjectContributions 获取项目出资流水
func (h *ContributeRecordHandler) GetProjectContributions(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.recordLogic.GetProjectContributions(address.Hex(), page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"contributions": records,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}
