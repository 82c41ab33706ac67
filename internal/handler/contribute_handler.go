package handler

import (
	"net/http"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContributeHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewContributeHandler(db *gorm.DB, registry *escrow.Registry) *ContributeHandler {
	return &ContributeHandler{
		projectLogic: logic.NewProjectLogic(db, registry),
	}
}

// Contribute 出资
func (h *ContributeHandler) Contribute(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	contributor, err := parseAddress(req.Contributor)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	nativeAmount, err := parseAmount(req.NativeAmount)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	unitAmount, err := parseAmount(req.UnitAmount)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// 截止触发的整体退款失败时出资本身已入账，流水由logic层落库
	result, err := h.projectLogic.Contribute(address, contributor, nativeAmount, unitAmount)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "出资成功", gin.H{
		"credited":     result.Credited.String(),
		"raised":       result.Raised.String(),
		"status":       result.Status,
		"refund_count": len(result.Refunds),
	})
}
