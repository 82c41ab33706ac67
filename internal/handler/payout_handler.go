package handler

import (
	"net/http"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PayoutHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewPayoutHandler(db *gorm.DB, registry *escrow.Registry) *PayoutHandler {
	return &PayoutHandler{
		projectLogic: logic.NewProjectLogic(db, registry),
	}
}

// PayOut 结算项目
func (h *PayoutHandler) PayOut(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.projectLogic.PayOut(address, caller)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "结算成功", gin.H{
		"tax": result.Tax.String(),
		"net": result.Net.String(),
	})
}
