package handler

import (
	"net/http"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RefundHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewRefundHandler(db *gorm.DB, registry *escrow.Registry) *RefundHandler {
	return &RefundHandler{
		projectLogic: logic.NewProjectLogic(db, registry),
	}
}

// RequestRefund 发起整体退款，幂等
func (h *RefundHandler) RequestRefund(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.projectLogic.RequestRefund(address)
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	refunded := 0
	for _, r := range results {
		if r.Err == nil {
			refunded++
		}
	}
	SuccessResponse(c, http.StatusOK, "退款完成", gin.H{
		"refund_count": refunded,
	})
}
