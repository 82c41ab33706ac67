package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/ces/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RefundRecordHandler struct {
	recordLogic *logic.RefundRecordLogic
}

func NewRefundRecordHandler(db *gorm.DB) *RefundRecordHandler {
	return &RefundRecordHandler{
		recordLogic: logic.NewRefundRecordLogic(db),
	}
}

// GetProjectRefunds 获取项目退款流水
func (h *RefundRecordHandler) GetProjectRefunds(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.recordLogic.GetProjectRefunds(address.Hex(), page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"refunds":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
