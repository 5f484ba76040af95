package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/service"
)

type DebugHandler struct {
	transfers *service.TransferService
}

func NewDebugHandler(transfers *service.TransferService) *DebugHandler {
	return &DebugHandler{transfers: transfers}
}

// Transfers join 模式、期望确认数以及正在跟踪的转账
// GET /api/v1/debug/transfers
func (h *DebugHandler) Transfers(c *gin.Context) {
	response.Success(c, h.transfers.Diagnostics())
}

// Sweep 立即清理过期的终态记录
// POST /api/v1/debug/sweep
func (h *DebugHandler) Sweep(c *gin.Context) {
	n, err := h.transfers.Sweep(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}
