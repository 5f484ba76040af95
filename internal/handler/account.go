package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/service"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Lookup 查询账户余额、nonce 与加密余额；本地持有密钥时附带解密后的余额
// GET /api/v1/accounts/:address
func (h *AccountHandler) Lookup(c *gin.Context) {
	info, err := h.svc.Lookup(c.Request.Context(), c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, info)
}
