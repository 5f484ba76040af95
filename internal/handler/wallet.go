package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler/request"
	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/service"
)

type WalletHandler struct {
	svc *service.WalletService
}

func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// NewMnemonic 生成新的助记词 (不保存)
// POST /api/v1/wallet/mnemonic
func (h *WalletHandler) NewMnemonic(c *gin.Context) {
	phrase, id, err := h.svc.Generate()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"phrase": phrase, "address": id})
}

// Derive POST /api/v1/wallet/derive
func (h *WalletHandler) Derive(c *gin.Context) {
	var req request.DeriveAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	id, err := h.svc.Derive(req.Phrase)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"address": id})
}

// Import POST /api/v1/wallet/accounts
func (h *WalletHandler) Import(c *gin.Context) {
	var req request.ImportAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	acc, err := h.svc.Import(req.Phrase, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, acc)
}

// List GET /api/v1/wallet/accounts
func (h *WalletHandler) List(c *gin.Context) {
	response.Success(c, h.svc.List())
}

// Forget DELETE /api/v1/wallet/accounts/:name
func (h *WalletHandler) Forget(c *gin.Context) {
	if err := h.svc.Forget(c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
