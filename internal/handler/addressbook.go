package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler/request"
	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/service"
)

type AddressBookHandler struct {
	svc *service.AddressBookService
}

func NewAddressBookHandler(svc *service.AddressBookService) *AddressBookHandler {
	return &AddressBookHandler{svc: svc}
}

// List GET /api/v1/addressbook
func (h *AddressBookHandler) List(c *gin.Context) {
	entries, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, entries)
}

// Add POST /api/v1/addressbook
func (h *AddressBookHandler) Add(c *gin.Context) {
	var req request.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	entry, err := h.svc.Add(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, entry)
}

// Remove DELETE /api/v1/addressbook/:name
func (h *AddressBookHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
