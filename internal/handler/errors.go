package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/addressbook"
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/repository"
	"github.com/zakimal/zero-chain-ui/internal/secretstore"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/internal/units"
	"github.com/zakimal/zero-chain-ui/pkg/errno"
	"github.com/zakimal/zero-chain-ui/pkg/validator"
)

// RegisterValidators 注册 zcaddress / zcamount 两个 binding 规则
func RegisterValidators(u units.Units) {
	validator.Init(map[string]func(string) bool{
		"zcaddress": func(s string) bool {
			_, err := chain.ParseAccountID(s)
			return err == nil
		},
		"zcamount": u.Valid,
	})
}

// toErrno 把各层的哨兵错误翻译成对外的错误码
func toErrno(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownSender), errors.Is(err, secretstore.ErrNotFound):
		return errno.ErrKeyNotFound
	case errors.Is(err, secretstore.ErrNameTaken), errors.Is(err, secretstore.ErrAlreadyStored):
		return errno.ErrKeyNameTaken
	case errors.Is(err, secretstore.ErrEmptySeed):
		return errno.ErrEmptySeed
	case errors.Is(err, secretstore.ErrEmptyName), errors.Is(err, addressbook.ErrEmptyName):
		return errno.ErrBind.WithMessage(err.Error())
	case errors.Is(err, addressbook.ErrNotFound):
		return errno.ErrEntryNotFound
	case errors.Is(err, addressbook.ErrNameTaken):
		return errno.ErrEntryTaken
	case errors.Is(err, repository.ErrTransferNotFound):
		return errno.ErrTransferNotFound
	case errors.Is(err, service.ErrInvalidAmount):
		return errno.ErrInvalidAmount.WithMessage(err.Error())
	case errors.Is(err, service.ErrInvalidAddress), errors.Is(err, chain.ErrInvalidAddress):
		return errno.ErrInvalidAddress
	case errors.Is(err, chain.ErrInvalidSignerSk), errors.Is(err, confidential.ErrInvalidProof):
		return errno.ErrBind.WithMessage(err.Error())
	case errors.Is(err, chain.ErrClosed), errors.Is(err, service.ErrClosed):
		return errno.ErrChainUnavailable
	default:
		return err
	}
}

func fail(c *gin.Context, err error) {
	response.Error(c, toErrno(err))
}

func bindError(c *gin.Context, err error) {
	response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
}
