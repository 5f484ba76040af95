package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 复制一个错误码并替换提示信息 (例如带上参数校验的具体原因)
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var ptr *Errno
	if errors.As(err, &ptr) {
		return ptr.Code, ptr.Message
	}
	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
var (
	ErrKeyNotFound   = Errno{Code: 20101, Message: "Key not found"}
	ErrKeyNameTaken  = Errno{Code: 20102, Message: "Key name already in use"}
	ErrEmptySeed     = Errno{Code: 20103, Message: "Seed phrase is required"}
	ErrEntryNotFound = Errno{Code: 20201, Message: "Address book entry not found"}
	ErrEntryTaken    = Errno{Code: 20202, Message: "Address book name already in use"}

	ErrTransferNotFound = Errno{Code: 20301, Message: "Transfer not found"}
	ErrInvalidAmount    = Errno{Code: 20302, Message: "Invalid amount"}
	ErrInvalidAddress   = Errno{Code: 20303, Message: "Invalid address"}

	ErrChainUnavailable = Errno{Code: 20401, Message: "Chain node unavailable"}
)
