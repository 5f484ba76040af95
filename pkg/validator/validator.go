package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Init 在 gin 的校验器上注册自定义规则。
// rules 的 key 是 binding tag，例如 "zcaddress"。
func Init(rules map[string]func(string) bool) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v, rules)
	}
}

// Register 注册基于字符串字段的规则，测试中可以直接对 validator.New() 调用
func Register(v *validator.Validate, rules map[string]func(string) bool) {
	for tag, rule := range rules {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		})
	}
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数错误"
	}

	errMsgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 长度至少为 %s", field, e.Param()))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 长度不能超过 %s", field, e.Param()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, e.Param()))
		case "zcaddress":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是有效的 zerochain 地址", field))
		case "zcamount":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是有效的金额", field))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
