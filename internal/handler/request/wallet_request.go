package request

// ImportAccountRequest 保存一个 seed phrase
type ImportAccountRequest struct {
	Name   string `json:"name" binding:"required,max=64"`
	Phrase string `json:"phrase" binding:"required"`
}

// DeriveAccountRequest 只计算地址，不保存
type DeriveAccountRequest struct {
	Phrase string `json:"phrase" binding:"required"`
}
