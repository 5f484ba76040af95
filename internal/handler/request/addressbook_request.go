package request

type AddEntryRequest struct {
	Name    string `json:"name" binding:"required,max=64"`
	Address string `json:"address" binding:"required,zcaddress"`
}
