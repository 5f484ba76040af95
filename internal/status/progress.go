package status

import "fmt"

// Progress 确认进度。Total 小于 2 时不显示计数。
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Label 返回 "当前 of 总数"，Current 超过 Total 时按 Total 显示
func (p Progress) Label() (string, bool) {
	if p.Total < 2 {
		return "", false
	}
	current := p.Current
	if current < 0 {
		current = 0
	}
	if current > p.Total {
		current = p.Total
	}
	return fmt.Sprintf("%d of %d", current, p.Total), true
}
