package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoStatus 节点返回了 null
var ErrNoStatus = errors.New("status: empty status")

// failureKeys 节点返回这些值时视为失败
var failureKeys = []string{"failed", "invalid", "dropped", "usurped", "finalityTimeout"}

// Decode 解析节点推送的状态。
//
// 节点的状态是 duck-typed 的 JSON: 字符串 ("ready", "invalid") 或单键对象
// ({"inBlock": "0x.."})，后者也可能同时带多个真值字段。按下面的顺序取第一个命中的:
//
//	signing -> sending -> broadcast / ready / inBlock -> finalised / finalized -> failed 系列
//
// 都不命中时返回 Unknown，Raw 为原始文本。
func Decode(raw []byte) (TransactionStatus, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return TransactionStatus{}, ErrNoStatus
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return TransactionStatus{}, fmt.Errorf("status: %w", err)
	}

	switch typed := v.(type) {
	case string:
		return fromFlags(map[string]interface{}{typed: true}, typed), nil
	case map[string]interface{}:
		return fromFlags(typed, compact(raw)), nil
	default:
		return NewUnknown(compact(raw)), nil
	}
}

func fromFlags(flags map[string]interface{}, raw string) TransactionStatus {
	switch {
	case truthy(flags["signing"]):
		return NewSigning()
	case truthy(flags["sending"]):
		return NewSending()
	case truthy(flags["broadcast"]):
		return NewBroadcast(stringList(flags["broadcast"])...)
	case truthy(flags["ready"]):
		return NewReady()
	case truthy(flags["inBlock"]):
		return NewInBlock(stringValue(flags["inBlock"]), intValue(flags["confirmations"]))
	case truthy(flags["finalised"]):
		return NewFinalised(stringValue(flags["finalised"]))
	case truthy(flags["finalized"]):
		return NewFinalised(stringValue(flags["finalized"]))
	}
	for _, key := range failureKeys {
		if truthy(flags[key]) {
			reason := key
			if detail := stringValue(flags[key]); detail != "" {
				reason = key + ": " + detail
				if key == "failed" {
					reason = detail
				}
			}
			return NewFailed(reason)
		}
	}
	return NewUnknown(raw)
}

// truthy 与 JS 的真值判断一致: false / 0 / "" / null 为假，其余为真 (包括空对象和空数组)
func truthy(v interface{}) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		return typed != ""
	default:
		return true
	}
}

// stringValue 取出状态附带的区块哈希等信息，布尔标记返回空串
func stringValue(v interface{}) string {
	if s, ok := v.(string); ok && s != "true" {
		return s
	}
	return ""
}

// intValue 节点在 inBlock 之后每出一个块会再推送一次，附带确认数
func intValue(v interface{}) int {
	if f, ok := v.(float64); ok && f > 0 {
		return int(f)
	}
	return 0
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}

// Encode 生成节点推送状态的 JSON，Decode(Encode(s)) 会得到同一个变体
func Encode(s TransactionStatus) json.RawMessage {
	var v interface{}
	switch s.Kind {
	case Signing, Sending:
		v = s.Kind.String()
	case Broadcast:
		switch {
		case s.Block != "" && s.Confirmations > 0:
			v = map[string]interface{}{"inBlock": s.Block, "confirmations": s.Confirmations}
		case s.Block != "":
			v = map[string]interface{}{"inBlock": s.Block}
		case len(s.Peers) > 0:
			v = map[string]interface{}{"broadcast": s.Peers}
		default:
			v = "ready"
		}
	case Finalised:
		v = map[string]interface{}{"finalized": s.Block}
	case Failed:
		reason := s.Reason
		if reason == "" {
			reason = "failed"
		}
		key, detail, _ := strings.Cut(reason, ": ")
		switch {
		case !slices.Contains(failureKeys, key):
			v = map[string]interface{}{"failed": reason}
		case detail == "":
			v = key
		default:
			v = map[string]interface{}{key: detail}
		}
	default:
		if json.Valid([]byte(s.Raw)) {
			return json.RawMessage(s.Raw)
		}
		v = s.Raw
	}
	out, _ := json.Marshal(v)
	return out
}
