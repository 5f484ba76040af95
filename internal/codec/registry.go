// Package codec 维护链上自定义类型到基础编码的映射，
// 客户端与节点使用同一份映射编码 call 参数。
package codec

import (
	"fmt"
	"sort"
	"sync"
)

// 基础类型
const (
	Bytes = "Vec<u8>" // compact 长度前缀 + 原始字节
	Hash  = "Hash"    // 定长 32 字节
	U64   = "u64"     // 8 字节小端
)

const HashLen = 32

var primitives = map[string]bool{Bytes: true, Hash: true, U64: true}

// Registry 类型名 -> 基础类型 (或另一个已注册的名字)
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]string
}

func NewRegistry() *Registry {
	return &Registry{transforms: make(map[string]string)}
}

// Default 返回带有 zerochain 类型映射的注册表
func Default() *Registry {
	r := NewRegistry()
	for _, t := range []struct{ name, base string }{
		{"PreparedVk", Bytes},
		{"Ciphertext", Bytes},
		{"Proof", Bytes},
		{"PkdAddress", Hash},
		{"SigVerificationKey", Hash},
	} {
		if err := r.AddTransform(t.name, t.base); err != nil {
			panic(err)
		}
	}
	return r
}

// AddTransform 注册 name -> base。base 必须能解析到基础类型。
func (r *Registry) AddTransform(name, base string) error {
	if name == "" || primitives[name] {
		return fmt.Errorf("codec: cannot redefine %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.resolveLocked(base, map[string]bool{name: true}); err != nil {
		return err
	}
	r.transforms[name] = base
	return nil
}

// Resolve 返回名字最终对应的基础类型
func (r *Registry) Resolve(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(name, map[string]bool{})
}

func (r *Registry) resolveLocked(name string, seen map[string]bool) (string, error) {
	for {
		if primitives[name] {
			return name, nil
		}
		if seen[name] {
			return "", fmt.Errorf("codec: cyclic type %q", name)
		}
		seen[name] = true
		next, ok := r.transforms[name]
		if !ok {
			return "", fmt.Errorf("codec: unknown type %q", name)
		}
		name = next
	}
}

// Types 返回所有自定义映射，用于日志和 system 接口
func (r *Registry) Types() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.transforms))
	for k, v := range r.transforms {
		out[k] = v
	}
	return out
}

// Names 排序后的类型名
func (r *Registry) Names() []string {
	types := r.Types()
	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Encode 按类型编码一个值
func (r *Registry) Encode(name string, value []byte) ([]byte, error) {
	base, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	switch base {
	case Bytes:
		return append(EncodeCompact(uint64(len(value))), value...), nil
	case Hash:
		if len(value) != HashLen {
			return nil, fmt.Errorf("codec: %s expects %d bytes, got %d", name, HashLen, len(value))
		}
		return append([]byte(nil), value...), nil
	case U64:
		if len(value) != 8 {
			return nil, fmt.Errorf("codec: %s expects 8 bytes, got %d", name, len(value))
		}
		return append([]byte(nil), value...), nil
	}
	return nil, fmt.Errorf("codec: no encoder for %q", base)
}

// Decode 从 data 头部解出一个值，返回值和消耗的字节数
func (r *Registry) Decode(name string, data []byte) ([]byte, int, error) {
	base, err := r.Resolve(name)
	if err != nil {
		return nil, 0, err
	}
	switch base {
	case Bytes:
		n, used, err := DecodeCompact(data)
		if err != nil {
			return nil, 0, err
		}
		if uint64(len(data)-used) < n {
			return nil, 0, ErrShortInput
		}
		end := used + int(n)
		return append([]byte(nil), data[used:end]...), end, nil
	case Hash, U64:
		size := HashLen
		if base == U64 {
			size = 8
		}
		if len(data) < size {
			return nil, 0, ErrShortInput
		}
		return append([]byte(nil), data[:size]...), size, nil
	}
	return nil, 0, fmt.Errorf("codec: no decoder for %q", base)
}
