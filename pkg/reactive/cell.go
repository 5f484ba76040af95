// Package reactive 提供单值可观察容器 Cell 以及基于多个 Cell 的派生 (join)。
//
// Cell 同一时刻只有一个写者，可以有任意多个读者。订阅回调在写者的 goroutine 中
// 按写入顺序同步执行；回调内不能同步 Set/Reset 同一个 Cell。
package reactive

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// ErrClosed Cell 已经被关闭且没有值
var ErrClosed = errors.New("reactive: cell closed")

// View 是 Cell 的只读视图，交给上层 (CLI / HTTP handler) 使用
type View[T any] interface {
	Get() (T, bool)
	Ready() bool
	Subscribe(fn func(T)) (stop func())
	Watch(fn func(v T, ok bool)) (stop func())
	Await(ctx context.Context) (T, error)
}

// Dependency 可以作为 Derive 输入的 Cell
type Dependency interface {
	Ready() bool
	observe(fn func()) (stop func())
}

type subscriber[T any] struct {
	fn     func(T, bool)
	active atomic.Bool
}

// Cell 单值可观察容器。未 Set 之前处于 unresolved 状态。
type Cell[T any] struct {
	mu   sync.Mutex
	emit sync.Mutex // 保证通知顺序与写入顺序一致

	value   T
	ready   bool
	closed  bool
	nextID  uint64
	subs    map[uint64]*subscriber[T]
	onClose []func()
	changed chan struct{}
}

// New 创建一个 unresolved 的 Cell
func New[T any]() *Cell[T] {
	return &Cell[T]{
		subs:    make(map[uint64]*subscriber[T]),
		changed: make(chan struct{}),
	}
}

// Of 创建一个已经有值的 Cell
func Of[T any](v T) *Cell[T] {
	c := New[T]()
	c.Set(v)
	return c
}

// Set 写入新值并通知所有订阅者。Close 之后的 Set 被忽略。
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.value = v
	c.ready = true
	c.dispatchLocked(v, true)
}

// Reset 回到 unresolved 状态，订阅者会收到 ok=false 的通知
func (c *Cell[T]) Reset() {
	c.mu.Lock()
	if c.closed || !c.ready {
		c.mu.Unlock()
		return
	}
	var zero T
	c.value = zero
	c.ready = false
	c.dispatchLocked(zero, false)
}

// dispatchLocked 在持有 mu 时调用，返回前释放 mu
func (c *Cell[T]) dispatchLocked(v T, ok bool) {
	subs := c.snapshotLocked()
	close(c.changed)
	c.changed = make(chan struct{})

	c.emit.Lock()
	c.mu.Unlock()
	defer c.emit.Unlock()

	for _, s := range subs {
		if s.active.Load() {
			s.fn(v, ok)
		}
	}
}

func (c *Cell[T]) snapshotLocked() []*subscriber[T] {
	if len(c.subs) == 0 {
		return nil
	}
	// 按订阅顺序通知
	ids := make([]uint64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*subscriber[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

// Get 返回当前值；unresolved 时 ok 为 false
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.ready
}

// Ready 当前是否有值
func (c *Cell[T]) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Closed 是否已经关闭
func (c *Cell[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Watch 订阅所有变化 (包括 Reset)。如果当前已经有值，会立即收到一次回调。
func (c *Cell[T]) Watch(fn func(v T, ok bool)) (stop func()) {
	return c.register(fn, true)
}

// Subscribe 只订阅有效值
func (c *Cell[T]) Subscribe(fn func(T)) (stop func()) {
	return c.Watch(func(v T, ok bool) {
		if ok {
			fn(v)
		}
	})
}

func (c *Cell[T]) observe(fn func()) (stop func()) {
	return c.register(func(T, bool) { fn() }, false)
}

func (c *Cell[T]) register(fn func(T, bool), deliverCurrent bool) func() {
	c.mu.Lock()
	if c.closed {
		v, ok := c.value, c.ready
		c.mu.Unlock()
		if deliverCurrent && ok {
			fn(v, true)
		}
		return func() {}
	}

	id := c.nextID
	c.nextID++
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)
	c.subs[id] = s

	stop := func() {
		s.active.Store(false)
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}

	if !deliverCurrent || !c.ready {
		c.mu.Unlock()
		return stop
	}

	v := c.value
	c.emit.Lock()
	c.mu.Unlock()
	defer c.emit.Unlock()
	if s.active.Load() {
		fn(v, true)
	}
	return stop
}

// Await 阻塞直到 Cell 有值、ctx 结束或 Cell 被关闭
func (c *Cell[T]) Await(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		if c.ready {
			v := c.value
			c.mu.Unlock()
			return v, nil
		}
		if c.closed {
			c.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// OnClose 注册 Close 时执行的清理函数
func (c *Cell[T]) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Close 释放订阅并执行清理函数。已有的值仍然可以通过 Get 读取。
func (c *Cell[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, s := range c.subs {
		s.active.Store(false)
	}
	c.subs = nil
	hooks := c.onClose
	c.onClose = nil
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}
