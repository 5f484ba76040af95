package reactive

import "sync"

// Derive 基于多个依赖构造派生 Cell。
// 只有当所有依赖同时 ready、并且 compute 返回 ok 时派生 Cell 才有值；
// 任意依赖回到 unresolved 时派生 Cell 也会 Reset。
// 每次依赖变化且全部 ready 时都会重新计算一次 (level-triggered)。
func Derive[T any](compute func() (T, bool), deps ...Dependency) *Cell[T] {
	out := New[T]()

	var mu sync.Mutex
	update := func() {
		mu.Lock()
		defer mu.Unlock()
		if out.Closed() {
			return
		}
		for _, d := range deps {
			if !d.Ready() {
				out.Reset()
				return
			}
		}
		v, ok := compute()
		if !ok {
			out.Reset()
			return
		}
		out.Set(v)
	}

	stops := make([]func(), 0, len(deps))
	for _, d := range deps {
		stops = append(stops, d.observe(update))
	}
	out.OnClose(func() {
		for _, stop := range stops {
			stop()
		}
	})

	update()
	return out
}

// Map 对单个 Cell 做转换
func Map[T, U any](src *Cell[T], fn func(T) U) *Cell[U] {
	return Derive(func() (U, bool) {
		v, ok := src.Get()
		if !ok {
			var zero U
			return zero, false
		}
		return fn(v), true
	}, src)
}
