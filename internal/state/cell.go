// Package state 服务端数据的本地快照，可订阅变更
package state

import (
	"sort"
	"sync"
)

// ReadOnly 只读视图，交给不允许写入的使用方
type ReadOnly[T any] interface {
	Get() T
	Version() uint64
	Subscribe(fn func(T)) (unsubscribe func())
}

// Cell 持有一份值；读写都经 clone 复制，调用方不会与其共享底层存储
type Cell[T any] struct {
	mu        sync.RWMutex
	value     T
	version   uint64
	clone     func(T) T
	observers map[int]func(T)
	nextID    int
}

// New 创建 Cell；clone 为 nil 时按赋值复制
func New[T any](initial T, clone func(T) T) *Cell[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Cell[T]{
		value:     clone(initial),
		clone:     clone,
		observers: make(map[int]func(T)),
	}
}

// NewSlice 创建切片类型的 Cell，每次读写都复制
func NewSlice[E any](initial []E) *Cell[[]E] {
	return New(initial, CloneSlice[E])
}

// CloneSlice 浅拷贝切片，nil 返回空切片
func CloneSlice[E any](in []E) []E {
	out := make([]E, len(in))
	copy(out, in)
	return out
}

// Get 返回当前值的副本
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value)
}

// Version 写入次数，每次 Set/Update 加一
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Set 替换当前值，释放锁后通知订阅者
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = c.clone(v)
	c.version++
	snapshot := c.clone(c.value)
	observers := c.observerList()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// Update 基于当前值的副本计算新值并写入
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.value = c.clone(fn(c.clone(c.value)))
	c.version++
	snapshot := c.clone(c.value)
	observers := c.observerList()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// Subscribe 注册订阅，返回取消函数（可重复调用）
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// ReadOnly 不含写方法的视图
func (c *Cell[T]) ReadOnly() ReadOnly[T] {
	return readOnly[T]{cell: c}
}

// observerList 需持有写锁调用，按注册顺序返回
func (c *Cell[T]) observerList() []func(T) {
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.observers[id])
	}
	return out
}

type readOnly[T any] struct {
	cell *Cell[T]
}

func (r readOnly[T]) Get() T { return r.cell.Get() }
func (r readOnly[T]) Version() uint64 { return r.cell.Version() }
func (r readOnly[T]) Subscribe(fn func(T)) func() { return r.cell.Subscribe(fn) }
