package identity

import (
	"sort"
	"sync"

	"github.com/dujiao-next/storefront/internal/constants"
)

// Event 认证状态变更事件
type Event struct {
	Type    string // constants.AuthEventSignedIn / AuthEventSignedOut
	Session *Session
}

// SignedIn 是否为登录事件
func (e Event) SignedIn() bool {
	return e.Type == constants.AuthEventSignedIn
}

// Broadcaster 认证事件分发；同一消费者最多保留一个订阅，重复订阅会替换旧回调
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]subscription
	serial uint64
}

type subscription struct {
	serial uint64
	fn     func(Event)
}

// NewBroadcaster 创建事件分发器
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]subscription)}
}

// Subscribe 注册消费者回调，返回的函数只会移除本次注册
func (b *Broadcaster) Subscribe(consumer string, fn func(Event)) func() {
	b.mu.Lock()
	b.serial++
	serial := b.serial
	b.subs[consumer] = subscription{serial: serial, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if current, ok := b.subs[consumer]; ok && current.serial == serial {
			delete(b.subs, consumer)
		}
	}
}

// Subscribers 当前订阅数
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish 按订阅顺序同步通知，回调在锁外执行
func (b *Broadcaster) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].serial < subs[j].serial })
	for _, sub := range subs {
		sub.fn(evt)
	}
}
