package rxgo

import (
	"sync"
)

// ============================================================================
// 操作符订阅者
// ============================================================================

// OperatorHooks 操作符订阅者的可选回调
//
// OnNext/OnError/OnComplete 替换默认的转发行为，其中的panic被转发到目标的Error；
// OnFinalize 在订阅者关闭后执行一次；
// ShouldUnsubscribe 返回false时拒绝本次取消订阅（GroupBy用于在仍有分组订阅时保持源）。
type OperatorHooks struct {
	OnNext            func(value interface{})
	OnError           func(err error)
	OnComplete        func()
	OnFinalize        func()
	ShouldUnsubscribe func() bool
}

// NewOperatorSubscriber 创建操作符使用的中间订阅者
// 未提供的回调按默认行为转发给destination；终止通知之后自动取消订阅
func NewOperatorSubscriber(destination Observer, hooks OperatorHooks) *Subscriber {
	return newSubscriber(destination, hooks)
}

// nextHook 只拦截next的便捷写法
func nextHook(onNext func(value interface{})) OperatorHooks {
	return OperatorHooks{OnNext: onNext}
}

func noop() {}

// ============================================================================
// 回调串行化
// ============================================================================

// serialGate 把一个操作符的所有回调串行执行
// 源的通知、定时器回调、内部订阅的通知可能来自不同的goroutine（例如AsyncScheduler的事件循环），
// 它们经过同一个gate后一次只执行一个。执行期间到达的回调（重入或来自其他goroutine）排队，
// 由当前执行者在返回前依次执行，因此回调中调用下游不会死锁。
type serialGate struct {
	mu          sync.Mutex
	queue       []func()
	running     bool
	destination *Subscriber
}

func newSerialGate(destination *Subscriber) *serialGate {
	return &serialGate{destination: destination}
}

// run 执行fn或把它排到当前执行者之后，fn中的panic作为错误发往下游
func (g *serialGate) run(fn func()) {
	g.mu.Lock()
	g.queue = append(g.queue, fn)
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	for len(g.queue) > 0 {
		next := g.queue[0]
		g.queue[0] = nil
		g.queue = g.queue[1:]
		g.mu.Unlock()
		if err := tryCatch(next); err != nil {
			g.destination.Error(err)
		}
		g.mu.Lock()
	}
	g.running = false
	g.mu.Unlock()
}

// wrap 返回经过gate执行的fn
func (g *serialGate) wrap(fn func()) func() {
	return func() { g.run(fn) }
}

// hooks 让钩子经过gate执行，未提供的next/error/complete按默认行为转发给下游
func (g *serialGate) hooks(h OperatorHooks) OperatorHooks {
	dest := g.destination
	onNext, onError, onComplete, onFinalize := h.OnNext, h.OnError, h.OnComplete, h.OnFinalize
	if onNext == nil {
		onNext = dest.Next
	}
	if onError == nil {
		onError = dest.Error
	}
	if onComplete == nil {
		onComplete = dest.Complete
	}
	h.OnNext = func(value interface{}) { g.run(func() { onNext(value) }) }
	h.OnError = func(err error) { g.run(func() { onError(err) }) }
	h.OnComplete = g.wrap(onComplete)
	if onFinalize != nil {
		h.OnFinalize = g.wrap(onFinalize)
	}
	return h
}
