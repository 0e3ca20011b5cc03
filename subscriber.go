package rxgo

import (
	"sync/atomic"

	"go.uber.org/multierr"
)

// ============================================================================
// Subscriber 通知协议的执行者
// ============================================================================

// Subscriber 接收next/error/complete通知并持有清理逻辑的订阅者
//
// 状态：active → stopped（收到终止通知）→ closed（随后自动取消订阅）；
// 外部取消订阅时 active → closed。closed之后的任何通知都被忽略。
type Subscriber struct {
	*Subscription
	isStopped   atomic.Bool
	destination Observer
	hooks       OperatorHooks
}

// NewSubscriber 创建转发到destination的订阅者
// destination为*Subscriber时，新订阅者的生命周期挂到destination上
func NewSubscriber(destination Observer) *Subscriber {
	return newSubscriber(destination, OperatorHooks{})
}

func newSubscriber(destination Observer, hooks OperatorHooks) *Subscriber {
	if destination == nil {
		destination = ObserverFuncs{}
	}
	s := &Subscriber{
		Subscription: &Subscription{},
		destination:  destination,
		hooks:        hooks,
	}
	if d, ok := destination.(*Subscriber); ok {
		d.Add(s)
	}
	return s
}

// Next 发送下一个值，停止后为空操作
func (s *Subscriber) Next(value interface{}) {
	if s.isStopped.Load() {
		handleStoppedNotification(NextNotification(value), s)
		return
	}
	if s.hooks.OnNext != nil {
		if err := tryCatch(func() { s.hooks.OnNext(value) }); err != nil {
			s.destination.Error(err)
		}
		return
	}
	s.destination.Next(value)
}

// Error 发送错误，只有第一次终止通知生效，之后取消订阅
func (s *Subscriber) Error(err error) {
	if !s.isStopped.CompareAndSwap(false, true) {
		handleStoppedNotification(ErrorNotification(err), s)
		return
	}
	defer s.unsubscribeAfterTerminal()
	if s.hooks.OnError != nil {
		if perr := tryCatch(func() { s.hooks.OnError(err) }); perr != nil {
			s.destination.Error(perr)
		}
		return
	}
	s.destination.Error(err)
}

// Complete 发送完成信号，只有第一次终止通知生效，之后取消订阅
func (s *Subscriber) Complete() {
	if !s.isStopped.CompareAndSwap(false, true) {
		handleStoppedNotification(CompleteNotification(), s)
		return
	}
	defer s.unsubscribeAfterTerminal()
	if s.hooks.OnComplete != nil {
		if err := tryCatch(s.hooks.OnComplete); err != nil {
			s.destination.Error(err)
		}
		return
	}
	s.destination.Complete()
}

// Unsubscribe 取消订阅并释放所有子资源
func (s *Subscriber) Unsubscribe() error {
	if s.hooks.ShouldUnsubscribe != nil && !s.hooks.ShouldUnsubscribe() {
		return nil
	}
	s.isStopped.Store(true)
	closedNow, err := s.Subscription.unsubscribe()
	if closedNow && s.hooks.OnFinalize != nil {
		err = multierr.Append(err, tryCatch(s.hooks.OnFinalize))
	}
	return err
}

// Stopped 是否已经收到终止通知或被取消订阅
func (s *Subscriber) Stopped() bool {
	return s.isStopped.Load()
}

func (s *Subscriber) unsubscribeAfterTerminal() {
	if err := s.Unsubscribe(); err != nil {
		reportUnhandledError(err)
	}
}

// ============================================================================
// 叶子订阅者
// ============================================================================

// NewSafeSubscriber 包装用户提供的观察者
// 用户回调中的panic不会传回数据源，而是作为未处理错误上报
func NewSafeSubscriber(observer Observer) *Subscriber {
	if observer == nil {
		observer = ObserverFuncs{}
	}
	hasErrorHandler := true
	if funcs, ok := observer.(ObserverFuncs); ok {
		hasErrorHandler = funcs.OnError != nil
	}
	return newSubscriber(&consumerObserver{observer: observer, hasErrorHandler: hasErrorHandler}, OperatorHooks{})
}

// toSubscriber 已是*Subscriber的原样使用，否则包装为叶子订阅者
func toSubscriber(observer Observer) *Subscriber {
	if s, ok := observer.(*Subscriber); ok && s != nil {
		return s
	}
	return NewSafeSubscriber(observer)
}

type consumerObserver struct {
	observer        Observer
	hasErrorHandler bool
}

func (c *consumerObserver) Next(value interface{}) {
	if err := tryCatch(func() { c.observer.Next(value) }); err != nil {
		handleConsumerError(err)
	}
}

func (c *consumerObserver) Error(err error) {
	if !c.hasErrorHandler {
		handleConsumerError(err)
		return
	}
	if perr := tryCatch(func() { c.observer.Error(err) }); perr != nil {
		handleConsumerError(perr)
	}
}

func (c *consumerObserver) Complete() {
	if err := tryCatch(c.observer.Complete); err != nil {
		handleConsumerError(err)
	}
}

func handleConsumerError(err error) {
	if GetConfig().UseSynchronousErrorHandling {
		panic(err)
	}
	reportUnhandledError(err)
}
