// Package rxgo provides reactive programming primitives for Go
// 响应式编程核心：Observable / Subscriber / Subscription 以及基于它们构建的操作符
package rxgo

import (
	"fmt"
	"time"
)

// ============================================================================
// 观察者定义
// ============================================================================

// Observer 三通道通知协议的消费者
type Observer interface {
	Next(value interface{})
	Error(err error)
	Complete()
}

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// ObserverFuncs 由三个可选回调组成的观察者，未设置的回调视为空操作
type ObserverFuncs struct {
	OnNext     OnNext
	OnError    OnError
	OnComplete OnComplete
}

// Next 实现Observer
func (o ObserverFuncs) Next(value interface{}) {
	if o.OnNext != nil {
		o.OnNext(value)
	}
}

// Error 实现Observer
func (o ObserverFuncs) Error(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// Complete 实现Observer
func (o ObserverFuncs) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// Predicate 谓词函数，index为值在源中的序号
type Predicate func(value interface{}, index int) bool

// Transformer 转换函数，返回错误时下游收到错误通知
type Transformer func(value interface{}, index int) (interface{}, error)

// Reducer 归约函数
type Reducer func(accumulator, value interface{}, index int) (interface{}, error)

// Projector 将值投射为内部Observable
type Projector func(value interface{}, index int) *Observable

// DurationSelector 为值选择一个时间窗口通知源
type DurationSelector func(value interface{}) *Observable

// OperatorFunc 操作符：把一个Observable变换为另一个Observable
type OperatorFunc func(source *Observable) *Observable

// ============================================================================
// 通知
// ============================================================================

// NotificationKind 通知类型
type NotificationKind byte

const (
	// KindNext 值通知
	KindNext NotificationKind = 'N'
	// KindError 错误通知
	KindError NotificationKind = 'E'
	// KindComplete 完成通知
	KindComplete NotificationKind = 'C'
)

// Notification 表示流中的一个通知：值、错误或完成
type Notification struct {
	Kind  NotificationKind
	Value interface{}
	Err   error
}

// NextNotification 创建值通知
func NextNotification(value interface{}) Notification {
	return Notification{Kind: KindNext, Value: value}
}

// ErrorNotification 创建错误通知
func ErrorNotification(err error) Notification {
	return Notification{Kind: KindError, Err: err}
}

// CompleteNotification 创建完成通知
func CompleteNotification() Notification {
	return Notification{Kind: KindComplete}
}

// IsError 检查是否为错误通知
func (n Notification) IsError() bool {
	return n.Kind == KindError
}

// Observe 把通知投递给观察者
func (n Notification) Observe(observer Observer) {
	switch n.Kind {
	case KindNext:
		observer.Next(n.Value)
	case KindError:
		observer.Error(n.Err)
	case KindComplete:
		observer.Complete()
	}
}

func (n Notification) String() string {
	switch n.Kind {
	case KindNext:
		return fmt.Sprintf("N(%v)", n.Value)
	case KindError:
		return fmt.Sprintf("E(%v)", n.Err)
	case KindComplete:
		return "C"
	}
	return "?"
}

// ============================================================================
// 生命周期管理
// ============================================================================

// Unsubscribable 可以被取消订阅的资源
type Unsubscribable interface {
	Unsubscribe() error
}

// TeardownLogic 清理逻辑：nil、func()、func() error 或 Unsubscribable
type TeardownLogic interface{}

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，提供单调时间与可取消的延迟执行
type Scheduler interface {
	// Now 当前时间
	Now() time.Time
	// Schedule 在delay之后执行work，返回的Subscription用于取消
	Schedule(work func(), delay time.Duration) *Subscription
}

// Unbounded 不限制并发数
const Unbounded = int(^uint(0) >> 1)
