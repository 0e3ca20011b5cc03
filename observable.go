// Observable implementation for RxGo
// 惰性、可重复订阅的数据源以及操作符组合契约（Lift / Operate / Pipe）
package rxgo

import (
	"context"
)

// ============================================================================
// Observable 核心实现
// ============================================================================

// Observable 惰性的、可重复订阅的通知生产者
// 每次订阅都会重新执行生产函数
type Observable struct {
	producer func(subscriber *Subscriber) TeardownLogic
	source   *Observable
	operator func(source *Observable, subscriber *Subscriber) TeardownLogic
}

// NewObservable 创建新的Observable
// 生产函数在订阅时同步执行，返回的清理逻辑挂到订阅者上；
// 生产函数中的panic作为错误通知发送给订阅者
func NewObservable(producer func(subscriber *Subscriber) TeardownLogic) *Observable {
	return &Observable{producer: producer}
}

// Subscribe 订阅观察者
// observer为*Subscriber时直接使用，否则包装为安全的叶子订阅者
func (o *Observable) Subscribe(observer Observer) *Subscriber {
	subscriber := toSubscriber(observer)
	if o.operator != nil {
		subscriber.Add(o.operator(o.source, subscriber))
		return subscriber
	}
	subscriber.Add(o.trySubscribe(subscriber))
	return subscriber
}

// SubscribeWithCallbacks 使用回调函数订阅，nil回调被忽略
func (o *Observable) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) *Subscriber {
	return o.Subscribe(ObserverFuncs{OnNext: onNext, OnError: onError, OnComplete: onComplete})
}

func (o *Observable) trySubscribe(subscriber *Subscriber) (teardown TeardownLogic) {
	if o.producer == nil {
		return nil
	}
	if err := tryCatch(func() { teardown = o.producer(subscriber) }); err != nil {
		subscriber.Error(err)
	}
	return teardown
}

// Lift 以当前Observable为源创建新的Observable
// 订阅新Observable时，operator以源和下游订阅者为参数被调用
func (o *Observable) Lift(operator func(source *Observable, subscriber *Subscriber) TeardownLogic) *Observable {
	return &Observable{source: o, operator: operator}
}

// Pipe 依次应用操作符
func (o *Observable) Pipe(operators ...OperatorFunc) *Observable {
	result := o
	for _, op := range operators {
		result = op(result)
	}
	return result
}

// ForEach 阻塞订阅，对每个值调用fn，直到完成、出错或ctx取消
func (o *Observable) ForEach(ctx context.Context, fn func(value interface{})) error {
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	var subscriber *Subscriber
	subscriber = NewSafeSubscriber(ObserverFuncs{
		OnNext: func(value interface{}) {
			if err := tryCatch(func() { fn(value) }); err != nil {
				finish(err)
				if uerr := subscriber.Unsubscribe(); uerr != nil {
					reportUnhandledError(uerr)
				}
			}
		},
		OnError:    finish,
		OnComplete: func() { finish(nil) },
	})
	o.Subscribe(subscriber)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if err := subscriber.Unsubscribe(); err != nil {
			reportUnhandledError(err)
		}
		return ctx.Err()
	}
}

// ============================================================================
// 操作符组合
// ============================================================================

// Operate 构造操作符的唯一入口
// init在订阅时以源和下游订阅者为参数被调用，通常创建一个操作符订阅者去订阅源；
// init返回的清理逻辑挂到下游订阅者上。init中的panic会从Subscribe传出。
func Operate(init func(source *Observable, subscriber *Subscriber) TeardownLogic) OperatorFunc {
	return func(source *Observable) *Observable {
		return source.Lift(init)
	}
}

// Pipe 把多个操作符组合成一个
func Pipe(operators ...OperatorFunc) OperatorFunc {
	return func(source *Observable) *Observable {
		return source.Pipe(operators...)
	}
}

// identity 不做任何变换的操作符
func identity(source *Observable) *Observable {
	return source
}
