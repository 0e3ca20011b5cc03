// Blocking operators for RxGo
// 阻塞桥接：把Observable的结果转换为普通的Go返回值或channel
package rxgo

import (
	"context"
	"sync"
)

// ============================================================================
// 阻塞操作符实现
// ============================================================================

type blockingResult struct {
	value interface{}
	err   error
}

// awaitResult 订阅source并等待first给出结果或ctx取消
func awaitResult(ctx context.Context, source *Observable, observer func(finish func(blockingResult), self func() *Subscriber) ObserverFuncs) (interface{}, error) {
	done := make(chan blockingResult, 1)
	finish := func(r blockingResult) {
		select {
		case done <- r:
		default:
		}
	}
	var subscriber *Subscriber
	subscriber = NewSafeSubscriber(observer(finish, func() *Subscriber { return subscriber }))
	source.Subscribe(subscriber)

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		subscriber.Unsubscribe()
		return nil, ctx.Err()
	}
}

// FirstValueFrom 阻塞等待第一个值，收到后立即取消订阅
// 源未发射值就完成时返回defaultValue，未提供默认值则返回ErrEmpty
func FirstValueFrom(ctx context.Context, source *Observable, defaultValue ...interface{}) (interface{}, error) {
	return awaitResult(ctx, source, func(finish func(blockingResult), self func() *Subscriber) ObserverFuncs {
		return ObserverFuncs{
			OnNext: func(value interface{}) {
				finish(blockingResult{value: value})
				self().Unsubscribe()
			},
			OnError: func(err error) {
				finish(blockingResult{err: err})
			},
			OnComplete: func() {
				if len(defaultValue) > 0 {
					finish(blockingResult{value: defaultValue[0]})
					return
				}
				finish(blockingResult{err: ErrEmpty})
			},
		}
	})
}

// LastValueFrom 阻塞等待源完成并返回最后一个值
// 源未发射值就完成时返回defaultValue，未提供默认值则返回ErrEmpty
func LastValueFrom(ctx context.Context, source *Observable, defaultValue ...interface{}) (interface{}, error) {
	return awaitResult(ctx, source, func(finish func(blockingResult), _ func() *Subscriber) ObserverFuncs {
		var last interface{}
		hasValue := false
		return ObserverFuncs{
			OnNext: func(value interface{}) {
				last = value
				hasValue = true
			},
			OnError: func(err error) {
				finish(blockingResult{err: err})
			},
			OnComplete: func() {
				switch {
				case hasValue:
					finish(blockingResult{value: last})
				case len(defaultValue) > 0:
					finish(blockingResult{value: defaultValue[0]})
				default:
					finish(blockingResult{err: ErrEmpty})
				}
			},
		}
	})
}

// ToChannel 把通知写入容量为size的channel，终止通知写入后关闭channel
// 订阅在独立的goroutine中进行，channel写满时阻塞生产者；ctx取消时取消订阅并关闭channel
func ToChannel(ctx context.Context, source *Observable, size int) <-chan Notification {
	if size < 0 {
		size = 0
	}
	ch := make(chan Notification, size)
	finished := make(chan struct{})
	var mu sync.Mutex
	closed := false

	send := func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- n:
		case <-ctx.Done():
		}
	}
	closeCh := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
			close(finished)
		}
	}

	subscriber := NewSafeSubscriber(ObserverFuncs{
		OnNext: func(value interface{}) {
			send(NextNotification(value))
		},
		OnError: func(err error) {
			send(ErrorNotification(err))
			closeCh()
		},
		OnComplete: func() {
			send(CompleteNotification())
			closeCh()
		},
	})

	go func() {
		select {
		case <-ctx.Done():
			subscriber.Unsubscribe()
			closeCh()
		case <-finished:
		}
	}()

	go source.Subscribe(subscriber)
	return ch
}
