// Error handling operators for RxGo
// 错误处理操作符实现，包含CatchError, Retry, OnErrorResumeNext等
package rxgo

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ============================================================================
// 错误捕获
// ============================================================================

// CatchError 源出错时订阅selector返回的Observable代替源
// caught是重新订阅源（并带有同样错误处理）的Observable，selector返回它即可实现重试
func CatchError(selector func(err error, caught *Observable) *Observable) OperatorFunc {
	var op OperatorFunc
	op = Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var inner *Subscriber
		inner = NewOperatorSubscriber(subscriber, OperatorHooks{
			OnError: func(err error) {
				handled := selector(err, op(source))
				if handled == nil {
					handled = Empty()
				}
				inner.Unsubscribe()
				handled.Subscribe(subscriber)
			},
		})
		source.Subscribe(inner)
		return nil
	})
	return op
}

// OnErrorReturn 源出错时发射value然后完成
func OnErrorReturn(value interface{}) OperatorFunc {
	return CatchError(func(error, *Observable) *Observable {
		return Of(value)
	})
}

// OnErrorResumeNext 源出错或完成后依次订阅sources，各源的错误都被忽略
func OnErrorResumeNext(sources ...*Observable) OperatorFunc {
	return func(source *Observable) *Observable {
		all := append([]*Observable{source}, sources...)
		return NewObservable(func(subscriber *Subscriber) TeardownLogic {
			index := 0
			var subscribeNext func()
			subscribeNext = func() {
				if subscriber.Closed() {
					return
				}
				if index >= len(all) {
					subscriber.Complete()
					return
				}
				next := all[index]
				index++
				inner := NewOperatorSubscriber(subscriber, OperatorHooks{
					OnError:    func(error) {},
					OnComplete: noop,
				})
				next.Subscribe(inner)
				inner.Add(subscribeNext)
			}
			subscribeNext()
			return nil
		})
	}
}

// ============================================================================
// 重试
// ============================================================================

// RetryConfig RetryWith的配置
// 重试延迟的优先级：DelayFunc > Backoff > Delay，都未设置时立即重新订阅
type RetryConfig struct {
	// Count 最多重试的次数，<=0表示不限
	Count int
	// Delay 固定的重试延迟
	Delay time.Duration
	// DelayFunc 返回的Observable第一次发射时重试；它未发射就完成时结果完成
	DelayFunc func(err error, retryCount int) *Observable
	// Backoff 计算每次重试的延迟，返回backoff.Stop时不再重试并转发错误
	Backoff backoff.BackOff
	// ResetOnSuccess 为true时源每发射一个值就重置重试计数
	ResetOnSuccess bool
	Scheduler      Scheduler
}

// Retry 源出错时重新订阅，最多count次，count<=0时不重试
func Retry(count int) OperatorFunc {
	if count <= 0 {
		return identity
	}
	return RetryWith(RetryConfig{Count: count})
}

// RetryWith 按配置重试
func RetryWith(cfg RetryConfig) OperatorFunc {
	limit := cfg.Count
	if limit <= 0 {
		limit = Unbounded
	}
	scheduler := schedulerOrDefault(cfg.Scheduler)

	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		soFar := 0
		if cfg.Backoff != nil {
			cfg.Backoff.Reset()
		}

		// delayFor 返回重试前需要等待的通知；ok为false表示放弃重试
		delayFor := func(err error) (notifier *Observable, ok bool) {
			switch {
			case cfg.DelayFunc != nil:
				return cfg.DelayFunc(err, soFar), true
			case cfg.Backoff != nil:
				next := cfg.Backoff.NextBackOff()
				if next == backoff.Stop {
					return nil, false
				}
				return Timer(next, scheduler), true
			case cfg.Delay > 0:
				return Timer(cfg.Delay, scheduler), true
			}
			return nil, true
		}

		var subscribeForRetry func()
		subscribeForRetry = func() {
			for {
				subscribing := true
				syncResubscribe := false
				var current *Subscriber

				resubscribe := func() {
					if subscribing {
						syncResubscribe = true
						return
					}
					current.Unsubscribe()
					subscribeForRetry()
				}

				current = NewOperatorSubscriber(subscriber, OperatorHooks{
					OnNext: func(value interface{}) {
						if cfg.ResetOnSuccess {
							soFar = 0
							if cfg.Backoff != nil {
								cfg.Backoff.Reset()
							}
						}
						subscriber.Next(value)
					},
					OnError: func(err error) {
						if soFar >= limit {
							subscriber.Error(err)
							return
						}
						soFar++
						notifier, ok := delayFor(err)
						if !ok {
							subscriber.Error(err)
							return
						}
						if notifier == nil {
							resubscribe()
							return
						}
						Logger().Debug().Err(err).Int("attempt", soFar).Msg("retry: waiting before resubscribe")
						var notifierSubscriber *Subscriber
						notifierSubscriber = NewOperatorSubscriber(subscriber, OperatorHooks{
							OnNext: func(interface{}) {
								notifierSubscriber.Unsubscribe()
								resubscribe()
							},
							OnComplete: func() { subscriber.Complete() },
						})
						notifier.Subscribe(notifierSubscriber)
					},
				})
				source.Subscribe(current)
				subscribing = false
				if !syncResubscribe {
					return
				}
				current.Unsubscribe()
			}
		}
		subscribeForRetry()
		return nil
	})
}
