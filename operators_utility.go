// Utility operators for RxGo
// 工具操作符实现，包含DefaultIfEmpty, SwitchIfEmpty, StartWith, EndWith, ObserveOn, SubscribeOn, Repeat等
package rxgo

import (
	"time"
)

// ============================================================================
// 空源处理
// ============================================================================

// DefaultIfEmpty 源未发射任何值就完成时发射defaultValue
func DefaultIfEmpty(defaultValue interface{}) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		hasValue := false
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				hasValue = true
				subscriber.Next(value)
			},
			OnComplete: func() {
				if !hasValue {
					subscriber.Next(defaultValue)
				}
				subscriber.Complete()
			},
		}))
		return nil
	})
}

// SwitchIfEmpty 源未发射任何值就完成时切换到other
func SwitchIfEmpty(other *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		hasValue := false
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				hasValue = true
				subscriber.Next(value)
			},
			OnComplete: func() {
				if hasValue {
					subscriber.Complete()
					return
				}
				other.Subscribe(subscriber)
			},
		}))
		return nil
	})
}

// ============================================================================
// 前后追加
// ============================================================================

// StartWith 先发射values再镜像源
func StartWith(values ...interface{}) OperatorFunc {
	return func(source *Observable) *Observable {
		return Concat(From(values), source)
	}
}

// EndWith 源完成后再发射values
func EndWith(values ...interface{}) OperatorFunc {
	return func(source *Observable) *Observable {
		return Concat(source, From(values))
	}
}

// ============================================================================
// 调度
// ============================================================================

// ObserveOn 在scheduler上重新发出每个通知，delay为每个通知的延迟
// 在AsyncScheduler上使用时，之后的操作符都在其事件循环上串行执行
func ObserveOn(scheduler Scheduler, delay ...time.Duration) OperatorFunc {
	scheduler = schedulerOrDefault(scheduler)
	var d time.Duration
	if len(delay) > 0 {
		d = delay[0]
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				executeSchedule(subscriber, scheduler, func() { subscriber.Next(value) }, d, false)
			},
			OnError: func(err error) {
				executeSchedule(subscriber, scheduler, func() { subscriber.Error(err) }, d, false)
			},
			OnComplete: func() {
				executeSchedule(subscriber, scheduler, func() { subscriber.Complete() }, d, false)
			},
		}))
		return nil
	})
}

// SubscribeOn 在scheduler上执行对源的订阅
func SubscribeOn(scheduler Scheduler, delay ...time.Duration) OperatorFunc {
	scheduler = schedulerOrDefault(scheduler)
	var d time.Duration
	if len(delay) > 0 {
		d = delay[0]
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		executeSchedule(subscriber, scheduler, func() { source.Subscribe(subscriber) }, d, false)
		return nil
	})
}

// ============================================================================
// 重复
// ============================================================================

// RepeatConfig RepeatWith的配置
type RepeatConfig struct {
	// Count 订阅源的总次数，<=0表示不限
	Count int
	// Delay 每次重新订阅前的延迟
	Delay time.Duration
	// DelayFunc 返回的Observable第一次发射时重新订阅，优先于Delay
	DelayFunc func(repeatCount int) *Observable
	Scheduler Scheduler
}

// Repeat 源完成后重新订阅，共订阅count次；count<=0时直接完成
func Repeat(count int) OperatorFunc {
	if count <= 0 {
		return func(*Observable) *Observable { return Empty() }
	}
	return RepeatWith(RepeatConfig{Count: count})
}

// RepeatWith 按配置重复订阅源
func RepeatWith(cfg RepeatConfig) OperatorFunc {
	limit := cfg.Count
	if limit <= 0 {
		limit = Unbounded
	}
	scheduler := schedulerOrDefault(cfg.Scheduler)

	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		soFar := 0

		var subscribeToSource func()

		resubscribe := func() {
			var notifier *Observable
			switch {
			case cfg.DelayFunc != nil:
				notifier = cfg.DelayFunc(soFar)
			case cfg.Delay > 0:
				notifier = Timer(cfg.Delay, scheduler)
			default:
				subscribeToSource()
				return
			}
			var notifierSubscriber *Subscriber
			notifierSubscriber = NewOperatorSubscriber(subscriber, nextHook(func(interface{}) {
				notifierSubscriber.Unsubscribe()
				subscribeToSource()
			}))
			notifier.Subscribe(notifierSubscriber)
		}

		subscribeToSource = func() {
			for {
				subscribing := true
				syncResubscribe := false
				var current *Subscriber
				current = NewOperatorSubscriber(subscriber, OperatorHooks{
					OnComplete: func() {
						soFar++
						if soFar >= limit {
							subscriber.Complete()
							return
						}
						if subscribing {
							syncResubscribe = true
							return
						}
						current.Unsubscribe()
						resubscribe()
					},
				})
				source.Subscribe(current)
				subscribing = false
				if !syncResubscribe {
					return
				}
				current.Unsubscribe()
				if cfg.DelayFunc != nil || cfg.Delay > 0 {
					resubscribe()
					return
				}
			}
		}
		subscribeToSource()
		return nil
	})
}
