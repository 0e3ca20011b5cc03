// Time-based operators for RxGo
// 时间操作符实现：Debounce、Audit、Throttle、Sample、Delay、Timeout
package rxgo

import (
	"time"
)

// ============================================================================
// Debounce 防抖
// ============================================================================

// DebounceTime 源静默dueTime之后才发射最近的值
// 新值到达时取消旧的定时器并重新计时；源完成时先发射挂起的值再完成
func DebounceTime(dueTime time.Duration, scheduler Scheduler) OperatorFunc {
	scheduler = schedulerOrDefault(scheduler)
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		var activeTask *Subscription
		var lastValue interface{}
		hasValue := false

		emit := func() {
			if activeTask != nil {
				activeTask.Unsubscribe()
				activeTask = nil
			}
			if hasValue {
				hasValue = false
				value := lastValue
				lastValue = nil
				subscriber.Next(value)
			}
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				lastValue = value
				hasValue = true
				if activeTask != nil {
					activeTask.Unsubscribe()
				}
				activeTask = executeSchedule(subscriber, scheduler, gate.wrap(emit), dueTime, false)
			},
			OnComplete: func() {
				emit()
				subscriber.Complete()
			},
			OnFinalize: func() {
				lastValue = nil
				activeTask = nil
			},
		})))
		return nil
	})
}

// Debounce 与DebounceTime相同，但静默时长由durationSelector返回的Observable决定
func Debounce(durationSelector DurationSelector) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		hasValue := false
		var lastValue interface{}
		var durationSubscriber *Subscriber

		emit := func() {
			if durationSubscriber != nil {
				durationSubscriber.Unsubscribe()
				durationSubscriber = nil
			}
			if hasValue {
				hasValue = false
				value := lastValue
				lastValue = nil
				subscriber.Next(value)
			}
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				if durationSubscriber != nil {
					durationSubscriber.Unsubscribe()
				}
				hasValue = true
				lastValue = value
				durationSubscriber = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
					OnNext:     func(interface{}) { emit() },
					OnComplete: noop,
				}))
				durationSelector(value).Subscribe(durationSubscriber)
			},
			OnComplete: func() {
				emit()
				subscriber.Complete()
			},
			OnFinalize: func() {
				lastValue = nil
				durationSubscriber = nil
			},
		})))
		return nil
	})
}

// ============================================================================
// Audit 审计
// ============================================================================

// Audit 收到值后开启一个时间窗口，窗口结束时发射窗口内最近的值
// 窗口期间到达的值只更新最近值；源完成时若仍有挂起的值，等窗口结束发射后再完成
func Audit(durationSelector DurationSelector) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		hasValue := false
		var lastValue interface{}
		var durationSubscriber *Subscriber
		isComplete := false

		endDuration := func() {
			if durationSubscriber != nil {
				durationSubscriber.Unsubscribe()
				durationSubscriber = nil
			}
			if hasValue {
				hasValue = false
				value := lastValue
				lastValue = nil
				subscriber.Next(value)
			}
			if isComplete {
				subscriber.Complete()
			}
		}

		cleanupDuration := func() {
			durationSubscriber = nil
			if isComplete {
				subscriber.Complete()
			}
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				hasValue = true
				lastValue = value
				if durationSubscriber == nil {
					durationSubscriber = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
						OnNext:     func(interface{}) { endDuration() },
						OnComplete: cleanupDuration,
					}))
					durationSelector(value).Subscribe(durationSubscriber)
				}
			},
			OnComplete: func() {
				isComplete = true
				if !hasValue || durationSubscriber == nil || durationSubscriber.Closed() {
					subscriber.Complete()
				}
			},
		})))
		return nil
	})
}

// AuditTime 以固定时长为窗口的Audit
func AuditTime(duration time.Duration, scheduler Scheduler) OperatorFunc {
	return Audit(func(interface{}) *Observable {
		return Timer(duration, scheduler)
	})
}

// ============================================================================
// Throttle 节流
// ============================================================================

// ThrottleConfig 节流的边沿策略
type ThrottleConfig struct {
	// Leading 窗口开始时发射第一个值
	Leading bool
	// Trailing 窗口结束时发射窗口内最后一个值
	Trailing bool
}

// DefaultThrottleConfig 只发射前沿
var DefaultThrottleConfig = ThrottleConfig{Leading: true}

// Throttle 发射一个值后在durationSelector给出的窗口内忽略后续值
func Throttle(durationSelector DurationSelector, configs ...ThrottleConfig) OperatorFunc {
	cfg := DefaultThrottleConfig
	if len(configs) > 0 {
		cfg = configs[0]
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		hasValue := false
		var sendValue interface{}
		var throttled *Subscriber
		isComplete := false

		var send func()
		var startThrottle func(value interface{})

		endThrottling := func() {
			if throttled != nil {
				throttled.Unsubscribe()
			}
			throttled = nil
			if cfg.Trailing {
				send()
				if isComplete {
					subscriber.Complete()
				}
			}
		}

		cleanupThrottling := func() {
			throttled = nil
			if isComplete {
				subscriber.Complete()
			}
		}

		startThrottle = func(value interface{}) {
			throttled = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
				OnNext:     func(interface{}) { endThrottling() },
				OnComplete: cleanupThrottling,
			}))
			durationSelector(value).Subscribe(throttled)
		}

		send = func() {
			if !hasValue {
				return
			}
			hasValue = false
			value := sendValue
			sendValue = nil
			subscriber.Next(value)
			if !isComplete {
				startThrottle(value)
			}
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				hasValue = true
				sendValue = value
				if throttled != nil && !throttled.Closed() {
					return
				}
				if cfg.Leading {
					send()
				} else {
					startThrottle(value)
				}
			},
			OnComplete: func() {
				isComplete = true
				if !(cfg.Trailing && hasValue && throttled != nil && !throttled.Closed()) {
					subscriber.Complete()
				}
			},
		})))
		return nil
	})
}

// ThrottleTime 以固定时长为窗口的Throttle
func ThrottleTime(duration time.Duration, scheduler Scheduler, configs ...ThrottleConfig) OperatorFunc {
	return Throttle(func(interface{}) *Observable {
		return Timer(duration, scheduler)
	}, configs...)
}

// ============================================================================
// Sample 采样
// ============================================================================

// Sample notifier发射时发射源最近的值（自上次采样后有新值时）
func Sample(notifier *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		hasValue := false
		var lastValue interface{}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(nextHook(func(value interface{}) {
			hasValue = true
			lastValue = value
		}))))

		notifier.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(interface{}) {
				if hasValue {
					hasValue = false
					value := lastValue
					lastValue = nil
					subscriber.Next(value)
				}
			},
			OnComplete: noop,
		})))
		return nil
	})
}

// SampleTime 每隔period采样一次
func SampleTime(period time.Duration, scheduler Scheduler) OperatorFunc {
	return Sample(Interval(period, scheduler))
}

// ============================================================================
// Delay 延迟
// ============================================================================

// DelayWhen 每个值延迟到selector返回的Observable第一次发射时再发出
// 所有延迟中的值都发出后才完成
func DelayWhen(selector func(value interface{}, index int) *Observable) OperatorFunc {
	return MergeMap(func(value interface{}, index int) *Observable {
		return selector(value, index).Pipe(
			Take(1),
			Map(func(interface{}, int) (interface{}, error) { return value, nil }),
		)
	})
}

// Delay 每个值延迟duration发出
func Delay(duration time.Duration, scheduler Scheduler) OperatorFunc {
	return DelayWhen(func(interface{}, int) *Observable {
		return Timer(duration, scheduler)
	})
}

// ============================================================================
// Timeout 超时
// ============================================================================

// TimeoutConfig 超时配置
type TimeoutConfig struct {
	// Each 相邻两个值之间允许的最长间隔，0表示不限
	Each time.Duration
	// First 第一个值允许的最长等待，0时使用Each
	First time.Duration
	// With 超时后切换到的Observable，nil时以*TimeoutError出错
	With func(info TimeoutInfo) *Observable
	// Scheduler 计时使用的调度器
	Scheduler Scheduler
}

// Timeout 相邻值间隔超过each时以*TimeoutError出错
func Timeout(each time.Duration, scheduler Scheduler) OperatorFunc {
	return TimeoutWith(TimeoutConfig{Each: each, Scheduler: scheduler})
}

// TimeoutWith 按配置处理超时
func TimeoutWith(cfg TimeoutConfig) OperatorFunc {
	scheduler := schedulerOrDefault(cfg.Scheduler)
	with := cfg.With
	if with == nil {
		with = func(info TimeoutInfo) *Observable {
			return Throw(&TimeoutError{Info: info, Each: cfg.Each})
		}
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		var original *Subscriber
		var timerSubscription *Subscription
		info := TimeoutInfo{}

		startTimer := func(delay time.Duration) {
			timerSubscription = executeSchedule(subscriber, scheduler, gate.wrap(func() {
				current := info
				original.Unsubscribe()
				with(current).Subscribe(subscriber)
			}), delay, false)
		}

		original = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				if timerSubscription != nil {
					timerSubscription.Unsubscribe()
				}
				info.Seen++
				info.LastValue = value
				info.HasValue = true
				subscriber.Next(value)
				if cfg.Each > 0 {
					startTimer(cfg.Each)
				}
			},
			OnFinalize: func() {
				if timerSubscription != nil {
					timerSubscription.Unsubscribe()
				}
				info.LastValue = nil
			},
		}))
		source.Subscribe(original)

		gate.run(func() {
			if info.Seen > 0 || original.Closed() {
				return
			}
			first := cfg.First
			if first <= 0 {
				first = cfg.Each
			}
			if first > 0 {
				startTimer(first)
			}
		})
		return nil
	})
}
