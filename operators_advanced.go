// Advanced operators and factory functions for RxGo
// 高级操作符和工厂函数实现，包含Generate, Using, Timestamp, TimeInterval, Cast, OfType, Distinct, SkipLast, SkipUntil等
package rxgo

import (
	"fmt"
	"reflect"
	"time"
)

// ============================================================================
// 高级工厂函数
// ============================================================================

// Generate 从initialState开始循环：condition为真时发射resultSelector(state)，再用iterate推进状态
// 条件为假时完成；resultSelector为nil时发射state本身
func Generate(initialState interface{}, condition func(state interface{}) bool, iterate func(state interface{}) interface{}, resultSelector func(state interface{}) interface{}) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		for state := initialState; condition == nil || condition(state); state = iterate(state) {
			if subscriber.Closed() {
				return nil
			}
			if resultSelector != nil {
				subscriber.Next(resultSelector(state))
			} else {
				subscriber.Next(state)
			}
		}
		subscriber.Complete()
		return nil
	})
}

// Using 订阅时创建资源，并用资源构造数据源；订阅结束时（无论何种方式）释放资源一次
func Using(resourceFactory func() Unsubscribable, observableFactory func(resource Unsubscribable) *Observable) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		var resource Unsubscribable
		if resourceFactory != nil {
			resource = resourceFactory()
		}
		subscriber.Add(resource)
		source := observableFactory(resource)
		if source == nil {
			subscriber.Complete()
			return nil
		}
		source.Subscribe(subscriber)
		return nil
	})
}

// ============================================================================
// 时间标注
// ============================================================================

// Timestamped 带时间戳的值
type Timestamped struct {
	Value     interface{}
	Timestamp time.Time
}

// Timed 带时间间隔的值，Interval为与上一个值（首个值为订阅时刻）之间的间隔
type Timed struct {
	Value    interface{}
	Interval time.Duration
}

// Timestamp 把每个值包装为Timestamped，时间取自scheduler
func Timestamp(scheduler Scheduler) OperatorFunc {
	scheduler = schedulerOrDefault(scheduler)
	return Map(func(value interface{}, _ int) (interface{}, error) {
		return Timestamped{Value: value, Timestamp: scheduler.Now()}, nil
	})
}

// TimeInterval 把每个值包装为Timed
func TimeInterval(scheduler Scheduler) OperatorFunc {
	scheduler = schedulerOrDefault(scheduler)
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		last := scheduler.Now()
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			now := scheduler.Now()
			interval := now.Sub(last)
			last = now
			subscriber.Next(Timed{Value: value, Interval: interval})
		})))
		return nil
	})
}

// ============================================================================
// 类型过滤与转换
// ============================================================================

// CastError 类型转换错误
type CastError struct {
	Value  interface{}
	Target reflect.Type
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast %T to %v", e.Value, e.Target)
}

// Cast 把每个值转换为targetType，无法转换时以*CastError出错
func Cast(targetType reflect.Type) OperatorFunc {
	return Map(func(value interface{}, _ int) (interface{}, error) {
		if value == nil {
			return nil, &CastError{Value: value, Target: targetType}
		}
		v := reflect.ValueOf(value)
		if !v.Type().ConvertibleTo(targetType) {
			return nil, &CastError{Value: value, Target: targetType}
		}
		return v.Convert(targetType).Interface(), nil
	})
}

// OfType 只发射可赋值给targetType的值
func OfType(targetType reflect.Type) OperatorFunc {
	return Filter(func(value interface{}, _ int) bool {
		return value != nil && reflect.TypeOf(value).AssignableTo(targetType)
	})
}

// ============================================================================
// 去重与跳过
// ============================================================================

// Distinct 只发射此前未出现过的键对应的值，keySelector为nil时以值本身为键（值必须可比较）
// flushes发射时清空已见集合
func Distinct(keySelector func(value interface{}) interface{}, flushes ...*Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		seen := map[interface{}]struct{}{}
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			key := value
			if keySelector != nil {
				key = keySelector(value)
			}
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			subscriber.Next(value)
		})))
		for _, flush := range flushes {
			flush.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext:     func(interface{}) { seen = map[interface{}]struct{}{} },
				OnComplete: noop,
			}))
		}
		return nil
	})
}

// SkipLast 丢弃最后count个值，count<=0时原样镜像
func SkipLast(count int) OperatorFunc {
	if count <= 0 {
		return identity
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		ring := make([]interface{}, count)
		seen := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			i := seen % count
			seen++
			if seen > count {
				old := ring[i]
				ring[i] = value
				subscriber.Next(old)
				return
			}
			ring[i] = value
		})))
		return func() { ring = nil }
	})
}

// SkipUntil notifier发射第一个值之前丢弃源的值
// notifier未发射就完成时源的值全部被丢弃
func SkipUntil(notifier *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		taking := false
		var skipSubscriber *Subscriber
		skipSubscriber = NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(interface{}) {
				taking = true
				skipSubscriber.Unsubscribe()
			},
			OnComplete: noop,
		})
		notifier.Subscribe(skipSubscriber)
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			if taking {
				subscriber.Next(value)
			}
		})))
		return nil
	})
}
