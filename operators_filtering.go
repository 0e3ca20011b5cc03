// Filtering operators for RxGo
// 过滤操作符实现，包含Filter, Take, Skip, First, Last, DistinctUntilChanged等
package rxgo

import (
	"reflect"
)

// ============================================================================
// 过滤操作符实现
// ============================================================================

// Filter 只发射满足谓词的值
func Filter(predicate Predicate) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			i := index
			index++
			if predicate(value, i) {
				subscriber.Next(value)
			}
		})))
		return nil
	})
}

// Take 只发射前count个值然后完成
func Take(count int) OperatorFunc {
	if count <= 0 {
		return func(*Observable) *Observable { return Empty() }
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		seen := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			seen++
			if seen <= count {
				subscriber.Next(value)
				if seen >= count {
					subscriber.Complete()
				}
			}
		})))
		return nil
	})
}

// TakeLast 源完成时发射最后count个值
func TakeLast(count int) OperatorFunc {
	if count <= 0 {
		return func(*Observable) *Observable { return Empty() }
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var buffer []interface{}
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				buffer = append(buffer, value)
				if len(buffer) > count {
					buffer[0] = nil
					buffer = buffer[1:]
				}
			},
			OnComplete: func() {
				for _, v := range buffer {
					subscriber.Next(v)
				}
				subscriber.Complete()
			},
			OnFinalize: func() { buffer = nil },
		}))
		return nil
	})
}

// TakeUntil 镜像源直到notifier发射第一个值，然后完成
func TakeUntil(notifier *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		notifier.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext:     func(interface{}) { subscriber.Complete() },
			OnComplete: noop,
		}))
		if !subscriber.Closed() {
			source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{}))
		}
		return nil
	})
}

// TakeWhile 发射值直到谓词第一次返回false，然后完成
// inclusive为true时同时发射使谓词失败的那个值
func TakeWhile(predicate Predicate, inclusive ...bool) OperatorFunc {
	incl := len(inclusive) > 0 && inclusive[0]
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			i := index
			index++
			ok := predicate(value, i)
			if ok || incl {
				subscriber.Next(value)
			}
			if !ok {
				subscriber.Complete()
			}
		})))
		return nil
	})
}

// Skip 跳过前count个值
func Skip(count int) OperatorFunc {
	return Filter(func(_ interface{}, index int) bool {
		return index >= count
	})
}

// SkipWhile 跳过值直到谓词第一次返回false
func SkipWhile(predicate Predicate) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		taking := false
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			if !taking {
				i := index
				index++
				taking = !predicate(value, i)
			}
			if taking {
				subscriber.Next(value)
			}
		})))
		return nil
	})
}

// IgnoreElements 忽略所有值，只传递错误和完成信号
func IgnoreElements() OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(interface{}) {})))
		return nil
	})
}

// ThrowIfEmpty 源未发射任何值就完成时以errorFactory的结果出错，nil时使用ErrEmpty
func ThrowIfEmpty(errorFactory func() error) OperatorFunc {
	if errorFactory == nil {
		errorFactory = func() error { return ErrEmpty }
	}
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
				subscriber.Error(errorFactory())
			},
		}))
		return nil
	})
}

// First 发射第一个满足谓词的值（predicate为nil时为第一个值）然后完成
// 没有这样的值时发射defaultValue，未提供默认值则以ErrEmpty出错
func First(predicate Predicate, defaultValue ...interface{}) OperatorFunc {
	return func(source *Observable) *Observable {
		if predicate != nil {
			source = source.Pipe(Filter(predicate))
		}
		source = source.Pipe(Take(1))
		if len(defaultValue) > 0 {
			return source.Pipe(DefaultIfEmpty(defaultValue[0]))
		}
		return source.Pipe(ThrowIfEmpty(nil))
	}
}

// Last 发射最后一个满足谓词的值（predicate为nil时为最后一个值）
// 没有这样的值时发射defaultValue，未提供默认值则以ErrEmpty出错
func Last(predicate Predicate, defaultValue ...interface{}) OperatorFunc {
	return func(source *Observable) *Observable {
		if predicate != nil {
			source = source.Pipe(Filter(predicate))
		}
		source = source.Pipe(TakeLast(1))
		if len(defaultValue) > 0 {
			return source.Pipe(DefaultIfEmpty(defaultValue[0]))
		}
		return source.Pipe(ThrowIfEmpty(nil))
	}
}

// DistinctUntilChanged 只发射与前一个值不同的值
// comparator为nil时使用reflect.DeepEqual
func DistinctUntilChanged(comparator func(previous, current interface{}) bool) OperatorFunc {
	if comparator == nil {
		comparator = reflect.DeepEqual
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var previous interface{}
		first := true
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			if first || !comparator(previous, value) {
				first = false
				previous = value
				subscriber.Next(value)
			}
		})))
		return nil
	})
}

// ElementAt 发射第index个值然后完成，源提前完成时以ErrArgumentOutOfRange出错
func ElementAt(index int, defaultValue ...interface{}) OperatorFunc {
	return func(source *Observable) *Observable {
		if index < 0 {
			return Throw(ErrArgumentOutOfRange)
		}
		source = source.Pipe(
			Filter(func(_ interface{}, i int) bool { return i == index }),
			Take(1),
		)
		if len(defaultValue) > 0 {
			return source.Pipe(DefaultIfEmpty(defaultValue[0]))
		}
		return source.Pipe(ThrowIfEmpty(func() error { return ErrArgumentOutOfRange }))
	}
}
