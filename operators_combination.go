// Combination operators for RxGo
// 组合操作符实现，包含WithLatestFrom, CombineLatestWith, MergeWith, ConcatWith, RaceWith, ZipWith等
package rxgo

// ============================================================================
// 组合操作符实现
// ============================================================================

// WithLatestFrom 源每发射一个值，就与others各自的最新值组合后发射
// 所有others都至少发射过一次之前，源的值被丢弃；combiner为nil时发射[]interface{}{源值, others...}
func WithLatestFrom(combiner func(values []interface{}) interface{}, others ...*Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		n := len(others)
		otherValues := make([]interface{}, n)
		hasValue := make([]bool, n)
		remaining := n

		for i, other := range others {
			i := i
			other.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext: func(value interface{}) {
					otherValues[i] = value
					if !hasValue[i] {
						hasValue[i] = true
						remaining--
					}
				},
				OnComplete: noop,
			}))
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			if remaining > 0 {
				return
			}
			values := make([]interface{}, 0, n+1)
			values = append(values, value)
			values = append(values, otherValues...)
			if combiner != nil {
				subscriber.Next(combiner(values))
				return
			}
			subscriber.Next(values)
		})))
		return nil
	})
}

// CombineLatestWith 与CombineLatest相同，源作为第一个输入
func CombineLatestWith(combiner func(values []interface{}) interface{}, others ...*Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		combineLatestInit(append([]*Observable{source}, others...), combiner, subscriber)
		return nil
	})
}

// MergeWith 把源与others合并
func MergeWith(others ...*Observable) OperatorFunc {
	return func(source *Observable) *Observable {
		return Merge(append([]*Observable{source}, others...)...)
	}
}

// ConcatWith 源完成后依次订阅others
func ConcatWith(others ...*Observable) OperatorFunc {
	return func(source *Observable) *Observable {
		return Concat(append([]*Observable{source}, others...)...)
	}
}

// RaceWith 镜像源与others中第一个发出通知的那个
func RaceWith(others ...*Observable) OperatorFunc {
	return func(source *Observable) *Observable {
		return Race(append([]*Observable{source}, others...)...)
	}
}

// ZipWith 按序号把源与others的值配对，zipper为nil时发射[]interface{}
func ZipWith(zipper func(values []interface{}) interface{}, others ...*Observable) OperatorFunc {
	return func(source *Observable) *Observable {
		return Zip(append([]*Observable{source}, others...), zipper)
	}
}
