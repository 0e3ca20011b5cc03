// Transformation operators for RxGo
// 转换操作符实现，包含Map, Scan, Pairwise, Materialize, Dematerialize等
package rxgo

import (
	"fmt"
)

// ============================================================================
// 转换操作符实现
// ============================================================================

// Map 对每个值应用transformer，transformer返回错误时下游以该错误终止
func Map(transformer Transformer) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			i := index
			index++
			result, err := transformer(value, i)
			if err != nil {
				subscriber.Error(err)
				return
			}
			subscriber.Next(result)
		})))
		return nil
	})
}

// MapTo 每个值都替换为常量
func MapTo(constant interface{}) OperatorFunc {
	return Map(func(interface{}, int) (interface{}, error) { return constant, nil })
}

// scanInternals Scan与Reduce共享的累加逻辑
// emitOnNext为true时每次累加后发射，emitBeforeComplete为true时在完成前发射最终结果
func scanInternals(accumulator Reducer, seed interface{}, emitOnNext, emitBeforeComplete bool) func(source *Observable, subscriber *Subscriber) TeardownLogic {
	return func(source *Observable, subscriber *Subscriber) TeardownLogic {
		state := seed
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				i := index
				index++
				next, err := accumulator(state, value, i)
				if err != nil {
					subscriber.Error(err)
					return
				}
				state = next
				if emitOnNext {
					subscriber.Next(state)
				}
			},
			OnComplete: func() {
				if emitBeforeComplete {
					subscriber.Next(state)
				}
				subscriber.Complete()
			},
		}))
		return nil
	}
}

// Scan 以seed为初值累加，每次累加后发射当前累加值
func Scan(accumulator Reducer, seed interface{}) OperatorFunc {
	return Operate(scanInternals(accumulator, seed, true, false))
}

// Pairwise 以[]interface{}{前一个值, 当前值}的形式发射相邻的两个值
func Pairwise() OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var prev interface{}
		hasPrev := false
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			p := prev
			prev = value
			if hasPrev {
				subscriber.Next([]interface{}{p, value})
			}
			hasPrev = true
		})))
		return nil
	})
}

// ============================================================================
// 通知物化
// ============================================================================

// Materialize 把每个通知包装为Notification值发射，源终止后结果完成
func Materialize() OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				subscriber.Next(NextNotification(value))
			},
			OnError: func(err error) {
				subscriber.Next(ErrorNotification(err))
				subscriber.Complete()
			},
			OnComplete: func() {
				subscriber.Next(CompleteNotification())
				subscriber.Complete()
			},
		}))
		return nil
	})
}

// Dematerialize Materialize的逆操作：把Notification值还原为对应的通知
// 遇到非Notification的值时以ErrSequence出错
func Dematerialize() OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(value interface{}) {
			switch n := value.(type) {
			case Notification:
				n.Observe(subscriber)
			case *Notification:
				n.Observe(subscriber)
			default:
				subscriber.Error(fmt.Errorf("dematerialize %T: %w", value, ErrSequence))
			}
		})))
		return nil
	})
}
