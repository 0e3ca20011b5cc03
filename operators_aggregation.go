// Aggregation operators for RxGo
// 聚合操作符实现，包含Reduce, Count, ToSlice, Min, Max, Every等
// 聚合结果在源完成时作为唯一的值发射
package rxgo

import (
	"fmt"
)

// ============================================================================
// 聚合操作符实现
// ============================================================================

// Reduce 以seed为初值累加，源完成时发射最终累加值
func Reduce(accumulator Reducer, seed interface{}) OperatorFunc {
	return Operate(scanInternals(accumulator, seed, false, true))
}

// Count 源完成时发射满足谓词的值的数量，predicate为nil时统计全部
func Count(predicate Predicate) OperatorFunc {
	return Reduce(func(acc, value interface{}, index int) (interface{}, error) {
		if predicate == nil || predicate(value, index) {
			return acc.(int) + 1, nil
		}
		return acc, nil
	}, 0)
}

// ToSlice 源完成时把所有值作为[]interface{}发射
func ToSlice() OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		values := []interface{}{}
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				values = append(values, value)
			},
			OnComplete: func() {
				subscriber.Next(values)
				subscriber.Complete()
			},
			OnFinalize: func() { values = nil },
		}))
		return nil
	})
}

// Min 发射最小值，comparator为nil时按内置数值与字符串类型比较
// 源为空时直接完成
func Min(comparator func(a, b interface{}) int) OperatorFunc {
	return extremum(comparator, -1)
}

// Max 发射最大值，comparator为nil时按内置数值与字符串类型比较
func Max(comparator func(a, b interface{}) int) OperatorFunc {
	return extremum(comparator, 1)
}

func extremum(comparator func(a, b interface{}) int, sign int) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var best interface{}
		hasValue := false
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if !hasValue {
					best, hasValue = value, true
					return
				}
				var c int
				if comparator != nil {
					c = comparator(value, best)
				} else {
					var err error
					if c, err = compareValues(value, best); err != nil {
						subscriber.Error(err)
						return
					}
				}
				if c*sign > 0 {
					best = value
				}
			},
			OnComplete: func() {
				if hasValue {
					subscriber.Next(best)
				}
				subscriber.Complete()
			},
		}))
		return nil
	})
}

// Every 所有值都满足谓词时发射true，遇到第一个不满足的值立即发射false并完成
func Every(predicate Predicate) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		index := 0
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				i := index
				index++
				if !predicate(value, i) {
					subscriber.Next(false)
					subscriber.Complete()
				}
			},
			OnComplete: func() {
				subscriber.Next(true)
				subscriber.Complete()
			},
		}))
		return nil
	})
}

// ============================================================================
// 辅助函数
// ============================================================================

// compareValues 比较两个同类型的内置数值或字符串
func compareValues(a, b interface{}) (int, error) {
	switch va := a.(type) {
	case int:
		if vb, ok := b.(int); ok {
			return order(va < vb, va > vb), nil
		}
	case int32:
		if vb, ok := b.(int32); ok {
			return order(va < vb, va > vb), nil
		}
	case int64:
		if vb, ok := b.(int64); ok {
			return order(va < vb, va > vb), nil
		}
	case float32:
		if vb, ok := b.(float32); ok {
			return order(va < vb, va > vb), nil
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return order(va < vb, va > vb), nil
		}
	case string:
		if vb, ok := b.(string); ok {
			return order(va < vb, va > vb), nil
		}
	}
	return 0, fmt.Errorf("compare %T with %T: %w", a, b, ErrArgumentOutOfRange)
}

func order(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
