// Factory functions for RxGo
// 创建Observable的工厂函数
package rxgo

import (
	"time"
)

// ============================================================================
// 基础创建操作符
// ============================================================================

// Of 依次发射给定的值然后完成
func Of(values ...interface{}) *Observable {
	return From(values)
}

// Just 与Of相同
func Just(values ...interface{}) *Observable {
	return From(values)
}

// From 依次发射切片中的值然后完成
func From(values []interface{}) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		for _, v := range values {
			if subscriber.Closed() {
				return nil
			}
			subscriber.Next(v)
		}
		subscriber.Complete()
		return nil
	})
}

// FromObservables 把Observable切片转换为发射这些Observable的Observable
func FromObservables(sources ...*Observable) *Observable {
	values := make([]interface{}, len(sources))
	for i, s := range sources {
		values[i] = s
	}
	return From(values)
}

// FromChannel 从channel读取值，channel关闭时完成
// 读取在独立的goroutine中进行，取消订阅后停止读取
func FromChannel(ch <-chan interface{}) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						subscriber.Complete()
						return
					}
					subscriber.Next(v)
				}
			}
		}()
		return func() { close(done) }
	})
}

// Range 发射从start开始的count个整数
func Range(start, count int) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		for i := 0; i < count; i++ {
			if subscriber.Closed() {
				return nil
			}
			subscriber.Next(start + i)
		}
		subscriber.Complete()
		return nil
	})
}

// Empty 立即完成
func Empty() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		subscriber.Complete()
		return nil
	})
}

// Never 永不发射任何通知
func Never() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		return nil
	})
}

// Throw 立即以err出错
func Throw(err error) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		subscriber.Error(err)
		return nil
	})
}

// Defer 每次订阅时调用factory创建实际的Observable
func Defer(factory func() *Observable) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		source := factory()
		if source == nil {
			source = Empty()
		}
		return source.Subscribe(subscriber)
	})
}

// ============================================================================
// 时间相关
// ============================================================================

// Timer 在due之后发射0并完成，scheduler为nil时使用默认调度器
func Timer(due time.Duration, scheduler Scheduler) *Observable {
	scheduler = schedulerOrDefault(scheduler)
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		executeSchedule(subscriber, scheduler, func() {
			subscriber.Next(0)
			subscriber.Complete()
		}, due, false)
		return nil
	})
}

// Interval 每隔period发射递增的整数，从0开始
func Interval(period time.Duration, scheduler Scheduler) *Observable {
	scheduler = schedulerOrDefault(scheduler)
	if period < 0 {
		period = 0
	}
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		n := 0
		executeSchedule(subscriber, scheduler, func() {
			subscriber.Next(n)
			n++
		}, period, true)
		return nil
	})
}

// ============================================================================
// 组合创建操作符
// ============================================================================

// Merge 同时订阅所有源并合并它们的值
func Merge(sources ...*Observable) *Observable {
	return MergeAll(Unbounded)(FromObservables(sources...))
}

// Concat 依次订阅各个源，前一个完成后才订阅下一个
func Concat(sources ...*Observable) *Observable {
	return ConcatAll()(FromObservables(sources...))
}

// CombineLatest 每个源都至少发射过一次后，任一源发射时用各源最新值调用combiner
// combiner为nil时发射[]interface{}
func CombineLatest(sources []*Observable, combiner func(values []interface{}) interface{}) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		combineLatestInit(sources, combiner, subscriber)
		return nil
	})
}

func combineLatestInit(sources []*Observable, combiner func(values []interface{}) interface{}, subscriber *Subscriber) {
	n := len(sources)
	if n == 0 {
		subscriber.Complete()
		return
	}
	values := make([]interface{}, n)
	hasValue := make([]bool, n)
	remainingFirstValues := n
	active := n

	for i, source := range sources {
		if subscriber.Closed() {
			return
		}
		i := i
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				values[i] = value
				if !hasValue[i] {
					hasValue[i] = true
					remainingFirstValues--
				}
				if remainingFirstValues == 0 {
					snapshot := append([]interface{}(nil), values...)
					if combiner != nil {
						subscriber.Next(combiner(snapshot))
					} else {
						subscriber.Next(snapshot)
					}
				}
			},
			OnComplete: func() {
				active--
				if active == 0 {
					subscriber.Complete()
				}
			},
		}))
	}
}

// Zip 按序号配对各个源的值
// 任一源完成且其缓冲已空时结果完成
func Zip(sources []*Observable, zipper func(values []interface{}) interface{}) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		n := len(sources)
		if n == 0 {
			subscriber.Complete()
			return nil
		}
		buffers := make([][]interface{}, n)
		completed := make([]bool, n)

		for i, source := range sources {
			if subscriber.Closed() {
				break
			}
			i := i
			source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext: func(value interface{}) {
					buffers[i] = append(buffers[i], value)
					for _, b := range buffers {
						if len(b) == 0 {
							return
						}
					}
					row := make([]interface{}, n)
					for j := range buffers {
						row[j] = buffers[j][0]
						buffers[j] = buffers[j][1:]
					}
					if zipper != nil {
						subscriber.Next(zipper(row))
					} else {
						subscriber.Next(row)
					}
					for j := range buffers {
						if completed[j] && len(buffers[j]) == 0 {
							subscriber.Complete()
							return
						}
					}
				},
				OnComplete: func() {
					completed[i] = true
					if len(buffers[i]) == 0 {
						subscriber.Complete()
					}
				},
			}))
		}
		return func() {
			buffers = nil
		}
	})
}

// Race 镜像第一个发出通知的源，其余源被取消订阅
func Race(sources ...*Observable) *Observable {
	if len(sources) == 1 {
		return sources[0]
	}
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		subscriptions := make([]*Subscriber, 0, len(sources))
		winner := -1
		win := func(i int) bool {
			if winner >= 0 {
				return winner == i
			}
			winner = i
			for j, s := range subscriptions {
				if j != i {
					s.Unsubscribe()
				}
			}
			return true
		}
		for i, source := range sources {
			if subscriber.Closed() || winner >= 0 {
				break
			}
			i := i
			inner := NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext: func(value interface{}) {
					if win(i) {
						subscriber.Next(value)
					}
				},
				OnError: func(err error) {
					if win(i) {
						subscriber.Error(err)
					}
				},
				OnComplete: func() {
					if win(i) {
						subscriber.Complete()
					}
				},
			})
			subscriptions = append(subscriptions, inner)
			source.Subscribe(inner)
		}
		return nil
	})
}

// ForkJoin 所有源完成后发射它们各自的最后一个值
// 任一源没有发射值就完成时，结果直接完成
func ForkJoin(sources ...*Observable) *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		n := len(sources)
		if n == 0 {
			subscriber.Complete()
			return nil
		}
		values := make([]interface{}, n)
		hasValue := make([]bool, n)
		remainingCompletions := n
		remainingEmissions := n

		for i, source := range sources {
			if subscriber.Closed() {
				break
			}
			i := i
			source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext: func(value interface{}) {
					if !hasValue[i] {
						hasValue[i] = true
						remainingEmissions--
					}
					values[i] = value
				},
				OnComplete: func() {
					remainingCompletions--
					if remainingCompletions == 0 || !hasValue[i] {
						if remainingEmissions == 0 {
							subscriber.Next(values)
						}
						subscriber.Complete()
					}
				},
			}))
		}
		return nil
	})
}
