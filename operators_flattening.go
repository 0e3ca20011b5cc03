// Flattening operators for RxGo
// 展平操作符：把外部值映射为内部Observable并按不同策略合并
package rxgo

// ============================================================================
// merge族
// ============================================================================

// MergeMap 把每个值投射为内部Observable并合并它们的输出
// 默认不限制并发，WithConcurrency(n)限制同时活跃的内部订阅数，超出的值按FIFO排队
func MergeMap(project Projector, opts ...MergeOption) OperatorFunc {
	cfg := newMergeConfig(opts)
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		return mergeInternals(source, subscriber, project, cfg)
	})
}

// MergeAll 合并一个发射Observable的Observable，concurrent<=0表示不限
func MergeAll(concurrent int) OperatorFunc {
	return MergeMap(projectObservable, WithConcurrency(concurrent))
}

// ConcatMap 依次订阅每个投射出的内部Observable，前一个完成后才订阅下一个
func ConcatMap(project Projector) OperatorFunc {
	return MergeMap(project, WithConcurrency(1))
}

// ConcatAll 依次订阅每个内部Observable
func ConcatAll() OperatorFunc {
	return MergeAll(1)
}

// Expand 递归投射：每个值先发往下游，再投射为内部Observable，内部值同样被递归处理
func Expand(project Projector, opts ...MergeOption) OperatorFunc {
	cfg := newMergeConfig(opts)
	cfg.expand = true
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		return mergeInternals(source, subscriber, project, cfg)
	})
}

// MergeScan 类似Scan，但累加器返回Observable，其发射的值成为新的累加值
func MergeScan(accumulator func(acc, value interface{}, index int) *Observable, seed interface{}, opts ...MergeOption) OperatorFunc {
	base := newMergeConfig(opts)
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		state := seed
		cfg := base
		cfg.onBeforeNext = func(value interface{}) { state = value }
		cfg.additionalFinalizer = func() { state = nil }
		return mergeInternals(source, subscriber, func(value interface{}, index int) *Observable {
			return accumulator(state, value, index)
		}, cfg)
	})
}

func projectObservable(value interface{}, _ int) *Observable {
	if o, ok := value.(*Observable); ok {
		return o
	}
	if s, ok := value.(interface{ AsObservable() *Observable }); ok {
		return s.AsObservable()
	}
	return Throw(ErrSequence)
}

// ============================================================================
// switch族
// ============================================================================

// SwitchMap 只保留最新的内部Observable，新值到达时取消之前的内部订阅
func SwitchMap(project Projector) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		var innerSubscriber *Subscriber
		index := 0
		isComplete := false

		checkComplete := func() {
			if isComplete && innerSubscriber == nil {
				subscriber.Complete()
			}
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				if innerSubscriber != nil {
					innerSubscriber.Unsubscribe()
				}
				outerIndex := index
				index++
				inner := project(value, outerIndex)
				var current *Subscriber
				current = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
					OnComplete: func() {
						if innerSubscriber == current {
							innerSubscriber = nil
						}
						checkComplete()
					},
				}))
				innerSubscriber = current
				inner.Subscribe(current)
			},
			OnComplete: func() {
				isComplete = true
				checkComplete()
			},
		})))
		return nil
	})
}

// SwitchAll 切换到最新的内部Observable
func SwitchAll() OperatorFunc {
	return SwitchMap(projectObservable)
}

// ============================================================================
// exhaust族
// ============================================================================

// ExhaustMap 内部Observable活跃期间忽略新的外部值
func ExhaustMap(project Projector) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		index := 0
		var innerSub *Subscriber
		isComplete := false

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				if innerSub != nil {
					return
				}
				innerSub = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
					OnComplete: func() {
						innerSub = nil
						if isComplete {
							subscriber.Complete()
						}
					},
				}))
				i := index
				index++
				project(value, i).Subscribe(innerSub)
			},
			OnComplete: func() {
				isComplete = true
				if innerSub == nil {
					subscriber.Complete()
				}
			},
		})))
		return nil
	})
}

// ExhaustAll 内部Observable活跃期间忽略新的内部Observable
func ExhaustAll() OperatorFunc {
	return ExhaustMap(projectObservable)
}
