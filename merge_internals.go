package rxgo

// ============================================================================
// 并发受限的展平算法
// ============================================================================

// mergeConfig mergeInternals的参数
type mergeConfig struct {
	concurrent int
	// onBeforeNext 内部值发往下游之前调用（MergeScan用来更新累加值）
	onBeforeNext func(value interface{})
	// expand 为true时内部值会作为新的外部值递归投射
	expand bool
	// innerSubScheduler 非nil时，缓冲值的提升在该调度器上执行
	innerSubScheduler Scheduler
	// additionalFinalizer 整个操作结束时执行
	additionalFinalizer func()
}

// MergeOption mergeMap族操作符的可选项
type MergeOption func(*mergeConfig)

// WithConcurrency 同时活跃的内部订阅上限，<=0表示不限
func WithConcurrency(n int) MergeOption {
	return func(c *mergeConfig) {
		if n <= 0 {
			n = Unbounded
		}
		c.concurrent = n
	}
}

// WithInnerScheduler 在scheduler上订阅从缓冲区提升的内部源（仅Expand使用）
func WithInnerScheduler(scheduler Scheduler) MergeOption {
	return func(c *mergeConfig) { c.innerSubScheduler = scheduler }
}

func newMergeConfig(opts []MergeOption) mergeConfig {
	cfg := mergeConfig{concurrent: Unbounded}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// mergeInternals mergeMap/mergeAll/concatMap/expand/mergeScan共享的实现
//
//  1. active记录活跃的内部订阅数，buffer按到达顺序保存尚未开始的外部值
//  2. 外部值到达时，active < N 则立即投射并订阅，否则进入buffer
//  3. 内部值直接发往下游；expand模式下同时作为新的外部值重新路由
//  4. 内部源完成后active减一，然后按FIFO从buffer提升值直到达到上限
//  5. 外部完成 且 buffer为空 且 active为0 时下游才完成
//
// 任何错误立即转发给下游，下游的终止会取消所有仍活跃的内部订阅。
// 外部与内部的通知经同一个serialGate串行执行，内部源可以在其他goroutine上发射。
func mergeInternals(source *Observable, subscriber *Subscriber, project Projector, cfg mergeConfig) TeardownLogic {
	gate := newSerialGate(subscriber)
	var buffer []interface{}
	active := 0
	index := 0
	isComplete := false

	checkComplete := func() {
		if isComplete && len(buffer) == 0 && active == 0 {
			subscriber.Complete()
		}
	}

	var doInnerSub func(value interface{})

	outerNext := func(value interface{}) {
		if active < cfg.concurrent {
			doInnerSub(value)
			return
		}
		buffer = append(buffer, value)
	}

	doInnerSub = func(value interface{}) {
		if cfg.expand {
			subscriber.Next(value)
		}
		active++

		innerComplete := false
		i := index
		index++
		inner := project(value, i)
		if inner == nil {
			inner = Empty()
		}

		inner.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(innerValue interface{}) {
				if cfg.onBeforeNext != nil {
					cfg.onBeforeNext(innerValue)
				}
				if cfg.expand {
					outerNext(innerValue)
					return
				}
				subscriber.Next(innerValue)
			},
			OnComplete: func() {
				innerComplete = true
			},
			OnFinalize: func() {
				if !innerComplete {
					return
				}
				active--
				for len(buffer) > 0 && active < cfg.concurrent {
					next := buffer[0]
					buffer[0] = nil
					buffer = buffer[1:]
					if cfg.innerSubScheduler != nil {
						executeSchedule(subscriber, cfg.innerSubScheduler, gate.wrap(func() { doInnerSub(next) }), 0, false)
					} else {
						doInnerSub(next)
					}
				}
				checkComplete()
			},
		})))
	}

	source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
		OnNext: outerNext,
		OnComplete: func() {
			isComplete = true
			checkComplete()
		},
	})))

	return func() {
		if cfg.additionalFinalizer != nil {
			cfg.additionalFinalizer()
		}
	}
}
