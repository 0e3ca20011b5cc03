// Buffer operators for RxGo
// 缓冲操作符：把源值收集成切片，按通知、数量或时间发射
package rxgo

import (
	"time"
)

// Buffer 收集源值，closingNotifier每次发射时把当前缓冲作为[]interface{}发出
// 源完成时发出最后的缓冲（可能为空）再完成
func Buffer(closingNotifier *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		current := []interface{}{}

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				current = append(current, value)
			},
			OnComplete: func() {
				subscriber.Next(current)
				subscriber.Complete()
			},
		}))

		closingNotifier.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(interface{}) {
				b := current
				current = []interface{}{}
				subscriber.Next(b)
			},
			OnComplete: noop,
		}))

		return func() { current = nil }
	})
}

// BufferCount 每收集size个值发出一个缓冲
// startEvery>0时每隔startEvery个值开启一个新缓冲（可重叠），否则等于size
// 源完成时按创建顺序发出所有未满的缓冲
func BufferCount(size int, startEvery ...int) OperatorFunc {
	every := size
	if len(startEvery) > 0 && startEvery[0] > 0 {
		every = startEvery[0]
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		if size <= 0 {
			subscriber.Error(ErrArgumentOutOfRange)
			return nil
		}
		var buffers [][]interface{}
		count := 0

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if count%every == 0 {
					buffers = append(buffers, make([]interface{}, 0, size))
				}
				count++
				for i := range buffers {
					buffers[i] = append(buffers[i], value)
				}
				// 最早创建的缓冲总是最先装满
				for len(buffers) > 0 && len(buffers[0]) >= size {
					full := buffers[0]
					buffers = buffers[1:]
					subscriber.Next(full)
				}
			},
			OnComplete: func() {
				for len(buffers) > 0 {
					b := buffers[0]
					buffers = buffers[1:]
					subscriber.Next(b)
				}
				subscriber.Complete()
			},
			OnFinalize: func() { buffers = nil },
		}))
		return nil
	})
}

// BufferTimeConfig BufferTimeWith的参数
type BufferTimeConfig struct {
	// Span 每个缓冲的存活时长
	Span time.Duration
	// CreationInterval 开启新缓冲的周期；<=0时在上一个缓冲发出后立即开启下一个
	CreationInterval time.Duration
	// MaxSize 缓冲达到该大小时提前发出，<=0表示不限
	MaxSize int
	Scheduler Scheduler
}

type bufferRecord struct {
	buffer []interface{}
	subs   *Subscription
}

// BufferTime 每隔span发出期间收集到的值
func BufferTime(span time.Duration, scheduler Scheduler) OperatorFunc {
	return BufferTimeWith(BufferTimeConfig{Span: span, Scheduler: scheduler})
}

// BufferTimeWith 按配置收集定时缓冲
// 每个值被放入所有当前打开的缓冲；源完成时按打开顺序发出所有缓冲再完成
func BufferTimeWith(cfg BufferTimeConfig) OperatorFunc {
	scheduler := schedulerOrDefault(cfg.Scheduler)
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = Unbounded
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		var records []*bufferRecord
		finished := false
		restartOnEmit := false

		var startBuffer func()

		emit := func(record *bufferRecord) {
			record.subs.Unsubscribe()
			for i, r := range records {
				if r == record {
					records = append(records[:i:i], records[i+1:]...)
					break
				}
			}
			subscriber.Next(record.buffer)
			if restartOnEmit {
				startBuffer()
			}
		}

		startBuffer = func() {
			if finished {
				return
			}
			subs := NewSubscription(nil)
			subscriber.Add(subs)
			record := &bufferRecord{buffer: []interface{}{}, subs: subs}
			records = append(records, record)
			executeSchedule(subs, scheduler, gate.wrap(func() { emit(record) }), cfg.Span, false)
		}

		if cfg.CreationInterval > 0 {
			executeSchedule(subscriber, scheduler, gate.wrap(startBuffer), cfg.CreationInterval, true)
		} else {
			restartOnEmit = true
		}
		gate.run(startBuffer)

		var bufferSubscriber *Subscriber
		bufferSubscriber = NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				for _, record := range append([]*bufferRecord(nil), records...) {
					record.buffer = append(record.buffer, value)
					if len(record.buffer) >= maxSize {
						emit(record)
					}
				}
			},
			OnComplete: func() {
				for len(records) > 0 {
					record := records[0]
					records = records[1:]
					subscriber.Next(record.buffer)
				}
				bufferSubscriber.Unsubscribe()
				subscriber.Complete()
			},
			OnFinalize: func() {
				finished = true
				records = nil
			},
		}))
		source.Subscribe(bufferSubscriber)
		return nil
	})
}

type toggleBuffer struct {
	values []interface{}
}

// BufferToggle openings每次发射时开启一个缓冲，closingSelector返回的Observable发射时关闭并发出它
func BufferToggle(openings *Observable, closingSelector func(openValue interface{}) *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var buffers []*toggleBuffer

		openings.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(openValue interface{}) {
				buffer := &toggleBuffer{values: []interface{}{}}
				buffers = append(buffers, buffer)

				var closer *Subscriber
				closer = NewOperatorSubscriber(subscriber, OperatorHooks{
					OnNext: func(interface{}) {
						for i, b := range buffers {
							if b == buffer {
								buffers = append(buffers[:i:i], buffers[i+1:]...)
								break
							}
						}
						subscriber.Next(buffer.values)
						closer.Unsubscribe()
					},
					OnComplete: noop,
				})
				closingSelector(openValue).Subscribe(closer)
			},
			OnComplete: noop,
		}))

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				for _, b := range buffers {
					b.values = append(b.values, value)
				}
			},
			OnComplete: func() {
				for len(buffers) > 0 {
					b := buffers[0]
					buffers = buffers[1:]
					subscriber.Next(b.values)
				}
				subscriber.Complete()
			},
		}))
		return nil
	})
}

// BufferWhen 立即开启缓冲，closingSelector返回的Observable发射时发出当前缓冲并开启下一个
func BufferWhen(closingSelector func() *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var buffer []interface{}
		open := false
		var closing *Subscriber

		var openBuffer func()
		openBuffer = func() {
			if closing != nil {
				closing.Unsubscribe()
			}
			b, wasOpen := buffer, open
			buffer, open = []interface{}{}, true
			if wasOpen {
				subscriber.Next(b)
			}
			closing = NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext:     func(interface{}) { openBuffer() },
				OnComplete: noop,
			})
			closingSelector().Subscribe(closing)
		}
		openBuffer()

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if open {
					buffer = append(buffer, value)
				}
			},
			OnComplete: func() {
				if open {
					subscriber.Next(buffer)
				}
				subscriber.Complete()
			},
			OnFinalize: func() {
				buffer, open = nil, false
				closing = nil
			},
		}))
		return nil
	})
}
