// Window operators for RxGo
// 窗口操作符：与Buffer族对应，但每个窗口以Observable的形式发出
package rxgo

import (
	"time"
)

// Window 立即发出第一个窗口，windowBoundaries每次发射时关闭当前窗口并开启新窗口
func Window(windowBoundaries *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		window := NewSubject()
		subscriber.Next(window.AsObservable())

		handleError := func(err error) {
			window.Error(err)
			subscriber.Error(err)
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) { window.Next(value) },
			OnError: handleError,
			OnComplete: func() {
				window.Complete()
				subscriber.Complete()
			},
		}))

		windowBoundaries.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(interface{}) {
				window.Complete()
				window = NewSubject()
				subscriber.Next(window.AsObservable())
			},
			OnError:    handleError,
			OnComplete: noop,
		}))

		return func() { window.Unsubscribe() }
	})
}

// WindowCount 每个窗口最多包含size个值
// startEvery>0时每隔startEvery个值开启新窗口（可重叠），否则等于size
func WindowCount(size int, startEvery ...int) OperatorFunc {
	every := size
	if len(startEvery) > 0 && startEvery[0] > 0 {
		every = startEvery[0]
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		if size <= 0 {
			subscriber.Error(ErrArgumentOutOfRange)
			return nil
		}
		windows := []*Subject{NewSubject()}
		count := 0
		subscriber.Next(windows[0].AsObservable())

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				for _, w := range append([]*Subject(nil), windows...) {
					w.Next(value)
				}
				c := count - size + 1
				if c >= 0 && c%every == 0 && len(windows) > 0 {
					windows[0].Complete()
					windows = windows[1:]
				}
				count++
				if count%every == 0 {
					w := NewSubject()
					windows = append(windows, w)
					subscriber.Next(w.AsObservable())
				}
			},
			OnError: func(err error) {
				for len(windows) > 0 {
					w := windows[0]
					windows = windows[1:]
					w.Error(err)
				}
				subscriber.Error(err)
			},
			OnComplete: func() {
				for len(windows) > 0 {
					w := windows[0]
					windows = windows[1:]
					w.Complete()
				}
				subscriber.Complete()
			},
			OnFinalize: func() { windows = nil },
		}))
		return nil
	})
}

// WindowTimeConfig WindowTimeWith的参数
type WindowTimeConfig struct {
	// Span 每个窗口的存活时长
	Span time.Duration
	// CreationInterval 开启新窗口的周期；<=0时在上一个窗口关闭后立即开启下一个
	CreationInterval time.Duration
	// MaxSize 窗口收到该数量的值后提前关闭，<=0表示不限
	MaxSize   int
	Scheduler Scheduler
}

type windowRecord struct {
	window *Subject
	subs   *Subscription
	seen   int
}

// WindowTime 每隔span关闭当前窗口并开启新窗口
func WindowTime(span time.Duration, scheduler Scheduler) OperatorFunc {
	return WindowTimeWith(WindowTimeConfig{Span: span, Scheduler: scheduler})
}

// WindowTimeWith 按配置切分定时窗口
func WindowTimeWith(cfg WindowTimeConfig) OperatorFunc {
	scheduler := schedulerOrDefault(cfg.Scheduler)
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = Unbounded
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		gate := newSerialGate(subscriber)
		var records []*windowRecord
		finished := false
		restartOnClose := false

		var startWindow func()

		closeWindow := func(record *windowRecord) {
			record.window.Complete()
			record.subs.Unsubscribe()
			for i, r := range records {
				if r == record {
					records = append(records[:i:i], records[i+1:]...)
					break
				}
			}
			if restartOnClose {
				startWindow()
			}
		}

		startWindow = func() {
			if finished {
				return
			}
			subs := NewSubscription(nil)
			subscriber.Add(subs)
			record := &windowRecord{window: NewSubject(), subs: subs}
			records = append(records, record)
			subscriber.Next(record.window.AsObservable())
			executeSchedule(subs, scheduler, gate.wrap(func() { closeWindow(record) }), cfg.Span, false)
		}

		if cfg.CreationInterval > 0 {
			executeSchedule(subscriber, scheduler, gate.wrap(startWindow), cfg.CreationInterval, true)
		} else {
			restartOnClose = true
		}
		gate.run(startWindow)

		terminate := func(fn func(o Observer)) {
			finished = true
			for _, r := range append([]*windowRecord(nil), records...) {
				fn(r.window)
			}
			fn(subscriber)
			subscriber.Unsubscribe()
		}

		source.Subscribe(NewOperatorSubscriber(subscriber, gate.hooks(OperatorHooks{
			OnNext: func(value interface{}) {
				for _, r := range append([]*windowRecord(nil), records...) {
					r.window.Next(value)
					r.seen++
					if r.seen >= maxSize {
						closeWindow(r)
					}
				}
			},
			OnError: func(err error) {
				terminate(func(o Observer) { o.Error(err) })
			},
			OnComplete: func() {
				terminate(func(o Observer) { o.Complete() })
			},
		})))

		return gate.wrap(func() {
			finished = true
			records = nil
		})
	})
}

// WindowToggle openings每次发射时开启一个窗口，closingSelector返回的Observable发射时关闭它
func WindowToggle(openings *Observable, closingSelector func(openValue interface{}) *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var windows []*Subject

		handleError := func(err error) {
			for len(windows) > 0 {
				w := windows[0]
				windows = windows[1:]
				w.Error(err)
			}
			subscriber.Error(err)
		}

		openings.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(openValue interface{}) {
				window := NewSubject()
				windows = append(windows, window)

				var closingNotifier *Observable
				if err := tryCatch(func() { closingNotifier = closingSelector(openValue) }); err != nil {
					handleError(err)
					return
				}
				subscriber.Next(window.AsObservable())

				var closer *Subscriber
				closer = NewOperatorSubscriber(subscriber, OperatorHooks{
					OnNext: func(interface{}) {
						for i, w := range windows {
							if w == window {
								windows = append(windows[:i:i], windows[i+1:]...)
								break
							}
						}
						window.Complete()
						closer.Unsubscribe()
					},
					OnError:    handleError,
					OnComplete: noop,
				})
				closingNotifier.Subscribe(closer)
			},
			OnComplete: noop,
		}))

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				for _, w := range append([]*Subject(nil), windows...) {
					w.Next(value)
				}
			},
			OnError: handleError,
			OnComplete: func() {
				for len(windows) > 0 {
					w := windows[0]
					windows = windows[1:]
					w.Complete()
				}
				subscriber.Complete()
			},
			OnFinalize: func() {
				for len(windows) > 0 {
					w := windows[0]
					windows = windows[1:]
					w.Unsubscribe()
				}
			},
		}))
		return nil
	})
}

// WindowWhen 立即开启窗口，closingSelector返回的Observable发射或完成时关闭当前窗口并开启下一个
func WindowWhen(closingSelector func() *Observable) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		var window *Subject
		var closing *Subscriber

		handleError := func(err error) {
			if window != nil {
				window.Error(err)
			}
			subscriber.Error(err)
		}

		var openWindow func()
		openWindow = func() {
			if closing != nil {
				closing.Unsubscribe()
			}
			if window != nil {
				window.Complete()
			}
			window = NewSubject()
			subscriber.Next(window.AsObservable())

			var closingNotifier *Observable
			if err := tryCatch(func() { closingNotifier = closingSelector() }); err != nil {
				handleError(err)
				return
			}
			closing = NewOperatorSubscriber(subscriber, OperatorHooks{
				OnNext:     func(interface{}) { openWindow() },
				OnError:    handleError,
				OnComplete: openWindow,
			})
			closingNotifier.Subscribe(closing)
		}
		openWindow()

		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if window != nil {
					window.Next(value)
				}
			},
			OnError: handleError,
			OnComplete: func() {
				if window != nil {
					window.Complete()
				}
				subscriber.Complete()
			},
			OnFinalize: func() {
				if closing != nil {
					closing.Unsubscribe()
				}
				window = nil
			},
		}))
		return nil
	})
}
