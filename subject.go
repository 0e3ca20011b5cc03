// Subject implementations for RxGo
// 实现Subject系统，包括Subject、BehaviorSubject、ReplaySubject、AsyncSubject
package rxgo

import (
	"sync"
	"time"
)

// ============================================================================
// Subject 接口
// ============================================================================

// SubjectLike 既是Observer又可以被订阅
type SubjectLike interface {
	Observer
	Subscribe(observer Observer) *Subscriber
	AsObservable() *Observable
}

// ============================================================================
// Subject - 多播主题
// ============================================================================

// Subject 把收到的通知多播给当前所有订阅者
type Subject struct {
	*Observable

	mu          sync.Mutex
	observers   []*Subscriber
	isStopped   bool
	hasError    bool
	thrownError error
	closed      bool

	// subscribeHook 在订阅者注册之前运行，用于BehaviorSubject/ReplaySubject回放
	subscribeHook func(subscriber *Subscriber)
}

// NewSubject 创建新的Subject
func NewSubject() *Subject {
	s := &Subject{}
	s.Observable = NewObservable(s.subscribe)
	return s
}

func (s *Subject) subscribe(subscriber *Subscriber) TeardownLogic {
	if s.subscribeHook != nil {
		s.subscribeHook(subscriber)
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		subscriber.Error(ErrObjectUnsubscribed)
		return nil
	case s.hasError:
		err := s.thrownError
		s.mu.Unlock()
		subscriber.Error(err)
		return nil
	case s.isStopped:
		s.mu.Unlock()
		subscriber.Complete()
		return nil
	}
	s.observers = append(s.observers, subscriber)
	s.mu.Unlock()

	return func() { s.removeObserver(subscriber) }
}

func (s *Subject) removeObserver(subscriber *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == subscriber {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// snapshot 当前订阅者的副本，通知期间新增的订阅者不会收到本次通知
func (s *Subject) snapshot() []*Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isStopped || s.closed {
		return nil
	}
	return append([]*Subscriber(nil), s.observers...)
}

// Next 向所有订阅者发送值
func (s *Subject) Next(value interface{}) {
	for _, o := range s.snapshot() {
		o.Next(value)
	}
}

// Error 向所有订阅者发送错误，之后的订阅者立即收到该错误
func (s *Subject) Error(err error) {
	s.mu.Lock()
	if s.isStopped || s.closed {
		s.mu.Unlock()
		return
	}
	s.isStopped = true
	s.hasError = true
	s.thrownError = err
	observers := s.observers
	s.observers = nil
	s.mu.Unlock()

	for _, o := range observers {
		o.Error(err)
	}
}

// Complete 向所有订阅者发送完成信号
func (s *Subject) Complete() {
	s.mu.Lock()
	if s.isStopped || s.closed {
		s.mu.Unlock()
		return
	}
	s.isStopped = true
	observers := s.observers
	s.observers = nil
	s.mu.Unlock()

	for _, o := range observers {
		o.Complete()
	}
}

// Unsubscribe 关闭Subject并丢弃所有订阅者，但不通知它们
func (s *Subject) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isStopped = true
	s.closed = true
	s.observers = nil
	return nil
}

// Closed Subject是否已被取消订阅
func (s *Subject) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// HasObservers 检查是否有观察者
func (s *Subject) HasObservers() bool {
	return s.ObserverCount() > 0
}

// ObserverCount 获取观察者数量
func (s *Subject) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// AsObservable 隐藏Observer一侧，只暴露Observable
func (s *Subject) AsObservable() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		return s.Subscribe(subscriber)
	})
}

// ============================================================================
// BehaviorSubject - 行为主题
// ============================================================================

// BehaviorSubject 保存当前值，新订阅者立即收到当前值
type BehaviorSubject struct {
	*Subject
	valueMu sync.Mutex
	value   interface{}
}

// NewBehaviorSubject 创建带初始值的行为主题
func NewBehaviorSubject(initial interface{}) *BehaviorSubject {
	b := &BehaviorSubject{Subject: NewSubject(), value: initial}
	b.subscribeHook = func(subscriber *Subscriber) {
		b.Subject.mu.Lock()
		stopped := b.Subject.isStopped || b.Subject.closed
		b.Subject.mu.Unlock()
		if !stopped {
			subscriber.Next(b.Value())
		}
	}
	return b
}

// Value 当前值
func (b *BehaviorSubject) Value() interface{} {
	b.valueMu.Lock()
	defer b.valueMu.Unlock()
	return b.value
}

// Next 更新当前值并多播
func (b *BehaviorSubject) Next(value interface{}) {
	b.valueMu.Lock()
	b.value = value
	b.valueMu.Unlock()
	b.Subject.Next(value)
}

// AsObservable 只暴露Observable
func (b *BehaviorSubject) AsObservable() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		return b.Subscribe(subscriber)
	})
}

// ============================================================================
// ReplaySubject - 重放主题
// ============================================================================

// ReplaySubject 缓存最近的值并回放给新订阅者
// bufferSize<=0 表示不限数量，windowTime<=0 表示不限时间
type ReplaySubject struct {
	*Subject
	bufMu      sync.Mutex
	buffer     []replayEntry
	bufferSize int
	windowTime time.Duration
	scheduler  Scheduler
}

type replayEntry struct {
	value interface{}
	at    time.Time
}

// NewReplaySubject 创建重放主题，scheduler用于窗口时间计算，nil使用默认调度器
func NewReplaySubject(bufferSize int, windowTime time.Duration, scheduler Scheduler) *ReplaySubject {
	r := &ReplaySubject{
		Subject:    NewSubject(),
		bufferSize: bufferSize,
		windowTime: windowTime,
		scheduler:  schedulerOrDefault(scheduler),
	}
	r.subscribeHook = func(subscriber *Subscriber) {
		r.bufMu.Lock()
		r.trim()
		entries := append([]replayEntry(nil), r.buffer...)
		r.bufMu.Unlock()
		for _, e := range entries {
			if subscriber.Closed() {
				return
			}
			subscriber.Next(e.value)
		}
	}
	return r
}

// Next 缓存并多播
func (r *ReplaySubject) Next(value interface{}) {
	r.Subject.mu.Lock()
	stopped := r.Subject.isStopped
	r.Subject.mu.Unlock()
	if !stopped {
		r.bufMu.Lock()
		r.buffer = append(r.buffer, replayEntry{value: value, at: r.scheduler.Now()})
		r.trim()
		r.bufMu.Unlock()
	}
	r.Subject.Next(value)
}

func (r *ReplaySubject) trim() {
	if r.bufferSize > 0 && len(r.buffer) > r.bufferSize {
		r.buffer = append(r.buffer[:0:0], r.buffer[len(r.buffer)-r.bufferSize:]...)
	}
	if r.windowTime > 0 {
		now := r.scheduler.Now()
		i := 0
		for i < len(r.buffer) && now.Sub(r.buffer[i].at) > r.windowTime {
			i++
		}
		if i > 0 {
			r.buffer = append(r.buffer[:0:0], r.buffer[i:]...)
		}
	}
}

// AsObservable 只暴露Observable
func (r *ReplaySubject) AsObservable() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		return r.Subscribe(subscriber)
	})
}

// ============================================================================
// AsyncSubject - 异步主题
// ============================================================================

// AsyncSubject 只在完成时发送最后一个值
type AsyncSubject struct {
	*Subject
	valMu     sync.Mutex
	hasValue  bool
	value     interface{}
	completed bool
}

// NewAsyncSubject 创建异步主题
func NewAsyncSubject() *AsyncSubject {
	a := &AsyncSubject{Subject: NewSubject()}
	a.subscribeHook = func(subscriber *Subscriber) {
		a.valMu.Lock()
		completed, hasValue, value := a.completed, a.hasValue, a.value
		a.valMu.Unlock()
		if completed && hasValue {
			subscriber.Next(value)
		}
	}
	return a
}

// Next 记录最后一个值，不立即发送
func (a *AsyncSubject) Next(value interface{}) {
	a.valMu.Lock()
	defer a.valMu.Unlock()
	if a.completed {
		return
	}
	a.hasValue = true
	a.value = value
}

// Complete 发送最后一个值后完成
func (a *AsyncSubject) Complete() {
	a.valMu.Lock()
	if a.completed {
		a.valMu.Unlock()
		return
	}
	a.completed = true
	hasValue, value := a.hasValue, a.value
	a.valMu.Unlock()

	if hasValue {
		a.Subject.Next(value)
	}
	a.Subject.Complete()
}

// AsObservable 只暴露Observable
func (a *AsyncSubject) AsObservable() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		return a.Subscribe(subscriber)
	})
}
