// Scheduler implementations for RxGo
// 调度器实现：事件循环调度器与蹦床调度器
package rxgo

import (
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// 事件循环调度器 - Async Scheduler
// ============================================================================

// AsyncScheduler 事件循环调度器
// 定时器到期的任务进入队列，由同一个goroutine按顺序逐个执行，因此同一调度器上的
// 任务不会并发运行。队列为空时循环goroutine退出，空闲时不占用goroutine。
type AsyncScheduler struct {
	mu      sync.Mutex
	queue   []*scheduledAction
	running bool
}

type scheduledAction struct {
	work      func()
	handle    *Subscription
	cancelled atomic.Bool
	mu        sync.Mutex
	timer     *time.Timer
}

func (a *scheduledAction) cancel() {
	a.cancelled.Store(true)
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
}

var defaultScheduler = NewAsyncScheduler()

// DefaultScheduler 时间类操作符默认使用的调度器
func DefaultScheduler() Scheduler {
	return defaultScheduler
}

// NewAsyncScheduler 创建事件循环调度器
func NewAsyncScheduler() *AsyncScheduler {
	return &AsyncScheduler{}
}

// Now 当前时间
func (s *AsyncScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 延迟执行任务
func (s *AsyncScheduler) Schedule(work func(), delay time.Duration) *Subscription {
	action := &scheduledAction{work: work}
	action.handle = NewSubscription(action.cancel)

	if delay <= 0 {
		s.enqueue(action)
		return action.handle
	}

	timer := time.AfterFunc(delay, func() { s.enqueue(action) })
	action.mu.Lock()
	action.timer = timer
	action.mu.Unlock()
	if action.cancelled.Load() {
		timer.Stop()
	}
	return action.handle
}

func (s *AsyncScheduler) enqueue(action *scheduledAction) {
	if action.cancelled.Load() {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	go s.loop()
}

// loop 逐个执行队列中的任务，队列为空时退出
func (s *AsyncScheduler) loop() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		action := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if action.cancelled.Load() {
			continue
		}
		if err := tryCatch(action.work); err != nil {
			Logger().Error().Err(err).Msg("scheduled action panicked")
		}
		action.handle.Unsubscribe()
	}
}

// ============================================================================
// 蹦床调度器 - Queue Scheduler
// ============================================================================

// QueueScheduler 蹦床调度器
// 无延迟的任务在调用方goroutine中同步执行；任务执行期间再调度的任务排队，
// 待当前任务结束后按顺序执行，从而把递归展开为循环。
// 带延迟的任务交给fallback调度器。实例只能在单个goroutine中使用。
type QueueScheduler struct {
	queue    []*scheduledAction
	draining bool
	fallback Scheduler
}

// NewQueueScheduler 创建蹦床调度器，fallback为nil时使用DefaultScheduler
func NewQueueScheduler(fallback Scheduler) *QueueScheduler {
	if fallback == nil {
		fallback = DefaultScheduler()
	}
	return &QueueScheduler{fallback: fallback}
}

// Now 当前时间
func (s *QueueScheduler) Now() time.Time {
	return s.fallback.Now()
}

// Schedule 调度任务
func (s *QueueScheduler) Schedule(work func(), delay time.Duration) *Subscription {
	if delay > 0 {
		return s.fallback.Schedule(work, delay)
	}

	action := &scheduledAction{work: work}
	action.handle = NewSubscription(action.cancel)
	s.queue = append(s.queue, action)
	if s.draining {
		return action.handle
	}

	s.draining = true
	defer func() { s.draining = false }()
	// 任务panic时记录日志并继续执行队列中的其余任务
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		if next.cancelled.Load() {
			continue
		}
		if err := tryCatch(next.work); err != nil {
			Logger().Error().Err(err).Msg("scheduled action panicked")
		}
		next.handle.Unsubscribe()
	}
	return action.handle
}

// ============================================================================
// 调度工具
// ============================================================================

// teardownAdder 可以挂载清理逻辑的对象（Subscription、Subscriber）
type teardownAdder interface {
	Add(teardown TeardownLogic)
}

// executeSchedule 在scheduler上调度work并把句柄挂到parent上
// repeat为true时每次执行后以相同延迟重新调度，直到返回的Subscription被取消
func executeSchedule(parent teardownAdder, scheduler Scheduler, work func(), delay time.Duration, repeat bool) *Subscription {
	if !repeat {
		handle := scheduler.Schedule(work, delay)
		parent.Add(handle)
		return handle
	}

	container := NewSubscription(nil)
	parent.Add(container)
	var run func()
	run = func() {
		work()
		if !container.Closed() {
			container.Add(scheduler.Schedule(run, delay))
		}
	}
	container.Add(scheduler.Schedule(run, delay))
	return container
}

// schedulerOrDefault 返回第一个非nil的调度器，否则返回默认调度器
func schedulerOrDefault(schedulers ...Scheduler) Scheduler {
	for _, s := range schedulers {
		if s != nil {
			return s
		}
	}
	return DefaultScheduler()
}
