// Share operators for RxGo
// 共享操作符：多个订阅者共用一次上游订阅
package rxgo

import (
	"sync"
	"time"
)

// ============================================================================
// 重置策略
// ============================================================================

// ResetPolicy 共享连接在某个事件后是否重置
// 零值表示立即重置：下一个订阅者会重新连接上游
type ResetPolicy struct {
	// Never 为true时保留已有的连接与Subject
	Never bool
	// After 非nil时在其返回的Observable第一次发射后才重置，期间有新订阅者则取消重置
	After func(err error) *Observable
}

// NeverReset 不重置
var NeverReset = ResetPolicy{Never: true}

// ResetAfter 延迟重置
func ResetAfter(notifier func(err error) *Observable) ResetPolicy {
	return ResetPolicy{After: notifier}
}

// ResetAfterDuration 引用计数归零等事件之后延迟d再重置
func ResetAfterDuration(d time.Duration, scheduler Scheduler) ResetPolicy {
	return ResetAfter(func(error) *Observable { return Timer(d, scheduler) })
}

// ShareConfig Share的配置
type ShareConfig struct {
	// Connector 创建连接上游的Subject，nil时使用NewSubject
	Connector func() SubjectLike
	// ResetOnError 上游出错后的重置策略
	ResetOnError ResetPolicy
	// ResetOnComplete 上游完成后的重置策略
	ResetOnComplete ResetPolicy
	// ResetOnRefCountZero 订阅者全部离开后的重置策略
	ResetOnRefCountZero ResetPolicy
}

func newSubjectConnector() SubjectLike {
	return NewSubject()
}

// ============================================================================
// 共享状态
// ============================================================================

// shareState 一个Share操作符实例的所有共享状态
// 状态变更在锁内完成，对Subject和上游的调用都在锁外进行
type shareState struct {
	mu              sync.Mutex
	cfg             ShareConfig
	connection      *Subscriber
	resetConnection *Subscriber
	subject         SubjectLike
	refCount        int
	hasCompleted    bool
	hasErrored      bool
}

func (st *shareState) cancelResetLocked() *Subscriber {
	c := st.resetConnection
	st.resetConnection = nil
	return c
}

func (st *shareState) resetLocked() (cancel, conn *Subscriber) {
	cancel = st.cancelResetLocked()
	conn = st.connection
	st.connection = nil
	st.subject = nil
	st.hasCompleted = false
	st.hasErrored = false
	return cancel, conn
}

func (st *shareState) reset() {
	st.mu.Lock()
	cancel, _ := st.resetLocked()
	st.mu.Unlock()
	unsubscribeQuietly(cancel)
}

func (st *shareState) resetAndUnsubscribe() {
	st.mu.Lock()
	cancel, conn := st.resetLocked()
	st.mu.Unlock()
	unsubscribeQuietly(cancel)
	unsubscribeQuietly(conn)
	Logger().Debug().Msg("share: upstream connection released")
}

// armReset 按策略立即执行fn或在通知发射后执行
func (st *shareState) armReset(fn func(), policy ResetPolicy, err error) {
	if policy.Never {
		return
	}
	if policy.After == nil {
		fn()
		return
	}
	var notifier *Subscriber
	notifier = NewSafeSubscriber(ObserverFuncs{
		OnNext: func(interface{}) {
			notifier.Unsubscribe()
			fn()
		},
	})
	st.mu.Lock()
	st.resetConnection = notifier
	st.mu.Unlock()
	policy.After(err).Subscribe(notifier)
}

func (st *shareState) release() {
	st.mu.Lock()
	st.refCount--
	arm := st.refCount == 0 && !st.hasErrored && !st.hasCompleted
	st.mu.Unlock()
	if arm {
		st.armReset(st.resetAndUnsubscribe, st.cfg.ResetOnRefCountZero, nil)
	}
}

func (st *shareState) connect(source *Observable, dest SubjectLike) {
	st.mu.Lock()
	if st.connection != nil || st.refCount <= 0 || st.subject != dest {
		st.mu.Unlock()
		return
	}
	conn := NewSafeSubscriber(ObserverFuncs{
		OnNext: dest.Next,
		OnError: func(err error) {
			st.mu.Lock()
			st.hasErrored = true
			cancel := st.cancelResetLocked()
			st.mu.Unlock()
			unsubscribeQuietly(cancel)
			st.armReset(st.reset, st.cfg.ResetOnError, err)
			dest.Error(err)
		},
		OnComplete: func() {
			st.mu.Lock()
			st.hasCompleted = true
			cancel := st.cancelResetLocked()
			st.mu.Unlock()
			unsubscribeQuietly(cancel)
			st.armReset(st.reset, st.cfg.ResetOnComplete, nil)
			dest.Complete()
		},
	})
	st.connection = conn
	st.mu.Unlock()

	Logger().Debug().Msg("share: connecting upstream")
	source.Subscribe(conn)
}

func unsubscribeQuietly(s *Subscriber) {
	if s == nil {
		return
	}
	if err := s.Unsubscribe(); err != nil {
		reportUnhandledError(err)
	}
}

// ============================================================================
// Share / ShareReplay
// ============================================================================

// Share 第一个订阅者到来时订阅上游，之后的订阅者共享同一个上游订阅
// 默认在上游终止或订阅者全部离开时重置，下一个订阅者会重新订阅上游
func Share(configs ...ShareConfig) OperatorFunc {
	var cfg ShareConfig
	if len(configs) > 0 {
		cfg = configs[0]
	}
	if cfg.Connector == nil {
		cfg.Connector = newSubjectConnector
	}
	return func(wrapped *Observable) *Observable {
		st := &shareState{cfg: cfg}
		return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
			st.mu.Lock()
			st.refCount++
			var cancel *Subscriber
			if !st.hasErrored && !st.hasCompleted {
				cancel = st.cancelResetLocked()
			}
			if st.subject == nil {
				st.subject = cfg.Connector()
			}
			dest := st.subject
			st.mu.Unlock()
			unsubscribeQuietly(cancel)

			subscriber.Add(st.release)
			dest.Subscribe(subscriber)
			st.connect(source, dest)
			return nil
		})(wrapped)
	}
}

// ShareReplayConfig ShareReplay的配置
type ShareReplayConfig struct {
	// BufferSize 回放的值数量，<=0表示不限
	BufferSize int
	// WindowTime 回放值的最长保留时间，<=0表示不限
	WindowTime time.Duration
	// RefCount 为true时订阅者全部离开后断开上游
	RefCount  bool
	Scheduler Scheduler
}

// ShareReplay 共享上游并向后来的订阅者回放最近的值
// 上游完成后不重置，后来的订阅者收到回放的值和完成通知
func ShareReplay(cfg ShareReplayConfig) OperatorFunc {
	onRefCountZero := NeverReset
	if cfg.RefCount {
		onRefCountZero = ResetPolicy{}
	}
	return Share(ShareConfig{
		Connector: func() SubjectLike {
			return NewReplaySubject(cfg.BufferSize, cfg.WindowTime, cfg.Scheduler)
		},
		ResetOnError:        ResetPolicy{},
		ResetOnComplete:     NeverReset,
		ResetOnRefCountZero: onRefCountZero,
	})
}
