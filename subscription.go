package rxgo

import (
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// ============================================================================
// Subscription 可组合的资源句柄
// ============================================================================

// Subscription 可释放资源的句柄，可以聚合子资源，取消时按添加顺序全部释放
type Subscription struct {
	mu              sync.Mutex
	closed          bool
	initialTeardown func()
	parents         []*Subscription
	finalizers      []finalizer
}

// finalizer 一个待执行的清理动作
type finalizer struct {
	fn  func() error
	ref Unsubscribable
}

// subscriptionHolder 持有Subscription的类型（Subscription本身与Subscriber）
type subscriptionHolder interface {
	subscription() *Subscription
}

// NewSubscription 创建Subscription，initialTeardown在取消订阅时最先执行
func NewSubscription(initialTeardown func()) *Subscription {
	return &Subscription{initialTeardown: initialTeardown}
}

// closedSubscription 返回一个已关闭的Subscription
func closedSubscription() *Subscription {
	return &Subscription{closed: true}
}

func (s *Subscription) subscription() *Subscription {
	return s
}

// Closed 是否已经取消订阅
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Add 添加清理逻辑
// 已关闭时立即执行清理逻辑；添加自身为空操作
func (s *Subscription) Add(teardown TeardownLogic) {
	f, ok := toFinalizer(teardown)
	if !ok {
		return
	}

	child := subscriptionOf(f.ref)
	if child == s {
		return
	}
	if child != nil && !child.addParent(s) {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if child != nil {
			child.removeParent(s)
		}
		if err := execFinalizer(f); err != nil {
			reportUnhandledError(err)
		}
		return
	}
	s.finalizers = append(s.finalizers, f)
	s.mu.Unlock()
}

// Remove 移除先前添加的清理逻辑但不执行它，不存在时为空操作
func (s *Subscription) Remove(teardown Unsubscribable) {
	if teardown == nil {
		return
	}
	target := subscriptionOf(teardown)

	s.mu.Lock()
	for i, f := range s.finalizers {
		if f.ref == nil {
			continue
		}
		if (target != nil && subscriptionOf(f.ref) == target) || sameRef(f.ref, teardown) {
			s.finalizers = append(s.finalizers[:i:i], s.finalizers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if target != nil {
		target.removeParent(s)
	}
}

// Unsubscribe 取消订阅，幂等
// 依次执行所有清理逻辑，单个清理出错不影响其余清理；
// 一个错误原样返回，多个错误聚合为*UnsubscriptionError
func (s *Subscription) Unsubscribe() error {
	_, err := s.unsubscribe()
	return err
}

// unsubscribe 返回本次调用是否完成了关闭
func (s *Subscription) unsubscribe() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, nil
	}
	s.closed = true
	parents := s.parents
	initial := s.initialTeardown
	finalizers := s.finalizers
	s.parents = nil
	s.initialTeardown = nil
	s.finalizers = nil
	s.mu.Unlock()

	for _, parent := range parents {
		parent.Remove(s)
	}

	var errs error
	if initial != nil {
		errs = multierr.Append(errs, tryCatch(initial))
	}
	for _, f := range finalizers {
		errs = multierr.Append(errs, execFinalizer(f))
	}
	return true, aggregateErrors(errs)
}

func (s *Subscription) addParent(parent *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for _, p := range s.parents {
		if p == parent {
			return false
		}
	}
	s.parents = append(s.parents, parent)
	return true
}

func (s *Subscription) removeParent(parent *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.parents {
		if p == parent {
			s.parents = append(s.parents[:i:i], s.parents[i+1:]...)
			return
		}
	}
}

// ============================================================================
// 工具函数
// ============================================================================

func toFinalizer(teardown TeardownLogic) (finalizer, bool) {
	switch t := teardown.(type) {
	case nil:
		return finalizer{}, false
	case Unsubscribable:
		if isNilPointer(t) {
			return finalizer{}, false
		}
		return finalizer{ref: t}, true
	case func():
		if t == nil {
			return finalizer{}, false
		}
		return finalizer{fn: func() error { t(); return nil }}, true
	case func() error:
		if t == nil {
			return finalizer{}, false
		}
		return finalizer{fn: t}, true
	}
	panic("rxgo: unsupported teardown type " + reflect.TypeOf(teardown).String())
}

func execFinalizer(f finalizer) error {
	var err error
	perr := tryCatch(func() {
		if f.fn != nil {
			err = f.fn()
			return
		}
		err = f.ref.Unsubscribe()
	})
	return multierr.Append(err, perr)
}

func subscriptionOf(u Unsubscribable) *Subscription {
	if h, ok := u.(subscriptionHolder); ok && !isNilPointer(u) {
		return h.subscription()
	}
	return nil
}

func sameRef(a, b Unsubscribable) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func isNilPointer(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// aggregateErrors 展开嵌套的UnsubscriptionError
func aggregateErrors(err error) error {
	if err == nil {
		return nil
	}
	var flat []error
	for _, e := range multierr.Errors(err) {
		if ue, ok := e.(*UnsubscriptionError); ok {
			flat = append(flat, ue.Errors...)
			continue
		}
		flat = append(flat, e)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &UnsubscriptionError{Errors: flat}
}
