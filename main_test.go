package rxgo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder 记录收到的所有通知的观察者，可在多个goroutine中使用
type recorder struct {
	mu            sync.Mutex
	notifications []Notification
	done          chan struct{}
	once          sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) Next(value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, NextNotification(value))
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	r.notifications = append(r.notifications, ErrorNotification(err))
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) Complete() {
	r.mu.Lock()
	r.notifications = append(r.notifications, CompleteNotification())
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) Values() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := []interface{}{}
	for _, n := range r.notifications {
		if n.Kind == KindNext {
			values = append(values, n.Value)
		}
	}
	return values
}

func (r *recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

func (r *recorder) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.notifications)
	return n > 0 && r.notifications[n-1].Kind == KindComplete
}

func (r *recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.Kind == KindError {
			return n.Err
		}
	}
	return nil
}

// collect 同步订阅并返回记录器
func collect(o *Observable) *recorder {
	r := newRecorder()
	o.Subscribe(r)
	return r
}

// marbles 创建使用testify断言的弹珠图测试调度器
func marbles(t *testing.T) *TestScheduler {
	return NewTestScheduler(func(actual, expected interface{}) {
		assert.Equal(t, expected, actual)
	})
}

// ints 生成[]interface{}
func ints(values ...int) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
