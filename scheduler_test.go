package rxgo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAsyncScheduler(t *testing.T) {
	t.Run("任务按到期顺序串行执行", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := NewAsyncScheduler()

		var mu sync.Mutex
		var order []int
		var wg sync.WaitGroup
		wg.Add(3)
		for i, d := range []time.Duration{30, 10, 20} {
			i := i
			s.Schedule(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				wg.Done()
			}, d*time.Millisecond)
		}
		wg.Wait()
		assert.Equal(t, []int{1, 2, 0}, order)
	})

	t.Run("取消的任务不执行", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := NewAsyncScheduler()

		ran := make(chan struct{}, 1)
		handle := s.Schedule(func() { ran <- struct{}{} }, 20*time.Millisecond)
		require.NoError(t, handle.Unsubscribe())

		select {
		case <-ran:
			t.Fatal("cancelled action ran")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("执行后句柄关闭", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := NewAsyncScheduler()
		done := make(chan struct{})
		handle := s.Schedule(func() { close(done) }, 0)
		<-done
		assert.Eventually(t, handle.Closed, time.Second, time.Millisecond)
	})

	t.Run("任务中的panic被记录而不终止循环", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := NewAsyncScheduler()
		done := make(chan struct{})
		s.Schedule(func() { panic("boom") }, 0)
		s.Schedule(func() { close(done) }, 0)
		<-done
	})

	t.Run("Interval取消订阅后不泄漏goroutine", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := NewAsyncScheduler()
		got := make(chan interface{}, 16)
		sub := Interval(time.Millisecond, s).SubscribeWithCallbacks(func(v interface{}) { got <- v }, nil, nil)
		assert.Equal(t, 0, <-got)
		assert.Equal(t, 1, <-got)
		require.NoError(t, sub.Unsubscribe())
	})
}

func TestQueueScheduler(t *testing.T) {
	t.Run("递归调度展开为循环", func(t *testing.T) {
		q := NewQueueScheduler(nil)
		var order []string
		q.Schedule(func() {
			order = append(order, "outer-start")
			q.Schedule(func() { order = append(order, "inner") }, 0)
			order = append(order, "outer-end")
		}, 0)
		assert.Equal(t, []string{"outer-start", "outer-end", "inner"}, order)
	})

	t.Run("带延迟的任务交给fallback", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		q := NewQueueScheduler(vts)
		ran := false
		q.Schedule(func() { ran = true }, time.Second)
		assert.False(t, ran)
		assert.Equal(t, 1, vts.Pending())
		vts.Flush()
		assert.True(t, ran)
		assert.Equal(t, vts.Now(), q.Now())
	})

	t.Run("排队中的任务可以取消", func(t *testing.T) {
		q := NewQueueScheduler(nil)
		ran := false
		q.Schedule(func() {
			handle := q.Schedule(func() { ran = true }, 0)
			handle.Unsubscribe()
		}, 0)
		assert.False(t, ran)
	})

	t.Run("任务panic后同一轮中排队的任务照常执行", func(t *testing.T) {
		q := NewQueueScheduler(nil)
		var ran []string
		assert.NotPanics(t, func() {
			q.Schedule(func() {
				q.Schedule(func() { ran = append(ran, "B") }, 0)
				panic("boom")
			}, 0)
		})
		assert.Equal(t, []string{"B"}, ran)

		q.Schedule(func() { ran = append(ran, "C") }, 0)
		assert.Equal(t, []string{"B", "C"}, ran)
	})
}

func TestVirtualTimeScheduler(t *testing.T) {
	t.Run("同一时刻按调度顺序执行", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		var order []int
		vts.Schedule(func() { order = append(order, 1) }, 5*time.Millisecond)
		vts.Schedule(func() { order = append(order, 0) }, 0)
		vts.Schedule(func() { order = append(order, 2) }, 5*time.Millisecond)
		vts.Flush()
		assert.Equal(t, []int{0, 1, 2}, order)
		assert.Equal(t, 5*time.Millisecond, vts.Frame())
	})

	t.Run("AdvanceTo只执行到期任务", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		ran := 0
		vts.Schedule(func() { ran++ }, 10*time.Millisecond)
		vts.Schedule(func() { ran++ }, 20*time.Millisecond)
		vts.AdvanceTo(15 * time.Millisecond)
		assert.Equal(t, 1, ran)
		assert.Equal(t, 15*time.Millisecond, vts.Frame())
		assert.Equal(t, 1, vts.Pending())
	})

	t.Run("取消的任务从队列移除", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		handle := vts.Schedule(func() { t.Fatal("cancelled action ran") }, time.Millisecond)
		require.NoError(t, handle.Unsubscribe())
		assert.Equal(t, 0, vts.Pending())
		vts.Flush()
	})

	t.Run("MaxFrames限制Flush", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		vts.MaxFrames = 10 * time.Millisecond
		ran := 0
		vts.Schedule(func() { ran++ }, 5*time.Millisecond)
		vts.Schedule(func() { ran++ }, 50*time.Millisecond)
		vts.Flush()
		assert.Equal(t, 1, ran)
		assert.Equal(t, 1, vts.Pending())
	})
}
