package rxgo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	t.Run("多播给当前所有订阅者", func(t *testing.T) {
		s := NewSubject()
		r1 := collect(s.Observable)
		s.Next(1)
		r2 := collect(s.Observable)
		s.Next(2)
		s.Complete()
		assert.Equal(t, ints(1, 2), r1.Values())
		assert.Equal(t, ints(2), r2.Values())
		assert.True(t, r2.Completed())
		assert.False(t, s.HasObservers())
	})

	t.Run("完成后的订阅者立即收到完成", func(t *testing.T) {
		s := NewSubject()
		s.Complete()
		s.Next(1)
		r := collect(s.Observable)
		assert.Empty(t, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("出错后的订阅者立即收到同一个错误", func(t *testing.T) {
		boom := errors.New("boom")
		s := NewSubject()
		s.Error(boom)
		s.Complete()
		assert.Equal(t, boom, collect(s.Observable).Err())
	})

	t.Run("取消订阅的观察者被移除", func(t *testing.T) {
		s := NewSubject()
		sub := s.Subscribe(newRecorder())
		collect(s.Observable)
		assert.Equal(t, 2, s.ObserverCount())
		require.NoError(t, sub.Unsubscribe())
		assert.Equal(t, 1, s.ObserverCount())
	})

	t.Run("Unsubscribe后拒绝新的订阅", func(t *testing.T) {
		s := NewSubject()
		r := collect(s.Observable)
		require.NoError(t, s.Unsubscribe())
		s.Next(1)
		assert.Empty(t, r.Values())
		assert.True(t, s.Closed())
		assert.ErrorIs(t, collect(s.Observable).Err(), ErrObjectUnsubscribed)
	})

	t.Run("作为观察者订阅其他Observable", func(t *testing.T) {
		s := NewSubject()
		r := collect(s.AsObservable())
		Of(1, 2).Subscribe(s)
		assert.Equal(t, ints(1, 2), r.Values())
		assert.True(t, r.Completed())
	})
}

func TestBehaviorSubject(t *testing.T) {
	b := NewBehaviorSubject(0)
	r1 := collect(b.Observable)
	b.Next(1)
	r2 := collect(b.AsObservable())
	b.Next(2)
	assert.Equal(t, 2, b.Value())
	assert.Equal(t, ints(0, 1, 2), r1.Values())
	assert.Equal(t, ints(1, 2), r2.Values())

	b.Complete()
	late := collect(b.Observable)
	assert.Empty(t, late.Values())
	assert.True(t, late.Completed())
}

func TestReplaySubject(t *testing.T) {
	t.Run("按数量回放", func(t *testing.T) {
		r := NewReplaySubject(2, 0, nil)
		r.Next(1)
		r.Next(2)
		r.Next(3)
		assert.Equal(t, ints(2, 3), collect(r.Observable).Values())
	})

	t.Run("按时间窗口回放", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		r := NewReplaySubject(0, 10*time.Millisecond, vts)
		r.Next(1)
		vts.AdvanceBy(5 * time.Millisecond)
		r.Next(2)
		vts.AdvanceBy(7 * time.Millisecond)
		assert.Equal(t, ints(2), collect(r.Observable).Values())
	})

	t.Run("完成后回放再完成", func(t *testing.T) {
		r := NewReplaySubject(0, 0, nil)
		r.Next(1)
		r.Complete()
		late := collect(r.AsObservable())
		assert.Equal(t, ints(1), late.Values())
		assert.True(t, late.Completed())
	})
}

func TestAsyncSubject(t *testing.T) {
	t.Run("完成时只发送最后一个值", func(t *testing.T) {
		a := NewAsyncSubject()
		r := collect(a.Observable)
		a.Next(1)
		a.Next(2)
		assert.Empty(t, r.Values())
		a.Complete()
		assert.Equal(t, ints(2), r.Values())
		assert.True(t, r.Completed())

		late := collect(a.Observable)
		assert.Equal(t, ints(2), late.Values())
		assert.True(t, late.Completed())
	})

	t.Run("没有值时只完成", func(t *testing.T) {
		a := NewAsyncSubject()
		a.Complete()
		r := collect(a.AsObservable())
		assert.Empty(t, r.Values())
		assert.True(t, r.Completed())
	})
}
