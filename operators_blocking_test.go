package rxgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstValueFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("返回第一个值并取消订阅", func(t *testing.T) {
		emitted := 0
		src := Of(1, 2, 3).Pipe(DoOnNext(func(interface{}) { emitted++ }))
		v, err := FirstValueFrom(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, emitted)
	})

	t.Run("空源返回ErrEmpty", func(t *testing.T) {
		_, err := FirstValueFrom(ctx, Empty())
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("空源返回默认值", func(t *testing.T) {
		v, err := FirstValueFrom(ctx, Empty(), 42)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("错误", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := FirstValueFrom(ctx, Throw(boom))
		assert.Equal(t, boom, err)
	})

	t.Run("等待异步值", func(t *testing.T) {
		v, err := FirstValueFrom(ctx, Interval(time.Millisecond, NewAsyncScheduler()))
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})

	t.Run("ctx取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		unsubscribed := false
		src := Never().Pipe(Finalize(func() { unsubscribed = true }))
		go cancel()
		_, err := FirstValueFrom(ctx, src)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, unsubscribed)
	})
}

func TestLastValueFrom(t *testing.T) {
	ctx := context.Background()

	v, err := LastValueFrom(ctx, Of(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = LastValueFrom(ctx, Empty())
	assert.ErrorIs(t, err, ErrEmpty)

	v, err = LastValueFrom(ctx, Empty(), "default")
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	boom := errors.New("boom")
	_, err = LastValueFrom(ctx, Concat(Of(1), Throw(boom)))
	assert.Equal(t, boom, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = LastValueFrom(ctx, Never())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToChannel(t *testing.T) {
	t.Run("按顺序写入通知后关闭", func(t *testing.T) {
		var got []Notification
		for n := range ToChannel(context.Background(), Of(1, 2), 0) {
			got = append(got, n)
		}
		assert.Equal(t, []Notification{NextNotification(1), NextNotification(2), CompleteNotification()}, got)
	})

	t.Run("错误通知", func(t *testing.T) {
		boom := errors.New("boom")
		var got []Notification
		for n := range ToChannel(context.Background(), Throw(boom), 1) {
			got = append(got, n)
		}
		assert.Equal(t, []Notification{ErrorNotification(boom)}, got)
	})

	t.Run("ctx取消时关闭channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch := ToChannel(ctx, Never(), 0)
		cancel()
		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel not closed")
		}
	})

	t.Run("ctx取消时释放阻塞的生产者", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch := ToChannel(ctx, Range(0, 1000), 0)
		first := <-ch
		assert.Equal(t, NextNotification(0), first)
		cancel()
		for range ch {
		}
	})
}

func TestForEach(t *testing.T) {
	ctx := context.Background()

	t.Run("对每个值调用fn", func(t *testing.T) {
		sum := 0
		err := Range(1, 4).ForEach(ctx, func(v interface{}) { sum += v.(int) })
		require.NoError(t, err)
		assert.Equal(t, 10, sum)
	})

	t.Run("源错误", func(t *testing.T) {
		boom := errors.New("boom")
		err := Throw(boom).ForEach(ctx, func(interface{}) {})
		assert.Equal(t, boom, err)
	})

	t.Run("fn的panic作为错误返回并取消订阅", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := Range(0, 10).ForEach(ctx, func(interface{}) {
			calls++
			panic(boom)
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})
}
