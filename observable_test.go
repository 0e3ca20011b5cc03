package rxgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservable(t *testing.T) {
	t.Run("每次订阅重新执行生产函数", func(t *testing.T) {
		runs := 0
		o := NewObservable(func(s *Subscriber) TeardownLogic {
			runs++
			s.Next(runs)
			s.Complete()
			return nil
		})
		assert.Equal(t, ints(1), collect(o).Values())
		assert.Equal(t, ints(2), collect(o).Values())
	})

	t.Run("生产函数的panic转为错误通知", func(t *testing.T) {
		boom := errors.New("boom")
		r := collect(NewObservable(func(s *Subscriber) TeardownLogic {
			s.Next(1)
			panic(boom)
		}))
		assert.Equal(t, []Notification{NextNotification(1), ErrorNotification(boom)}, r.Notifications())
	})

	t.Run("清理逻辑在取消订阅时执行", func(t *testing.T) {
		cleaned := false
		sub := Never().Pipe(Finalize(func() { cleaned = true })).Subscribe(newRecorder())
		assert.False(t, cleaned)
		require.NoError(t, sub.Unsubscribe())
		assert.True(t, cleaned)
	})

	t.Run("生产函数返回的清理逻辑在完成后执行", func(t *testing.T) {
		cleaned := false
		collect(NewObservable(func(s *Subscriber) TeardownLogic {
			s.Complete()
			return func() { cleaned = true }
		}))
		assert.True(t, cleaned)
	})

	t.Run("Operate的init以源和下游订阅者调用", func(t *testing.T) {
		double := Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
			source.Subscribe(NewOperatorSubscriber(subscriber, nextHook(func(v interface{}) {
				subscriber.Next(v.(int) * 2)
			})))
			return nil
		})
		assert.Equal(t, ints(2, 4, 6), collect(Of(1, 2, 3).Pipe(double)).Values())
	})

	t.Run("包级Pipe组合操作符", func(t *testing.T) {
		op := Pipe(
			Filter(func(v interface{}, _ int) bool { return v.(int)%2 == 1 }),
			Map(func(v interface{}, _ int) (interface{}, error) { return v.(int) * 10, nil }),
		)
		assert.Equal(t, ints(10, 30, 50), collect(Range(1, 5).Pipe(op)).Values())
	})

	t.Run("ForEach阻塞到完成", func(t *testing.T) {
		sum := 0
		err := Range(1, 4).ForEach(context.Background(), func(v interface{}) { sum += v.(int) })
		require.NoError(t, err)
		assert.Equal(t, 10, sum)
	})

	t.Run("ForEach返回源的错误", func(t *testing.T) {
		boom := errors.New("boom")
		err := Throw(boom).ForEach(context.Background(), func(interface{}) {})
		assert.Equal(t, boom, err)
	})

	t.Run("ForEach取消订阅时清理逻辑的错误交给未处理错误回调", func(t *testing.T) {
		restoreGlobals(t)
		var reported []error
		SetConfig(Config{OnUnhandledError: func(err error) { reported = append(reported, err) }})
		teardownErr := errors.New("teardown")
		leaky := NewObservable(func(s *Subscriber) TeardownLogic {
			s.Add(func() error { return teardownErr })
			s.Next(1)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := leaky.ForEach(ctx, func(interface{}) {})
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], teardownErr)

		reported = nil
		boom := errors.New("boom")
		err = leaky.ForEach(context.Background(), func(interface{}) { panic(boom) })
		assert.ErrorIs(t, err, boom)
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], teardownErr)
	})

	t.Run("ForEach在ctx取消时返回", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := Never().ForEach(ctx, func(interface{}) {})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCreationOperators(t *testing.T) {
	t.Run("Of与Just", func(t *testing.T) {
		assert.Equal(t, ints(1, 2, 3), collect(Of(1, 2, 3)).Values())
		assert.Equal(t, ints(1, 2), collect(Just(1, 2)).Values())
	})

	t.Run("Empty Never Throw", func(t *testing.T) {
		assert.Equal(t, []Notification{CompleteNotification()}, collect(Empty()).Notifications())

		r := newRecorder()
		sub := Never().Subscribe(r)
		assert.Empty(t, r.Notifications())
		require.NoError(t, sub.Unsubscribe())

		boom := errors.New("boom")
		assert.Equal(t, boom, collect(Throw(boom)).Err())
	})

	t.Run("Range在取消订阅后停止", func(t *testing.T) {
		assert.Equal(t, ints(5, 6, 7), collect(Range(5, 3)).Values())
		assert.Equal(t, ints(0, 1), collect(Range(0, 1000000).Pipe(Take(2))).Values())
	})

	t.Run("Defer每次订阅调用工厂", func(t *testing.T) {
		n := 0
		o := Defer(func() *Observable {
			n++
			return Of(n)
		})
		assert.Equal(t, ints(1), collect(o).Values())
		assert.Equal(t, ints(2), collect(o).Values())
	})

	t.Run("Timer与Interval使用虚拟时间", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		timer := collect(Timer(5*time.Millisecond, vts))
		interval := collect(Interval(2*time.Millisecond, vts).Pipe(Take(3)))

		vts.AdvanceBy(4 * time.Millisecond)
		assert.Equal(t, ints(0, 1), interval.Values())
		assert.Empty(t, timer.Values())

		vts.Flush()
		assert.Equal(t, []Notification{NextNotification(0), CompleteNotification()}, timer.Notifications())
		assert.Equal(t, ints(0, 1, 2), interval.Values())
		assert.True(t, interval.Completed())
		assert.Equal(t, 0, vts.Pending())
	})

	t.Run("FromChannel读到channel关闭", func(t *testing.T) {
		ch := make(chan interface{}, 3)
		ch <- 1
		ch <- 2
		ch <- 3
		close(ch)
		r := newRecorder()
		FromChannel(ch).Subscribe(r)
		<-r.done
		assert.Equal(t, ints(1, 2, 3), r.Values())
	})

	t.Run("Merge与Concat", func(t *testing.T) {
		assert.Equal(t, ints(1, 2, 3, 4), collect(Merge(Of(1, 2), Of(3, 4))).Values())
		assert.Equal(t, ints(1, 2, 3, 4), collect(Concat(Of(1, 2), Of(3, 4))).Values())
		assert.True(t, collect(Merge()).Completed())
	})

	t.Run("CombineLatest", func(t *testing.T) {
		a := NewSubject()
		b := NewSubject()
		r := collect(CombineLatest([]*Observable{a.Observable, b.Observable}, nil))
		a.Next(1)
		b.Next("x")
		a.Next(2)
		b.Next("y")
		a.Complete()
		assert.False(t, r.Completed())
		b.Complete()
		assert.Equal(t, []interface{}{
			[]interface{}{1, "x"},
			[]interface{}{2, "x"},
			[]interface{}{2, "y"},
		}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("Zip按序号配对并在最短源结束时完成", func(t *testing.T) {
		sum := func(values []interface{}) interface{} { return values[0].(int) + values[1].(int) }
		r := collect(Zip([]*Observable{Of(1, 2, 3), Of(10, 20)}, sum))
		assert.Equal(t, ints(11, 22), r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("Race镜像最先发出通知的源", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		slow := Timer(10*time.Millisecond, vts).Pipe(MapTo("slow"))
		fast := Timer(5*time.Millisecond, vts).Pipe(MapTo("fast"))
		r := collect(Race(slow, fast))
		vts.Flush()
		assert.Equal(t, []interface{}{"fast"}, r.Values())
		assert.Equal(t, 0, vts.Pending())
	})

	t.Run("ForkJoin发射各源最后的值", func(t *testing.T) {
		r := collect(ForkJoin(Of(1, 2), Of("a"), Range(5, 3)))
		assert.Equal(t, []interface{}{[]interface{}{2, "a", 7}}, r.Values())

		empty := collect(ForkJoin(Of(1), Empty()))
		assert.Empty(t, empty.Values())
		assert.True(t, empty.Completed())
	})

	t.Run("Generate与Using", func(t *testing.T) {
		gen := Generate(1, func(s interface{}) bool { return s.(int) <= 8 },
			func(s interface{}) interface{} { return s.(int) * 2 }, nil)
		assert.Equal(t, ints(1, 2, 4, 8), collect(gen).Values())

		res := &countingUnsubscribable{}
		using := Using(func() Unsubscribable { return res }, func(Unsubscribable) *Observable { return Of(1) })
		assert.Equal(t, ints(1), collect(using).Values())
		assert.Equal(t, 1, res.calls)
	})
}
