package rxgo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBufferCount(t *testing.T) {
	t.Run("按数量切分，最后一个缓冲可以不满", func(t *testing.T) {
		r := collect(Range(1, 5).Pipe(BufferCount(2)))
		assert.Equal(t, []interface{}{ints(1, 2), ints(3, 4), ints(5)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("startEvery小于size时缓冲重叠", func(t *testing.T) {
		r := collect(Range(1, 3).Pipe(BufferCount(2, 1)))
		assert.Equal(t, []interface{}{ints(1, 2), ints(2, 3), ints(3)}, r.Values())
	})

	t.Run("startEvery大于size时跳过部分值", func(t *testing.T) {
		r := collect(Range(1, 5).Pipe(BufferCount(2, 3)))
		assert.Equal(t, []interface{}{ints(1, 2), ints(4, 5)}, r.Values())
	})

	t.Run("size不合法时出错", func(t *testing.T) {
		r := collect(Range(1, 5).Pipe(BufferCount(0)))
		assert.ErrorIs(t, r.Err(), ErrArgumentOutOfRange)
	})
}

func TestBuffer(t *testing.T) {
	t.Run("通知发射时发出当前缓冲", func(t *testing.T) {
		src, closer := NewSubject(), NewSubject()
		r := collect(src.Pipe(Buffer(closer.Observable)))
		src.Next(1)
		src.Next(2)
		closer.Next(struct{}{})
		closer.Next(struct{}{})
		src.Next(3)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1, 2), ints(), ints(3)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("BufferTime按时间切分", func(t *testing.T) {
		ts := marbles(t)
		ts.Run(func(ts *TestScheduler) {
			source := ts.Cold("a 1ms b 5ms c 9ms |", nil)
			ts.ExpectObservable(source.Pipe(BufferTime(5*time.Millisecond, ts))).ToBe("5ms a 4ms b 4ms c 2ms (d|)", map[string]interface{}{
				"a": []interface{}{"a", "b"},
				"b": []interface{}{"c"},
				"c": []interface{}{},
				"d": []interface{}{},
			})
		})
	})

	t.Run("BufferTimeWith达到MaxSize时提前发出", func(t *testing.T) {
		ts := marbles(t)
		ts.Run(func(ts *TestScheduler) {
			source := ts.Cold("abc 6ms |", nil)
			result := source.Pipe(BufferTimeWith(BufferTimeConfig{Span: 5 * time.Millisecond, MaxSize: 2, Scheduler: ts}))
			ts.ExpectObservable(result).ToBe("1ms a 4ms b 2ms (c|)", map[string]interface{}{
				"a": []interface{}{"a", "b"},
				"b": []interface{}{"c"},
				"c": []interface{}{},
			})
		})
	})

	t.Run("BufferToggle按开关发出缓冲", func(t *testing.T) {
		src, openings := NewSubject(), NewSubject()
		closers := map[interface{}]*Subject{"x": NewSubject(), "y": NewSubject()}
		r := collect(src.Pipe(BufferToggle(openings.Observable, func(open interface{}) *Observable {
			return closers[open].Observable
		})))
		src.Next(0)
		openings.Next("x")
		src.Next(1)
		openings.Next("y")
		src.Next(2)
		closers["x"].Next(struct{}{})
		src.Next(3)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1, 2), ints(2, 3)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("BufferWhen关闭后立即开启下一个缓冲", func(t *testing.T) {
		src, closer := NewSubject(), NewSubject()
		r := collect(src.Pipe(BufferWhen(func() *Observable { return closer.Observable })))
		src.Next(1)
		src.Next(2)
		closer.Next(struct{}{})
		src.Next(3)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1, 2), ints(3)}, r.Values())
		assert.Equal(t, 0, closer.ObserverCount())
	})
}

// flattenWindows 把每个窗口收集为切片
func flattenWindows() OperatorFunc {
	return MergeMap(func(w interface{}, _ int) *Observable {
		return w.(*Observable).Pipe(ToSlice())
	})
}

func TestWindow(t *testing.T) {
	t.Run("WindowCount按数量切分", func(t *testing.T) {
		r := collect(Range(1, 5).Pipe(WindowCount(2), flattenWindows()))
		assert.Equal(t, []interface{}{ints(1, 2), ints(3, 4), ints(5)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("WindowCount重叠窗口", func(t *testing.T) {
		r := collect(Range(1, 3).Pipe(WindowCount(2, 1), flattenWindows()))
		assert.Equal(t, []interface{}{ints(1, 2), ints(2, 3), ints(3), ints()}, r.Values())
	})

	t.Run("Window按边界切分", func(t *testing.T) {
		src, boundary := NewSubject(), NewSubject()
		r := collect(src.Pipe(Window(boundary.Observable), flattenWindows()))
		src.Next(1)
		boundary.Next(struct{}{})
		src.Next(2)
		src.Next(3)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1), ints(2, 3)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("WindowTime按时间切分", func(t *testing.T) {
		ts := marbles(t)
		ts.Run(func(ts *TestScheduler) {
			source := ts.Cold("a 1ms b 5ms c 9ms |", nil)
			result := source.Pipe(WindowTime(5*time.Millisecond, ts), flattenWindows())
			ts.ExpectObservable(result).ToBe("5ms a 4ms b 4ms c 2ms (d|)", map[string]interface{}{
				"a": []interface{}{"a", "b"},
				"b": []interface{}{"c"},
				"c": []interface{}{},
				"d": []interface{}{},
			})
		})
	})

	t.Run("WindowTimeWith达到MaxSize提前关闭", func(t *testing.T) {
		vts := NewVirtualTimeScheduler()
		src := NewSubject()
		r := collect(src.Pipe(WindowTimeWith(WindowTimeConfig{Span: 10 * time.Millisecond, MaxSize: 2, Scheduler: vts}), flattenWindows()))
		src.Next(1)
		src.Next(2)
		src.Next(3)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1, 2), ints(3)}, r.Values())
		assert.True(t, r.Completed())
		assert.Equal(t, 0, vts.Pending())
	})

	t.Run("WindowToggle", func(t *testing.T) {
		src, openings, closer := NewSubject(), NewSubject(), NewSubject()
		r := collect(src.Pipe(WindowToggle(openings.Observable, func(interface{}) *Observable {
			return closer.Observable
		}), flattenWindows()))
		src.Next(0)
		openings.Next(1)
		src.Next(1)
		closer.Next(struct{}{})
		src.Next(2)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1)}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("WindowWhen", func(t *testing.T) {
		src, closer := NewSubject(), NewSubject()
		r := collect(src.Pipe(WindowWhen(func() *Observable { return closer.Observable }), flattenWindows()))
		src.Next(1)
		closer.Next(struct{}{})
		src.Next(2)
		src.Complete()
		assert.Equal(t, []interface{}{ints(1), ints(2)}, r.Values())
		assert.True(t, r.Completed())
	})
}
