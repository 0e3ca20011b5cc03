package rxgo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupBy(t *testing.T) {
	parity := func(v interface{}) interface{} { return v.(int) % 2 }

	t.Run("按键分组，分组按创建顺序完成", func(t *testing.T) {
		r := collect(Range(1, 6).Pipe(
			GroupBy(parity),
			MergeMap(func(v interface{}, _ int) *Observable {
				g := v.(*GroupedObservable)
				return g.Pipe(ToSlice(), Map(func(values interface{}, _ int) (interface{}, error) {
					return []interface{}{g.Key, values}, nil
				}))
			}),
		))
		assert.Equal(t, []interface{}{
			[]interface{}{1, ints(1, 3, 5)},
			[]interface{}{0, ints(2, 4, 6)},
		}, r.Values())
		assert.True(t, r.Completed())
	})

	t.Run("Element转换发往分组的值", func(t *testing.T) {
		var groups []*recorder
		Range(1, 4).Pipe(GroupBy(parity, GroupByConfig{
			Element: func(v interface{}) interface{} { return v.(int) * 10 },
		})).SubscribeWithCallbacks(func(v interface{}) {
			groups = append(groups, collect(v.(*GroupedObservable).Observable))
		}, nil, nil)
		assert.Len(t, groups, 2)
		assert.Equal(t, ints(10, 30), groups[0].Values())
		assert.Equal(t, ints(20, 40), groups[1].Values())
	})

	t.Run("下游取消订阅后仍有活跃分组时保持源", func(t *testing.T) {
		src := NewSubject()
		group := newRecorder()
		var groupSub *Subscriber
		sub := src.Pipe(GroupBy(func(interface{}) interface{} { return "k" })).SubscribeWithCallbacks(func(v interface{}) {
			groupSub = v.(*GroupedObservable).Subscribe(group)
		}, nil, nil)

		src.Next(1)
		sub.Unsubscribe()
		src.Next(2)
		assert.Equal(t, ints(1, 2), group.Values())
		assert.True(t, src.HasObservers())

		groupSub.Unsubscribe()
		assert.False(t, src.HasObservers())
	})

	t.Run("下游取消订阅后源完成，活跃分组随之完成并释放源", func(t *testing.T) {
		src := NewSubject()
		group := newRecorder()
		sub := src.Pipe(GroupBy(func(interface{}) interface{} { return "k" })).SubscribeWithCallbacks(func(v interface{}) {
			v.(*GroupedObservable).Subscribe(group)
		}, nil, nil)

		src.Next(1)
		sub.Unsubscribe()
		assert.True(t, src.HasObservers())

		src.Complete()
		assert.Equal(t, ints(1), group.Values())
		assert.True(t, group.Completed())
		assert.False(t, src.HasObservers())
	})

	t.Run("Duration到期后分组完成，同一键开启新分组", func(t *testing.T) {
		src, closer := NewSubject(), NewSubject()
		var keys []interface{}
		var groups []*recorder
		src.Pipe(GroupBy(func(v interface{}) interface{} { return v.(string)[:1] }, GroupByConfig{
			Duration: func(*GroupedObservable) *Observable { return closer.Observable },
		})).SubscribeWithCallbacks(func(v interface{}) {
			g := v.(*GroupedObservable)
			keys = append(keys, g.Key)
			groups = append(groups, collect(g.Observable))
		}, nil, nil)

		src.Next("a1")
		src.Next("b1")
		closer.Next(struct{}{})
		src.Next("a2")

		assert.Equal(t, []interface{}{"a", "b", "a"}, keys)
		assert.Equal(t, []interface{}{"a1"}, groups[0].Values())
		assert.True(t, groups[0].Completed())
		assert.True(t, groups[1].Completed())
		assert.Equal(t, []interface{}{"a2"}, groups[2].Values())
		assert.False(t, groups[2].Completed())
	})

	t.Run("源错误先发给分组再发给下游", func(t *testing.T) {
		boom := errors.New("boom")
		var group *recorder
		r := collect(Concat(Of(1), Throw(boom)).Pipe(
			GroupBy(parity),
			Tap(TapObserver{Next: func(v interface{}) { group = collect(v.(*GroupedObservable).Observable) }}),
			IgnoreElements(),
		))
		assert.Equal(t, boom, group.Err())
		assert.Equal(t, boom, r.Err())
	})

	t.Run("键选择器panic作为错误发出", func(t *testing.T) {
		boom := errors.New("bad key")
		r := collect(Of(1).Pipe(GroupBy(func(interface{}) interface{} { panic(boom) })))
		assert.Equal(t, boom, r.Err())
	})
}
