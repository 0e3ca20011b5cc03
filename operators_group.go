// GroupBy operator for RxGo
// 分组操作符：按键把源值拆分到多个分组Observable
package rxgo

import (
	"sync"
)

// GroupedObservable 同一键的值组成的Observable
type GroupedObservable struct {
	*Observable
	Key interface{}
}

// AsObservable 返回底层Observable
func (g *GroupedObservable) AsObservable() *Observable {
	return g.Observable
}

// GroupByConfig GroupBy的可选配置
type GroupByConfig struct {
	// Element 把源值转换为发往分组的元素，nil时发送原值
	Element func(value interface{}) interface{}
	// Duration 返回的Observable发射时该分组完成并被移除，同一键的后续值会开启新分组
	Duration func(group *GroupedObservable) *Observable
	// Connector 创建分组使用的Subject，nil时使用NewSubject
	Connector func() SubjectLike
}

type groupEntry struct {
	key     interface{}
	subject SubjectLike
}

// groupByState 分组的共享状态
// activeGroups记录仍被订阅的分组数；下游取消订阅时只要还有活跃分组，上游订阅就保持
type groupByState struct {
	mu                sync.Mutex
	groups            map[interface{}]*groupEntry
	order             []*groupEntry
	activeGroups      int
	teardownAttempted bool
}

func (st *groupByState) get(key interface{}) *groupEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.groups[key]
}

func (st *groupByState) put(entry *groupEntry) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.groups[entry.key] = entry
	st.order = append(st.order, entry)
}

func (st *groupByState) remove(key interface{}) {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.groups[key]
	if !ok {
		return
	}
	delete(st.groups, key)
	for i, e := range st.order {
		if e == entry {
			st.order = append(st.order[:i:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *groupByState) snapshot() []*groupEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]*groupEntry(nil), st.order...)
}

func (st *groupByState) clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.groups = map[interface{}]*groupEntry{}
	st.order = nil
}

// GroupBy 按keySelector返回的键分组，每遇到新键发出一个*GroupedObservable
// 源的终止通知按分组创建顺序先发给各分组，最后发给下游
func GroupBy(keySelector func(value interface{}) interface{}, configs ...GroupByConfig) OperatorFunc {
	var cfg GroupByConfig
	if len(configs) > 0 {
		cfg = configs[0]
	}
	if cfg.Connector == nil {
		cfg.Connector = newSubjectConnector
	}
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		st := &groupByState{groups: map[interface{}]*groupEntry{}}

		notify := func(fn func(o Observer)) {
			for _, e := range st.snapshot() {
				fn(e.subject)
			}
			fn(subscriber)
		}
		handleError := func(err error) {
			notify(func(o Observer) { o.Error(err) })
		}

		var sourceSubscriber *Subscriber

		createGroupedObservable := func(key interface{}, subject SubjectLike) *GroupedObservable {
			return &GroupedObservable{
				Key: key,
				Observable: NewObservable(func(groupSubscriber *Subscriber) TeardownLogic {
					st.mu.Lock()
					st.activeGroups++
					st.mu.Unlock()
					inner := subject.Subscribe(groupSubscriber)
					return func() {
						inner.Unsubscribe()
						st.mu.Lock()
						st.activeGroups--
						release := st.activeGroups == 0 && st.teardownAttempted
						st.mu.Unlock()
						if release {
							sourceSubscriber.Unsubscribe()
						}
					}
				}),
			}
		}

		sourceSubscriber = NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if err := tryCatch(func() {
					key := keySelector(value)
					entry := st.get(key)
					if entry == nil {
						entry = &groupEntry{key: key, subject: cfg.Connector()}
						st.put(entry)
						grouped := createGroupedObservable(key, entry.subject)
						subscriber.Next(grouped)
						if cfg.Duration != nil {
							var durationSubscriber *Subscriber
							durationSubscriber = NewOperatorSubscriber(entry.subject, OperatorHooks{
								OnNext: func(interface{}) {
									entry.subject.Complete()
									if durationSubscriber != nil {
										durationSubscriber.Unsubscribe()
									}
								},
								OnFinalize: func() { st.remove(key) },
							})
							sourceSubscriber.Add(durationSubscriber)
							cfg.Duration(grouped).Subscribe(durationSubscriber)
						}
					}
					element := value
					if cfg.Element != nil {
						element = cfg.Element(value)
					}
					entry.subject.Next(element)
				}); err != nil {
					handleError(err)
				}
			},
			OnError: handleError,
			OnComplete: func() {
				notify(func(o Observer) { o.Complete() })
			},
			OnFinalize: st.clear,
			ShouldUnsubscribe: func() bool {
				st.mu.Lock()
				defer st.mu.Unlock()
				st.teardownAttempted = true
				return st.activeGroups == 0
			},
		})
		source.Subscribe(sourceSubscriber)
		return nil
	})
}
