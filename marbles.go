// Marble testing for RxGo
// 弹珠图测试调度器：用字符串描述通知的时间线并断言输出
package rxgo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// 弹珠图语法
// ============================================================================
//
//   ' '  忽略，用于对齐
//   '-'  一帧（1ms虚拟时间）
//   'a'  值通知，values中有该键时取对应值，否则为字符串本身
//   '|'  完成
//   '#'  错误
//   '()' 括号内的通知发生在同一帧，整个分组占用的帧数等于其字符数
//   '^'  hot Observable的订阅点（第0帧），订阅日志中的订阅帧
//   '!'  订阅日志中的取消订阅帧
//   '10ms' 时间推进，可用单位 ms、s、m

// MarbleFrame 弹珠图中一帧代表的虚拟时间
const MarbleFrame = time.Millisecond

// ErrMarble '#'在未指定错误时代表的错误
var ErrMarble = errors.New("error")

// TestMessage 某一帧上的一个通知
type TestMessage struct {
	Frame        time.Duration
	Notification Notification
}

func (m TestMessage) String() string {
	return fmt.Sprintf("%v@%v", m.Notification, m.Frame)
}

// SubscriptionLog 一次订阅的起止帧，Unsubscribed为-1表示未取消订阅
type SubscriptionLog struct {
	Subscribed   time.Duration
	Unsubscribed time.Duration
}

// ParseMarbles 把弹珠图解析为通知列表
// hot为true时帧相对'^'的位置计算；err为'#'代表的错误，nil时使用ErrMarble
func ParseMarbles(marbles string, values map[string]interface{}, err error, hot bool) ([]TestMessage, error) {
	if strings.Contains(marbles, "!") {
		return nil, fmt.Errorf("parse %q: '!' is only valid in subscription marbles: %w", marbles, ErrSequence)
	}
	if err == nil {
		err = ErrMarble
	}
	var offset time.Duration
	if i := strings.Index(marbles, "^"); i >= 0 {
		if !hot {
			return nil, fmt.Errorf("parse %q: cold observable cannot have '^': %w", marbles, ErrSequence)
		}
		offset = framesBefore(marbles[:i])
	}

	var messages []TestMessage
	var frame time.Duration
	group := time.Duration(-1)
	runes := []rune(marbles)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		at := frame
		if group >= 0 {
			at = group
		}
		var n *Notification
		advance := MarbleFrame
		switch c {
		case ' ':
			advance = 0
		case '-':
		case '(':
			group = frame
		case ')':
			group = -1
		case '^':
		case '|':
			complete := CompleteNotification()
			n = &complete
		case '#':
			e := ErrorNotification(err)
			n = &e
		default:
			if d, width, ok := parseTimeProgression(runes[i:]); ok && (i == 0 || runes[i-1] == ' ') {
				frame += d
				i += width - 1
				continue
			}
			key := string(c)
			var v interface{} = key
			if values != nil {
				if mapped, ok := values[key]; ok {
					v = mapped
				}
			}
			next := NextNotification(v)
			n = &next
		}
		if n != nil {
			messages = append(messages, TestMessage{Frame: at - offset, Notification: *n})
		}
		frame += advance
	}
	return messages, nil
}

// framesBefore 弹珠图前缀占用的虚拟时间
func framesBefore(prefix string) time.Duration {
	var d time.Duration
	for _, c := range prefix {
		if c != ' ' {
			d += MarbleFrame
		}
	}
	return d
}

// parseTimeProgression 解析形如"10ms "的时间推进，必须以空格或结尾结束
func parseTimeProgression(runes []rune) (time.Duration, int, bool) {
	i := 0
	for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
		i++
	}
	if i == 0 {
		return 0, 0, false
	}
	number, err := strconv.ParseFloat(string(runes[:i]), 64)
	if err != nil {
		return 0, 0, false
	}
	rest := string(runes[i:])
	var unit time.Duration
	var width int
	switch {
	case strings.HasPrefix(rest, "ms"):
		unit, width = time.Millisecond, 2
	case strings.HasPrefix(rest, "s"):
		unit, width = time.Second, 1
	case strings.HasPrefix(rest, "m"):
		unit, width = time.Minute, 1
	default:
		return 0, 0, false
	}
	end := i + width
	if end < len(runes) && runes[end] != ' ' {
		return 0, 0, false
	}
	return time.Duration(number * float64(unit)), end, true
}

// ParseSubscriptionMarbles 把"^---!"形式的订阅弹珠图解析为SubscriptionLog
func ParseSubscriptionMarbles(marbles string) SubscriptionLog {
	log := SubscriptionLog{Subscribed: -1, Unsubscribed: -1}
	var frame time.Duration
	group := time.Duration(-1)
	for _, c := range marbles {
		at := frame
		if group >= 0 {
			at = group
		}
		advance := MarbleFrame
		switch c {
		case ' ':
			advance = 0
		case '(':
			group = frame
		case ')':
			group = -1
		case '^':
			log.Subscribed = at
		case '!':
			log.Unsubscribed = at
		}
		frame += advance
	}
	if log.Subscribed < 0 {
		log.Subscribed = 0
	}
	return log
}

// ============================================================================
// TestScheduler
// ============================================================================

// TestScheduler 基于虚拟时间的弹珠图测试调度器
// assert在Run结束时以(实际, 期望)调用，通常包装testify的assert.Equal
type TestScheduler struct {
	*VirtualTimeScheduler
	assert     func(actual, expected interface{})
	hotSetups  []func()
	flushTests []func()
}

// NewTestScheduler 创建测试调度器，默认最多推进到750帧
func NewTestScheduler(assert func(actual, expected interface{})) *TestScheduler {
	vts := NewVirtualTimeScheduler()
	vts.MaxFrames = 750 * MarbleFrame
	return &TestScheduler{VirtualTimeScheduler: vts, assert: assert}
}

// ColdObservable 每次订阅都从头按弹珠图发射的Observable，记录订阅日志
type ColdObservable struct {
	*Observable
	Messages      []TestMessage
	Subscriptions []SubscriptionLog
}

// HotObservable 按弹珠图在绝对时间发射的Observable，记录订阅日志
type HotObservable struct {
	*Observable
	Messages      []TestMessage
	Subscriptions []SubscriptionLog
	subject       *Subject
}

// Cold 创建cold Observable
func (ts *TestScheduler) Cold(marbles string, values map[string]interface{}, err ...error) *ColdObservable {
	messages := ts.mustParse(marbles, values, err, false)
	cold := &ColdObservable{Messages: messages}
	cold.Observable = NewObservable(func(subscriber *Subscriber) TeardownLogic {
		index := len(cold.Subscriptions)
		cold.Subscriptions = append(cold.Subscriptions, SubscriptionLog{Subscribed: ts.Frame(), Unsubscribed: -1})
		for _, m := range messages {
			m := m
			executeSchedule(subscriber, ts, func() { m.Notification.Observe(subscriber) }, m.Frame, false)
		}
		return func() { cold.Subscriptions[index].Unsubscribed = ts.Frame() }
	})
	return cold
}

// Hot 创建hot Observable，通知按'^'对应的第0帧开始的绝对时间发射
// 通知在Flush开始时才被调度，因此同一帧上ExpectObservable的订阅先于通知发生
func (ts *TestScheduler) Hot(marbles string, values map[string]interface{}, err ...error) *HotObservable {
	messages := ts.mustParse(marbles, values, err, true)
	hot := &HotObservable{Messages: messages, subject: NewSubject()}
	hot.Observable = NewObservable(func(subscriber *Subscriber) TeardownLogic {
		index := len(hot.Subscriptions)
		hot.Subscriptions = append(hot.Subscriptions, SubscriptionLog{Subscribed: ts.Frame(), Unsubscribed: -1})
		hot.subject.Subscribe(subscriber)
		return func() { hot.Subscriptions[index].Unsubscribed = ts.Frame() }
	})
	ts.hotSetups = append(ts.hotSetups, func() {
		for _, m := range messages {
			if m.Frame < 0 {
				continue
			}
			m := m
			ts.Schedule(func() { m.Notification.Observe(hot.subject) }, m.Frame-ts.Frame())
		}
	})
	return hot
}

func (ts *TestScheduler) mustParse(marbles string, values map[string]interface{}, err []error, hot bool) []TestMessage {
	var e error
	if len(err) > 0 {
		e = err[0]
	}
	messages, perr := ParseMarbles(marbles, values, e, hot)
	if perr != nil {
		panic(perr)
	}
	return messages
}

// Expectation ExpectObservable返回的断言
type Expectation struct {
	ts     *TestScheduler
	actual *[]TestMessage
}

// ExpectObservable 在Flush时订阅o并记录其通知
// subscriptionMarbles可指定"^"订阅帧与"!"取消订阅帧
func (ts *TestScheduler) ExpectObservable(o *Observable, subscriptionMarbles ...string) *Expectation {
	actual := []TestMessage{}
	log := SubscriptionLog{Subscribed: 0, Unsubscribed: -1}
	if len(subscriptionMarbles) > 0 {
		log = ParseSubscriptionMarbles(subscriptionMarbles[0])
	}

	var subscription *Subscriber
	record := func(n Notification) {
		actual = append(actual, TestMessage{Frame: ts.Frame(), Notification: n})
	}
	ts.Schedule(func() {
		subscription = o.Subscribe(ObserverFuncs{
			OnNext:     func(value interface{}) { record(NextNotification(value)) },
			OnError:    func(err error) { record(ErrorNotification(err)) },
			OnComplete: func() { record(CompleteNotification()) },
		})
	}, log.Subscribed)
	if log.Unsubscribed >= 0 {
		ts.Schedule(func() {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}, log.Unsubscribed)
	}
	return &Expectation{ts: ts, actual: &actual}
}

// ToBe 期望o按marbles发射
func (e *Expectation) ToBe(marbles string, values map[string]interface{}, err ...error) {
	expected := e.ts.mustParse(marbles, values, err, true)
	if expected == nil {
		expected = []TestMessage{}
	}
	actual := e.actual
	e.ts.flushTests = append(e.ts.flushTests, func() {
		e.ts.assert(*actual, expected)
	})
}

// SubscriptionExpectation ExpectSubscriptions返回的断言
type SubscriptionExpectation struct {
	ts   *TestScheduler
	logs *[]SubscriptionLog
}

// ExpectSubscriptions 断言cold或hot Observable的订阅日志
func (ts *TestScheduler) ExpectSubscriptions(logs *[]SubscriptionLog) *SubscriptionExpectation {
	return &SubscriptionExpectation{ts: ts, logs: logs}
}

// ToBe 期望订阅日志与marbles一致，每个字符串描述一次订阅
func (e *SubscriptionExpectation) ToBe(marbles ...string) {
	expected := make([]SubscriptionLog, 0, len(marbles))
	for _, m := range marbles {
		expected = append(expected, ParseSubscriptionMarbles(m))
	}
	logs := e.logs
	e.ts.flushTests = append(e.ts.flushTests, func() {
		actual := append([]SubscriptionLog{}, *logs...)
		e.ts.assert(actual, expected)
	})
}

// Flush 调度hot Observable的通知，执行所有任务后运行断言
func (ts *TestScheduler) Flush() {
	setups := ts.hotSetups
	ts.hotSetups = nil
	for _, setup := range setups {
		setup()
	}
	ts.VirtualTimeScheduler.Flush()
	tests := ts.flushTests
	ts.flushTests = nil
	for _, test := range tests {
		test()
	}
}

// Run 执行fn后Flush并断言
func (ts *TestScheduler) Run(fn func(ts *TestScheduler)) {
	fn(ts)
	ts.Flush()
}
