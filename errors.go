package rxgo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrEmpty 源在没有任何值的情况下完成
	ErrEmpty = errors.New("rxgo: no elements in sequence")
	// ErrArgumentOutOfRange 参数超出范围
	ErrArgumentOutOfRange = errors.New("rxgo: argument out of range")
	// ErrNotFound 没有满足条件的值
	ErrNotFound = errors.New("rxgo: no values match")
	// ErrSequence 序列不符合预期
	ErrSequence = errors.New("rxgo: sequence error")
	// ErrObjectUnsubscribed 对象已被取消订阅
	ErrObjectUnsubscribed = errors.New("rxgo: object unsubscribed")
	// ErrTimeout 超时
	ErrTimeout = errors.New("rxgo: timeout has occurred")
)

// UnsubscriptionError 取消订阅时多个清理逻辑出错的聚合错误
type UnsubscriptionError struct {
	Errors []error
}

func (e *UnsubscriptionError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = fmt.Sprintf("%d) %v", i+1, err)
	}
	return fmt.Sprintf("%d errors occurred during unsubscription:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

// Unwrap 支持errors.Is/As
func (e *UnsubscriptionError) Unwrap() []error {
	return e.Errors
}

// TimeoutInfo 超时时的上下文信息
type TimeoutInfo struct {
	Seen      int
	LastValue interface{}
	HasValue  bool
}

// TimeoutError 超时错误
type TimeoutError struct {
	Info TimeoutInfo
	Each time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rxgo: timeout after %d values (each %s)", e.Info.Seen, e.Each)
}

// Is 使errors.Is(err, ErrTimeout)成立
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
