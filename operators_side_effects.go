// Side effect operators for RxGo
// 副作用操作符实现，包含Tap, Finalize, DoOnNext, DoOnError, DoOnComplete, Log等
package rxgo

// ============================================================================
// 副作用操作符实现
// ============================================================================

// TapObserver Tap的回调，所有字段可选
type TapObserver struct {
	Next     OnNext
	Error    OnError
	Complete OnComplete
	// Subscribe 订阅源之前调用
	Subscribe func()
	// Unsubscribe 未收到终止通知就被取消订阅时调用
	Unsubscribe func()
	// Finalize 无论以何种方式结束都调用一次
	Finalize func()
}

// Tap 对每个通知执行副作用，不改变通知本身
// 回调中的panic作为错误发往下游
func Tap(observer TapObserver) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		if observer.Subscribe != nil {
			observer.Subscribe()
		}
		isUnsub := true
		source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHooks{
			OnNext: func(value interface{}) {
				if observer.Next != nil {
					observer.Next(value)
				}
				subscriber.Next(value)
			},
			OnError: func(err error) {
				isUnsub = false
				if observer.Error != nil {
					observer.Error(err)
				}
				subscriber.Error(err)
			},
			OnComplete: func() {
				isUnsub = false
				if observer.Complete != nil {
					observer.Complete()
				}
				subscriber.Complete()
			},
			OnFinalize: func() {
				if isUnsub && observer.Unsubscribe != nil {
					observer.Unsubscribe()
				}
				if observer.Finalize != nil {
					observer.Finalize()
				}
			},
		}))
		return nil
	})
}

// DoOnNext 在每个值发射时执行副作用操作
func DoOnNext(action OnNext) OperatorFunc {
	return Tap(TapObserver{Next: action})
}

// DoOnError 在发生错误时执行副作用操作
func DoOnError(action OnError) OperatorFunc {
	return Tap(TapObserver{Error: action})
}

// DoOnComplete 在完成时执行副作用操作
func DoOnComplete(action OnComplete) OperatorFunc {
	return Tap(TapObserver{Complete: action})
}

// Finalize 订阅结束（完成、出错或取消订阅）后调用callback
func Finalize(callback func()) OperatorFunc {
	return Operate(func(source *Observable, subscriber *Subscriber) TeardownLogic {
		defer subscriber.Add(callback)
		source.Subscribe(subscriber)
		return nil
	})
}

// Log 以debug级别记录所有通知
func Log(name string) OperatorFunc {
	return Tap(TapObserver{
		Next: func(value interface{}) {
			Logger().Debug().Str("stream", name).Interface("value", value).Msg("next")
		},
		Error: func(err error) {
			Logger().Debug().Str("stream", name).Err(err).Msg("error")
		},
		Complete: func() {
			Logger().Debug().Str("stream", name).Msg("complete")
		},
		Unsubscribe: func() {
			Logger().Debug().Str("stream", name).Msg("unsubscribe")
		},
	})
}
