package rxgo

import (
	"github.com/sourcegraph/conc/panics"
)

// tryCatch 执行fn并把其中的panic转为error
// panic值本身是error时原样返回，便于errors.Is判断
func tryCatch(fn func()) error {
	var pc panics.Catcher
	pc.Try(fn)
	r := pc.Recovered()
	if r == nil {
		return nil
	}
	if err, ok := r.Value.(error); ok {
		return err
	}
	return r.AsError()
}
