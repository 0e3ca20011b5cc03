package rxgo

import (
	"sort"
	"sync"
	"time"
)

// ============================================================================
// 虚拟时间调度器 - Virtual Time Scheduler
// ============================================================================

// VirtualTimeScheduler 虚拟时间调度器
// 时间只在调用Flush/AdvanceBy/AdvanceTo时前进，任务在调用方goroutine中同步执行，
// 适合对时间类操作符做确定性测试
type VirtualTimeScheduler struct {
	mu      sync.Mutex
	base    time.Time
	frame   time.Duration
	seq     int
	actions []*virtualAction

	// MaxFrames Flush执行到的最大虚拟时间，0表示不限制
	MaxFrames time.Duration
}

type virtualAction struct {
	due    time.Duration
	seq    int
	work   func()
	handle *Subscription
}

// NewVirtualTimeScheduler 创建虚拟时间调度器，虚拟时间从0开始
func NewVirtualTimeScheduler() *VirtualTimeScheduler {
	return &VirtualTimeScheduler{base: time.Unix(0, 0).UTC()}
}

// Now 当前虚拟时间
func (s *VirtualTimeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Add(s.frame)
}

// Frame 当前虚拟时间相对起点的偏移
func (s *VirtualTimeScheduler) Frame() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Schedule 在虚拟时间delay之后执行work
func (s *VirtualTimeScheduler) Schedule(work func(), delay time.Duration) *Subscription {
	if delay < 0 {
		delay = 0
	}
	action := &virtualAction{work: work}
	action.handle = NewSubscription(func() { s.remove(action) })

	s.mu.Lock()
	action.due = s.frame + delay
	action.seq = s.seq
	s.seq++
	i := sort.Search(len(s.actions), func(i int) bool {
		a := s.actions[i]
		return a.due > action.due || (a.due == action.due && a.seq > action.seq)
	})
	s.actions = append(s.actions, nil)
	copy(s.actions[i+1:], s.actions[i:])
	s.actions[i] = action
	s.mu.Unlock()

	return action.handle
}

func (s *VirtualTimeScheduler) remove(action *virtualAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.actions {
		if a == action {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return
		}
	}
}

// Pending 尚未执行的任务数
func (s *VirtualTimeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Flush 执行所有任务直到队列为空（或到达MaxFrames）
func (s *VirtualTimeScheduler) Flush() {
	for {
		action := s.pop(-1)
		if action == nil {
			return
		}
		s.run(action)
	}
}

// AdvanceBy 虚拟时间前进d，执行期间到期的任务
func (s *VirtualTimeScheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.Frame() + d)
}

// AdvanceTo 虚拟时间前进到frame，执行期间到期的任务
func (s *VirtualTimeScheduler) AdvanceTo(frame time.Duration) {
	for {
		action := s.pop(frame)
		if action == nil {
			break
		}
		s.run(action)
	}
	s.mu.Lock()
	if s.frame < frame {
		s.frame = frame
	}
	s.mu.Unlock()
}

// pop 取出最早到期且不晚于limit的任务并推进时间，limit<0表示不限
func (s *VirtualTimeScheduler) pop(limit time.Duration) *virtualAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return nil
	}
	action := s.actions[0]
	if limit >= 0 && action.due > limit {
		return nil
	}
	if s.MaxFrames > 0 && action.due > s.MaxFrames {
		return nil
	}
	s.actions = s.actions[1:]
	if action.due > s.frame {
		s.frame = action.due
	}
	return action
}

func (s *VirtualTimeScheduler) run(action *virtualAction) {
	if action.handle.Closed() {
		return
	}
	action.work()
	action.handle.Unsubscribe()
}
