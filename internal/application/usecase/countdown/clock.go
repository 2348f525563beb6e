package countdown

import (
	"fmt"
	"sync"
	"time"

	"fundarb/internal/application/port"
)

// State 倒计时状态
type State int

const (
	StateUnset   State = iota // 无目标时间，不走时
	StateActive               // 目标在未来
	StateUrgent               // Active 且剩余不足紧急窗口，仅驱动视觉强调
	StateExpired              // 目标已过，停止走时
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateUrgent:
		return "urgent"
	case StateExpired:
		return "expired"
	default:
		return "unset"
	}
}

// DefaultUrgentWindow 默认紧急窗口
const DefaultUrgentWindow = 5 * time.Minute

// Snapshot 倒计时的机器可读快照
type Snapshot struct {
	State        State
	Display      string
	TotalSeconds int64 // 过期后钳制为 0
	IsExpired    bool
	IsUrgent     bool
}

// Clock 单目标时间的自更新倒计时。每次 tick 都用墙钟与目标重新计算，
// 绝不递减本地计数器——标签页休眠/时钟跳变后依然正确。
// 目标变更时重启走时；过期或 Stop 后释放定时器，不允许泄漏
type Clock struct {
	mu           sync.Mutex
	sched        port.Scheduler
	urgentWindow time.Duration

	target    time.Time
	hasTarget bool
	stopTick  func()
	onChange  func(Snapshot)
}

// NewClock 创建倒计时钟。sched 注入走时能力，测试用假时钟驱动
func NewClock(sched port.Scheduler) *Clock {
	return &Clock{sched: sched, urgentWindow: DefaultUrgentWindow}
}

// SetUrgentWindow 调整紧急窗口（<=0 恢复默认）
func (c *Clock) SetUrgentWindow(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		d = DefaultUrgentWindow
	}
	c.urgentWindow = d
}

// OnChange 注册快照回调（每秒触发一次，直到过期）
func (c *Clock) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetTarget 设置/更换目标时间并重启走时。ok=false 表示无目标（N/A）。
// 停旧表和装新表在同一临界区内完成，并发换目标不会泄漏定时器
func (c *Clock) SetTarget(target time.Time, ok bool) {
	c.mu.Lock()
	c.stopLocked()
	c.target = target
	c.hasTarget = ok
	if ok && target.After(c.sched.Now()) {
		c.stopTick = c.sched.Every(time.Second, c.tick)
	}
	c.mu.Unlock()

	c.notify()
}

// Stop 停止走时（teardown 时必须调用）
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Snapshot 基于当前墙钟计算快照
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	target, has, urgent := c.target, c.hasTarget, c.urgentWindow
	c.mu.Unlock()

	if !has {
		return Snapshot{State: StateUnset, Display: "N/A"}
	}

	remaining := target.Sub(c.sched.Now())
	if remaining <= 0 {
		return Snapshot{State: StateExpired, Display: "Expired", IsExpired: true}
	}

	snap := Snapshot{
		State:        StateActive,
		Display:      FormatRemaining(remaining),
		TotalSeconds: int64(remaining / time.Second),
	}
	if remaining < urgent {
		snap.State = StateUrgent
		snap.IsUrgent = true
	}
	return snap
}

func (c *Clock) tick(time.Time) {
	snap := c.Snapshot()
	c.notify()
	if snap.IsExpired {
		c.Stop()
	}
}

func (c *Clock) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(c.Snapshot())
	}
}

func (c *Clock) stopLocked() {
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
}

// FormatRemaining 剩余时间显示：>=1h 为 "Hh Mm"，>=1m 为 "Mm Ss"，否则 "Ss"
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case h >= 1:
		return fmt.Sprintf("%dh %dm", h, m)
	case m >= 1:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
