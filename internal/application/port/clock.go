package port

import (
	"sync"
	"time"
)

// Scheduler 可取消的周期回调能力。倒计时钟注入该能力驱动每秒刷新，
// 测试里用假实现确定性地推进时间
type Scheduler interface {
	// Every 以固定间隔调用 fn，直到返回的 stop 被调用
	Every(interval time.Duration, fn func(now time.Time)) (stop func())
	// Now 当前墙钟时间
	Now() time.Time
}

// WallClock 真实墙钟 Scheduler
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) Every(interval time.Duration, fn func(now time.Time)) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
