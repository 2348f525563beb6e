package events

import (
	"context"
	"sync"
	"testing"

	"fundarb/internal/application/port"
)

func TestSubscribeDispatch(t *testing.T) {
	c := NewClient("ws://localhost/ws")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Subscribe(ctx, port.ChannelOpportunities)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	c.dispatch([]byte(`{"channel": "opportunities", "event": "opportunity_updated"}`))

	ev := <-ch
	if ev.Channel != port.ChannelOpportunities || ev.Event != "opportunity_updated" {
		t.Fatalf("event wrong: %+v", ev)
	}
}

func TestDispatchUnknownChannelDropped(t *testing.T) {
	c := NewClient("ws://localhost/ws")
	// 无人订阅的通道只丢弃，不 panic
	c.dispatch([]byte(`{"channel": "mystery", "event": "x"}`))
	c.dispatch([]byte(`not json`))
	c.dispatch([]byte(`{}`))
}

func TestUnsubscribeClosesSubscribers(t *testing.T) {
	c := NewClient("ws://localhost/ws")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := c.Subscribe(ctx, port.ChannelPositions)
	c.Unsubscribe(port.ChannelPositions)

	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}

	// 退订后分发到该通道是空操作
	c.dispatch([]byte(`{"channel": "positions", "event": "x"}`))
}

// TestDispatchConcurrentWithUnsubscribe 分发与退订并发：
// close 与发送必须在同一把锁下互斥，否则向已关闭通道发送会崩溃进程
func TestDispatchConcurrentWithUnsubscribe(t *testing.T) {
	payload := []byte(`{"channel": "opportunities", "event": "opportunity_updated"}`)

	for i := 0; i < 500; i++ {
		c := NewClient("ws://localhost/ws")
		ctx, cancel := context.WithCancel(context.Background())

		if _, err := c.Subscribe(ctx, port.ChannelOpportunities); err != nil {
			cancel()
			t.Fatalf("subscribe failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.dispatch(payload)
			}
		}()
		go func() {
			defer wg.Done()
			c.Unsubscribe(port.ChannelOpportunities)
		}()
		wg.Wait()
		cancel()
	}
}

// TestDispatchConcurrentWithCtxCancel 每订阅者 ctx 取消触发的 removeSubscriber
// 与在途分发同样不得竞态
func TestDispatchConcurrentWithCtxCancel(t *testing.T) {
	payload := []byte(`{"channel": "positions", "event": "position_updated"}`)
	c := NewClient("ws://localhost/ws")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := c.Subscribe(ctx, port.ChannelPositions)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.dispatch(payload)
			}
		}()
		go func() {
			defer wg.Done()
			cancel()
			// 排空直到关闭，确认 removeSubscriber 完成了 close
			for range ch {
			}
		}()
		wg.Wait()
	}
}
