package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"fundarb/internal/application/port"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client 后端推送流客户端：每通道订阅、断线指数退避重连、自动重订阅。
// 实现 port.EventSource
type Client struct {
	wsURL string

	mu   sync.Mutex
	subs map[string][]chan port.Event // channel -> subscribers
	conn *websocket.Conn
}

func NewClient(wsURL string) *Client {
	return &Client{
		wsURL: strings.TrimSpace(wsURL),
		subs:  make(map[string][]chan port.Event),
	}
}

type subReq struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
}

// Subscribe 订阅一个通道。返回的通道在 ctx 取消或 Unsubscribe 后关闭。
// 慢消费者不阻塞分发：缓冲满时丢弃事件（消费方本来就应重拉快照）
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan port.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("events ws_url empty")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("empty channel")
	}

	out := make(chan port.Event, 64)

	c.mu.Lock()
	c.subs[channel] = append(c.subs[channel], out)
	conn := c.conn
	c.mu.Unlock()

	// 已连接时即刻发送订阅帧；否则由重连循环统一补发
	if conn != nil {
		_ = conn.WriteJSON(subReq{Op: "subscribe", Channel: channel})
	}

	go func() {
		<-ctx.Done()
		c.removeSubscriber(channel, out)
	}()

	return out, nil
}

// Unsubscribe 退订通道并关闭其全部订阅者
func (c *Client) Unsubscribe(channel string) {
	c.mu.Lock()
	chans := c.subs[channel]
	delete(c.subs, channel)
	conn := c.conn
	c.mu.Unlock()

	for _, ch := range chans {
		close(ch)
	}
	if conn != nil {
		_ = conn.WriteJSON(subReq{Op: "unsubscribe", Channel: channel})
	}
}

// Run 维持连接直到 ctx 取消
func (c *Client) Run(ctx context.Context) error {
	if c.wsURL == "" {
		return errors.New("events ws_url empty")
	}

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		log.Warn().Str("url", c.wsURL).Msg("events ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, c.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("events ws dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		// 重连后补发当前全部订阅
		if err := c.resubscribe(conn); err != nil {
			_ = conn.Close()
			log.Error().Err(err).Msg("events resubscribe failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Msg("events ws connected & subscribed")

		err = readLoop(ctx, conn, c.dispatch)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(err).Msg("events ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func (c *Client) resubscribe(conn *websocket.Conn) error {
	c.mu.Lock()
	channels := make([]string, 0, len(c.subs))
	for channel := range c.subs {
		channels = append(channels, channel)
	}
	c.conn = conn
	c.mu.Unlock()

	for _, channel := range channels {
		if err := conn.WriteJSON(subReq{Op: "subscribe", Channel: channel}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) dispatch(b []byte) {
	var ev port.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		log.Error().Err(err).Msg("events json unmarshal failed")
		return
	}
	if ev.Channel == "" {
		return // ack / heartbeat
	}

	// 发送全程持锁：close 只在同一把锁下发生（Unsubscribe/removeSubscriber），
	// 向已关闭通道发送的竞态因此不可能出现。发送是 select/default，不会阻塞
	c.mu.Lock()
	defer c.mu.Unlock()

	chans := c.subs[ev.Channel]
	if len(chans) == 0 {
		// 未知/无人订阅的通道：丢弃，不崩溃
		log.Debug().Str("channel", ev.Channel).Str("event", ev.Event).Msg("event dropped, no subscriber")
		return
	}

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			log.Debug().Str("channel", ev.Channel).Msg("subscriber buffer full, event dropped")
		}
	}
}

func (c *Client) removeSubscriber(channel string, target chan port.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chans := c.subs[channel]
	for i, ch := range chans {
		if ch == target {
			c.subs[channel] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(c.subs[channel]) == 0 {
		delete(c.subs, channel)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var _ port.EventSource = (*Client)(nil)
