package port

import (
	"context"
	"encoding/json"
)

// 事件推送通道名。通道内有序，通道间无序，投递至少一次——
// 消费方收到事件后应重拉快照，不要依赖事件载荷做增量修补
const (
	ChannelOpportunities = "opportunities"
	ChannelPositions     = "positions"
	ChannelRisk          = "risk"
	ChannelSystem        = "system"
	ChannelFundingRates  = "funding_rates"
)

// Event 后端推送的类型化消息
type Event struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// EventSource 推送流能力。订阅生命周期跟随消费组件：
// Subscribe 返回的通道在 ctx 取消或 Unsubscribe 后关闭，未知事件类型静默忽略
type EventSource interface {
	Subscribe(ctx context.Context, channel string) (<-chan Event, error)
	Unsubscribe(channel string)
}
