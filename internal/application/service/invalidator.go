package service

import (
	"context"

	"fundarb/internal/application/port"

	"github.com/rs/zerolog/log"
)

// channelKeys 推送通道到缓存键的映射。
// 事件只用来触发快照失效，不做增量修补：通道间乱序、至少一次投递
// 的前提下，重拉快照是唯一不会产生歧义的做法
var channelKeys = map[string][]string{
	port.ChannelOpportunities: {port.CacheKeyOpportunities},
	port.ChannelPositions:     {port.CacheKeyPositions},
	port.ChannelFundingRates:  {port.CacheKeyFundingRates},
	port.ChannelSystem:        {port.CacheKeySystemStatus},
	port.ChannelRisk:          {port.CacheKeyPositions},
}

// Invalidator 消费推送流并失效对应缓存键
type Invalidator struct {
	events port.EventSource
	cache  port.QueryCache
}

func NewInvalidator(events port.EventSource, cache port.QueryCache) *Invalidator {
	return &Invalidator{events: events, cache: cache}
}

// Run 为每个通道建立订阅并阻塞消费，直到 ctx 取消。
// 订阅生命周期与 ctx 绑定，退出时统一退订
func (iv *Invalidator) Run(ctx context.Context) error {
	for channel, keys := range channelKeys {
		ch, err := iv.events.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		go iv.consume(ctx, channel, keys, ch)
	}

	<-ctx.Done()
	for channel := range channelKeys {
		iv.events.Unsubscribe(channel)
	}
	return ctx.Err()
}

func (iv *Invalidator) consume(ctx context.Context, channel string, keys []string, in <-chan port.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			// 未知事件类型同样只触发失效，不崩溃不特判
			if err := iv.cache.Invalidate(ctx, keys...); err != nil {
				log.Warn().Err(err).Str("channel", channel).Str("event", ev.Event).Msg("event invalidate failed")
				continue
			}
			log.Debug().Str("channel", channel).Str("event", ev.Event).Msg("cache invalidated by event")
		}
	}
}
