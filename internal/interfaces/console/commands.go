package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	appsvc "fundarb/internal/application/service"
	"fundarb/internal/application/usecase/countdown"
	"fundarb/internal/application/usecase/execute"

	"github.com/rs/zerolog/log"
)

// CommandDeps 命令行交互的依赖集合
type CommandDeps struct {
	Opportunities *appsvc.OpportunityService
	Positions     *appsvc.PositionService
	Status        *appsvc.StatusService
	Executor      *execute.Orchestrator
	Watch         *countdown.Clock
}

// CommandLoop 读取 stdin 命令并驱动执行/平仓/启停/倒计时关注。
// 输出走全局日志，与看板帧共用终端
type CommandLoop struct {
	deps CommandDeps
	in   io.Reader
}

func NewCommandLoop(deps CommandDeps) *CommandLoop {
	return &CommandLoop{deps: deps, in: os.Stdin}
}

// Run 阻塞消费命令直到 ctx 取消或输入流关闭。
// 读入协程的发送同样受 ctx 约束，Run 退出后不滞留在发送上
func (c *CommandLoop) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.deps.Watch.Stop()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.deps.Watch.Stop()
				return nil
			}
			c.handle(ctx, line)
		}
	}
}

func (c *CommandLoop) handle(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "exec":
		if len(fields) < 2 {
			log.Warn().Msg("usage: exec <opportunity-id> [capital-usd]")
			return
		}
		capital := 0.0
		if len(fields) >= 3 {
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				log.Warn().Str("arg", fields[2]).Msg("capital is not a number")
				return
			}
			capital = v
		}
		c.execOpportunity(ctx, fields[1], capital)

	case "close":
		if len(fields) < 2 {
			log.Warn().Msg("usage: close <position-id>")
			return
		}
		if err := c.deps.Positions.Close(ctx, fields[1]); err != nil {
			log.Error().Err(err).Str("position_id", fields[1]).Msg("close failed")
		}

	case "start":
		if err := c.deps.Status.Start(ctx); err != nil {
			log.Error().Err(err).Msg("engine start failed")
		} else {
			log.Info().Msg("engine start requested")
		}

	case "stop":
		if err := c.deps.Status.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("engine stop failed")
		} else {
			log.Info().Msg("engine stop requested")
		}

	case "watch":
		if len(fields) < 2 {
			log.Warn().Msg("usage: watch <opportunity-id>")
			return
		}
		c.watchOpportunity(ctx, fields[1])

	case "unwatch":
		c.deps.Watch.SetTarget(time.Time{}, false)

	default:
		log.Warn().Str("command", fields[0]).Msg("unknown command (exec/close/start/stop/watch/unwatch)")
	}
}

// execOpportunity 单次执行编排：确认、提交、渲染终态
func (c *CommandLoop) execOpportunity(ctx context.Context, id string, capital float64) {
	opp, err := c.deps.Opportunities.Get(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("opportunity_id", id).Msg("load opportunity failed")
		return
	}
	if opp == nil {
		log.Warn().Str("opportunity_id", id).Msg("opportunity not found")
		return
	}

	// 上一笔终态 run 先丢弃；在途提交会在 Confirm 处被拒
	if err := c.deps.Executor.Reset(); err != nil {
		log.Warn().Err(err).Msg("execution busy")
		return
	}
	if err := c.deps.Executor.Confirm(opp); err != nil {
		log.Warn().Err(err).Str("opportunity_id", id).Msg("execution blocked")
		return
	}
	if err := c.deps.Executor.Submit(ctx, capital); err != nil {
		log.Warn().Err(err).Str("opportunity_id", id).Msg("execution blocked")
		return
	}

	run := c.deps.Executor.Snapshot()
	if run.Stage == execute.StageFailed {
		log.Error().Str("run_id", run.ID).Str("reason", run.Error).Msg("execution failed")
		return
	}
	log.Info().Str("run_id", run.ID).Str("position_id", run.Result.PositionID).Msg("execution succeeded")
}

func (c *CommandLoop) watchOpportunity(ctx context.Context, id string) {
	opp, err := c.deps.Opportunities.Get(ctx, id)
	if err != nil || opp == nil {
		log.Warn().Err(err).Str("opportunity_id", id).Msg("load opportunity failed")
		return
	}

	c.deps.Watch.OnChange(func(snap countdown.Snapshot) {
		log.Info().
			Str("opportunity_id", id).
			Str("remaining", snap.Display).
			Bool("urgent", snap.IsUrgent).
			Msg("countdown")
	})
	c.deps.Watch.SetTarget(opp.ExpiresAt, opp.HasExpiry)
}
