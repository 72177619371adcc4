// Package driver calls Step on a game at the cadence its speed asks for.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/hoshinonyaruko/snake-classic/structs"
)

// Stepper is the part of the engine the driver needs.
type Stepper interface {
	Step() structs.GameState
	Speed() time.Duration
}

// Sink 接收每一次 Step 之后的状态，例如渲染或推送给客户端
type Sink func(structs.GameState)

// Cadence 调度方式
type Cadence string

const (
	// Interval 固定间隔定时器，速度变化时重置
	Interval Cadence = "interval"
	// Accumulate 按帧累积经过的时间，满一个间隔就推进一次，余数带到下一帧
	Accumulate Cadence = "accumulate"

	DefaultFPS = 60
	// 一帧里最多补几步，防止长时间卡顿之后连续推进
	maxCatchUp = 5
)

// ParseCadence accepts "interval" and "accumulate"; empty means Interval.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case "", Interval:
		return Interval, nil
	case Accumulate:
		return Accumulate, nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// Driver 驱动一局游戏直到结束或 ctx 被取消
type Driver struct {
	Cadence Cadence
	FPS     int
}

// Run steps s until the game leaves the Running state or ctx is done.
// It returns nil when the game ended and ctx.Err() when it was cancelled.
func (d Driver) Run(ctx context.Context, s Stepper, sink Sink) error {
	if sink == nil {
		sink = func(structs.GameState) {}
	}
	if d.Cadence == Accumulate {
		return d.runAccumulate(ctx, s, sink)
	}
	return d.runInterval(ctx, s, sink)
}

func (d Driver) runInterval(ctx context.Context, s Stepper, sink Sink) error {
	speed := s.Speed()
	ticker := time.NewTicker(speed)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := s.Step()
			sink(st)
			if st.RunState != structs.Running {
				return nil
			}
			// 难度递增后重新设置定时器
			if next := s.Speed(); next != speed {
				speed = next
				ticker.Reset(speed)
			}
		}
	}
}

func (d Driver) runAccumulate(ctx context.Context, s Stepper, sink Sink) error {
	fps := d.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	frames := time.NewTicker(time.Second / time.Duration(fps))
	defer frames.Stop()

	var acc Accumulator
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-frames.C:
			acc.Add(now.Sub(last))
			last = now
			for i := 0; i < maxCatchUp && acc.Take(s.Speed()); i++ {
				st := s.Step()
				sink(st)
				if st.RunState != structs.Running {
					return nil
				}
			}
			acc.Trim(s.Speed())
		}
	}
}

// Accumulator 累积帧间隔
type Accumulator struct {
	pending time.Duration
}

// Add 记录一帧经过的时间
func (a *Accumulator) Add(elapsed time.Duration) {
	if elapsed > 0 {
		a.pending += elapsed
	}
}

// Take reports whether a full interval has accumulated and consumes it.
func (a *Accumulator) Take(interval time.Duration) bool {
	if interval <= 0 || a.pending < interval {
		return false
	}
	a.pending -= interval
	return true
}

// Trim 丢弃补不完的积压，只保留不足一个间隔的余数
func (a *Accumulator) Trim(interval time.Duration) {
	if interval > 0 && a.pending >= interval {
		a.pending %= interval
	}
}

// Pending 返回尚未消耗的时间
func (a *Accumulator) Pending() time.Duration {
	return a.pending
}
