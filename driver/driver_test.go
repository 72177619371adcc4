package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hoshinonyaruko/snake-classic/structs"
)

// countdown 在 n 步之后结束
type countdown struct {
	mu    sync.Mutex
	left  int
	steps int
	speed time.Duration
}

func (c *countdown) Step() structs.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
	c.left--
	st := structs.GameState{RunState: structs.Running, Tick: c.steps}
	if c.left <= 0 {
		st.RunState = structs.GameOver
	}
	return st
}

func (c *countdown) Speed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func TestAccumulatorCarriesRemainder(t *testing.T) {
	var a Accumulator
	a.Add(25 * time.Millisecond)
	if a.Take(10 * time.Millisecond); a.Pending() != 15*time.Millisecond {
		t.Fatalf("expected 15ms pending, got %v", a.Pending())
	}
	if !a.Take(10 * time.Millisecond) {
		t.Fatal("expected a second step")
	}
	if a.Take(10 * time.Millisecond) {
		t.Fatal("took a step with only 5ms pending")
	}
	a.Add(6 * time.Millisecond)
	if !a.Take(10 * time.Millisecond) {
		t.Fatal("remainder was not carried forward")
	}
	if a.Pending() != time.Millisecond {
		t.Fatalf("expected 1ms pending, got %v", a.Pending())
	}
}

func TestAccumulatorTrim(t *testing.T) {
	var a Accumulator
	a.Add(95 * time.Millisecond)
	a.Trim(10 * time.Millisecond)
	if a.Pending() != 5*time.Millisecond {
		t.Fatalf("expected 5ms after trim, got %v", a.Pending())
	}
	a.Add(-time.Second)
	if a.Pending() != 5*time.Millisecond {
		t.Fatalf("negative elapsed changed pending: %v", a.Pending())
	}
}

func TestParseCadence(t *testing.T) {
	if c, err := ParseCadence(""); err != nil || c != Interval {
		t.Fatalf("empty cadence: %v %v", c, err)
	}
	if c, err := ParseCadence("accumulate"); err != nil || c != Accumulate {
		t.Fatalf("accumulate cadence: %v %v", c, err)
	}
	if _, err := ParseCadence("vsync"); err == nil {
		t.Fatal("expected error for unknown cadence")
	}
}

func TestRunStopsAtGameOver(t *testing.T) {
	for _, cadence := range []Cadence{Interval, Accumulate} {
		t.Run(string(cadence), func(t *testing.T) {
			c := &countdown{left: 3, speed: 2 * time.Millisecond}
			var got []int
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := Driver{Cadence: cadence, FPS: 500}.Run(ctx, c, func(st structs.GameState) {
				got = append(got, st.Tick)
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 3 || got[2] != 3 {
				t.Fatalf("expected 3 states, got %v", got)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	c := &countdown{left: 1 << 30, speed: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := Driver{}.Run(ctx, c, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if c.steps == 0 {
		t.Error("driver never stepped")
	}
}

// ramp 第一步之后把间隔从 slow 降到 fast
type ramp struct {
	countdown
	fast time.Duration
}

func (r *ramp) Step() structs.GameState {
	st := r.countdown.Step()
	r.mu.Lock()
	r.speed = r.fast
	r.mu.Unlock()
	return st
}

func TestRunTracksSpeedChange(t *testing.T) {
	for _, cadence := range []Cadence{Interval, Accumulate} {
		t.Run(string(cadence), func(t *testing.T) {
			// 1 步 100ms + 20 步 5ms，不跟随速度变化的话要 2 秒以上
			r := &ramp{countdown: countdown{left: 21, speed: 100 * time.Millisecond}, fast: 5 * time.Millisecond}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			began := time.Now()
			if err := (Driver{Cadence: cadence, FPS: 200}).Run(ctx, r, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			elapsed := time.Since(began)
			if elapsed < 90*time.Millisecond {
				t.Fatalf("first step did not wait for the slow interval: %v", elapsed)
			}
			if elapsed > time.Second {
				t.Fatalf("steps did not speed up after the change: %v", elapsed)
			}
			if r.steps != 21 {
				t.Fatalf("expected 21 steps, got %d", r.steps)
			}
		})
	}
}
