// Package session runs one engine per game behind a mutex and fans its
// states out to subscribers.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-classic/driver"
	"github.com/hoshinonyaruko/snake-classic/snake"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

const subscriberBuffer = 16

// Session 一局游戏。引擎的所有调用都经过 mu，保证同一时间只有一个 Step。
type Session struct {
	ID string

	mu     sync.Mutex
	engine *snake.Engine

	store  Storage
	driver driver.Driver
	parent context.Context

	runMu  sync.Mutex // 保护 cancel/done/closed
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	subsMu  sync.Mutex
	subs    map[int]chan structs.GameState
	nextSub int
}

func newSession(parent context.Context, engine *snake.Engine, store Storage, d driver.Driver) *Session {
	return &Session{
		ID:     uuid.New().String(),
		engine: engine,
		store:  store,
		driver: d,
		parent: parent,
		subs:   make(map[int]chan structs.GameState),
	}
}

// State 返回当前快照
func (s *Session) State() structs.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// Speed implements driver.Stepper.
func (s *Session) Speed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Speed()
}

// Step advances the game by one tick, records it when it just ended and
// publishes the result. The driver is normally the only caller.
func (s *Session) Step() structs.GameState {
	s.mu.Lock()
	st := s.engine.Step()
	s.mu.Unlock()

	// 只有刚刚结束的那一步会带着结束事件
	if st.RunState == structs.GameOver && st.Event != structs.Idle {
		s.record(st)
	}
	s.publish(st)
	return st
}

// SetDirection 缓存下一步的方向
func (s *Session) SetDirection(d structs.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetDirection(d)
}

// Start 开始游戏并启动调度。会话已关闭时什么都不做
func (s *Session) Start() structs.GameState {
	if s.Closed() {
		return s.State()
	}
	s.mu.Lock()
	st := s.engine.Start()
	s.mu.Unlock()

	if st.RunState == structs.Running {
		s.run()
	}
	s.publish(st)
	return st
}

// Restart stops the running driver, reinitializes the engine and starts a
// fresh game. A closed session is left as it is.
func (s *Session) Restart() structs.GameState {
	if s.Closed() {
		return s.State()
	}
	s.Stop()

	s.mu.Lock()
	st := s.engine.Restart()
	s.mu.Unlock()

	s.run()
	s.publish(st)
	return st
}

// run 启动调度 goroutine，已经在运行时什么都不做
func (s *Session) run() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.closed || s.parent.Err() != nil {
		return
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer cancel()
		err := s.driver.Run(ctx, s, nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session %s: driver stopped: %v", s.ID, err)
		}
	}()
}

// Stop 停止调度并等待 goroutine 退出，游戏状态保持不变
func (s *Session) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the driver, closes every subscriber channel and refuses
// further Start and Restart calls.
func (s *Session) Close() {
	s.runMu.Lock()
	if s.closed {
		s.runMu.Unlock()
		return
	}
	s.closed = true
	s.runMu.Unlock()

	s.Stop()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// Closed 会话已被关闭，或者所属的 Manager 已经关闭
func (s *Session) Closed() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.closed || s.parent.Err() != nil
}

// Running reports whether a driver goroutine is active.
func (s *Session) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Subscribe returns a channel that receives every published state and a
// function that unsubscribes. Slow subscribers miss states rather than
// blocking the game.
func (s *Session) Subscribe() (<-chan structs.GameState, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan structs.GameState, subscriberBuffer)
	if s.Closed() {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		// Close 可能已经关掉了这个通道
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Session) publish(st structs.GameState) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func (s *Session) record(st structs.GameState) {
	if s.store == nil {
		return
	}
	rec := structs.GameRecord{
		ID:      uuid.New().String(),
		Score:   st.Score,
		Length:  len(st.Snake),
		Ticks:   st.Tick,
		Won:     st.Won,
		EndedAt: time.Now(),
	}
	if err := s.store.RecordGame(rec); err != nil {
		log.Printf("session %s: record game: %v", s.ID, err)
	}
}
