// 经典贪食蛇的推进引擎
package snake

import (
	"log"
	"time"

	"github.com/hoshinonyaruko/snake-classic/structs"
	"golang.org/x/exp/rand"
)

const (
	// Reward 每吃一个食物加的分
	Reward = 10
	// HighScoreKey 最高分持久化时使用的固定键
	HighScoreKey = "snakeHighScore"

	DefaultGridSize  = 20
	DefaultBaseSpeed = 130 * time.Millisecond
)

// HighScoreStore 是最高分的持久化协作者。
type HighScoreStore interface {
	LoadHighScore() (int, error)
	SaveHighScore(score int) error
}

// Options configures an Engine. Zero values fall back to the classic board.
type Options struct {
	GridSize   int
	Start      *structs.Position // 为空时使用 (10,10) 或棋盘中心
	Heading    structs.Direction // 为空时向右
	BaseSpeed  time.Duration
	SpeedFloor time.Duration // 难度递增的下限
	SpeedStep  time.Duration // 每吃一个食物减少的间隔，0 表示固定速度
	Seed       uint64        // 0 时使用当前时间
}

func (o Options) withDefaults() Options {
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	if o.BaseSpeed <= 0 {
		o.BaseSpeed = DefaultBaseSpeed
	}
	if o.SpeedFloor <= 0 || o.SpeedFloor > o.BaseSpeed {
		o.SpeedFloor = o.BaseSpeed
	}
	if o.SpeedStep < 0 {
		o.SpeedStep = 0
	}
	if !o.Heading.Valid() {
		o.Heading = structs.Right
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	return o
}

func (o Options) startCell() structs.Position {
	if o.Start != nil && o.Start.In(o.GridSize) {
		return *o.Start
	}
	start := structs.Position{X: 10, Y: 10}
	if !start.In(o.GridSize) {
		start = structs.Position{X: o.GridSize / 2, Y: o.GridSize / 2}
	}
	return start
}

// Engine 持有一局游戏的全部状态。Engine 不是并发安全的，
// 多个 goroutine 使用时由调用方加锁（见 session 包）。
type Engine struct {
	opts  Options
	rng   *rand.Rand
	store HighScoreStore

	snake      []structs.Position
	occupied   map[structs.Position]bool
	food       structs.Position
	hasFood    bool
	dir        structs.Direction
	pending    structs.Direction
	hasPending bool
	score      int
	highScore  int
	speed      time.Duration
	state      structs.RunState
	event      structs.Event
	tick       int
	won        bool
}

// New creates an engine in the NotStarted state. A nil store keeps the
// high score for the lifetime of the engine only.
func New(opts Options, store HighScoreStore) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		store: store,
	}
	e.highScore = e.loadHighScore()
	e.initialize()
	return e
}

func (e *Engine) loadHighScore() int {
	if e.store == nil {
		return 0
	}
	hs, err := e.store.LoadHighScore()
	if err != nil {
		// 存储不可用时最高分只在本局有效
		log.Printf("snake: load high score: %v", err)
		return 0
	}
	if hs < 0 {
		return 0
	}
	return hs
}

func (e *Engine) initialize() {
	start := e.opts.startCell()
	e.snake = []structs.Position{start}
	e.occupied = map[structs.Position]bool{start: true}
	e.dir = e.opts.Heading
	e.hasPending = false
	e.score = 0
	e.speed = e.opts.BaseSpeed
	e.state = structs.NotStarted
	e.event = structs.Idle
	e.tick = 0
	e.won = false
	e.placeFood()
}

// Start 从 NotStarted 进入 Running，其它状态下不做任何事
func (e *Engine) Start() structs.GameState {
	if e.state == structs.NotStarted {
		e.state = structs.Running
	}
	return e.State()
}

// Reset 重新初始化本局，autostart 决定停在 NotStarted 还是直接 Running。
func (e *Engine) Reset(autostart bool) structs.GameState {
	// 其它会话可能刷新过最高分
	if hs := e.loadHighScore(); hs > e.highScore {
		e.highScore = hs
	}
	e.initialize()
	if autostart {
		e.state = structs.Running
	}
	return e.State()
}

// Restart is Reset(true).
func (e *Engine) Restart() structs.GameState {
	return e.Reset(true)
}

// SetDirection buffers the heading for the next Step. The exact reverse of
// the current heading, non-unit vectors and requests after GameOver are
// rejected and leave the pending heading untouched.
func (e *Engine) SetDirection(d structs.Direction) bool {
	if e.state == structs.GameOver || !d.Valid() {
		return false
	}
	if d == e.dir.Reverse() {
		return false
	}
	e.pending = d
	e.hasPending = true
	return true
}

// Step 推进一格。只有 Running 时才会移动，否则原样返回当前状态。
func (e *Engine) Step() structs.GameState {
	if e.state != structs.Running {
		e.event = structs.Idle
		return e.State()
	}

	// 挂起的方向在本次推进开始时整体生效
	if e.hasPending {
		e.dir = e.pending
		e.hasPending = false
	}

	head := e.snake[0].Add(e.dir)

	// 撞墙和咬到自己都在修改蛇身之前判断
	if !head.In(e.opts.GridSize) {
		e.end(structs.HitWall)
		return e.State()
	}
	if e.occupied[head] {
		e.end(structs.HitSelf)
		return e.State()
	}

	e.tick++
	e.snake = append(e.snake, structs.Position{})
	copy(e.snake[1:], e.snake)
	e.snake[0] = head
	e.occupied[head] = true

	if e.hasFood && head == e.food {
		e.eat()
		return e.State()
	}

	tail := e.snake[len(e.snake)-1]
	e.snake = e.snake[:len(e.snake)-1]
	delete(e.occupied, tail)
	e.event = structs.Moved
	return e.State()
}

func (e *Engine) eat() {
	e.score += Reward
	e.event = structs.Ate
	if e.score > e.highScore {
		e.highScore = e.score
		e.saveHighScore()
	}
	if e.opts.SpeedStep > 0 {
		e.speed -= e.opts.SpeedStep
		if e.speed < e.opts.SpeedFloor {
			e.speed = e.opts.SpeedFloor
		}
	}
	if !e.placeFood() {
		// 没有空格了，算赢
		e.won = true
		e.end(structs.BoardFull)
	}
}

func (e *Engine) saveHighScore() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveHighScore(e.highScore); err != nil {
		log.Printf("snake: save high score %d: %v", e.highScore, err)
	}
}

func (e *Engine) end(ev structs.Event) {
	e.state = structs.GameOver
	e.event = ev
	e.hasPending = false
}

// State 返回当前状态的快照
func (e *Engine) State() structs.GameState {
	body := make([]structs.Position, len(e.snake))
	copy(body, e.snake)
	return structs.GameState{
		GridSize:  e.opts.GridSize,
		Snake:     body,
		Food:      e.food,
		HasFood:   e.hasFood,
		Direction: e.dir,
		Score:     e.score,
		HighScore: e.highScore,
		Speed:     e.speed,
		RunState:  e.state,
		Event:     e.event,
		Tick:      e.tick,
		Won:       e.won,
	}
}

// Speed 当前的刷新间隔，调度器据此决定下一次 Step 的时间
func (e *Engine) Speed() time.Duration {
	return e.speed
}

func (e *Engine) HighScore() int {
	return e.highScore
}

func (e *Engine) RunState() structs.RunState {
	return e.state
}
