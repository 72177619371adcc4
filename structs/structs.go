package structs

import (
	"fmt"
	"time"
)

// Position 描述棋盘上的一个格子坐标。
type Position struct {
	X int `json:"x"` // 列
	Y int `json:"y"` // 行
}

// Add 返回按方向移动一格后的位置
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

// In 判断位置是否落在 gridSize×gridSize 的棋盘内
func (p Position) In(gridSize int) bool {
	return p.X >= 0 && p.X < gridSize && p.Y >= 0 && p.Y < gridSize
}

// Direction 单位向量，(0,-1) 向上。
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}
)

// Reverse 返回相反方向
func (d Direction) Reverse() Direction {
	return Direction{DX: -d.DX, DY: -d.DY}
}

// Valid 只有四个单位向量是合法方向
func (d Direction) Valid() bool {
	return d == Up || d == Down || d == Left || d == Right
}

// String returns the name used by the HTTP and websocket shells.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// ParseDirection 把 "up", "down", "left", "right" 转成方向
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return Direction{}, false
}

// RunState 游戏运行状态
type RunState int

const (
	NotStarted RunState = iota
	Running
	GameOver
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// MarshalText 让 JSON 里输出字符串而不是数字
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunState) UnmarshalText(text []byte) error {
	for _, candidate := range []RunState{NotStarted, Running, GameOver} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown run state %q", text)
}

// Event 描述一次 Step 的结果
type Event int

const (
	Idle      Event = iota // 没有推进（未开始或已结束）
	Moved                  // 普通移动
	Ate                    // 吃到食物
	HitWall                // 撞墙
	HitSelf                // 咬到自己
	BoardFull              // 棋盘已满，没有空格放食物
)

func (e Event) String() string {
	switch e {
	case Idle:
		return "idle"
	case Moved:
		return "moved"
	case Ate:
		return "ate"
	case HitWall:
		return "hit_wall"
	case HitSelf:
		return "hit_self"
	case BoardFull:
		return "board_full"
	default:
		return "unknown"
	}
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(text []byte) error {
	for candidate := Idle; candidate <= BoardFull; candidate++ {
		if candidate.String() == string(text) {
			*e = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown event %q", text)
}

// GameState 是引擎交给展示层的快照，Snake 是副本，可以随意持有。
type GameState struct {
	GridSize  int           `json:"grid_size"`
	Snake     []Position    `json:"snake"`      // 蛇身，0 为蛇头
	Food      Position      `json:"food"`       // 食物位置
	HasFood   bool          `json:"has_food"`   // 棋盘满时为 false
	Direction Direction     `json:"direction"`  // 当前方向
	Score     int           `json:"score"`      // 当前分数
	HighScore int           `json:"high_score"` // 最高分
	Speed     time.Duration `json:"speed"`      // 当前刷新间隔
	RunState  RunState      `json:"run_state"`
	Event     Event         `json:"event"` // 本次 Step 的结果
	Tick      int           `json:"tick"`  // 已推进的步数
	Won       bool          `json:"won"`   // 棋盘被填满
}

// Head 返回蛇头
func (g GameState) Head() Position {
	return g.Snake[0]
}

// GameRecord 一局结束后的记录
type GameRecord struct {
	ID      string    `json:"id"`
	Score   int       `json:"score"`
	Length  int       `json:"length"`
	Ticks   int       `json:"ticks"`
	Won     bool      `json:"won"`
	EndedAt time.Time `json:"ended_at"`
}
