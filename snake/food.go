package snake

import "github.com/hoshinonyaruko/snake-classic/structs"

// freeCells 列出所有不在蛇身上的格子
func (e *Engine) freeCells() []structs.Position {
	n := e.opts.GridSize
	free := make([]structs.Position, 0, n*n-len(e.snake))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			p := structs.Position{X: x, Y: y}
			if !e.occupied[p] {
				free = append(free, p)
			}
		}
	}
	return free
}

// placeFood 在空格中均匀随机选一个放食物，没有空格时返回 false。
// 蛇身只占少量格子时先尝试几次直接采样，避免每次都遍历棋盘。
func (e *Engine) placeFood() bool {
	n := e.opts.GridSize
	if len(e.snake)*2 < n*n {
		for i := 0; i < 8; i++ {
			p := structs.Position{X: e.rng.Intn(n), Y: e.rng.Intn(n)}
			if !e.occupied[p] {
				e.food = p
				e.hasFood = true
				return true
			}
		}
	}
	free := e.freeCells()
	if len(free) == 0 {
		e.hasFood = false
		return false
	}
	e.food = free[e.rng.Intn(len(free))]
	e.hasFood = true
	return true
}
