// Package render draws a game state into an image.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/hoshinonyaruko/snake-classic/memimg"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

const (
	boardColor = "#76c776"
	gridColor  = "#6bb86b"
	snakeColor = "#4ecdc4"
	headColor  = "#2a9d8f"
	foodColor  = "#ff3b30"
	leafColor  = "#2e7d32"
)

// Renderer 把状态画成图片。背景按 (棋盘, 格子) 缓存。
type Renderer struct {
	BlockSize int
	Sprites   *memimg.Cache // 可选，提供 "food" 和 "head" 贴图

	backgrounds sync.Map
}

func New(blockSize int, sprites *memimg.Cache) *Renderer {
	return &Renderer{BlockSize: blockSize, Sprites: sprites}
}

// Draw 渲染一帧
func (r *Renderer) Draw(st structs.GameState) image.Image {
	b := r.BlockSize
	size := st.GridSize * b

	dc := gg.NewContext(size, size)
	dc.DrawImage(r.background(st.GridSize), 0, 0)

	if st.HasFood {
		r.drawFood(dc, st.Food)
	}
	for i := len(st.Snake) - 1; i >= 0; i-- {
		if i == 0 {
			r.drawHead(dc, st.Snake[0], st.Direction)
			continue
		}
		p := st.Snake[i]
		dc.SetHexColor(snakeColor)
		dc.DrawRectangle(float64(p.X*b+1), float64(p.Y*b+1), float64(b-2), float64(b-2))
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(fmt.Sprintf("Score: %d  High: %d", st.Score, st.HighScore), 4, 4, 0, 1)

	if st.RunState == structs.GameOver {
		return r.gameOver(dc.Image(), st)
	}
	return dc.Image()
}

func (r *Renderer) background(gridSize int) image.Image {
	key := fmt.Sprintf("%d_%d", gridSize, r.BlockSize)
	if cached, ok := r.backgrounds.Load(key); ok {
		return cached.(image.Image)
	}

	b := r.BlockSize
	size := gridSize * b
	dc := gg.NewContext(size, size)
	dc.SetHexColor(boardColor)
	dc.Clear()

	dc.SetHexColor(gridColor)
	dc.SetLineWidth(1)
	for x := 0; x <= size; x += b {
		dc.DrawLine(float64(x), 0, float64(x), float64(size))
		dc.Stroke()
	}
	for y := 0; y <= size; y += b {
		dc.DrawLine(0, float64(y), float64(size), float64(y))
		dc.Stroke()
	}

	img := dc.Image()
	r.backgrounds.Store(key, img)
	return img
}

func (r *Renderer) drawFood(dc *gg.Context, p structs.Position) {
	b := float64(r.BlockSize)
	if img, ok := r.Sprites.Get("food"); ok {
		dc.DrawImage(img, p.X*r.BlockSize, p.Y*r.BlockSize)
		return
	}
	cx := float64(p.X)*b + b/2
	cy := float64(p.Y)*b + b/2

	// 苹果
	dc.SetHexColor(foodColor)
	dc.DrawCircle(cx, cy, b/2-2)
	dc.Fill()

	// 叶子
	dc.SetHexColor(leafColor)
	dc.DrawEllipse(cx+b*0.15, cy-b*0.38, b*0.15, b*0.07)
	dc.Fill()
}

func (r *Renderer) drawHead(dc *gg.Context, p structs.Position, d structs.Direction) {
	bi := r.BlockSize
	b := float64(bi)
	if img, ok := r.Sprites.Get("head"); ok {
		// 贴图默认朝右
		dc.Push()
		dc.RotateAbout(headAngle(d), float64(p.X)*b+b/2, float64(p.Y)*b+b/2)
		dc.DrawImage(img, p.X*bi, p.Y*bi)
		dc.Pop()
		return
	}

	dc.SetHexColor(headColor)
	dc.DrawRoundedRectangle(float64(p.X)*b+1, float64(p.Y)*b+1, b-2, b-2, b/5)
	dc.Fill()

	// 眼睛朝向前进方向
	cx := float64(p.X)*b + b/2
	cy := float64(p.Y)*b + b/2
	fx, fy := float64(d.DX)*b*0.2, float64(d.DY)*b*0.2
	px, py := float64(-d.DY)*b*0.2, float64(d.DX)*b*0.2
	for _, side := range []float64{-1, 1} {
		ex, ey := cx+fx+side*px, cy+fy+side*py
		dc.SetRGB(1, 1, 1)
		dc.DrawCircle(ex, ey, b*0.12)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawCircle(ex+float64(d.DX)*b*0.04, ey+float64(d.DY)*b*0.04, b*0.06)
		dc.Fill()
	}
}

func headAngle(d structs.Direction) float64 {
	switch d {
	case structs.Down:
		return gg.Radians(90)
	case structs.Left:
		return gg.Radians(180)
	case structs.Up:
		return gg.Radians(270)
	default:
		return 0
	}
}

// gameOver 模糊棋盘后叠加结算信息
func (r *Renderer) gameOver(board image.Image, st structs.GameState) image.Image {
	blurred := imaging.Blur(board, 3)
	size := board.Bounds().Dx()

	dc := gg.NewContext(size, size)
	dc.DrawImage(blurred, 0, 0)
	dc.SetRGBA(0, 0, 0, 0.5)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	title := "GAME OVER"
	if st.Won {
		title = "YOU WIN"
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(title, float64(size)/2, float64(size)/2-10, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("Final score: %d", st.Score), float64(size)/2, float64(size)/2+10, 0.5, 0.5)
	return dc.Image()
}

// EncodePNG 渲染并以 PNG 写出
func (r *Renderer) EncodePNG(w io.Writer, st structs.GameState) error {
	return png.Encode(w, r.Draw(st))
}

// SavePNG renders st and saves it to path, creating parent directories.
func (r *Renderer) SavePNG(path string, st structs.GameState) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return gg.SavePNG(path, r.Draw(st))
}
