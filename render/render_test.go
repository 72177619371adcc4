package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/hoshinonyaruko/snake-classic/structs"
)

func sample() structs.GameState {
	return structs.GameState{
		GridSize:  10,
		Snake:     []structs.Position{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}},
		Food:      structs.Position{X: 8, Y: 8},
		HasFood:   true,
		Direction: structs.Right,
		Score:     20,
		RunState:  structs.Running,
	}
}

func rgb(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func centre(p structs.Position, block int) (int, int) {
	return p.X*block + block/2, p.Y*block + block/2
}

func TestDrawSize(t *testing.T) {
	img := New(20, nil).Draw(sample())
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("expected 200x200, got %v", b)
	}
}

func TestDrawColors(t *testing.T) {
	img := New(20, nil).Draw(sample())

	x, y := centre(structs.Position{X: 4, Y: 5}, 20)
	if r, g, b := rgb(img.At(x, y)); r != 0x4e || g != 0xcd || b != 0xc4 {
		t.Errorf("body segment color %02x%02x%02x", r, g, b)
	}
	x, y = centre(structs.Position{X: 8, Y: 8}, 20)
	if r, g, b := rgb(img.At(x, y)); r != 0xff || g != 0x3b || b != 0x30 {
		t.Errorf("food color %02x%02x%02x", r, g, b)
	}
	x, y = centre(structs.Position{X: 1, Y: 8}, 20)
	if r, g, b := rgb(img.At(x, y)); r != 0x76 || g != 0xc7 || b != 0x76 {
		t.Errorf("board color %02x%02x%02x", r, g, b)
	}
}

func TestBackgroundCached(t *testing.T) {
	r := New(20, nil)
	a := r.background(10)
	b := r.background(10)
	if a != b {
		t.Fatal("background not cached")
	}
	if c := r.background(12); c == a {
		t.Fatal("different grid sizes share a background")
	}
}

func TestGameOverDimsBoard(t *testing.T) {
	st := sample()
	st.RunState = structs.GameOver
	img := New(20, nil).Draw(st)

	x, y := centre(structs.Position{X: 1, Y: 8}, 20)
	r, g, b := rgb(img.At(x, y))
	if r >= 0x76 || g >= 0xc7 || b >= 0x76 {
		t.Fatalf("board not dimmed on game over: %02x%02x%02x", r, g, b)
	}
}

func TestEncodeAndSavePNG(t *testing.T) {
	r := New(8, nil)
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, sample()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 80, 80) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}

	path := filepath.Join(t.TempDir(), "out", "frame.png")
	if err := r.SavePNG(path, sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
}
