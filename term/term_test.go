package term

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/snake-classic/driver"
	"github.com/hoshinonyaruko/snake-classic/session"
	"github.com/hoshinonyaruko/snake-classic/snake"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

func newTestShell(t *testing.T) (*Shell, tcell.SimulationScreen, *session.Session) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(60, 30)
	t.Cleanup(screen.Fini)

	m := session.NewManager(snake.Options{BaseSpeed: time.Hour, Seed: 1}, driver.Driver{}, nil)
	t.Cleanup(m.Close)
	s := m.Create(false)
	return NewShell(screen, s), screen, s
}

func TestKeyDirection(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want structs.Direction
		ok   bool
	}{
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), structs.Up, true},
		{tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), structs.Left, true},
		{tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), structs.Down, true},
		{tcell.NewEventKey(tcell.KeyRune, 'D', tcell.ModNone), structs.Right, true},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), structs.Direction{}, false},
	}
	for _, tc := range cases {
		got, ok := KeyDirection(tc.ev)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%v: got %v %v, want %v %v", tc.ev.Name(), got, ok, tc.want, tc.ok)
		}
	}
}

func TestHandleKey(t *testing.T) {
	sh, _, s := newTestShell(t)

	if sh.HandleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)) {
		t.Fatal("space should not quit")
	}
	if s.State().RunState != structs.Running {
		t.Fatal("space did not start the game")
	}
	sh.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	if st := s.Step(); st.Direction != structs.Down {
		t.Fatalf("arrow key not applied, heading %v", st.Direction)
	}
	if !sh.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatal("q should quit")
	}
	if !sh.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Fatal("esc should quit")
	}
}

func TestDraw(t *testing.T) {
	sh, screen, _ := newTestShell(t)
	st := structs.GameState{
		GridSize: 5,
		Snake:    []structs.Position{{X: 2, Y: 2}, {X: 1, Y: 2}},
		Food:     structs.Position{X: 4, Y: 0},
		HasFood:  true,
		Score:    10,
		RunState: structs.Running,
	}
	sh.Draw(st)

	cells, width, _ := screen.GetContents()
	at := func(x, y int) rune {
		c := cells[y*width+x]
		if len(c.Runes) == 0 {
			return ' '
		}
		return c.Runes[0]
	}
	if at(0, 0) != '┌' || at(11, 6) != '┘' {
		t.Errorf("border corners missing: %q %q", at(0, 0), at(11, 6))
	}
	// 蛇头 (2,2) 在屏幕 x=5,6 y=3
	if at(5, 3) != '█' || at(6, 3) != '█' {
		t.Errorf("head not drawn")
	}
	// 食物 (4,0) 在屏幕 x=9 y=1
	if at(9, 1) != '●' {
		t.Errorf("food not drawn, got %q", at(9, 1))
	}
	if at(0, 7) != 'S' {
		t.Errorf("status line missing, got %q", at(0, 7))
	}
}

func TestRunQuitsOnKey(t *testing.T) {
	sh, screen, _ := newTestShell(t)
	done := make(chan error, 1)
	go func() { done <- sh.Run(context.Background()) }()

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not quit")
	}
}
