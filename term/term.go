// Package term plays a session in the terminal.
package term

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/snake-classic/session"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

var (
	borderStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	snakeStyle  = tcell.StyleDefault.Foreground(tcell.NewHexColor(0x4ecdc4))
	headStyle   = tcell.StyleDefault.Foreground(tcell.NewHexColor(0x2a9d8f))
	foodStyle   = tcell.StyleDefault.Foreground(tcell.NewHexColor(0xff3b30))
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// Shell 把键盘输入交给会话，把会话的状态画到屏幕上
type Shell struct {
	screen  tcell.Screen
	session *session.Session
}

func NewShell(screen tcell.Screen, s *session.Session) *Shell {
	return &Shell{screen: screen, session: s}
}

// Run blocks until the player quits or ctx is done. The screen must already
// be initialized; Run does not call Fini.
func (sh *Shell) Run(ctx context.Context) error {
	updates, unsubscribe := sh.session.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := sh.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	sh.Draw(sh.session.State())
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			sh.Draw(st)
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventResize:
				sh.screen.Sync()
				sh.Draw(sh.session.State())
			case *tcell.EventKey:
				if sh.HandleKey(e) {
					return nil
				}
			}
		}
	}
}

// HandleKey applies one key press and reports whether the player quit.
func (sh *Shell) HandleKey(e *tcell.EventKey) bool {
	if isQuit(e) {
		return true
	}
	if d, ok := KeyDirection(e); ok {
		sh.session.SetDirection(d)
		return false
	}
	if e.Key() == tcell.KeyEnter || (e.Key() == tcell.KeyRune && e.Rune() == ' ') {
		switch sh.session.State().RunState {
		case structs.NotStarted:
			sh.session.Start()
		case structs.GameOver:
			sh.session.Restart()
		}
	}
	return false
}

func isQuit(e *tcell.EventKey) bool {
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return e.Rune() == 'q' || e.Rune() == 'Q'
	}
	return false
}

// KeyDirection 方向键和 WASD
func KeyDirection(e *tcell.EventKey) (structs.Direction, bool) {
	switch e.Key() {
	case tcell.KeyUp:
		return structs.Up, true
	case tcell.KeyDown:
		return structs.Down, true
	case tcell.KeyLeft:
		return structs.Left, true
	case tcell.KeyRight:
		return structs.Right, true
	case tcell.KeyRune:
		switch e.Rune() {
		case 'w', 'W':
			return structs.Up, true
		case 's', 'S':
			return structs.Down, true
		case 'a', 'A':
			return structs.Left, true
		case 'd', 'D':
			return structs.Right, true
		}
	}
	return structs.Direction{}, false
}

// Draw 每个格子占两列，看起来接近正方形
func (sh *Shell) Draw(st structs.GameState) {
	s := sh.screen
	s.Clear()

	n := st.GridSize
	width := n*2 + 2
	for x := 0; x < width; x++ {
		s.SetContent(x, 0, '─', nil, borderStyle)
		s.SetContent(x, n+1, '─', nil, borderStyle)
	}
	for y := 0; y < n+2; y++ {
		s.SetContent(0, y, '│', nil, borderStyle)
		s.SetContent(width-1, y, '│', nil, borderStyle)
	}
	s.SetContent(0, 0, '┌', nil, borderStyle)
	s.SetContent(width-1, 0, '┐', nil, borderStyle)
	s.SetContent(0, n+1, '└', nil, borderStyle)
	s.SetContent(width-1, n+1, '┘', nil, borderStyle)

	if st.HasFood {
		sh.cell(st.Food, '●', foodStyle)
	}
	for i := len(st.Snake) - 1; i >= 1; i-- {
		sh.cell(st.Snake[i], '█', snakeStyle)
	}
	if len(st.Snake) > 0 {
		sh.cell(st.Snake[0], '█', headStyle)
	}

	status := fmt.Sprintf("Score: %d  High: %d", st.Score, st.HighScore)
	switch st.RunState {
	case structs.NotStarted:
		status += "  [space] start  [q] quit"
	case structs.GameOver:
		if st.Won {
			status += "  YOU WIN"
		} else {
			status += "  GAME OVER"
		}
		status += "  [space] restart  [q] quit"
	}
	sh.text(0, n+2, status)
	s.Show()
}

func (sh *Shell) cell(p structs.Position, r rune, style tcell.Style) {
	x, y := 1+p.X*2, 1+p.Y
	sh.screen.SetContent(x, y, r, nil, style)
	sh.screen.SetContent(x+1, y, r, nil, style)
}

func (sh *Shell) text(x, y int, s string) {
	for i, r := range []rune(s) {
		sh.screen.SetContent(x+i, y, r, nil, textStyle)
	}
}
