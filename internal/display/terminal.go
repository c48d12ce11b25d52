package display

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Terminal cell size in display pixels. The 128x64 panel maps onto a
// 32x8 block of cells.
const (
	cellWidth  = 4
	cellHeight = 8
)

// Terminal renders the panel layout on a terminal screen for simulation.
// Each character occupies one cell; positions are scaled from pixels.
type Terminal struct {
	screen tcell.Screen
}

// NewTerminal initialises the terminal screen.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return NewTerminalScreen(screen)
}

// NewTerminalScreen uses an existing screen, initialising it.
func NewTerminalScreen(screen tcell.Screen) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	screen.HideCursor()
	return &Terminal{screen: screen}, nil
}

// Clear blanks the screen.
func (t *Terminal) Clear() {
	t.screen.Clear()
}

// DrawText writes s on the cell row holding the last pixel above the
// baseline.
func (t *Terminal) DrawText(x, y int, s string, style Style) {
	st := tcell.StyleDefault
	if style.Inverse {
		st = st.Reverse(true)
	}
	if style.Large {
		st = st.Bold(true)
	}
	col, row := x/cellWidth, (y-1)/cellHeight
	for i, r := range []rune(s) {
		t.screen.SetContent(col+i, row, r, nil, st)
	}
}

// TextWidth returns the width of s in display pixels.
func (t *Terminal) TextWidth(s string, style Style) int {
	return len([]rune(s)) * cellWidth
}

// DrawLine draws a horizontal rule on the first row at or below y0. Other
// lines are not used by the layout and are ignored.
func (t *Terminal) DrawLine(x0, y0, x1, y1 int) {
	if y0 != y1 {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	row := (y0 + cellHeight - 1) / cellHeight
	for col := x0 / cellWidth; col <= x1/cellWidth; col++ {
		t.screen.SetContent(col, row, tcell.RuneHLine, nil, tcell.StyleDefault)
	}
}

// FillBox fills the covered cells in reverse video.
func (t *Terminal) FillBox(x, y, w, h int) {
	st := tcell.StyleDefault.Reverse(true)
	for row := y / cellHeight; row < (y+h+cellHeight-1)/cellHeight; row++ {
		for col := x / cellWidth; col < (x+w+cellWidth-1)/cellWidth; col++ {
			t.screen.SetContent(col, row, ' ', nil, st)
		}
	}
}

// Flush shows the drawn frame.
func (t *Terminal) Flush() error {
	t.screen.Show()
	return nil
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}

// WatchQuit calls quit once when the user presses Ctrl-C, Esc or q. The
// screen runs in raw mode, so Ctrl-C does not raise SIGINT. The watcher
// stops when the screen is closed.
func (t *Terminal) WatchQuit(quit func()) {
	go func() {
		for {
			switch ev := t.screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
					quit()
					return
				}
			}
		}
	}()
}

// Cell returns the rune at a cell, for tests.
func (t *Terminal) Cell(col, row int) rune {
	r, _, _, _ := t.screen.GetContent(col, row)
	return r
}
