package display

import "fmt"

// Op is one recorded drawing call.
type Op struct {
	Kind  string // "text", "line" or "box"
	X, Y  int
	X1    int // line end or box width
	Y1    int // line end or box height
	Text  string
	Style Style
}

// Recorder is a Canvas that records drawing calls. Text is CharWidth pixels
// per character (doubled for large text).
type Recorder struct {
	CharWidth int
	Ops       []Op
	Flushes   int
	FlushErr  error
}

// NewRecorder returns a recorder with 7 pixel wide characters.
func NewRecorder() *Recorder {
	return &Recorder{CharWidth: 7}
}

// Clear drops recorded operations.
func (r *Recorder) Clear() { r.Ops = r.Ops[:0] }

// DrawText records a text call.
func (r *Recorder) DrawText(x, y int, s string, style Style) {
	r.Ops = append(r.Ops, Op{Kind: "text", X: x, Y: y, Text: s, Style: style})
}

// TextWidth returns the width of s.
func (r *Recorder) TextWidth(s string, style Style) int {
	w := len([]rune(s)) * r.CharWidth
	if style.Large {
		w *= 2
	}
	return w
}

// DrawLine records a line call.
func (r *Recorder) DrawLine(x0, y0, x1, y1 int) {
	r.Ops = append(r.Ops, Op{Kind: "line", X: x0, Y: y0, X1: x1, Y1: y1})
}

// FillBox records a box call.
func (r *Recorder) FillBox(x, y, w, h int) {
	r.Ops = append(r.Ops, Op{Kind: "box", X: x, Y: y, X1: w, Y1: h})
}

// Flush counts flushes.
func (r *Recorder) Flush() error {
	r.Flushes++
	return r.FlushErr
}

// Texts returns the drawn strings in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

func (o Op) String() string {
	switch o.Kind {
	case "text":
		return fmt.Sprintf("text(%d,%d,%q)", o.X, o.Y, o.Text)
	case "line":
		return fmt.Sprintf("line(%d,%d,%d,%d)", o.X, o.Y, o.X1, o.Y1)
	}
	return fmt.Sprintf("box(%d,%d,%d,%d)", o.X, o.Y, o.X1, o.Y1)
}
