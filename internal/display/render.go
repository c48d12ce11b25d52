package display

import "time"

// Screen geometry in pixels.
const (
	Width  = 128
	Height = 64
)

// Style selects the font and colour of drawn text.
type Style struct {
	// Large selects the timer font.
	Large bool
	// Inverse draws dark text, for use over a filled box.
	Inverse bool
}

// Canvas is a monochrome drawing surface with the origin at the top left.
// Text is positioned by its left edge and baseline.
type Canvas interface {
	Clear()
	DrawText(x, y int, s string, style Style)
	TextWidth(s string, style Style) int
	DrawLine(x0, y0, x1, y1 int)
	FillBox(x, y, w, h int)
	Flush() error
}

// View is what one display refresh shows.
type View struct {
	// ShowTarget replaces the group reading with the target.
	ShowTarget bool
	Group      float32
	Target     float32
	Basket     float32
	Elapsed    time.Duration
}

// NewView builds the view for now: within window of the last target change
// the target is shown in place of the group temperature.
func NewView(group, basket, target float32, elapsed time.Duration, lastTargetChange, now time.Time, window time.Duration) View {
	return View{
		ShowTarget: !now.After(lastTargetChange.Add(window)),
		Group:      group,
		Target:     target,
		Basket:     basket,
		Elapsed:    elapsed,
	}
}

// Render draws v and flushes the canvas.
func Render(c Canvas, v View) error {
	small := Style{}
	c.Clear()

	label, left := "Group", v.Group
	if v.ShowTarget {
		label, left = "Target", v.Target
	}
	c.DrawText(0, 11, label, small)
	c.DrawText(Width-c.TextWidth("Basket", small)-1, 11, "Basket", small)
	c.DrawLine(0, 13, Width-1, 13)

	c.DrawText(0, 30, FormatTemperature(left), small)
	basket := FormatTemperature(v.Basket)
	c.DrawText(Width-c.TextWidth(basket, small)-1, 30, basket, small)

	c.FillBox(0, 40, Width, 24)
	c.DrawText(24, 61, FormatElapsed(v.Elapsed), Style{Large: true, Inverse: true})

	return c.Flush()
}
