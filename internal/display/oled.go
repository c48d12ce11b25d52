package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/devices/ssd1306"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

var face = basicfont.Face7x13

// OLED draws on an SSD1306 128x64 panel over I2C. Drawing happens in a
// frame buffer that Flush sends in one transfer.
type OLED struct {
	dev   *ssd1306.Dev
	frame *image1bit.VerticalLSB
}

// NewOLED opens the panel on bus.
func NewOLED(bus i2c.Bus) (*OLED, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("open ssd1306: %w", err)
	}
	return &OLED{
		dev:   dev,
		frame: image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height)),
	}, nil
}

// Clear blanks the frame buffer.
func (o *OLED) Clear() {
	clearFrame(o.frame)
}

// DrawText draws s with its baseline at y.
func (o *OLED) DrawText(x, y int, s string, style Style) {
	drawText(o.frame, x, y, s, style)
}

// TextWidth returns the rendered width of s in pixels.
func (o *OLED) TextWidth(s string, style Style) int {
	return textWidth(s, style)
}

// DrawLine draws a horizontal, vertical or diagonal line.
func (o *OLED) DrawLine(x0, y0, x1, y1 int) {
	drawLine(o.frame, x0, y0, x1, y1)
}

// FillBox sets every pixel of the box.
func (o *OLED) FillBox(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			o.frame.SetBit(i, j, image1bit.On)
		}
	}
}

// Flush sends the frame buffer to the panel.
func (o *OLED) Flush() error {
	if err := o.dev.Draw(o.frame.Bounds(), o.frame, image.Point{}); err != nil {
		return fmt.Errorf("draw ssd1306: %w", err)
	}
	return nil
}

// Close blanks and halts the panel.
func (o *OLED) Close() error {
	return o.dev.Halt()
}

func clearFrame(f *image1bit.VerticalLSB) {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}

func textWidth(s string, style Style) int {
	w := font.MeasureString(face, s).Ceil()
	if style.Large {
		w *= 2
	}
	return w
}

// drawText renders s in the 7x13 face. Large text is the same glyphs scaled
// by two.
func drawText(f *image1bit.VerticalLSB, x, y int, s string, style Style) {
	bit := image1bit.On
	if style.Inverse {
		bit = image1bit.Off
	}

	ascent := face.Metrics().Ascent.Ceil()
	glyphs := image.NewAlpha(image.Rect(0, 0, textWidth(s, Style{}), face.Height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(s)

	scale := 1
	if style.Large {
		scale = 2
	}
	top := y - ascent*scale
	b := glyphs.Bounds()
	for j := b.Min.Y; j < b.Max.Y; j++ {
		for i := b.Min.X; i < b.Max.X; i++ {
			if glyphs.AlphaAt(i, j).A == 0 {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					f.SetBit(x+i*scale+dx, top+j*scale+dy, bit)
				}
			}
		}
	}
}

func drawLine(f *image1bit.VerticalLSB, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		f.SetBit(x0, y0, image1bit.On)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
