package render

import (
	"image"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
)

// halfBlock shows the upper pixel as foreground and the lower as background.
const halfBlock = "▀"

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. Each terminal row covers two framebuffer rows.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	// We use ▀ (upper half block) with fg=top color and bg=bottom color
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col-area.Min.X < fb.Width; col++ {
			x := col - area.Min.X
			cell := &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.GetPixel(x, topY)),
					Bg: rgbaToColor(fb.GetPixel(x, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// HalfBlocks renders the framebuffer as lines of styled half-block
// characters, for printing a preview outside of an interactive screen.
func (fb *Framebuffer) HalfBlocks() string {
	var sb strings.Builder
	for topY := 0; topY < fb.Height; topY += 2 {
		for x := range fb.Width {
			style := lipgloss.NewStyle().
				Foreground(rgbaToColor(fb.GetPixel(x, topY))).
				Background(rgbaToColor(fb.GetPixel(x, topY+1)))
			sb.WriteString(style.Render(halfBlock))
		}
		if topY+2 < fb.Height {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// rgbaToColor converts color.RGBA to Go's color.Color interface.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil // Transparent = no color
	}
	return c
}

// TerminalRenderer presents framebuffers on an ultraviolet terminal.
type TerminalRenderer struct {
	term   *uv.Terminal
	width  int // Terminal columns
	height int // Terminal rows
}

// NewTerminalRenderer creates a renderer for a terminal of width x height
// cells.
func NewTerminalRenderer(term *uv.Terminal, width, height int) *TerminalRenderer {
	return &TerminalRenderer{term: term, width: width, height: height}
}

// FramebufferSize returns the framebuffer dimensions that fill the
// terminal: one pixel per column and two per row.
func (r *TerminalRenderer) FramebufferSize() (width, height int) {
	return r.width, r.height * 2
}

// Render draws fb over the whole terminal.
func (r *TerminalRenderer) Render(fb *Framebuffer) {
	fb.Draw(r.term, uv.Rectangle(image.Rect(0, 0, r.width, r.height)))
}

// Flush writes pending cell changes to the terminal.
func (r *TerminalRenderer) Flush() error {
	return r.term.Display()
}

// RGB creates an opaque color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}
