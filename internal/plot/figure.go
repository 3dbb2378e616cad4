package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Figure defaults.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 5 * vg.Inch
	DefaultDPI    = 300
	FontSize      = 12
)

const (
	rightAxisWidth = 0.9 * vg.Inch
	colorBarWidth  = 1.1 * vg.Inch
)

// Figure is a grid of panels saved to a single image.
type Figure struct {
	Width, Height vg.Length
	DPI           int

	rows, cols int
	panels     []*Panel
}

// Panel is one plot of a Figure. Extra y axes and a color bar reserve room
// to the right of the data area.
type Panel struct {
	*plot.Plot

	under, over *layer
	overAdded   bool

	xRange, yRange *[2]float64

	rightPad vg.Length
	square   bool
	colorBar *plot.Plot
}

// NewFigure returns an empty rows×cols figure of the default size.
func NewFigure(rows, cols int) *Figure {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	f := &Figure{Width: DefaultWidth, Height: DefaultHeight, DPI: DefaultDPI, rows: rows, cols: cols}
	f.panels = make([]*Panel, rows*cols)
	return f
}

// Panel returns the panel at row, col, creating it on first use.
func (f *Figure) Panel(row, col int) *Panel {
	i := row*f.cols + col
	if f.panels[i] == nil {
		f.panels[i] = newPanel()
	}
	return f.panels[i]
}

func newPanel() *Panel {
	p := plot.New()
	size := vg.Points(FontSize)
	p.Title.TextStyle.Font.Size = size
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Font.Size = size
		ax.Tick.Label.Font.Size = size
	}
	p.Legend.TextStyle.Font.Size = size
	pn := &Panel{Plot: p, under: &layer{}, over: &layer{}}
	p.Add(pn.under)
	return pn
}

// Save writes the figure to path in the format given by its extension
// (png, jpg, svg or pdf).
func (f *Figure) Save(path string) (err error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteTo(w, format)
	return err
}

// WriteTo renders the figure in format to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	c, err := f.canvas(format)
	if err != nil {
		return 0, err
	}
	f.Draw(draw.New(c))
	return c.WriteTo(w)
}

func (f *Figure) canvas(format string) (vg.CanvasWriterTo, error) {
	switch format {
	case "png":
		return vgimg.PngCanvas{Canvas: f.image()}, nil
	case "jpg", "jpeg":
		return vgimg.JpegCanvas{Canvas: f.image()}, nil
	case "svg":
		return vgsvg.New(f.Width, f.Height), nil
	case "pdf":
		return vgpdf.New(f.Width, f.Height), nil
	}
	return nil, fmt.Errorf("unsupported image format %q", format)
}

func (f *Figure) image() *vgimg.Canvas {
	return vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(f.DPI))
}

// Draw draws every panel into its tile of dc.
func (f *Figure) Draw(dc draw.Canvas) {
	tiles := draw.Tiles{
		Rows: f.rows, Cols: f.cols,
		PadX: vg.Points(12), PadY: vg.Points(12),
		PadTop: vg.Points(6), PadBottom: vg.Points(6),
		PadLeft: vg.Points(6), PadRight: vg.Points(6),
	}
	for i, p := range f.panels {
		if p == nil {
			continue
		}
		p.draw(tiles.At(dc, i%f.cols, i/f.cols))
	}
}

func (p *Panel) draw(c draw.Canvas) {
	if !p.overAdded {
		p.Add(p.over)
		p.overAdded = true
	}
	p.applyRanges()
	if p.colorBar != nil {
		width := c.Max.X - c.Min.X
		p.colorBar.Draw(draw.Crop(c, width-colorBarWidth, 0, 0, 0))
		c = draw.Crop(c, 0, -colorBarWidth, 0, 0)
	}
	if p.square {
		c = squareOf(c)
	}
	p.Plot.Draw(draw.Crop(c, 0, -p.rightPad, 0, 0))
}

// squareOf centers the largest square in c.
func squareOf(c draw.Canvas) draw.Canvas {
	w, h := c.Max.X-c.Min.X, c.Max.Y-c.Min.Y
	if w > h {
		d := (w - h) / 2
		return draw.Crop(c, d, -d, 0, 0)
	}
	d := (h - w) / 2
	return draw.Crop(c, 0, 0, d, -d)
}
