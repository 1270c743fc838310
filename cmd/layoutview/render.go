package main

import (
	"bytes"
	"fmt"
	"image/color"
	"os"

	"github.com/spf13/cobra"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/skdltmxn/cxxlayout/bytemap"
)

var renderCmd = &cobra.Command{
	Use:   "render <source-file> <id-or-name>",
	Short: "Render the byte map of a record as PDF",
	Long: `Render the byte map of a record as a PDF page with one cell per byte,
colored by the field that owns it. Padding cells are left blank.

Labels are only drawn when a TrueType or OpenType font is given with
--font. Write the result with -o.`,
	Args: cobra.ExactArgs(2),
	RunE: runRender,
}

var renderFont string

func init() {
	renderCmd.Flags().StringVar(&renderFont, "font", "", "font file used for labels")
}

// Page geometry in millimetres.
const (
	pageMargin  = 10.0
	cellSize    = 8.0
	legendRow   = 6.0
	labelSizePt = 7.0
	borderWidth = 0.2
)

var gridColor = canvas.Hex("#999999")

var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3", "#fdb462",
	"#b3de69", "#fccde5", "#bc80bd", "#ccebc5", "#ffed6f", "#d9d9d9",
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}
	_, n, err := resolve(s, args[1])
	if err != nil {
		return fmt.Errorf("failed to find record: %w", err)
	}
	m, err := byteMap(n)
	if err != nil {
		return err
	}

	var face *canvas.FontFace
	if renderFont != "" {
		face, err = loadFace(renderFont)
		if err != nil {
			return err
		}
	}

	doc, err := renderPDF(m, face)
	if err != nil {
		return err
	}
	if _, err := output.Write(doc); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func loadFace(path string) (*canvas.FontFace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	family := canvas.NewFontFamily("layoutview")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	return family.Face(labelSizePt, canvas.Hex("#1a1a1a"), canvas.FontRegular, canvas.FontNormal), nil
}

func fieldColor(i int) color.Color {
	return canvas.Hex(palette[i%len(palette)])
}

// renderPDF draws the byte grid followed by a legend with one row per
// field. face may be nil, in which case no text is drawn.
func renderPDF(m *bytemap.Map, face *canvas.FontFace) ([]byte, error) {
	rows := (m.Size() + rowBytes - 1) / rowBytes
	fields := m.Fields()

	width := 2*pageMargin + rowBytes*cellSize
	height := 2*pageMargin + float64(rows)*cellSize + legendRow*float64(len(fields)+2)

	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	writer.SetInfo(m.Type(), "record byte map", "", "", "layoutview")

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	drawGrid(ctx, m, face)
	drawLegend(ctx, m, fields, pageMargin+float64(rows)*cellSize+legendRow, face)
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func drawGrid(ctx *canvas.Context, m *bytemap.Map, face *canvas.FontFace) {
	ctx.SetStrokeColor(gridColor)
	ctx.SetStrokeWidth(borderWidth)
	for b := 0; b < m.Size(); b++ {
		x := pageMargin + float64(b%rowBytes)*cellSize
		y := pageMargin + float64(b/rowBytes)*cellSize

		fill := color.Color(canvas.White)
		if owner, ok := m.Owner(b); ok {
			fill = fieldColor(owner)
		}
		ctx.SetFillColor(fill)
		ctx.DrawPath(x, y, canvas.Rectangle(cellSize, cellSize))

		if face != nil && b%rowBytes == 0 {
			drawLabel(ctx, face, x+cellSize/2, y+cellSize/2, fmt.Sprintf("%d", b), canvas.Center)
		}
	}
}

func drawLegend(ctx *canvas.Context, m *bytemap.Map, fields []bytemap.Field, top float64, face *canvas.FontFace) {
	for i, f := range fields {
		y := top + float64(i)*legendRow
		ctx.SetFillColor(fieldColor(i))
		ctx.SetStrokeColor(gridColor)
		ctx.SetStrokeWidth(borderWidth)
		ctx.DrawPath(pageMargin, y, canvas.Rectangle(legendRow-1, legendRow-1))
		if face != nil {
			text := fmt.Sprintf("%s  %s  [%d, %d)", f.Label(), f.Type, f.Start, f.End)
			drawLabel(ctx, face, pageMargin+legendRow+1, y+(legendRow-1)/2, text, canvas.Left)
		}
	}
	if face != nil {
		y := top + float64(len(fields))*legendRow
		text := fmt.Sprintf("%s: %d bytes, %d padding", m.Type(), m.Size(), m.Padding())
		drawLabel(ctx, face, pageMargin, y+(legendRow-1)/2, text, canvas.Left)
	}
}

// drawLabel draws one line of text vertically centered on y.
func drawLabel(ctx *canvas.Context, face *canvas.FontFace, x, y float64, text string, align canvas.TextAlign) {
	metrics := face.Metrics()
	baseline := y + (metrics.Ascent-metrics.Descent)/2
	ctx.DrawText(x, baseline, canvas.NewTextLine(face, text, align))
}
