package ui

import (
	"fmt"
	"image"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Terminal cells are roughly twice as tall as wide, and the upper
// half block packs two pixels per cell. These divisors map a thumbnail
// pixel size onto a cell raster with close to the original aspect.
const (
	cellsPerThumbPx = 8
	rowsPerThumbPx  = 16
)

// mosaicCols returns the mosaic width in cells for a thumbnail size.
func mosaicCols(thumbSize int) int {
	cols := thumbSize / cellsPerThumbPx
	if cols < 4 {
		cols = 4
	}
	return cols
}

// mosaicRows returns the mosaic height in text rows.
func mosaicRows(thumbSize int) int {
	rows := thumbSize / rowsPerThumbPx
	if rows < 2 {
		rows = 2
	}
	return rows
}

// renderMosaic draws img as a half-block mosaic cols cells wide and
// rows text rows tall. Each cell shows two vertically stacked pixels
// through the upper half block with truecolor foreground/background.
func renderMosaic(img image.Image, cols, rows int) string {
	scaled := image.NewNRGBA(image.Rect(0, 0, cols, rows*2))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var b strings.Builder
	b.Grow(cols * rows * 24)
	for y := 0; y < rows*2; y += 2 {
		for x := 0; x < cols; x++ {
			top := scaled.NRGBAAt(x, y)
			bottom := scaled.NRGBAAt(x, y+1)
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		b.WriteString("\x1b[0m")
		if y+2 < rows*2 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// blankMosaic returns an empty tile used for slots whose thumbnail is
// still being realized.
func blankMosaic(cols, rows int) string {
	line := strings.Repeat("·", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = labelStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}
