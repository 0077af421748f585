// Package chart draws simple labelled bar charts as PNG.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 800
	Height = 480
	margin = 48
)

var (
	background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	axisColor  = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	barColor   = color.NRGBA{R: 54, G: 118, B: 196, A: 255}
	textColor  = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
)

var ErrNoData = errors.New("chart has no data")

// RenderBarChart returns a PNG with one bar per label. Negative values are
// drawn below the zero line.
func RenderBarChart(title string, labels []string, values []int) ([]byte, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("chart has %d labels but %d values", len(labels), len(values))
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	img := imaging.New(Width, Height, background)

	plotTop := margin + 16
	plotBottom := Height - margin
	plotLeft := margin
	plotRight := Width - margin/2

	lo, hi := 0, 0
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	scale := float64(plotBottom-plotTop) / float64(hi-lo)
	zeroY := plotBottom - int(float64(-lo)*scale)

	slot := (plotRight - plotLeft) / len(values)
	barWidth := max(1, slot*3/5)

	for i, v := range values {
		x := plotLeft + i*slot + (slot-barWidth)/2
		h := int(float64(abs(v)) * scale)
		y := zeroY - h
		if v < 0 {
			y = zeroY
		}
		if h > 0 {
			img = imaging.Paste(img, imaging.New(barWidth, h, barColor), image.Pt(x, y))
		}

		center := x + barWidth/2
		drawCentered(img, center, plotBottom+16, labels[i])
		valueY := y - 4
		if v < 0 {
			valueY = y + h + 13
		}
		drawCentered(img, center, valueY, fmt.Sprint(v))
	}

	img = imaging.Paste(img, imaging.New(plotRight-plotLeft, 1, axisColor), image.Pt(plotLeft, zeroY))
	img = imaging.Paste(img, imaging.New(1, plotBottom-plotTop, axisColor), image.Pt(plotLeft, plotTop))
	drawCentered(img, Width/2, margin/2+6, title)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCentered(dst *image.NRGBA, cx, baseline int, s string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(cx-w/2, baseline),
	}
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
