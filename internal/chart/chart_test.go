package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBarChart(t *testing.T) {
	labels := []string{"Jan", "Feb", "Mar"}
	data, err := RenderBarChart("Events per month", labels, []int{2, 0, 5})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	// The tallest bar (Mar) reaches the top of the plot area.
	slot := (Width - margin/2 - margin) / 3
	x := margin + 2*slot + slot/2
	r, g, b, _ := img.At(x, Height-margin-10).RGBA()
	assert.Equal(t, [3]uint32{uint32(barColor.R) * 0x101, uint32(barColor.G) * 0x101, uint32(barColor.B) * 0x101}, [3]uint32{r, g, b})
}

func TestRenderBarChart_Negative(t *testing.T) {
	data, err := RenderBarChart("Temperature", []string{"Hobart", "Darwin"}, []int{-3, 31})
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestRenderBarChart_BadInput(t *testing.T) {
	_, err := RenderBarChart("x", []string{"a"}, []int{1, 2})
	assert.Error(t, err)

	_, err = RenderBarChart("x", nil, nil)
	assert.ErrorIs(t, err, ErrNoData)
}
