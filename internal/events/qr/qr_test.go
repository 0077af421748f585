package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventURL(t *testing.T) {
	g := NewGenerator("https://calendar.example.com/")
	assert.Equal(t, "https://calendar.example.com/events/42", g.EventURL(42))
}

func TestEventPNG(t *testing.T) {
	g := NewGenerator("http://localhost:8080")

	data, err := g.EventPNG(7)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
	assert.Equal(t, Size, img.Bounds().Dy())
}
