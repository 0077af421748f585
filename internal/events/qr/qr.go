package qr

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const Size = 256

type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/")}
}

// EventURL is the absolute link encoded for an event.
func (g *Generator) EventURL(id int64) string {
	return fmt.Sprintf("%s/events/%d", g.baseURL, id)
}

// EventPNG renders the event link as a PNG QR code.
func (g *Generator) EventPNG(id int64) ([]byte, error) {
	png, err := qrcode.Encode(g.EventURL(id), qrcode.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
