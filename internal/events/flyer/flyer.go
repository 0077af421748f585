// Package flyer renders a one page A4 PDF for an event with its QR code.
package flyer

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"ms-events/internal/events/ical"
	"ms-events/internal/models"
)

const fontName = "goregular"

type Generator struct {
	// Font is TTF data; nil uses the Go regular face.
	Font []byte
}

func NewGenerator() *Generator {
	return &Generator{Font: goregular.TTF}
}

func (g *Generator) Render(e *models.Event, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	font := g.Font
	if font == nil {
		font = goregular.TTF
	}
	if err := pdf.AddTTFFontData(fontName, font); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := pdf.SetFont(fontName, "", 24); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetX(40)
	pdf.SetY(50)
	pdf.Cell(nil, e.Name)

	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(100)
	addDetails(pdf, e)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		if err := addQRCode(pdf, qrCode); err != nil {
			return nil, err
		}
	}

	pdf.SetX(40)
	pdf.SetY(780)
	if err := pdf.SetFont(fontName, "", 10); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.Cell(nil, fmt.Sprintf("Event %d, last updated %s", e.ID, e.LastUpdate.Format(models.TimestampLayout)))

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addDetails(pdf *gopdf.GoPdf, e *models.Event) {
	info := []struct {
		Label string
		Value string
	}{
		{"Date", e.Date},
		{"Time", e.TimeFrom + " - " + e.TimeTo},
		{"Where", ical.Location(e)},
	}

	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(22)
	}

	if e.Description != "" {
		pdf.Br(10)
		pdf.SetX(40)
		lines, err := pdf.SplitText(e.Description, 515)
		if err != nil {
			lines = []string{e.Description}
		}
		for _, line := range lines {
			pdf.SetX(40)
			pdf.Cell(nil, line)
			pdf.Br(18)
		}
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) error {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}

	rect := &gopdf.Rect{W: 160, H: 160}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), rect); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	return nil
}
