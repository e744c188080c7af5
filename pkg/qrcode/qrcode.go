package qr

import (
	"bytes"
	"errors"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"github.com/skip2/go-qrcode"
)

type Config struct {
	Content        string
	LogoPath       string
	Size           int
	LogoScale      float64
	Background     color.Color
	Foreground     color.Color
	CornerRadius   float64 // Dot roundness, as a fraction of a module (0 = square, 0.5 = circle)
	RecoveryLevel  int
	QuietZone      int // Quiet zone around the code, in modules
	LogoBackground color.Color
}

// Generate creates a QR code with the given configuration and returns it as PNG bytes
func (c *Config) Generate() ([]byte, error) {
	if c.Content == "" {
		return nil, errors.New("qr: empty content")
	}
	if c.Size <= 0 {
		return nil, errors.New("qr: size must be positive")
	}

	code, err := qrcode.New(c.Content, qrcode.RecoveryLevel(c.RecoveryLevel))
	if err != nil {
		return nil, err
	}
	code.DisableBorder = true
	bitmap := code.Bitmap()

	modules := len(bitmap) + 2*c.QuietZone
	moduleSize := float64(c.Size) / float64(modules)
	radius := moduleSize * c.CornerRadius

	dc := gg.NewContext(c.Size, c.Size)
	dc.SetColor(c.Background)
	dc.Clear()

	dc.SetColor(c.Foreground)
	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := float64(x+c.QuietZone) * moduleSize
			py := float64(y+c.QuietZone) * moduleSize
			if radius > 0 {
				dc.DrawRoundedRectangle(px, py, moduleSize, moduleSize, radius)
			} else {
				dc.DrawRectangle(px, py, moduleSize, moduleSize)
			}
		}
	}
	dc.Fill()

	if c.LogoPath != "" {
		if err = c.drawLogo(dc); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err = dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawLogo pastes the logo, scaled to LogoScale of the code, on a round
// background in the center. The recovery level must leave room for it.
func (c *Config) drawLogo(dc *gg.Context) error {
	logo, err := gg.LoadImage(c.LogoPath)
	if err != nil {
		return err
	}
	logoSize := uint(float64(c.Size) * c.LogoScale)
	if logoSize == 0 {
		return nil
	}
	scaled := resize.Resize(logoSize, logoSize, logo, resize.Lanczos3)

	center := float64(c.Size) / 2
	if c.LogoBackground != nil {
		dc.SetColor(c.LogoBackground)
		dc.DrawCircle(center, center, float64(logoSize)*0.6)
		dc.Fill()
	}
	dc.DrawImageAnchored(scaled, int(center), int(center), 0.5, 0.5)
	return nil
}
