package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	cfg := Theatro
	cfg.Content = "http://localhost:3000/show/42/apply"

	data, err := cfg.Generate()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, cfg.Size, img.Bounds().Dx())
	assert.Equal(t, cfg.Size, img.Bounds().Dy())
}

func TestGenerateRequiresContent(t *testing.T) {
	cfg := Theatro
	_, err := cfg.Generate()
	assert.Error(t, err)
}

func TestGenerateMissingLogo(t *testing.T) {
	cfg := Theatro
	cfg.Content = "x"
	cfg.LogoPath = "does-not-exist.png"
	_, err := cfg.Generate()
	assert.Error(t, err)
}
