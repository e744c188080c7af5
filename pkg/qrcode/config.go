package qr

import "image/color"

// Theatro is the default look of the QR codes attached to announcements.
var Theatro = Config{
	Size:           320,
	LogoScale:      0.22,
	Background:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
	Foreground:     color.RGBA{R: 90, G: 20, B: 40, A: 255},
	CornerRadius:   0.35,
	RecoveryLevel:  3,
	QuietZone:      2,
	LogoBackground: color.RGBA{R: 255, G: 255, B: 255, A: 255},
}
