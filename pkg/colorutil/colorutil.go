// Package colorutil provides shared color utilities for the Flow Studio application.
package colorutil

import (
	"image/color"
)

// Common colors used throughout the editor chrome.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	CanvasBackground = color.RGBA{R: 0xfa, G: 0xfa, B: 0xfc, A: 255}
	GridLine         = color.RGBA{R: 0xe4, G: 0xe6, B: 0xeb, A: 255}
	NodeBody         = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 255}
	NodeBorder       = color.RGBA{R: 0xc8, G: 0xcc, B: 0xd4, A: 255}
	LabelText        = color.RGBA{R: 0x2b, G: 0x2f, B: 0x38, A: 255}
	Selection        = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
	ConnectionLine   = color.RGBA{R: 0x8a, G: 0x91, B: 0x9e, A: 255}
	InputHandle      = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 255}
	OutputHandle     = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
)

// Hex parses a "#RRGGBB" or "#RGB" string into an opaque RGBA color.
// Malformed input yields opaque black rather than an error; color tables are
// compiled in, so a bad literal shows up immediately in any rendered frame.
func Hex(s string) color.RGBA {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	switch len(s) {
	case 3:
		r := hexNibble(s[0])
		g := hexNibble(s[1])
		b := hexNibble(s[2])
		return color.RGBA{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b, A: 255}
	case 6:
		return color.RGBA{
			R: hexNibble(s[0])<<4 | hexNibble(s[1]),
			G: hexNibble(s[2])<<4 | hexNibble(s[3]),
			B: hexNibble(s[4])<<4 | hexNibble(s[5]),
			A: 255,
		}
	default:
		return Black
	}
}

func hexNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// WithAlpha returns the color with its alpha channel replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// Lighten mixes the color toward white by f in [0,1].
func Lighten(c color.RGBA, f float64) color.RGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	mix := func(v uint8) uint8 {
		return uint8(float64(v) + (255-float64(v))*f)
	}
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}
