// Package color provides the RGBA colour type used by tags, with hex
// parsing/formatting, HSV conversion and contrast helpers.
package color

import (
	"fmt"
	"math"
	"strings"

	"github.com/spellcardmanager/spellcards/internal/errors"
)

// Color is an sRGB colour with 8-bit channels. A == 255 is fully opaque.
type Color struct {
	R, G, B, A uint8
}

// Common colours.
var (
	Black = RGB(0, 0, 0)
	White = RGB(255, 255, 255)
	Red   = RGB(255, 0, 0)
)

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// RGBA returns a colour with an explicit alpha channel.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Opaque reports whether the alpha channel is 255.
func (c Color) Opaque() bool {
	return c.A == 255
}

// Hex formats the colour as "#rrggbb", or "#rrggbbaa" when not fully opaque.
// Digits are always lowercase.
func (c Color) Hex() string {
	if c.Opaque() {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// ParseHex parses "#RGB", "#RGBA", "#RRGGBB" or "#RRGGBBAA" (either case).
// Shorthand forms double each digit. Any other shape is an INVALID_FORMAT error;
// there is no fallback colour.
func ParseHex(s string) (Color, error) {
	digits, ok := strings.CutPrefix(s, "#")
	if !ok {
		return Color{}, errors.InvalidFormatf("invalid color %q: missing '#'", s)
	}

	nibbles := make([]uint8, len(digits))
	for i := 0; i < len(digits); i++ {
		n, ok := hexNibble(digits[i])
		if !ok {
			return Color{}, errors.InvalidFormatf("invalid color %q: %q is not a hex digit", s, digits[i])
		}
		nibbles[i] = n
	}

	switch len(nibbles) {
	case 3, 4:
		c := Color{
			R: nibbles[0]<<4 | nibbles[0],
			G: nibbles[1]<<4 | nibbles[1],
			B: nibbles[2]<<4 | nibbles[2],
			A: 255,
		}
		if len(nibbles) == 4 {
			c.A = nibbles[3]<<4 | nibbles[3]
		}
		return c, nil
	case 6, 8:
		c := Color{
			R: nibbles[0]<<4 | nibbles[1],
			G: nibbles[2]<<4 | nibbles[3],
			B: nibbles[4]<<4 | nibbles[5],
			A: 255,
		}
		if len(nibbles) == 8 {
			c.A = nibbles[6]<<4 | nibbles[7]
		}
		return c, nil
	default:
		return Color{}, errors.InvalidFormatf("invalid color %q: expected 3, 4, 6 or 8 hex digits", s)
	}
}

// MustParseHex is like ParseHex but panics on malformed input. For literals only.
func MustParseHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func hexNibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// HSV returns hue in [0, 1) and saturation and value in [0, 1]. Alpha is
// ignored.
func (c Color) HSV() (h, s, v float64) {
	rf := float64(c.R) / 255
	gf := float64(c.G) / 255
	bf := float64(c.B) / 255

	v = math.Max(rf, math.Max(gf, bf))
	minComponent := math.Min(rf, math.Min(gf, bf))
	chroma := v - minComponent

	if v != 0 {
		s = chroma / v
	}

	switch {
	case chroma == 0:
		h = 0
	case v == rf:
		h = math.Mod((gf-bf)/chroma, 6)
		if h < 0 {
			h += 6
		}
	case v == gf:
		h = (bf-rf)/chroma + 2
	default:
		h = (rf-gf)/chroma + 4
	}
	h /= 6

	return h, s, v
}

// FromHSV builds an opaque colour from hue, saturation and value. Inputs are
// clamped to [0, 1] and a hue of exactly 1 wraps to 0.
func FromHSV(h, s, v float64) Color {
	h = clamp01(h)
	s = clamp01(s)
	v = clamp01(v)
	if h == 1 {
		h = 0
	}

	huePrime := h * 6
	chroma := v * s
	m := v - chroma
	xPlusM := v - chroma*math.Abs(math.Mod(huePrime, 2)-1)

	var rf, gf, bf float64
	switch {
	case huePrime < 1:
		rf, gf, bf = v, xPlusM, m
	case huePrime < 2:
		rf, gf, bf = xPlusM, v, m
	case huePrime < 3:
		rf, gf, bf = m, v, xPlusM
	case huePrime < 4:
		rf, gf, bf = m, xPlusM, v
	case huePrime < 5:
		rf, gf, bf = xPlusM, m, v
	default:
		rf, gf, bf = v, m, xPlusM
	}

	return RGB(toByte(rf), toByte(gf), toByte(bf))
}

// WithHue returns c with its hue replaced, keeping saturation and value.
func (c Color) WithHue(h float64) Color {
	_, s, v := c.HSV()
	return FromHSV(h, s, v)
}

// WithSaturation returns c with its saturation replaced.
func (c Color) WithSaturation(s float64) Color {
	h, _, v := c.HSV()
	return FromHSV(h, s, v)
}

// WithValue returns c with its value replaced.
func (c Color) WithValue(v float64) Color {
	h, s, _ := c.HSV()
	return FromHSV(h, s, v)
}

// RelativeLuminance returns the WCAG 2.0 relative luminance in [0, 1],
// assuming sRGB and ignoring transparency.
func (c Color) RelativeLuminance() float64 {
	linear := func(channel uint8) float64 {
		f := float64(channel) / 255
		if f <= 0.03928 {
			return f / 12.92
		}
		return math.Pow((f+0.055)/1.055, 2.4)
	}
	return 0.2126*linear(c.R) + 0.7152*linear(c.G) + 0.0722*linear(c.B)
}

// TextOnColor picks white or black text for a label drawn on c: white whenever
// its contrast ratio against c reaches 3:1.
func (c Color) TextOnColor() Color {
	contrastWhite := 1.05 / (c.RelativeLuminance() + 0.05)
	if contrastWhite >= 3 {
		return White
	}
	return Black
}

// ForName generates a consistent colour for a new tag based on its name.
// Colours are drawn from a palette with fixed saturation and lightness.
func ForName(name string) Color {
	var h uint32
	for _, c := range name {
		h = 31*h + uint32(c)
	}
	hue := float64(h % 360)

	// S=0.55, L=0.5 keeps tag chips saturated enough to tell apart.
	r, g, b := hslToRGB(hue, 0.55, 0.5)
	return RGB(r, g, b)
}

// hslToRGB converts HSL colour space to RGB.
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var r1, g1, b1 float64

	if s == 0 {
		r1, g1, b1 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	return toByte(r1), toByte(g1), toByte(b1)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func clamp01(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}

func toByte(f float64) uint8 {
	return uint8(math.Round(clamp01(f) * 255))
}
