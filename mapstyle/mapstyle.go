// Package mapstyle carries rendering hints (colors, fonts, label alignment)
// for features drawn on map tiles. Setters silently ignore invalid values so
// a style is always usable.
package mapstyle

import (
	"image/color"
	"strconv"
	"strings"
)

// Horizontal label alignment.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Vertical label alignment.
const (
	AlignTop    = "top"
	AlignMiddle = "middle"
	AlignBottom = "bottom"
)

// Font is a named font at a point size.
type Font struct {
	Name string
	Size int
}

// Style describes how a feature should be rendered.
type Style struct {
	color       color.Color
	borderColor color.Color
	borderWidth *float64
	font        *Font
	align       string
	valign      string
	textWrap    *int
}

// New returns a style with centered label alignment and no colors set.
func New() *Style {
	return &Style{align: AlignCenter, valign: AlignMiddle}
}

// Clone returns a deep copy.
func (s *Style) Clone() *Style {
	c := *s
	if s.borderWidth != nil {
		w := *s.borderWidth
		c.borderWidth = &w
	}
	if s.font != nil {
		f := *s.font
		c.font = &f
	}
	if s.textWrap != nil {
		t := *s.textWrap
		c.textWrap = &t
	}
	return &c
}

func (s *Style) SetColor(c color.Color) {
	if c == nil {
		return
	}
	s.color = c
}

func (s *Style) Color() color.Color { return s.color }

func (s *Style) SetBorderColor(c color.Color) {
	if c == nil {
		return
	}
	s.borderColor = c
}

func (s *Style) BorderColor() color.Color { return s.borderColor }

// SetBorderWidth sets the border stroke width in pixels. Negative values
// are ignored.
func (s *Style) SetBorderWidth(width float64) {
	if width < 0 {
		return
	}
	s.borderWidth = &width
}

func (s *Style) BorderWidth() (float64, bool) {
	if s.borderWidth == nil {
		return 0, false
	}
	return *s.borderWidth, true
}

func (s *Style) SetFont(name string, size int) {
	name = strings.TrimSpace(name)
	if name == "" || size < 1 {
		return
	}
	s.font = &Font{Name: name, Size: size}
}

func (s *Style) Font() *Font { return s.font }

// SetTextAlign sets the horizontal label alignment to left, center or
// right. Other values are ignored.
func (s *Style) SetTextAlign(align string) {
	switch normalize(align) {
	case AlignLeft, AlignCenter, AlignRight:
		s.align = normalize(align)
	}
}

func (s *Style) TextAlign() string { return s.align }

// SetTextVAlign sets the vertical label alignment to top, middle or
// bottom. Other values are ignored.
func (s *Style) SetTextVAlign(valign string) {
	switch normalize(valign) {
	case AlignTop, AlignMiddle, AlignBottom:
		s.valign = normalize(valign)
	}
}

func (s *Style) TextVAlign() string { return s.valign }

// SetTextWrap sets the label wrap width in pixels. Values below 1 are
// ignored.
func (s *Style) SetTextWrap(px int) {
	if px < 1 {
		return
	}
	s.textWrap = &px
}

func (s *Style) TextWrap() (int, bool) {
	if s.textWrap == nil {
		return 0, false
	}
	return *s.textWrap, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseColor parses a "#rgb" or "#rrggbb" hex string. Three digit strings
// are expanded by appending the digits again ("#abc" becomes "#abcabc").
// Strings that fail to parse yield opaque black.
func ParseColor(hex string) color.Color {
	if !strings.HasPrefix(hex, "#") {
		return color.RGBA{A: 255}
	}
	if len(hex) == 4 {
		hex += hex[1:]
	}
	if len(hex) != 7 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}
