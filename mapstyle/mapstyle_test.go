package mapstyle

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseColor(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want color.Color
	}{
		{name: "six digits", hex: "#ff6e00", want: color.RGBA{R: 0xff, G: 0x6e, B: 0x00, A: 255}},
		{name: "white", hex: "#ffffff", want: color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{name: "three digits repeat the triplet", hex: "#abc", want: color.RGBA{R: 0xab, G: 0xca, B: 0xbc, A: 255}},
		{name: "short white", hex: "#fff", want: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 255}},
		{name: "missing hash", hex: "ff6e00", want: color.RGBA{A: 255}},
		{name: "not hex", hex: "#zzzzzz", want: color.RGBA{A: 255}},
		{name: "wrong length", hex: "#ff6e0", want: color.RGBA{A: 255}},
		{name: "empty", hex: "", want: color.RGBA{A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColor(tt.hex))
		})
	}
}

func Test_newDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, AlignCenter, s.TextAlign())
	assert.Equal(t, AlignMiddle, s.TextVAlign())
	assert.Nil(t, s.Color())
	_, ok := s.BorderWidth()
	assert.False(t, ok)
}

func Test_settersIgnoreInvalidValues(t *testing.T) {
	s := New()

	s.SetColor(nil)
	assert.Nil(t, s.Color())
	s.SetColor(color.White)
	assert.Equal(t, color.White, s.Color())

	s.SetBorderWidth(-1)
	_, ok := s.BorderWidth()
	assert.False(t, ok)
	s.SetBorderWidth(2.5)
	w, ok := s.BorderWidth()
	require.True(t, ok)
	assert.Equal(t, 2.5, w)

	s.SetFont(" ", 12)
	assert.Nil(t, s.Font())
	s.SetFont("Helvetica", 0)
	assert.Nil(t, s.Font())
	s.SetFont("Helvetica", 12)
	require.NotNil(t, s.Font())
	assert.Equal(t, "Helvetica", s.Font().Name)

	s.SetTextAlign("diagonal")
	assert.Equal(t, AlignCenter, s.TextAlign())
	s.SetTextAlign(" RIGHT ")
	assert.Equal(t, AlignRight, s.TextAlign())

	s.SetTextVAlign("sideways")
	assert.Equal(t, AlignMiddle, s.TextVAlign())
	s.SetTextVAlign("Bottom")
	assert.Equal(t, AlignBottom, s.TextVAlign())

	s.SetTextWrap(0)
	_, ok = s.TextWrap()
	assert.False(t, ok)
	s.SetTextWrap(120)
	wrap, ok := s.TextWrap()
	require.True(t, ok)
	assert.Equal(t, 120, wrap)
}

func Test_clone(t *testing.T) {
	s := New()
	s.SetColor(color.White)
	s.SetBorderWidth(3)
	s.SetFont("Helvetica", 12)
	s.SetTextWrap(80)

	c := s.Clone()
	c.SetBorderWidth(9)
	c.SetFont("Courier", 8)
	c.SetTextWrap(10)

	w, _ := s.BorderWidth()
	assert.Equal(t, 3.0, w)
	assert.Equal(t, "Helvetica", s.Font().Name)
	wrap, _ := s.TextWrap()
	assert.Equal(t, 80, wrap)
}
