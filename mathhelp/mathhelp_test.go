package mathhelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_pow2(t *testing.T) {
	assert.Equal(t, uint(1), Pow2(0))
	assert.Equal(t, uint(2), Pow2(1))
	assert.Equal(t, uint(256), Pow2(8))
}

func Test_bool2int(t *testing.T) {
	assert.Equal(t, 1, Bool2int(true))
	assert.Equal(t, 0, Bool2int(false))
}

func Test_clip(t *testing.T) {
	assert.Equal(t, 0.0, Clip(-1, 0, 10))
	assert.Equal(t, 10.0, Clip(11, 0, 10))
	assert.Equal(t, 5.0, Clip(5, 0, 10))
}
