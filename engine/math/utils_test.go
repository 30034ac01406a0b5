package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), Clamp(uint32(9), 1, 5))
	assert.Equal(t, 1, Clamp(-3, 1, 5))
	assert.Equal(t, 2.5, Clamp(2.5, 1, 5))
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, float32(0), Saturate(float32(-0.1)))
	assert.Equal(t, 1.0, Saturate(7.0))
	assert.Equal(t, 0.25, Saturate(0.25))
}
