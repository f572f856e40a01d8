package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstant(t *testing.T) {
	s := Constant(250 * time.Millisecond)
	for attempts := uint(1); attempts <= 5; attempts++ {
		assert.Equal(t, 250*time.Millisecond, s(attempts))
	}
}

func TestExponential(t *testing.T) {
	s := Exponential(100*time.Millisecond, 3)
	assert.Equal(t, 100*time.Millisecond, s(1))
	assert.Equal(t, 300*time.Millisecond, s(2))
	assert.Equal(t, 900*time.Millisecond, s(3))
}

func TestBinaryExponential(t *testing.T) {
	s := BinaryExponential(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, s(1))
	assert.Equal(t, time.Second, s(2))
	assert.Equal(t, 2*time.Second, s(3))
	assert.Equal(t, 4*time.Second, s(4))
}

func TestExponential_Saturates(t *testing.T) {
	s := BinaryExponential(time.Second)
	assert.Equal(t, time.Duration(math.MaxInt64), s(200))
}
